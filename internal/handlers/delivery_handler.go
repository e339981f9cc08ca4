package handlers

import (
	"errors"
	"net/http"
	"time"

	"buildops-api/internal/database"
	"buildops-api/internal/engine"
	"buildops-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliveryItemRequest is one line item on a delivery request
type DeliveryItemRequest struct {
	Name     string  `json:"name" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
	Unit     string  `json:"unit" binding:"required"`
	Notes    string  `json:"notes"`
}

// CreateDeliveryRequest represents the payload for creating a delivery
type CreateDeliveryRequest struct {
	ProjectID    string                `json:"projectId" binding:"required"`
	TaskID       string                `json:"taskId"`
	LocationID   string                `json:"locationId"`
	SupplierName string                `json:"supplierName" binding:"required"`
	ExpectedDate string                `json:"expectedDate"`
	BlocksWork   bool                  `json:"blocksWork"`
	Items        []DeliveryItemRequest `json:"items" binding:"required,min=1"`
}

// UpdateDeliveryStatusRequest represents a status change request
type UpdateDeliveryStatusRequest struct {
	Status       models.DeliveryStatus `json:"status" binding:"required"`
	StatusReason string                `json:"statusReason"`
}

// GetDeliveries handles GET /api/deliveries
func GetDeliveries(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	page, limit, offset := pageParams(c)
	db := database.GetDB()
	query := db.Model(&models.Delivery{})
	if projectID := c.Query("projectId"); projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count deliveries"})
		return
	}

	var deliveries []models.Delivery
	if err := query.Session(&gorm.Session{}).Preload("Items").Order("created_at desc").Limit(limit).Offset(offset).Find(&deliveries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch deliveries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deliveries": deliveries,
		"count":      len(deliveries),
		"total":      total,
		"page":       page,
		"limit":      limit,
	})
}

// CreateDelivery handles POST /api/deliveries
// A delivery with blocksWork=true anchored to a task opens a START-scope
// DELIVERY block on that task in the same transaction.
func CreateDelivery(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	expectedDate, ok := optionalDate(req.ExpectedDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expectedDate"})
		return
	}

	delivery := models.Delivery{
		ID:           uuid.NewString(),
		ProjectID:    req.ProjectID,
		SupplierName: req.SupplierName,
		Status:       models.DeliveryRequested,
		ExpectedDate: expectedDate,
		BlocksWork:   req.BlocksWork,
		CreatedBy:    userID,
		UpdatedBy:    userID,
	}
	if req.TaskID != "" {
		delivery.TaskID = &req.TaskID
	}
	if req.LocationID != "" {
		delivery.LocationID = &req.LocationID
	}
	for _, item := range req.Items {
		delivery.Items = append(delivery.Items, models.DeliveryItem{
			ID:       uuid.NewString(),
			Name:     item.Name,
			Quantity: item.Quantity,
			Unit:     item.Unit,
			Notes:    item.Notes,
		})
	}

	effects := engine.DeliveryCreationEffects(&delivery)
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if txErr := tx.Create(&delivery).Error; txErr != nil {
			return txErr
		}
		return applyEffects(tx, userID, effects)
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	broadcastEffects(delivery.ProjectID, effects)
	c.JSON(http.StatusCreated, delivery)
}

// GetDeliveryByID handles GET /api/deliveries/:id
func GetDeliveryByID(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	var delivery models.Delivery
	if err := database.GetDB().Preload("Items").Where("id = ?", c.Param("id")).First(&delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch delivery"})
		}
		return
	}

	c.JSON(http.StatusOK, delivery)
}

// UpdateDeliveryStatus handles PATCH /api/deliveries/:id/status
// Accepting a delivery resolves every block referencing it; the blocked
// tasks keep their status until their own transitions are requested.
func UpdateDeliveryStatus(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req UpdateDeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var delivery models.Delivery
	if err := database.GetDB().Where("id = ?", c.Param("id")).First(&delivery).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Delivery not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch delivery"})
		}
		return
	}

	// An omitted reason keeps the last recorded one
	extra := map[string]any{}
	if req.StatusReason != "" {
		extra["status_reason"] = req.StatusReason
	}
	if req.Status == models.DeliveryDelivered {
		extra["delivered_at"] = time.Now()
	}

	var result *engine.Result
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = engine.RequestTransition(engine.Request{
			Entity:        models.EntityRef{Type: models.EntityDelivery, ID: delivery.ID},
			ProjectID:     delivery.ProjectID,
			CurrentStatus: string(delivery.Status),
			TargetStatus:  string(req.Status),
			Actor:         userID,
		})
		if txErr != nil {
			return txErr
		}
		if txErr = applyStatusChange(tx, &models.Delivery{}, delivery.ID, string(delivery.Status), result.NewStatus, userID, extra); txErr != nil {
			return txErr
		}
		return applyEffects(tx, userID, result.Effects)
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	broadcastEffects(delivery.ProjectID, result.Effects)

	delivery.Status = models.DeliveryStatus(result.NewStatus)
	if req.StatusReason != "" {
		delivery.StatusReason = req.StatusReason
	}
	c.JSON(http.StatusOK, delivery)
}
