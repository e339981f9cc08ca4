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

// CreateInspectionRequest represents the payload for creating an inspection
type CreateInspectionRequest struct {
	ProjectID      string `json:"projectId" binding:"required"`
	TaskID         string `json:"taskId"`
	LocationID     string `json:"locationId"`
	ChecklistRunID string `json:"checklistRunId"`
}

// RejectInspectionRequest carries the rejection reason and the defects to
// spawn as issues.
type RejectInspectionRequest struct {
	DecisionReason string              `json:"decisionReason" binding:"required"`
	Issues         []engine.IssueInput `json:"issues"`
}

// ApproveInspectionRequest carries an optional approval note
type ApproveInspectionRequest struct {
	ApprovalReason string `json:"approvalReason"`
}

// CreateInspection handles POST /api/inspections
func CreateInspection(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req CreateInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TaskID == "" && req.LocationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "An inspection needs a task or location anchor"})
		return
	}

	inspection := models.Inspection{
		ID:             uuid.NewString(),
		ProjectID:      req.ProjectID,
		ChecklistRunID: req.ChecklistRunID,
		Status:         models.InspectionDraft,
		CreatedBy:      userID,
		UpdatedBy:      userID,
	}
	if req.TaskID != "" {
		inspection.TaskID = &req.TaskID
	}
	if req.LocationID != "" {
		inspection.LocationID = &req.LocationID
	}

	if err := database.GetDB().Create(&inspection).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create inspection"})
		return
	}

	c.JSON(http.StatusCreated, inspection)
}

// GetInspectionByID handles GET /api/inspections/:id
func GetInspectionByID(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	var inspection models.Inspection
	if err := database.GetDB().Where("id = ?", c.Param("id")).First(&inspection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inspection not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inspection"})
		}
		return
	}

	c.JSON(http.StatusOK, inspection)
}

// transitionInspection loads the inspection, runs the requested transition
// through the engine and applies the result with the given timestamp columns.
func transitionInspection(c *gin.Context, target models.InspectionStatus, snapshot func(*models.Inspection) *engine.InspectionSnapshot, extra func() map[string]any) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var inspection models.Inspection
	if err := database.GetDB().Where("id = ?", c.Param("id")).First(&inspection).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Inspection not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inspection"})
		}
		return
	}

	var result *engine.Result
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = engine.RequestTransition(engine.Request{
			Entity:        models.EntityRef{Type: models.EntityInspection, ID: inspection.ID},
			ProjectID:     inspection.ProjectID,
			CurrentStatus: string(inspection.Status),
			TargetStatus:  string(target),
			Actor:         userID,
			Inspection:    snapshot(&inspection),
		})
		if txErr != nil {
			return txErr
		}
		if txErr = applyStatusChange(tx, &models.Inspection{}, inspection.ID, string(inspection.Status), result.NewStatus, userID, extra()); txErr != nil {
			return txErr
		}
		return applyEffects(tx, userID, result.Effects)
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	broadcastEffects(inspection.ProjectID, result.Effects)

	inspection.Status = models.InspectionStatus(result.NewStatus)
	c.JSON(http.StatusOK, inspection)
}

// SubmitInspection handles POST /api/inspections/:id/submit
func SubmitInspection(c *gin.Context) {
	transitionInspection(c, models.InspectionSubmitted,
		func(*models.Inspection) *engine.InspectionSnapshot { return nil },
		func() map[string]any { return map[string]any{"submitted_at": time.Now()} })
}

// ReviewInspection handles POST /api/inspections/:id/review
func ReviewInspection(c *gin.Context) {
	transitionInspection(c, models.InspectionInReview,
		func(*models.Inspection) *engine.InspectionSnapshot { return nil },
		func() map[string]any { return map[string]any{"reviewed_at": time.Now()} })
}

// ApproveInspection handles POST /api/inspections/:id/approve
func ApproveInspection(c *gin.Context) {
	var req ApproveInspectionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	transitionInspection(c, models.InspectionApproved,
		func(*models.Inspection) *engine.InspectionSnapshot { return nil },
		func() map[string]any {
			return map[string]any{"decision_at": time.Now(), "decision_reason": req.ApprovalReason}
		})
}

// RejectInspection handles POST /api/inspections/:id/reject
// The supplied issue payloads become OPEN issues anchored to the inspection's
// task and location.
func RejectInspection(c *gin.Context) {
	var req RejectInspectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	transitionInspection(c, models.InspectionRejected,
		func(insp *models.Inspection) *engine.InspectionSnapshot {
			return &engine.InspectionSnapshot{
				TaskID:         insp.TaskID,
				LocationID:     insp.LocationID,
				DecisionReason: req.DecisionReason,
				Issues:         req.Issues,
			}
		},
		func() map[string]any {
			return map[string]any{"decision_at": time.Now(), "decision_reason": req.DecisionReason}
		})
}
