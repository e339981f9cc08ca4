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

// CreateDecisionRequest represents the payload for creating a decision
type CreateDecisionRequest struct {
	ProjectID       string             `json:"projectId" binding:"required"`
	RelatedType     *models.EntityType `json:"relatedType"`
	RelatedID       *string            `json:"relatedId"`
	Subject         string             `json:"subject" binding:"required"`
	Problem         string             `json:"problem" binding:"required"`
	BlocksWork      bool               `json:"blocksWork"`
	BlockScope      models.BlockScope  `json:"blockScope"`
	DecisionOwnerID string             `json:"decisionOwnerId"`
	DueDate         string             `json:"dueDate"`
	Options         []string           `json:"options"`
	ApproverIDs     []string           `json:"approverIds"`
}

// CastApprovalRequest represents one approver's vote
type CastApprovalRequest struct {
	Approved *bool  `json:"approved" binding:"required"`
	Comment  string `json:"comment"`
}

// DecideRequest carries an optional reason for approve/reject
type DecideRequest struct {
	ApprovalReason string `json:"approvalReason"`
}

// GetDecisions handles GET /api/decisions
func GetDecisions(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	page, limit, offset := pageParams(c)
	db := database.GetDB()
	query := db.Model(&models.Decision{})
	if projectID := c.Query("projectId"); projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count decisions"})
		return
	}

	var decisions []models.Decision
	if err := query.Session(&gorm.Session{}).Preload("Options").Preload("Approvals").
		Order("created_at desc").Limit(limit).Offset(offset).Find(&decisions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch decisions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"decisions": decisions,
		"count":     len(decisions),
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// CreateDecision handles POST /api/decisions
// A decision with blocksWork=true related to a task opens a DECISION block
// on that task in the same transaction; the scope defaults to START.
func CreateDecision(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req CreateDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.RelatedType != nil && !req.RelatedType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid relatedType"})
		return
	}
	if (req.RelatedType == nil) != (req.RelatedID == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "relatedType and relatedId must be set together"})
		return
	}
	if req.BlockScope != "" && !req.BlockScope.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid blockScope"})
		return
	}
	dueDate, ok := optionalDate(req.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueDate"})
		return
	}

	decision := models.Decision{
		ID:          uuid.NewString(),
		ProjectID:   req.ProjectID,
		RelatedType: req.RelatedType,
		RelatedID:   req.RelatedID,
		Subject:     req.Subject,
		Problem:     req.Problem,
		Status:      models.DecisionDraft,
		BlocksWork:  req.BlocksWork,
		DueDate:     dueDate,
		CreatedBy:   userID,
		UpdatedBy:   userID,
	}
	if req.DecisionOwnerID != "" {
		decision.DecisionOwnerID = &req.DecisionOwnerID
	}
	for _, text := range req.Options {
		decision.Options = append(decision.Options, models.DecisionOption{
			ID:         uuid.NewString(),
			OptionText: text,
		})
	}
	for _, approverID := range req.ApproverIDs {
		decision.Approvals = append(decision.Approvals, models.DecisionApproval{
			ID:         uuid.NewString(),
			ApproverID: approverID,
		})
	}

	effects := engine.DecisionCreationEffects(&decision, req.BlockScope)
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if txErr := tx.Create(&decision).Error; txErr != nil {
			return txErr
		}
		return applyEffects(tx, userID, effects)
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	broadcastEffects(decision.ProjectID, effects)
	c.JSON(http.StatusCreated, decision)
}

// GetDecisionByID handles GET /api/decisions/:id
func GetDecisionByID(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	var decision models.Decision
	if err := database.GetDB().Preload("Options").Preload("Approvals").
		Where("id = ?", c.Param("id")).First(&decision).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Decision not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch decision"})
		}
		return
	}

	c.JSON(http.StatusOK, decision)
}

// CastApproval handles POST /api/decisions/:id/approvals
// The authenticated user fills their own approval slot; voting twice or
// without a slot is rejected.
func CastApproval(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req CastApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decisionID := c.Param("id")
	db := database.GetDB()

	var approval models.DecisionApproval
	if err := db.Where("decision_id = ? AND approver_id = ?", decisionID, userID).First(&approval).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a required approver for this decision"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch approval"})
		}
		return
	}
	if approval.Cast() {
		c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_CAST", "error": "Approval already cast"})
		return
	}

	now := time.Now()
	res := db.Model(&models.DecisionApproval{}).
		Where("id = ? AND approved IS NULL", approval.ID).
		Updates(map[string]any{"approved": *req.Approved, "comment": req.Comment, "decided_at": now})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record approval"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_CAST", "error": "Approval already cast"})
		return
	}

	approval.Approved = req.Approved
	approval.Comment = req.Comment
	approval.DecidedAt = &now
	c.JSON(http.StatusOK, approval)
}

// transitionDecision runs one lifecycle step through the engine with the
// current approval snapshot.
func transitionDecision(c *gin.Context, target models.DecisionStatus, extra map[string]any) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var decision models.Decision
	if err := database.GetDB().Preload("Approvals").Where("id = ?", c.Param("id")).First(&decision).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Decision not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch decision"})
		}
		return
	}

	var result *engine.Result
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = engine.RequestTransition(engine.Request{
			Entity:        models.EntityRef{Type: models.EntityDecision, ID: decision.ID},
			ProjectID:     decision.ProjectID,
			CurrentStatus: string(decision.Status),
			TargetStatus:  string(target),
			Actor:         userID,
			Decision:      &engine.DecisionSnapshot{Approvals: decision.Approvals},
		})
		if txErr != nil {
			return txErr
		}
		if txErr = applyStatusChange(tx, &models.Decision{}, decision.ID, string(decision.Status), result.NewStatus, userID, extra); txErr != nil {
			return txErr
		}
		return applyEffects(tx, userID, result.Effects)
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	broadcastEffects(decision.ProjectID, result.Effects)

	decision.Status = models.DecisionStatus(result.NewStatus)
	c.JSON(http.StatusOK, decision)
}

// SubmitDecision handles POST /api/decisions/:id/submit
func SubmitDecision(c *gin.Context) {
	transitionDecision(c, models.DecisionPendingApproval, nil)
}

// ApproveDecision handles POST /api/decisions/:id/approve
// Requires every approver to have cast a vote; resolves blocks referencing
// the decision.
func ApproveDecision(c *gin.Context) {
	var req DecideRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	transitionDecision(c, models.DecisionApproved, map[string]any{"approval_reason": req.ApprovalReason})
}

// RejectDecision handles POST /api/decisions/:id/reject
func RejectDecision(c *gin.Context) {
	var req DecideRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	transitionDecision(c, models.DecisionRejected, map[string]any{"approval_reason": req.ApprovalReason})
}

// ImplementDecision handles POST /api/decisions/:id/implement
func ImplementDecision(c *gin.Context) {
	transitionDecision(c, models.DecisionImplemented, nil)
}
