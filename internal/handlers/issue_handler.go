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

// CreateIssueRequest represents the payload for creating an issue directly
// (issues also get created as a cascade of inspection rejection).
type CreateIssueRequest struct {
	ProjectID    string `json:"projectId" binding:"required"`
	TaskID       string `json:"taskId"`
	InspectionID string `json:"inspectionId"`
	LocationID   string `json:"locationId"`
	Title        string `json:"title" binding:"required"`
	Description  string `json:"description"`
	Priority     int    `json:"priority"`
	AssigneeID   string `json:"assigneeId"`
	DueDate      string `json:"dueDate"`
}

// AssignIssueRequest represents the payload for assigning an issue
type AssignIssueRequest struct {
	AssigneeID string `json:"assigneeId" binding:"required"`
	DueDate    string `json:"dueDate" binding:"required"`
}

// VerifyIssueRequest carries the verification outcome; verified=false
// reopens the issue instead of marking it VERIFIED.
type VerifyIssueRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// IssueResponse decorates an issue with its derived overdue flag and the
// assignee display name.
type IssueResponse struct {
	models.Issue
	AssigneeName string `json:"assigneeName,omitempty"`
}

func issueResponse(issue models.Issue, now time.Time) IssueResponse {
	issue.Overdue = engine.IsIssueOverdue(&issue, now)
	resp := IssueResponse{Issue: issue}
	if issue.AssigneeID != nil {
		resp.AssigneeName = lookupUserName(*issue.AssigneeID)
	}
	return resp
}

// GetIssues handles GET /api/issues
// Optional query params: projectId, status, assigneeId, page, limit.
func GetIssues(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	page, limit, offset := pageParams(c)
	db := database.GetDB()
	query := db.Model(&models.Issue{})
	if projectID := c.Query("projectId"); projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if assigneeID := c.Query("assigneeId"); assigneeID != "" {
		query = query.Where("assignee_id = ?", assigneeID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count issues"})
		return
	}

	var issues []models.Issue
	if err := query.Session(&gorm.Session{}).Order("created_at desc").Limit(limit).Offset(offset).Find(&issues).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch issues"})
		return
	}

	now := time.Now()
	resp := make([]IssueResponse, 0, len(issues))
	for _, issue := range issues {
		resp = append(resp, issueResponse(issue, now))
	}

	c.JSON(http.StatusOK, gin.H{
		"issues": resp,
		"count":  len(resp),
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// CreateIssue handles POST /api/issues
func CreateIssue(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	priority := req.Priority
	if priority == 0 {
		priority = models.PriorityMedium
	}
	if !models.IsValidPriority(priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be between 1 and 5"})
		return
	}
	dueDate, ok := optionalDate(req.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueDate"})
		return
	}

	issue := models.Issue{
		ID:          uuid.NewString(),
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.IssueOpen,
		Priority:    priority,
		DueDate:     dueDate,
		CreatedBy:   userID,
		UpdatedBy:   userID,
	}
	if req.TaskID != "" {
		issue.TaskID = &req.TaskID
	}
	if req.InspectionID != "" {
		issue.InspectionID = &req.InspectionID
	}
	if req.LocationID != "" {
		issue.LocationID = &req.LocationID
	}
	if req.AssigneeID != "" {
		issue.AssigneeID = &req.AssigneeID
	}

	if err := database.GetDB().Create(&issue).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create issue"})
		return
	}

	c.JSON(http.StatusCreated, issueResponse(issue, time.Now()))
}

// GetIssueByID handles GET /api/issues/:id
func GetIssueByID(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	var issue models.Issue
	if err := database.GetDB().Where("id = ?", c.Param("id")).First(&issue).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch issue"})
		}
		return
	}

	c.JSON(http.StatusOK, issueResponse(issue, time.Now()))
}

// transitionIssue runs one lifecycle step through the engine.
func transitionIssue(c *gin.Context, target models.IssueStatus, snapshot *engine.IssueSnapshot, extra map[string]any) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var issue models.Issue
	if err := database.GetDB().Where("id = ?", c.Param("id")).First(&issue).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch issue"})
		}
		return
	}

	var result *engine.Result
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = engine.RequestTransition(engine.Request{
			Entity:        models.EntityRef{Type: models.EntityIssue, ID: issue.ID},
			ProjectID:     issue.ProjectID,
			CurrentStatus: string(issue.Status),
			TargetStatus:  string(target),
			Actor:         userID,
			Issue:         snapshot,
		})
		if txErr != nil {
			return txErr
		}
		if txErr = applyStatusChange(tx, &models.Issue{}, issue.ID, string(issue.Status), result.NewStatus, userID, extra); txErr != nil {
			return txErr
		}
		return applyEffects(tx, userID, result.Effects)
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	broadcastEffects(issue.ProjectID, result.Effects)

	issue.Status = models.IssueStatus(result.NewStatus)
	c.JSON(http.StatusOK, issueResponse(issue, time.Now()))
}

// AssignIssue handles POST /api/issues/:id/assign
func AssignIssue(c *gin.Context) {
	var req AssignIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dueDate, ok := parseDateFlexible(req.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueDate"})
		return
	}
	transitionIssue(c, models.IssueAssigned, nil, map[string]any{
		"assignee_id": req.AssigneeID,
		"due_date":    dueDate,
	})
}

// FixIssue handles POST /api/issues/:id/fix
func FixIssue(c *gin.Context) {
	transitionIssue(c, models.IssueFixed, nil, map[string]any{"fixed_at": time.Now()})
}

// VerifyIssue handles POST /api/issues/:id/verify
// verified=false overrides the target to OPEN and the fix cycle restarts.
func VerifyIssue(c *gin.Context) {
	var req VerifyIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	extra := map[string]any{}
	if req.Verified != nil && *req.Verified {
		extra["verified_at"] = time.Now()
	}
	transitionIssue(c, models.IssueVerified, &engine.IssueSnapshot{Verified: req.Verified}, extra)
}

// CloseIssue handles POST /api/issues/:id/close
func CloseIssue(c *gin.Context) {
	transitionIssue(c, models.IssueClosed, nil, nil)
}
