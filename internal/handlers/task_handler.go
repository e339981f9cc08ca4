package handlers

import (
	"errors"
	"net/http"
	"strings"

	"buildops-api/internal/blocks"
	"buildops-api/internal/database"
	"buildops-api/internal/engine"
	"buildops-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	ProjectID          string `json:"projectId" binding:"required"`
	LocationID         string `json:"locationId"`
	Title              string `json:"title" binding:"required"`
	Description        string `json:"description"`
	Priority           int    `json:"priority"`
	PlannedDate        string `json:"plannedDate"`
	DueDate            string `json:"dueDate"`
	RequiresInspection bool   `json:"requiresInspection"`
}

// UpdateTaskRequest represents the request payload for updating a task.
// Status is deliberately absent: status moves only through the transition
// endpoint so the engine's checks cannot be bypassed.
type UpdateTaskRequest struct {
	LocationID         *string `json:"locationId"`
	Title              *string `json:"title"`
	Description        *string `json:"description"`
	Priority           *int    `json:"priority"`
	PlannedDate        *string `json:"plannedDate"`
	DueDate            *string `json:"dueDate"`
	RequiresInspection *bool   `json:"requiresInspection"`
}

// UpdateTaskStatusRequest represents a minimal request to change status
type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}

// TaskResponse decorates a task with its derived blocked flags. The flags
// are recomputed from the blocking graph on every read.
type TaskResponse struct {
	models.Task
	Blocked     bool `json:"blocked"`
	BlockedDone bool `json:"blockedDone"`
}

func taskResponse(db *gorm.DB, task models.Task) (TaskResponse, error) {
	store := blocks.NewStore(db)
	startBlocked, err := engine.IsTaskBlocked(store, task.ID, models.ScopeStart)
	if err != nil {
		return TaskResponse{}, err
	}
	doneBlocked, err := engine.IsTaskBlocked(store, task.ID, models.ScopeDone)
	if err != nil {
		return TaskResponse{}, err
	}
	return TaskResponse{Task: task, Blocked: startBlocked, BlockedDone: doneBlocked}, nil
}

/*
*
GetTasks handles GET /api/tasks
Returns tasks with derived blocked flags.
Optional query params: projectId, status, page, limit, sort (asc|desc on created_at).
*/
func GetTasks(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	page, limit, offset := pageParams(c)
	sortParam := strings.ToLower(c.DefaultQuery("sort", "desc"))
	order := "created_at desc"
	if sortParam == "asc" {
		order = "created_at asc"
	}

	db := database.GetDB()
	query := db.Model(&models.Task{})
	if projectID := c.Query("projectId"); projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count tasks"})
		return
	}

	var tasks []models.Task
	if err := query.Session(&gorm.Session{}).Order(order).Limit(limit).Offset(offset).Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	resp := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		tr, err := taskResponse(db, task)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evaluate blocks"})
			return
		}
		resp = append(resp, tr)
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": resp,
		"count": len(resp),
		"total": total,
		"page":  page,
		"limit": limit,
		"sort":  sortParam,
	})
}

/*
*
CreateTask handles POST /api/tasks
Creates a new task in status NEW.
*/
func CreateTask(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
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

	plannedDate, ok := optionalDate(req.PlannedDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plannedDate"})
		return
	}
	dueDate, ok := optionalDate(req.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueDate"})
		return
	}

	task := models.Task{
		ID:                 uuid.NewString(),
		ProjectID:          req.ProjectID,
		LocationID:         req.LocationID,
		Title:              req.Title,
		Description:        req.Description,
		Status:             models.TaskNew,
		Priority:           priority,
		PlannedDate:        plannedDate,
		DueDate:            dueDate,
		RequiresInspection: req.RequiresInspection,
		CreatedBy:          userID,
		UpdatedBy:          userID,
	}

	if err := database.GetDB().Create(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, task)
}

// GetTaskByID handles GET /api/tasks/:id
// Returns the task with derived blocked flags and its active blocks.
func GetTaskByID(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	taskID := c.Param("id")
	db := database.GetDB()

	var task models.Task
	if err := db.Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}

	tr, err := taskResponse(db, task)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evaluate blocks"})
		return
	}
	active, err := blocks.NewStore(db).ActiveBlocksFor(task.ID, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blocks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task":         tr,
		"activeBlocks": active,
	})
}

// UpdateTask handles PUT /api/tasks/:id
// Updates task attributes. Status changes are rejected here; they go through
// PATCH /api/tasks/:id/status.
func UpdateTask(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	taskID := c.Param("id")
	var task models.Task
	if err := database.GetDB().Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.LocationID != nil {
		task.LocationID = *req.LocationID
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		if !models.IsValidPriority(*req.Priority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be between 1 and 5"})
			return
		}
		task.Priority = *req.Priority
	}
	if req.PlannedDate != nil {
		planned, ok := optionalDate(*req.PlannedDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plannedDate"})
			return
		}
		task.PlannedDate = planned
	}
	if req.DueDate != nil {
		due, ok := optionalDate(*req.DueDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueDate"})
			return
		}
		task.DueDate = due
	}
	if req.RequiresInspection != nil {
		task.RequiresInspection = *req.RequiresInspection
	}
	task.UpdatedBy = userID

	if err := database.GetDB().Save(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTaskStatus handles PATCH /api/tasks/:id/status
// Runs the requested transition through the engine and applies the resulting
// effect list in one transaction.
func UpdateTaskStatus(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	taskID := c.Param("id")
	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var task models.Task
	if err := database.GetDB().Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}

	var result *engine.Result
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		var txErr error
		result, txErr = engine.RequestTransition(engine.Request{
			Entity:        models.EntityRef{Type: models.EntityTask, ID: task.ID},
			ProjectID:     task.ProjectID,
			CurrentStatus: string(task.Status),
			TargetStatus:  string(req.Status),
			Actor:         userID,
			Blocks:        blocks.NewStore(tx),
		})
		if txErr != nil {
			return txErr
		}
		if txErr = applyStatusChange(tx, &models.Task{}, task.ID, string(task.Status), result.NewStatus, userID, nil); txErr != nil {
			return txErr
		}
		return applyEffects(tx, userID, result.Effects)
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	broadcastEffects(task.ProjectID, result.Effects)

	task.Status = models.TaskStatus(result.NewStatus)
	task.UpdatedBy = userID
	c.JSON(http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/:id
// Soft-deletes the task; it drops out of block and transition evaluation but
// stays on record for audit.
func DeleteTask(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	taskID := c.Param("id")
	var task models.Task
	if err := database.GetDB().Where("id = ?", taskID).First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch task"})
		}
		return
	}

	if err := database.GetDB().Delete(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
		"id":      taskID,
	})
}
