package handlers

import (
	"errors"
	"net/http"
	"time"

	"buildops-api/internal/blocks"
	"buildops-api/internal/database"
	"buildops-api/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateBlockRequest represents the payload for manually blocking a task.
// Only MANUAL and DEPENDENCY blocks are opened through this endpoint;
// DELIVERY and DECISION blocks are cascades owned by their entities.
type CreateBlockRequest struct {
	BlockType     models.BlockType  `json:"blockType" binding:"required"`
	Scope         models.BlockScope `json:"scope"`
	Message       string            `json:"message"`
	BlockerTaskID string            `json:"blockerTaskId"`
}

// GetTaskBlocks handles GET /api/tasks/:id/blocks
// Optional query params: scope (START|DONE), all=true to include resolved.
func GetTaskBlocks(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	taskID := c.Param("id")
	db := database.GetDB()

	if c.Query("all") == "true" {
		var all []models.TaskBlock
		if err := db.Where("task_id = ?", taskID).Order("created_at asc").Find(&all).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blocks"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"blocks": all, "count": len(all)})
		return
	}

	scope := models.BlockScope(c.Query("scope"))
	if scope != "" && !scope.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scope"})
		return
	}
	active, err := blocks.NewStore(db).ActiveBlocksFor(taskID, scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blocks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": active, "count": len(active)})
}

// CreateTaskBlock handles POST /api/tasks/:id/blocks
func CreateTaskBlock(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	taskID := c.Param("id")
	var req CreateBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scope := req.Scope
	if scope == "" {
		scope = models.ScopeStart
	}
	if !scope.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scope"})
		return
	}

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

	block := models.TaskBlock{
		TaskID:    taskID,
		BlockType: req.BlockType,
		Scope:     scope,
		Message:   req.Message,
		CreatedBy: userID,
	}

	switch req.BlockType {
	case models.BlockManual:
		// No reference; the message carries the reason.
	case models.BlockDependency:
		if req.BlockerTaskID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "blockerTaskId is required for DEPENDENCY blocks"})
			return
		}
		if req.BlockerTaskID == taskID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a task cannot block itself"})
			return
		}
		var blocker models.Task
		if err := db.Where("id = ?", req.BlockerTaskID).First(&blocker).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Blocker task not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate blocker task"})
			}
			return
		}
		refType := models.EntityTask
		block.RefEntityType = &refType
		block.RefEntityID = &blocker.ID
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "blockType must be MANUAL or DEPENDENCY"})
		return
	}

	if err := blocks.NewStore(db).CreateBlock(&block); err != nil {
		respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, block)
}

// ResolveBlock handles POST /api/blocks/:id/resolve
// Resolution is final; a resolved block is never reactivated. Resolving the
// last START block does not advance the task, it only removes the veto.
func ResolveBlock(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	blockID := c.Param("id")
	resolved, err := blocks.NewStore(database.GetDB()).ResolveBlock(blockID, time.Now())
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, resolved)
}
