package handlers

import (
	"net/http"

	"buildops-api/internal/database"
	"buildops-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateProjectRequest represents the request payload for creating a project
type CreateProjectRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code"`
}

// CreateProject handles POST /api/projects
func CreateProject(c *gin.Context) {
	userID, ok := actorID(c)
	if !ok {
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := models.Project{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Code:      req.Code,
		CreatedBy: userID,
		UpdatedBy: userID,
	}
	if err := database.GetDB().Create(&project).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// GetProjects handles GET /api/projects
func GetProjects(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}
	page, limit, offset := pageParams(c)

	db := database.GetDB()
	var total int64
	if err := db.Model(&models.Project{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count projects"})
		return
	}

	var projects []models.Project
	if err := db.Order("created_at desc").Limit(limit).Offset(offset).Find(&projects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"count":    len(projects),
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}
