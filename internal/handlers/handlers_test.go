package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"buildops-api/internal/auth"
	"buildops-api/internal/database"
	"buildops-api/internal/middleware"
	"buildops-api/internal/models"
	"buildops-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupAPI wires a fresh in-memory database and a router with the full route
// set, mirroring the production layout minus CORS.
func setupAPI(t *testing.T) (*gin.Engine, *gorm.DB, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db

	r := gin.New()
	api := r.Group("/api")
	api.POST("/login", Login)

	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.GET("/users", GetAllUsers)
		protected.GET("/projects", GetProjects)
		protected.POST("/projects", CreateProject)

		protected.GET("/tasks", GetTasks)
		protected.GET("/tasks/:id", GetTaskByID)
		protected.POST("/tasks", CreateTask)
		protected.PUT("/tasks/:id", UpdateTask)
		protected.PATCH("/tasks/:id/status", UpdateTaskStatus)
		protected.DELETE("/tasks/:id", DeleteTask)

		protected.GET("/tasks/:id/blocks", GetTaskBlocks)
		protected.POST("/tasks/:id/blocks", CreateTaskBlock)
		protected.POST("/blocks/:id/resolve", ResolveBlock)

		protected.POST("/inspections", CreateInspection)
		protected.GET("/inspections/:id", GetInspectionByID)
		protected.POST("/inspections/:id/submit", SubmitInspection)
		protected.POST("/inspections/:id/review", ReviewInspection)
		protected.POST("/inspections/:id/approve", ApproveInspection)
		protected.POST("/inspections/:id/reject", RejectInspection)

		protected.GET("/issues", GetIssues)
		protected.GET("/issues/:id", GetIssueByID)
		protected.POST("/issues", CreateIssue)
		protected.POST("/issues/:id/assign", AssignIssue)
		protected.POST("/issues/:id/fix", FixIssue)
		protected.POST("/issues/:id/verify", VerifyIssue)
		protected.POST("/issues/:id/close", CloseIssue)

		protected.GET("/deliveries", GetDeliveries)
		protected.GET("/deliveries/:id", GetDeliveryByID)
		protected.POST("/deliveries", CreateDelivery)
		protected.PATCH("/deliveries/:id/status", UpdateDeliveryStatus)

		protected.GET("/decisions", GetDecisions)
		protected.GET("/decisions/:id", GetDecisionByID)
		protected.POST("/decisions", CreateDecision)
		protected.POST("/decisions/:id/submit", SubmitDecision)
		protected.POST("/decisions/:id/approvals", CastApproval)
		protected.POST("/decisions/:id/approve", ApproveDecision)
		protected.POST("/decisions/:id/reject", RejectDecision)
		protected.POST("/decisions/:id/implement", ImplementDecision)
	}

	token, err := auth.GenerateToken("user-1", "worker")
	require.NoError(t, err)
	return r, db, token
}

// doJSON issues an authenticated JSON request against the test router.
func doJSON(t *testing.T, r *gin.Engine, token, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// doRaw issues a request with a verbatim body, for malformed-payload cases.
func doRaw(t *testing.T, r *gin.Engine, token, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func seedTask(t *testing.T, db *gorm.DB, status models.TaskStatus) models.Task {
	t.Helper()
	task := models.Task{
		ID:        uuid.NewString(),
		ProjectID: "project-1",
		Title:     "Install electrical conduits",
		Status:    status,
		Priority:  models.PriorityMedium,
		CreatedBy: "user-1",
		UpdatedBy: "user-1",
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func seedInspection(t *testing.T, db *gorm.DB, status models.InspectionStatus, taskID *string) models.Inspection {
	t.Helper()
	inspection := models.Inspection{
		ID:        uuid.NewString(),
		ProjectID: "project-1",
		TaskID:    taskID,
		Status:    status,
		CreatedBy: "user-1",
		UpdatedBy: "user-1",
	}
	require.NoError(t, db.Create(&inspection).Error)
	return inspection
}

func seedIssue(t *testing.T, db *gorm.DB, status models.IssueStatus) models.Issue {
	t.Helper()
	issue := models.Issue{
		ID:        uuid.NewString(),
		ProjectID: "project-1",
		Title:     "Conduit bracket loose",
		Status:    status,
		Priority:  models.PriorityMedium,
		CreatedBy: "user-1",
		UpdatedBy: "user-1",
	}
	require.NoError(t, db.Create(&issue).Error)
	return issue
}

func activeBlocksOf(t *testing.T, db *gorm.DB, taskID string) []models.TaskBlock {
	t.Helper()
	var out []models.TaskBlock
	require.NoError(t, db.Where("task_id = ? AND is_active = ?", taskID, true).Find(&out).Error)
	return out
}
