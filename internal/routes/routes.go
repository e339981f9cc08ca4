package routes

import (
	"buildops-api/internal/handlers"
	"buildops-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes() *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "BuildOps coordination API is running",
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		// Login endpoint
		api.POST("/login", handlers.Login)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		// Users and projects
		protectedRoutes.GET("/users", handlers.GetAllUsers)
		protectedRoutes.GET("/projects", handlers.GetProjects)
		protectedRoutes.POST("/projects", handlers.CreateProject)

		// Task endpoints
		protectedRoutes.GET("/tasks", handlers.GetTasks)
		protectedRoutes.GET("/tasks/:id", handlers.GetTaskByID)
		protectedRoutes.POST("/tasks", handlers.CreateTask)
		protectedRoutes.PUT("/tasks/:id", handlers.UpdateTask)
		protectedRoutes.PATCH("/tasks/:id/status", handlers.UpdateTaskStatus)
		protectedRoutes.DELETE("/tasks/:id", handlers.DeleteTask)

		// Block endpoints
		protectedRoutes.GET("/tasks/:id/blocks", handlers.GetTaskBlocks)
		protectedRoutes.POST("/tasks/:id/blocks", handlers.CreateTaskBlock)
		protectedRoutes.POST("/blocks/:id/resolve", handlers.ResolveBlock)

		// Inspection endpoints
		protectedRoutes.POST("/inspections", handlers.CreateInspection)
		protectedRoutes.GET("/inspections/:id", handlers.GetInspectionByID)
		protectedRoutes.POST("/inspections/:id/submit", handlers.SubmitInspection)
		protectedRoutes.POST("/inspections/:id/review", handlers.ReviewInspection)
		protectedRoutes.POST("/inspections/:id/approve", handlers.ApproveInspection)
		protectedRoutes.POST("/inspections/:id/reject", handlers.RejectInspection)

		// Issue endpoints
		protectedRoutes.GET("/issues", handlers.GetIssues)
		protectedRoutes.GET("/issues/:id", handlers.GetIssueByID)
		protectedRoutes.POST("/issues", handlers.CreateIssue)
		protectedRoutes.POST("/issues/:id/assign", handlers.AssignIssue)
		protectedRoutes.POST("/issues/:id/fix", handlers.FixIssue)
		protectedRoutes.POST("/issues/:id/verify", handlers.VerifyIssue)
		protectedRoutes.POST("/issues/:id/close", handlers.CloseIssue)

		// Delivery endpoints
		protectedRoutes.GET("/deliveries", handlers.GetDeliveries)
		protectedRoutes.GET("/deliveries/:id", handlers.GetDeliveryByID)
		protectedRoutes.POST("/deliveries", handlers.CreateDelivery)
		protectedRoutes.PATCH("/deliveries/:id/status", handlers.UpdateDeliveryStatus)

		// Decision endpoints
		protectedRoutes.GET("/decisions", handlers.GetDecisions)
		protectedRoutes.GET("/decisions/:id", handlers.GetDecisionByID)
		protectedRoutes.POST("/decisions", handlers.CreateDecision)
		protectedRoutes.POST("/decisions/:id/submit", handlers.SubmitDecision)
		protectedRoutes.POST("/decisions/:id/approvals", handlers.CastApproval)
		protectedRoutes.POST("/decisions/:id/approve", handlers.ApproveDecision)
		protectedRoutes.POST("/decisions/:id/reject", handlers.RejectDecision)
		protectedRoutes.POST("/decisions/:id/implement", handlers.ImplementDecision)

		// Realtime events
		protectedRoutes.GET("/ws", handlers.WebSocketHandler)
	}

	return ginRouter
}
