package main

import (
	"log"
	"os"

	"buildops-api/internal/database"
	"buildops-api/internal/routes"
)

func main() {
	// Init database
	database.InitDB()

	// Optionally seed the demo project
	if os.Getenv("SEED_DEMO") == "1" {
		if err := database.SeedDemo(database.GetDB()); err != nil {
			log.Fatal("Failed to seed demo data: ", err)
		}
	}

	// Setup the routes (public and protected routes)
	ginRoutes := routes.SetupRoutes()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8008"
	}
	log.Printf("Server starting on port :%s", port)

	if err := ginRoutes.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
