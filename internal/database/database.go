package database

import (
	"log"
	"os"

	"buildops-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB initializes the database connection and runs migrations
func InitDB() {
	var err error

	dbPath := os.Getenv("BUILDOPS_DB")
	if dbPath == "" {
		dbPath = "buildops.db"
	}

	// Using glebarez/sqlite which is a pure Go implementation (no CGO required)
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})

	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}

	// Auto-migrate the schema (it will create tables if they don't exist)
	err = DB.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.TaskBlock{},
		&models.Inspection{},
		&models.Issue{},
		&models.Delivery{},
		&models.DeliveryItem{},
		&models.Decision{},
		&models.DecisionOption{},
		&models.DecisionApproval{},
	)

	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	if err := DB.Exec(models.TaskBlockActiveEdgeIndex).Error; err != nil {
		log.Fatal("Failed to create block index:", err)
	}

	log.Println("Database connected and migrated")
}

// GetDB returns the database connection
func GetDB() *gorm.DB {
	return DB
}
