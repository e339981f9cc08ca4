package database

import (
	"fmt"
	"log"
	"time"

	"buildops-api/internal/blocks"
	"buildops-api/internal/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDemo populates an empty database with a demo project: users for each
// role, a planned task, a blocking delivery with items plus its START block,
// and a draft decision. It is a no-op when users already exist.
func SeedDemo(db *gorm.DB) error {
	var userCount int64
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if userCount > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("Demo1234!"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		demoUsers := []models.User{
			{ID: uuid.NewString(), Username: "admin@acme.com", Name: "Admin User", Password: string(hash)},
			{ID: uuid.NewString(), Username: "gc@acme.com", Name: "General Contractor", Password: string(hash)},
			{ID: uuid.NewString(), Username: "inspector@acme.com", Name: "QA Inspector", Password: string(hash)},
			{ID: uuid.NewString(), Username: "sub@acme.com", Name: "Subcontractor", Password: string(hash)},
			{ID: uuid.NewString(), Username: "investor@acme.com", Name: "Investor", Password: string(hash)},
			{ID: uuid.NewString(), Username: "procurement@acme.com", Name: "Procurement Manager", Password: string(hash)},
		}
		if err := tx.Create(&demoUsers).Error; err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		gc := demoUsers[1].ID
		procurement := demoUsers[5].ID

		project := models.Project{
			ID:        uuid.NewString(),
			Name:      "Office Building Construction",
			Code:      "OBC-2026",
			CreatedBy: gc,
			UpdatedBy: gc,
		}
		if err := tx.Create(&project).Error; err != nil {
			return fmt.Errorf("seed project: %w", err)
		}

		plannedDate := time.Now().AddDate(0, 0, 2)
		task := models.Task{
			ID:                 uuid.NewString(),
			ProjectID:          project.ID,
			Title:              "Install electrical wiring in lobby",
			Description:        "Complete electrical wiring installation as per approved plans",
			Status:             models.TaskPlanned,
			Priority:           models.PriorityHigh,
			PlannedDate:        &plannedDate,
			RequiresInspection: true,
			CreatedBy:          gc,
			UpdatedBy:          gc,
		}
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("seed task: %w", err)
		}

		expected := time.Now().AddDate(0, 0, 1)
		delivery := models.Delivery{
			ID:           uuid.NewString(),
			ProjectID:    project.ID,
			TaskID:       &task.ID,
			SupplierName: "ElectroSupply Co.",
			Status:       models.DeliveryOrdered,
			ExpectedDate: &expected,
			BlocksWork:   true,
			Items: []models.DeliveryItem{
				{ID: uuid.NewString(), Name: "Copper wire 2.5mm", Quantity: 500, Unit: "meters"},
				{ID: uuid.NewString(), Name: "Junction boxes", Quantity: 25, Unit: "pcs"},
			},
			CreatedBy: procurement,
			UpdatedBy: procurement,
		}
		if err := tx.Create(&delivery).Error; err != nil {
			return fmt.Errorf("seed delivery: %w", err)
		}

		refType := models.EntityDelivery
		block := models.TaskBlock{
			TaskID:        task.ID,
			BlockType:     models.BlockDelivery,
			Scope:         models.ScopeStart,
			RefEntityType: &refType,
			RefEntityID:   &delivery.ID,
			Message:       "Waiting for electrical materials delivery",
			CreatedBy:     gc,
		}
		if err := blocks.NewStore(tx).CreateBlock(&block); err != nil {
			return fmt.Errorf("seed block: %w", err)
		}

		relatedType := models.EntityTask
		dueDate := time.Now().AddDate(0, 0, 3)
		decision := models.Decision{
			ID:              uuid.NewString(),
			ProjectID:       project.ID,
			RelatedType:     &relatedType,
			RelatedID:       &task.ID,
			Subject:         "Wiring route approval",
			Problem:         "Need to decide between ceiling vs wall routing for main cables",
			Status:          models.DecisionDraft,
			DecisionOwnerID: &gc,
			DueDate:         &dueDate,
			CreatedBy:       gc,
			UpdatedBy:       gc,
		}
		if err := tx.Create(&decision).Error; err != nil {
			return fmt.Errorf("seed decision: %w", err)
		}

		log.Println("Demo seed completed. Demo users use password Demo1234!")
		return nil
	})
}
