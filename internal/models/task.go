package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskNew            TaskStatus = "NEW"
	TaskPlanned        TaskStatus = "PLANNED"
	TaskInProgress     TaskStatus = "IN_PROGRESS"
	TaskReadyForReview TaskStatus = "READY_FOR_REVIEW"
	TaskDone           TaskStatus = "DONE"
	TaskCancelled      TaskStatus = "CANCELLED"
)

// IsValid checks if the task status value is valid
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskNew, TaskPlanned, TaskInProgress, TaskReadyForReview, TaskDone, TaskCancelled:
		return true
	}
	return false
}

// Task represents a unit of construction work
type Task struct {
	ID                 string         `json:"id" gorm:"primaryKey"`
	ProjectID          string         `json:"projectId" gorm:"column:project_id;index;not null"`
	LocationID         string         `json:"locationId" gorm:"column:location_id"`
	Title              string         `json:"title" gorm:"not null"`
	Description        string         `json:"description"`
	Status             TaskStatus     `json:"status" gorm:"not null;default:'NEW'"`
	Priority           int            `json:"priority" gorm:"default:3"`
	PlannedDate        *time.Time     `json:"plannedDate" gorm:"column:planned_date"`
	DueDate            *time.Time     `json:"dueDate" gorm:"column:due_date"`
	RequiresInspection bool           `json:"requiresInspection" gorm:"column:requires_inspection"`
	CreatedBy          string         `json:"createdBy" gorm:"column:created_by"`
	UpdatedBy          string         `json:"updatedBy" gorm:"column:updated_by"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}
