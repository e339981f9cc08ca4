package models

import (
	"time"

	"gorm.io/gorm"
)

// Project represents a construction project. Every other entity belongs to
// exactly one project.
type Project struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"not null"`
	Code      string         `json:"code"`
	CreatedBy string         `json:"createdBy" gorm:"column:created_by"`
	UpdatedBy string         `json:"updatedBy" gorm:"column:updated_by"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Project Model
func (Project) TableName() string {
	return "projects"
}
