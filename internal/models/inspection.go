package models

import (
	"time"

	"gorm.io/gorm"
)

// InspectionStatus represents the status of an inspection
type InspectionStatus string

const (
	InspectionDraft     InspectionStatus = "DRAFT"
	InspectionSubmitted InspectionStatus = "SUBMITTED"
	InspectionInReview  InspectionStatus = "IN_REVIEW"
	InspectionApproved  InspectionStatus = "APPROVED"
	InspectionRejected  InspectionStatus = "REJECTED"
)

// IsValid checks if the inspection status value is valid
func (s InspectionStatus) IsValid() bool {
	switch s {
	case InspectionDraft, InspectionSubmitted, InspectionInReview, InspectionApproved, InspectionRejected:
		return true
	}
	return false
}

// Inspection represents a quality inspection against a task or location.
// Rejecting an inspection spawns issues for the defects found.
type Inspection struct {
	ID             string           `json:"id" gorm:"primaryKey"`
	ProjectID      string           `json:"projectId" gorm:"column:project_id;index;not null"`
	TaskID         *string          `json:"taskId" gorm:"column:task_id;index"`
	LocationID     *string          `json:"locationId" gorm:"column:location_id"`
	ChecklistRunID string           `json:"checklistRunId" gorm:"column:checklist_run_id"`
	Status         InspectionStatus `json:"status" gorm:"not null;default:'DRAFT'"`
	SubmittedAt    *time.Time       `json:"submittedAt" gorm:"column:submitted_at"`
	ReviewedAt     *time.Time       `json:"reviewedAt" gorm:"column:reviewed_at"`
	DecisionAt     *time.Time       `json:"decisionAt" gorm:"column:decision_at"`
	DecisionReason string           `json:"decisionReason" gorm:"column:decision_reason"`
	CreatedBy      string           `json:"createdBy" gorm:"column:created_by"`
	UpdatedBy      string           `json:"updatedBy" gorm:"column:updated_by"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt   `json:"-" gorm:"index"`
}

// TableName specifies the table name for Inspection Model
func (Inspection) TableName() string {
	return "inspections"
}
