package models

import (
	"time"

	"gorm.io/gorm"
)

// IssueStatus represents the status of an issue
type IssueStatus string

const (
	IssueOpen     IssueStatus = "OPEN"
	IssueAssigned IssueStatus = "ASSIGNED"
	IssueFixed    IssueStatus = "FIXED"
	IssueVerified IssueStatus = "VERIFIED"
	IssueClosed   IssueStatus = "CLOSED"
)

// IsValid checks if the issue status value is valid
func (s IssueStatus) IsValid() bool {
	switch s {
	case IssueOpen, IssueAssigned, IssueFixed, IssueVerified, IssueClosed:
		return true
	}
	return false
}

// Issue represents a defect or punch-list item. The overdue flag is derived
// from DueDate and status on every read; it is never stored.
type Issue struct {
	ID           string         `json:"id" gorm:"primaryKey"`
	ProjectID    string         `json:"projectId" gorm:"column:project_id;index;not null"`
	TaskID       *string        `json:"taskId" gorm:"column:task_id;index"`
	InspectionID *string        `json:"inspectionId" gorm:"column:inspection_id;index"`
	LocationID   *string        `json:"locationId" gorm:"column:location_id"`
	Title        string         `json:"title" gorm:"not null"`
	Description  string         `json:"description"`
	Status       IssueStatus    `json:"status" gorm:"not null;default:'OPEN'"`
	Priority     int            `json:"priority" gorm:"default:3"`
	AssigneeID   *string        `json:"assigneeId" gorm:"column:assignee_id"`
	DueDate      *time.Time     `json:"dueDate" gorm:"column:due_date"`
	Overdue      bool           `json:"overdue" gorm:"-"`
	FixedAt      *time.Time     `json:"fixedAt" gorm:"column:fixed_at"`
	VerifiedAt   *time.Time     `json:"verifiedAt" gorm:"column:verified_at"`
	CreatedBy    string         `json:"createdBy" gorm:"column:created_by"`
	UpdatedBy    string         `json:"updatedBy" gorm:"column:updated_by"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for Issue Model
func (Issue) TableName() string {
	return "issues"
}
