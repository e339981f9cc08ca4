package models

import (
	"time"

	"gorm.io/gorm"
)

// DecisionStatus represents the status of a decision
type DecisionStatus string

const (
	DecisionDraft           DecisionStatus = "DRAFT"
	DecisionPendingApproval DecisionStatus = "PENDING_APPROVAL"
	DecisionApproved        DecisionStatus = "APPROVED"
	DecisionRejected        DecisionStatus = "REJECTED"
	DecisionImplemented     DecisionStatus = "IMPLEMENTED"
)

// IsValid checks if the decision status value is valid
func (s DecisionStatus) IsValid() bool {
	switch s {
	case DecisionDraft, DecisionPendingApproval, DecisionApproved, DecisionRejected, DecisionImplemented:
		return true
	}
	return false
}

// Decision represents an open question that must be answered before work can
// proceed. It can be anchored to any entity; when BlocksWork is set and the
// anchor is a task, creating it opens a block on that task. A decision can
// only move to APPROVED or REJECTED once every required approver has cast
// their approval.
type Decision struct {
	ID              string             `json:"id" gorm:"primaryKey"`
	ProjectID       string             `json:"projectId" gorm:"column:project_id;index;not null"`
	RelatedType     *EntityType        `json:"relatedType" gorm:"column:related_type"`
	RelatedID       *string            `json:"relatedId" gorm:"column:related_id;index"`
	Subject         string             `json:"subject" gorm:"not null"`
	Problem         string             `json:"problem"`
	Status          DecisionStatus     `json:"status" gorm:"not null;default:'DRAFT'"`
	BlocksWork      bool               `json:"blocksWork" gorm:"column:blocks_work"`
	DecisionOwnerID *string            `json:"decisionOwnerId" gorm:"column:decision_owner_id"`
	DueDate         *time.Time         `json:"dueDate" gorm:"column:due_date"`
	ApprovalReason  string             `json:"approvalReason" gorm:"column:approval_reason"`
	Options         []DecisionOption   `json:"options" gorm:"foreignKey:DecisionID"`
	Approvals       []DecisionApproval `json:"approvals" gorm:"foreignKey:DecisionID"`
	CreatedBy       string             `json:"createdBy" gorm:"column:created_by"`
	UpdatedBy       string             `json:"updatedBy" gorm:"column:updated_by"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt     `json:"-" gorm:"index"`
}

// TableName specifies the table name for Decision Model
func (Decision) TableName() string {
	return "decisions"
}

// Related returns the anchored entity reference, zero when unanchored.
func (d *Decision) Related() EntityRef {
	if d.RelatedType == nil || d.RelatedID == nil {
		return EntityRef{}
	}
	return EntityRef{Type: *d.RelatedType, ID: *d.RelatedID}
}

// DecisionOption is one proposed answer to a decision
type DecisionOption struct {
	ID         string `json:"id" gorm:"primaryKey"`
	DecisionID string `json:"-" gorm:"column:decision_id;index;not null"`
	OptionText string `json:"optionText" gorm:"column:option_text;not null"`
}

// TableName specifies the table name for DecisionOption Model
func (DecisionOption) TableName() string {
	return "decision_options"
}

// DecisionApproval is one required approver's slot on a decision. The slot is
// created with Approved nil when the approver is invited and filled in when
// they cast their vote.
type DecisionApproval struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	DecisionID string     `json:"-" gorm:"column:decision_id;index;not null"`
	ApproverID string     `json:"approverId" gorm:"column:approver_id;not null"`
	Approved   *bool      `json:"approved"`
	Comment    string     `json:"comment"`
	DecidedAt  *time.Time `json:"decidedAt" gorm:"column:decided_at"`
}

// TableName specifies the table name for DecisionApproval Model
func (DecisionApproval) TableName() string {
	return "decision_approvals"
}

// Cast reports whether the approver has recorded their vote.
func (a *DecisionApproval) Cast() bool {
	return a.Approved != nil
}
