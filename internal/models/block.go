package models

import (
	"time"
)

// BlockType categorizes what kind of dependency holds a task back
type BlockType string

const (
	BlockDelivery   BlockType = "DELIVERY"
	BlockDecision   BlockType = "DECISION"
	BlockDependency BlockType = "DEPENDENCY"
	BlockManual     BlockType = "MANUAL"
)

// IsValid checks if the block type value is valid
func (b BlockType) IsValid() bool {
	switch b {
	case BlockDelivery, BlockDecision, BlockDependency, BlockManual:
		return true
	}
	return false
}

// BlockScope says which task boundary a block vetoes: leaving NEW (START)
// or entering DONE (DONE).
type BlockScope string

const (
	ScopeStart BlockScope = "START"
	ScopeDone  BlockScope = "DONE"
)

// IsValid checks if the block scope value is valid
func (s BlockScope) IsValid() bool {
	return s == ScopeStart || s == ScopeDone
}

// TaskBlock is an active dependency edge. The blocked side is always a task;
// the blocking side is referenced through RefEntityType/RefEntityID and is
// never owned by the block (no cascading deletes through it). A block is
// resolved exactly once and never reactivated; open a fresh block instead.
type TaskBlock struct {
	ID            string      `json:"id" gorm:"primaryKey"`
	TaskID        string      `json:"taskId" gorm:"column:task_id;index;not null"`
	BlockType     BlockType   `json:"blockType" gorm:"column:block_type;not null"`
	Scope         BlockScope  `json:"scope" gorm:"not null;default:'START'"`
	RefEntityType *EntityType `json:"refEntityType" gorm:"column:ref_entity_type"`
	RefEntityID   *string     `json:"refEntityId" gorm:"column:ref_entity_id;index"`
	Message       string      `json:"message"`
	IsActive      bool        `json:"isActive" gorm:"column:is_active;index"`
	CreatedBy     string      `json:"createdBy" gorm:"column:created_by"`
	CreatedAt     time.Time   `json:"createdAt"`
	ResolvedAt    *time.Time  `json:"resolvedAt" gorm:"column:resolved_at"`
}

// TableName specifies the table name for TaskBlock Model
func (TaskBlock) TableName() string {
	return "task_blocks"
}

// TaskBlockActiveEdgeIndex enforces at the database level that at most one
// active block exists per (task, type, ref, scope) edge, even for writers
// racing outside one transaction. Partial on is_active so resolved blocks
// never clash with a fresh edge; a nil ref (MANUAL blocks) coalesces to the
// empty string.
const TaskBlockActiveEdgeIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_task_blocks_active_edge
ON task_blocks (task_id, block_type, scope, ifnull(ref_entity_type, ''), ifnull(ref_entity_id, ''))
WHERE is_active`

// Ref returns the blocking entity reference, zero for MANUAL blocks.
func (b *TaskBlock) Ref() EntityRef {
	if b.RefEntityType == nil || b.RefEntityID == nil {
		return EntityRef{}
	}
	return EntityRef{Type: *b.RefEntityType, ID: *b.RefEntityID}
}
