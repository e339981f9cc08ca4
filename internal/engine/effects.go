package engine

import (
	"time"

	"buildops-api/internal/models"
)

// EffectKind discriminates the derived writes a transition produces.
type EffectKind string

const (
	EffectStatusChanged    EffectKind = "STATUS_CHANGED"
	EffectCreateIssue      EffectKind = "CREATE_ISSUE"
	EffectCreateBlock      EffectKind = "CREATE_BLOCK"
	EffectResolveBlocksRef EffectKind = "RESOLVE_BLOCKS_BY_REF"
)

// Effect describes one follow-up write the caller must apply. The engine
// never persists anything itself; the caller applies the whole effect list
// atomically in one transaction, or none of it.
type Effect struct {
	Kind       EffectKind        `json:"kind"`
	Status     *StatusEffect     `json:"status,omitempty"`
	Issue      *IssueEffect      `json:"issue,omitempty"`
	Block      *BlockEffect      `json:"block,omitempty"`
	ResolveRef *ResolveRefEffect `json:"resolveRef,omitempty"`
}

// StatusEffect records the authoritative status change of the transitioned
// entity.
type StatusEffect struct {
	Entity models.EntityRef `json:"entity"`
	From   string           `json:"from"`
	To     string           `json:"to"`
}

// IssueEffect describes an issue to create, e.g. one defect from a rejected
// inspection.
type IssueEffect struct {
	ProjectID    string     `json:"projectId"`
	TaskID       *string    `json:"taskId"`
	InspectionID *string    `json:"inspectionId"`
	LocationID   *string    `json:"locationId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     int        `json:"priority"`
	DueDate      *time.Time `json:"dueDate"`
}

// BlockEffect describes a block to open against a task.
type BlockEffect struct {
	TaskID    string            `json:"taskId"`
	BlockType models.BlockType  `json:"blockType"`
	Scope     models.BlockScope `json:"scope"`
	Ref       models.EntityRef  `json:"ref"`
	Message   string            `json:"message"`
}

// ResolveRefEffect asks the caller to resolve every active block pointing at
// the given entity. It never advances the blocked tasks themselves; their
// transitions must be requested separately.
type ResolveRefEffect struct {
	Ref   models.EntityRef   `json:"ref"`
	Scope *models.BlockScope `json:"scope,omitempty"`
}

// Result is the outcome of a successful transition request: the validated
// new status plus the ordered effect list the caller must persist.
type Result struct {
	NewStatus string   `json:"newStatus"`
	Effects   []Effect `json:"effects"`
}

func statusEffect(ref models.EntityRef, from, to string) Effect {
	return Effect{
		Kind:   EffectStatusChanged,
		Status: &StatusEffect{Entity: ref, From: from, To: to},
	}
}
