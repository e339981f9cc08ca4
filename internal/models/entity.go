package models

// EntityType identifies a domain entity kind. It is used for polymorphic
// references: a TaskBlock points at the entity that blocks the task, a
// Decision points at the entity it is about.
type EntityType string

const (
	EntityTask       EntityType = "TASK"
	EntityInspection EntityType = "INSPECTION"
	EntityIssue      EntityType = "ISSUE"
	EntityDelivery   EntityType = "DELIVERY"
	EntityDecision   EntityType = "DECISION"
	EntityLocation   EntityType = "LOCATION"
	EntityComment    EntityType = "COMMENT"
	EntityFile       EntityType = "FILE"
	EntityProject    EntityType = "PROJECT"
)

// IsValid checks if the entity type value is a known kind
func (e EntityType) IsValid() bool {
	switch e {
	case EntityTask, EntityInspection, EntityIssue, EntityDelivery,
		EntityDecision, EntityLocation, EntityComment, EntityFile, EntityProject:
		return true
	}
	return false
}

// EntityRef is a typed reference to a domain entity. A zero ref (empty type
// and id) means "no reference", e.g. a MANUAL block.
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// IsZero reports whether the reference points at nothing.
func (r EntityRef) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

// Priority levels shared by tasks and issues. 1 is the most urgent.
const (
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityMedium   = 3
	PriorityLow      = 4
	PriorityTrivial  = 5
)

// IsValidPriority checks a priority is within the 1..5 scale
func IsValidPriority(p int) bool {
	return p >= PriorityCritical && p <= PriorityTrivial
}
