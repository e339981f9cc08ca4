package engine

import (
	"fmt"
	"time"

	"buildops-api/internal/models"
	"buildops-api/internal/statemachine"
)

// BlockReader is the view of the blocking graph the engine consults when a
// task transition is requested. The caller hands in a reader bound to its own
// transaction so the veto check and the resulting writes see the same state.
type BlockReader interface {
	ActiveBlocksFor(taskID string, scope models.BlockScope) ([]models.TaskBlock, error)
}

// Request carries one requested status transition plus the snapshot of state
// the engine needs to decide it. The engine performs no I/O of its own beyond
// reading blocks through the supplied reader.
type Request struct {
	Entity        models.EntityRef
	ProjectID     string
	CurrentStatus string
	TargetStatus  string
	Actor         string

	// Blocks is required for task transitions.
	Blocks BlockReader

	// Per-type payload snapshots; only the one matching Entity.Type is read.
	Inspection *InspectionSnapshot
	Issue      *IssueSnapshot
	Decision   *DecisionSnapshot
}

// InspectionSnapshot carries the inspection anchors and, on rejection, the
// defects to spawn as issues.
type InspectionSnapshot struct {
	TaskID         *string
	LocationID     *string
	DecisionReason string
	Issues         []IssueInput
}

// IssueInput is one defect payload supplied with an inspection rejection.
type IssueInput struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

// IssueSnapshot carries the verification outcome for FIXED -> VERIFIED
// requests.
type IssueSnapshot struct {
	Verified *bool
}

// DecisionSnapshot carries the approval slots recorded for a decision.
type DecisionSnapshot struct {
	Approvals []models.DecisionApproval
}

// RequestTransition validates a requested transition, checks the blocking
// graph for vetoes, applies the cascade rules for the entity type and returns
// the authoritative new status plus the ordered effect list. It is a pure
// decision function: nothing is persisted here, and on error no effect list
// is returned, so a failed request leaves zero observable state change.
func RequestTransition(req Request) (*Result, error) {
	if !statemachine.KnowsEntity(req.Entity.Type) {
		return nil, validationErrorf("no lifecycle defined for entity type %q", req.Entity.Type)
	}
	if req.Entity.ID == "" {
		return nil, validationErrorf("entity id is required")
	}
	if req.TargetStatus == "" {
		return nil, validationErrorf("target status is required")
	}

	if !statemachine.IsLegalTransition(req.Entity.Type, req.CurrentStatus, req.TargetStatus) {
		return nil, &InvalidTransitionError{
			EntityType: string(req.Entity.Type),
			From:       req.CurrentStatus,
			To:         req.TargetStatus,
		}
	}

	switch req.Entity.Type {
	case models.EntityTask:
		return taskTransition(req)
	case models.EntityInspection:
		return inspectionTransition(req)
	case models.EntityIssue:
		return issueTransition(req)
	case models.EntityDelivery:
		return deliveryTransition(req)
	case models.EntityDecision:
		return decisionTransition(req)
	}
	return nil, validationErrorf("no lifecycle defined for entity type %q", req.Entity.Type)
}

// taskTransition enforces the block vetoes: leaving NEW requires no active
// START-scope block, entering DONE requires no active DONE-scope block. All
// blocks in the relevant scope must be gone, not just the first.
func taskTransition(req Request) (*Result, error) {
	if req.Blocks == nil {
		return nil, validationErrorf("task transitions require a block reader")
	}

	if req.CurrentStatus == string(models.TaskNew) {
		if err := checkScope(req, models.ScopeStart); err != nil {
			return nil, err
		}
	}
	if req.TargetStatus == string(models.TaskDone) {
		if err := checkScope(req, models.ScopeDone); err != nil {
			return nil, err
		}
	}

	return &Result{
		NewStatus: req.TargetStatus,
		Effects:   []Effect{statusEffect(req.Entity, req.CurrentStatus, req.TargetStatus)},
	}, nil
}

func checkScope(req Request, scope models.BlockScope) error {
	active, err := req.Blocks.ActiveBlocksFor(req.Entity.ID, scope)
	if err != nil {
		return fmt.Errorf("check %s blocks: %w", scope, err)
	}
	if len(active) == 0 {
		return nil
	}
	blocked := &BlockedError{Scope: string(scope)}
	for _, b := range active {
		blocked.BlockIDs = append(blocked.BlockIDs, b.ID)
		blocked.Messages = append(blocked.Messages, b.Message)
	}
	return blocked
}

// inspectionTransition spawns one OPEN issue per supplied defect when the
// inspection is rejected, anchored to the inspection's task and location.
func inspectionTransition(req Request) (*Result, error) {
	effects := []Effect{statusEffect(req.Entity, req.CurrentStatus, req.TargetStatus)}

	if req.TargetStatus == string(models.InspectionRejected) {
		if req.Inspection == nil || req.Inspection.DecisionReason == "" {
			return nil, validationErrorf("rejecting an inspection requires a decision reason")
		}
		inspectionID := req.Entity.ID
		for i, in := range req.Inspection.Issues {
			if in.Title == "" {
				return nil, validationErrorf("issue payload %d is missing a title", i)
			}
			priority := in.Priority
			if priority == 0 {
				priority = models.PriorityMedium
			}
			if !models.IsValidPriority(priority) {
				return nil, validationErrorf("issue payload %d has invalid priority %d", i, in.Priority)
			}
			effects = append(effects, Effect{
				Kind: EffectCreateIssue,
				Issue: &IssueEffect{
					ProjectID:    req.ProjectID,
					TaskID:       req.Inspection.TaskID,
					InspectionID: &inspectionID,
					LocationID:   req.Inspection.LocationID,
					Title:        in.Title,
					Description:  in.Description,
					Priority:     priority,
					DueDate:      in.DueDate,
				},
			})
		}
	}

	return &Result{NewStatus: req.TargetStatus, Effects: effects}, nil
}

// issueTransition handles the failed-verification override: a request for
// FIXED -> VERIFIED with verified=false resolves to OPEN instead, starting a
// new fix cycle.
func issueTransition(req Request) (*Result, error) {
	target := req.TargetStatus
	if target == string(models.IssueVerified) {
		if req.Issue == nil || req.Issue.Verified == nil {
			return nil, validationErrorf("verifying an issue requires the verified flag")
		}
		if !*req.Issue.Verified {
			target = string(models.IssueOpen)
		}
	}
	return &Result{
		NewStatus: target,
		Effects:   []Effect{statusEffect(req.Entity, req.CurrentStatus, target)},
	}, nil
}

// deliveryTransition resolves every block referencing the delivery once it is
// accepted. The blocked tasks are not advanced; their transitions must be
// requested separately.
func deliveryTransition(req Request) (*Result, error) {
	effects := []Effect{statusEffect(req.Entity, req.CurrentStatus, req.TargetStatus)}
	if req.TargetStatus == string(models.DeliveryAccepted) {
		effects = append(effects, Effect{
			Kind:       EffectResolveBlocksRef,
			ResolveRef: &ResolveRefEffect{Ref: req.Entity},
		})
	}
	return &Result{NewStatus: req.TargetStatus, Effects: effects}, nil
}

// decisionTransition gates APPROVED/REJECTED behind complete approvals and
// resolves referencing blocks once the decision is approved or implemented.
func decisionTransition(req Request) (*Result, error) {
	if req.TargetStatus == string(models.DecisionApproved) || req.TargetStatus == string(models.DecisionRejected) {
		if req.Decision == nil {
			return nil, validationErrorf("deciding requires the approval snapshot")
		}
		for _, a := range req.Decision.Approvals {
			if !a.Cast() {
				return nil, ErrApprovalIncomplete
			}
		}
	}

	effects := []Effect{statusEffect(req.Entity, req.CurrentStatus, req.TargetStatus)}
	if req.TargetStatus == string(models.DecisionApproved) || req.TargetStatus == string(models.DecisionImplemented) {
		effects = append(effects, Effect{
			Kind:       EffectResolveBlocksRef,
			ResolveRef: &ResolveRefEffect{Ref: req.Entity},
		})
	}
	return &Result{NewStatus: req.TargetStatus, Effects: effects}, nil
}

// DeliveryCreationEffects returns the cascade for a newly created delivery:
// a START-scope DELIVERY block on its task when the delivery blocks work.
func DeliveryCreationEffects(d *models.Delivery) []Effect {
	if !d.BlocksWork || d.TaskID == nil || *d.TaskID == "" {
		return nil
	}
	return []Effect{{
		Kind: EffectCreateBlock,
		Block: &BlockEffect{
			TaskID:    *d.TaskID,
			BlockType: models.BlockDelivery,
			Scope:     models.ScopeStart,
			Ref:       models.EntityRef{Type: models.EntityDelivery, ID: d.ID},
			Message:   fmt.Sprintf("Waiting for delivery from %s", d.SupplierName),
		},
	}}
}

// DecisionCreationEffects returns the cascade for a newly created decision:
// a DECISION block on the related task when the decision blocks work. The
// scope comes from the payload and defaults to START.
func DecisionCreationEffects(d *models.Decision, scope models.BlockScope) []Effect {
	if !d.BlocksWork {
		return nil
	}
	related := d.Related()
	if related.Type != models.EntityTask || related.ID == "" {
		return nil
	}
	if scope == "" {
		scope = models.ScopeStart
	}
	return []Effect{{
		Kind: EffectCreateBlock,
		Block: &BlockEffect{
			TaskID:    related.ID,
			BlockType: models.BlockDecision,
			Scope:     scope,
			Ref:       models.EntityRef{Type: models.EntityDecision, ID: d.ID},
			Message:   fmt.Sprintf("Waiting for decision: %s", d.Subject),
		},
	}}
}
