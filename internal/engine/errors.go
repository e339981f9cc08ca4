package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTransition means the state machine defines no edge between the
// current and target statuses. Never retried; the request must change.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrApprovalIncomplete means a decision was asked to move to APPROVED or
// REJECTED before every required approver cast their vote.
var ErrApprovalIncomplete = errors.New("not all required approvers have cast an approval")

// InvalidTransitionError wraps ErrInvalidTransition with the offending edge.
type InvalidTransitionError struct {
	EntityType string
	From       string
	To         string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition %s -> %s", strings.ToLower(e.EntityType), e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// BlockedError means one or more active blocks veto the requested task
// transition. ALL blocks in the relevant scope must be resolved before the
// transition can succeed, not just the first one.
type BlockedError struct {
	Scope    string
	BlockIDs []string
	Messages []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("task is blocked by %d active %s-scope block(s)", len(e.BlockIDs), strings.ToLower(e.Scope))
}

// ValidationError means the request payload was malformed. Rejected before
// any state inspection.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
