package statemachine

import (
	"buildops-api/internal/models"
)

// transitions holds the directed edges of every entity lifecycle. A missing
// edge means the transition is illegal; the registry is static and never
// mutated at runtime.
var transitions = map[models.EntityType]map[string][]string{
	models.EntityTask: {
		string(models.TaskNew):            {string(models.TaskPlanned), string(models.TaskCancelled)},
		string(models.TaskPlanned):        {string(models.TaskInProgress), string(models.TaskCancelled)},
		string(models.TaskInProgress):     {string(models.TaskReadyForReview), string(models.TaskCancelled)},
		string(models.TaskReadyForReview): {string(models.TaskInProgress), string(models.TaskDone), string(models.TaskCancelled)},
		string(models.TaskDone):           {},
		string(models.TaskCancelled):      {},
	},
	models.EntityInspection: {
		string(models.InspectionDraft):     {string(models.InspectionSubmitted)},
		string(models.InspectionSubmitted): {string(models.InspectionInReview)},
		string(models.InspectionInReview):  {string(models.InspectionApproved), string(models.InspectionRejected)},
		string(models.InspectionApproved):  {},
		string(models.InspectionRejected):  {},
	},
	models.EntityIssue: {
		string(models.IssueOpen):     {string(models.IssueAssigned)},
		string(models.IssueAssigned): {string(models.IssueFixed)},
		string(models.IssueFixed):    {string(models.IssueVerified)},
		// VERIFIED -> OPEN is the failed-verification reopen edge
		string(models.IssueVerified): {string(models.IssueClosed), string(models.IssueOpen)},
		string(models.IssueClosed):   {},
	},
	models.EntityDelivery: {
		string(models.DeliveryRequested): {string(models.DeliveryOrdered)},
		string(models.DeliveryOrdered):   {string(models.DeliveryInTransit)},
		string(models.DeliveryInTransit): {string(models.DeliveryDelivered)},
		string(models.DeliveryDelivered): {string(models.DeliveryAccepted), string(models.DeliveryRejected)},
		string(models.DeliveryAccepted):  {},
		string(models.DeliveryRejected):  {},
	},
	models.EntityDecision: {
		string(models.DecisionDraft):           {string(models.DecisionPendingApproval)},
		string(models.DecisionPendingApproval): {string(models.DecisionApproved), string(models.DecisionRejected)},
		string(models.DecisionApproved):        {string(models.DecisionImplemented)},
		string(models.DecisionRejected):        {},
		string(models.DecisionImplemented):     {},
	},
}

// IsLegalTransition checks whether the lifecycle of entityType defines a
// directed edge from one status to another.
func IsLegalTransition(entityType models.EntityType, from, to string) bool {
	states, ok := transitions[entityType]
	if !ok {
		return false
	}
	allowed, ok := states[from]
	if !ok {
		return false
	}
	for _, next := range allowed {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable in one step from the
// given status. The result is empty for terminal or unknown statuses.
func AllowedTransitions(entityType models.EntityType, from string) []string {
	states, ok := transitions[entityType]
	if !ok {
		return nil
	}
	allowed := states[from]
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

// TerminalStates returns the statuses of entityType with no outgoing edges.
func TerminalStates(entityType models.EntityType) []string {
	states, ok := transitions[entityType]
	if !ok {
		return nil
	}
	var out []string
	for status, allowed := range states {
		if len(allowed) == 0 {
			out = append(out, status)
		}
	}
	return out
}

// IsTerminal reports whether no transition leaves the given status.
func IsTerminal(entityType models.EntityType, status string) bool {
	states, ok := transitions[entityType]
	if !ok {
		return false
	}
	allowed, known := states[status]
	return known && len(allowed) == 0
}

// KnowsEntity reports whether the registry declares a lifecycle for the type.
func KnowsEntity(entityType models.EntityType) bool {
	_, ok := transitions[entityType]
	return ok
}
