package engine

import (
	"time"

	"buildops-api/internal/models"
)

// IsTaskBlocked reports whether any active block vetoes the given task
// boundary. Recomputed from the graph on every call; never cached as stored
// truth.
func IsTaskBlocked(r BlockReader, taskID string, scope models.BlockScope) (bool, error) {
	active, err := r.ActiveBlocksFor(taskID, scope)
	if err != nil {
		return false, err
	}
	return len(active) > 0, nil
}

// IsIssueOverdue reports whether an issue has slipped past its due date. An
// issue without a due date, or one already VERIFIED or CLOSED, is never
// overdue.
func IsIssueOverdue(issue *models.Issue, now time.Time) bool {
	if issue.Status == models.IssueVerified || issue.Status == models.IssueClosed {
		return false
	}
	if issue.DueDate == nil {
		return false
	}
	return issue.DueDate.Before(now)
}
