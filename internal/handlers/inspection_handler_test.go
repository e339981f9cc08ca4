package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"buildops-api/internal/models"

	"github.com/stretchr/testify/require"
)

func TestCreateInspection_NeedsAnchor(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskInProgress)

	w := doJSON(t, r, token, http.MethodPost, "/api/inspections", map[string]any{
		"projectId": "project-1",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, token, http.MethodPost, "/api/inspections", map[string]any{
		"projectId": "project-1",
		"taskId":    task.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var inspection models.Inspection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inspection))
	require.Equal(t, models.InspectionDraft, inspection.Status)
	require.Equal(t, task.ID, *inspection.TaskID)
}

func TestInspectionLifecycle_Approve(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskInProgress)
	inspection := seedInspection(t, db, models.InspectionDraft, &task.ID)

	for _, step := range []string{"submit", "review", "approve"} {
		w := doJSON(t, r, token, http.MethodPost, "/api/inspections/"+inspection.ID+"/"+step, nil)
		require.Equal(t, http.StatusOK, w.Code, "step %s", step)
	}

	var fresh models.Inspection
	require.NoError(t, db.First(&fresh, "id = ?", inspection.ID).Error)
	require.Equal(t, models.InspectionApproved, fresh.Status)
	require.NotNil(t, fresh.SubmittedAt)
	require.NotNil(t, fresh.ReviewedAt)
	require.NotNil(t, fresh.DecisionAt)

	// Approval spawns nothing
	var count int64
	require.NoError(t, db.Model(&models.Issue{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestInspectionLifecycle_SkippingReviewRejected(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskInProgress)
	inspection := seedInspection(t, db, models.InspectionSubmitted, &task.ID)

	w := doJSON(t, r, token, http.MethodPost, "/api/inspections/"+inspection.ID+"/approve", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "INVALID_TRANSITION", decodeBody(t, w)["code"])
}

func TestApproveInspection_MalformedBodyRejected(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskInProgress)
	inspection := seedInspection(t, db, models.InspectionInReview, &task.ID)

	w := doRaw(t, r, token, http.MethodPost, "/api/inspections/"+inspection.ID+"/approve", `{"approvalReason":`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var fresh models.Inspection
	require.NoError(t, db.First(&fresh, "id = ?", inspection.ID).Error)
	require.Equal(t, models.InspectionInReview, fresh.Status)
}

func TestRejectInspection_SpawnsAnchoredIssues(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskInProgress)
	inspection := seedInspection(t, db, models.InspectionInReview, &task.ID)

	w := doJSON(t, r, token, http.MethodPost, "/api/inspections/"+inspection.ID+"/reject", map[string]any{
		"decisionReason": "Two defects found during walkthrough",
		"issues": []map[string]any{
			{"title": "Conduit bracket loose", "priority": models.PriorityHigh},
			{"title": "Junction box not grounded"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var fresh models.Inspection
	require.NoError(t, db.First(&fresh, "id = ?", inspection.ID).Error)
	require.Equal(t, models.InspectionRejected, fresh.Status)
	require.Equal(t, "Two defects found during walkthrough", fresh.DecisionReason)

	var issues []models.Issue
	require.NoError(t, db.Order("title asc").Find(&issues).Error)
	require.Len(t, issues, 2)
	for _, issue := range issues {
		require.Equal(t, models.IssueOpen, issue.Status)
		require.Equal(t, task.ID, *issue.TaskID)
		require.Equal(t, inspection.ID, *issue.InspectionID)
		require.Equal(t, "project-1", issue.ProjectID)
	}
	require.Equal(t, models.PriorityHigh, issues[0].Priority)
	require.Equal(t, models.PriorityMedium, issues[1].Priority, "priority defaults to medium")
}

func TestRejectInspection_RequiresReason(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskInProgress)
	inspection := seedInspection(t, db, models.InspectionInReview, &task.ID)

	w := doJSON(t, r, token, http.MethodPost, "/api/inspections/"+inspection.ID+"/reject", map[string]any{
		"issues": []map[string]any{{"title": "Defect"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Rejection failed atomically: no status change, no issues
	var fresh models.Inspection
	require.NoError(t, db.First(&fresh, "id = ?", inspection.ID).Error)
	require.Equal(t, models.InspectionInReview, fresh.Status)

	var count int64
	require.NoError(t, db.Model(&models.Issue{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRejectInspection_BadIssuePayloadRollsBack(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskInProgress)
	inspection := seedInspection(t, db, models.InspectionInReview, &task.ID)

	w := doJSON(t, r, token, http.MethodPost, "/api/inspections/"+inspection.ID+"/reject", map[string]any{
		"decisionReason": "bad payload",
		"issues": []map[string]any{
			{"title": "Fine"},
			{"title": "Broken priority", "priority": 9},
		},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "VALIDATION_ERROR", decodeBody(t, w)["code"])

	var count int64
	require.NoError(t, db.Model(&models.Issue{}).Count(&count).Error)
	require.Zero(t, count, "no partial issue list survives a failed rejection")
}
