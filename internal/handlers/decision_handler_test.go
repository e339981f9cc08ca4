package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"buildops-api/internal/auth"
	"buildops-api/internal/models"

	"github.com/stretchr/testify/require"
)

func TestCreateDecision_BlocksRelatedTask(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskNew)

	w := doJSON(t, r, token, http.MethodPost, "/api/decisions", map[string]any{
		"projectId":   "project-1",
		"relatedType": "TASK",
		"relatedId":   task.ID,
		"subject":     "Cable routing",
		"problem":     "Route A conflicts with HVAC ducts",
		"blocksWork":  true,
		"options":     []string{"Route A", "Route B"},
		"approverIds": []string{"user-1", "user-2"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var decision models.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	require.Equal(t, models.DecisionDraft, decision.Status)
	require.Len(t, decision.Options, 2)
	require.Len(t, decision.Approvals, 2)

	blocks := activeBlocksOf(t, db, task.ID)
	require.Len(t, blocks, 1)
	require.Equal(t, models.BlockDecision, blocks[0].BlockType)
	require.Equal(t, models.ScopeStart, blocks[0].Scope)
	require.Equal(t, decision.ID, *blocks[0].RefEntityID)
}

func TestCreateDecision_RelatedFieldsValidated(t *testing.T) {
	r, _, token := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/decisions", map[string]any{
		"projectId": "project-1",
		"subject":   "Cable routing",
		"problem":   "x",
		"relatedId": "task-1",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, token, http.MethodPost, "/api/decisions", map[string]any{
		"projectId":   "project-1",
		"subject":     "Cable routing",
		"problem":     "x",
		"relatedType": "WAT",
		"relatedId":   "task-1",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecisionApprovalGate(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskNew)

	w := doJSON(t, r, token, http.MethodPost, "/api/decisions", map[string]any{
		"projectId":   "project-1",
		"relatedType": "TASK",
		"relatedId":   task.ID,
		"subject":     "Cable routing",
		"problem":     "Route A conflicts with HVAC ducts",
		"blocksWork":  true,
		"approverIds": []string{"user-1", "user-2"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var decision models.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))

	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Approving with uncast slots is refused
	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/approve", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "APPROVAL_INCOMPLETE", decodeBody(t, w)["code"])

	// Both approvers cast
	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/approvals", map[string]any{
		"approved": true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	token2, err := auth.GenerateToken("user-2", "second")
	require.NoError(t, err)
	w = doJSON(t, r, token2, http.MethodPost, "/api/decisions/"+decision.ID+"/approvals", map[string]any{
		"approved": true,
		"comment":  "Route B works for me",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// Now approval passes and the block on the task resolves
	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/approve", map[string]any{
		"approvalReason": "Route B chosen",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var fresh models.Decision
	require.NoError(t, db.First(&fresh, "id = ?", decision.ID).Error)
	require.Equal(t, models.DecisionApproved, fresh.Status)
	require.Equal(t, "Route B chosen", fresh.ApprovalReason)
	require.Empty(t, activeBlocksOf(t, db, task.ID))

	// The task itself stayed put
	var freshTask models.Task
	require.NoError(t, db.First(&freshTask, "id = ?", task.ID).Error)
	require.Equal(t, models.TaskNew, freshTask.Status)
}

func TestCastApproval_OwnSlotOnly(t *testing.T) {
	r, _, token := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/decisions", map[string]any{
		"projectId":   "project-1",
		"subject":     "Crane placement",
		"problem":     "x",
		"approverIds": []string{"user-2"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var decision models.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))

	// user-1 has no slot
	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/approvals", map[string]any{
		"approved": true,
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	// user-2 votes once, not twice
	token2, err := auth.GenerateToken("user-2", "second")
	require.NoError(t, err)
	w = doJSON(t, r, token2, http.MethodPost, "/api/decisions/"+decision.ID+"/approvals", map[string]any{
		"approved": false,
		"comment":  "need more data",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, token2, http.MethodPost, "/api/decisions/"+decision.ID+"/approvals", map[string]any{
		"approved": true,
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "ALREADY_CAST", decodeBody(t, w)["code"])
}

func TestDecisionImplement_ResolvesRemainingBlocks(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskInProgress)

	w := doJSON(t, r, token, http.MethodPost, "/api/decisions", map[string]any{
		"projectId":   "project-1",
		"relatedType": "TASK",
		"relatedId":   task.ID,
		"subject":     "Fixture finish",
		"problem":     "x",
		"blocksWork":  true,
		"blockScope":  "DONE",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var decision models.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))

	blocks := activeBlocksOf(t, db, task.ID)
	require.Len(t, blocks, 1)
	require.Equal(t, models.ScopeDone, blocks[0].Scope)

	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, activeBlocksOf(t, db, task.ID))

	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/implement", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fresh models.Decision
	require.NoError(t, db.First(&fresh, "id = ?", decision.ID).Error)
	require.Equal(t, models.DecisionImplemented, fresh.Status)
}

func TestApproveDecision_MalformedBodyRejected(t *testing.T) {
	r, db, token := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/decisions", map[string]any{
		"projectId": "project-1",
		"subject":   "Crane placement",
		"problem":   "x",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var decision models.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))

	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// A broken body must not be silently dropped
	w = doRaw(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/approve", `{"approvalReason":`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var fresh models.Decision
	require.NoError(t, db.First(&fresh, "id = ?", decision.ID).Error)
	require.Equal(t, models.DecisionPendingApproval, fresh.Status)

	// An empty body is still fine
	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestDecisionImplement_OnlyAfterApproval(t *testing.T) {
	r, _, token := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/decisions", map[string]any{
		"projectId": "project-1",
		"subject":   "Scaffolding vendor",
		"problem":   "x",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var decision models.Decision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))

	w = doJSON(t, r, token, http.MethodPost, "/api/decisions/"+decision.ID+"/implement", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "INVALID_TRANSITION", decodeBody(t, w)["code"])
}
