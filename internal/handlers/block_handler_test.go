package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"buildops-api/internal/models"

	"github.com/stretchr/testify/require"
)

func TestCreateTaskBlock_Manual(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskNew)

	w := doJSON(t, r, token, http.MethodPost, "/api/tasks/"+task.ID+"/blocks", map[string]any{
		"blockType": "MANUAL",
		"message":   "Awaiting permit",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var block models.TaskBlock
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &block))
	require.Equal(t, models.BlockManual, block.BlockType)
	require.Equal(t, models.ScopeStart, block.Scope, "scope defaults to START")
	require.True(t, block.IsActive)
	require.Nil(t, block.RefEntityID)
}

func TestCreateTaskBlock_DependencyNeedsExistingBlocker(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskNew)
	blocker := seedTask(t, db, models.TaskInProgress)

	w := doJSON(t, r, token, http.MethodPost, "/api/tasks/"+task.ID+"/blocks", map[string]any{
		"blockType": "DEPENDENCY",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, token, http.MethodPost, "/api/tasks/"+task.ID+"/blocks", map[string]any{
		"blockType":     "DEPENDENCY",
		"blockerTaskId": task.ID,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, token, http.MethodPost, "/api/tasks/"+task.ID+"/blocks", map[string]any{
		"blockType":     "DEPENDENCY",
		"blockerTaskId": "no-such-task",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, token, http.MethodPost, "/api/tasks/"+task.ID+"/blocks", map[string]any{
		"blockType":     "DEPENDENCY",
		"blockerTaskId": blocker.ID,
		"message":       "Framing must finish first",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var block models.TaskBlock
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &block))
	require.Equal(t, models.EntityTask, *block.RefEntityType)
	require.Equal(t, blocker.ID, *block.RefEntityID)
}

func TestCreateTaskBlock_CascadeTypesRejected(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskNew)

	for _, blockType := range []string{"DELIVERY", "DECISION"} {
		w := doJSON(t, r, token, http.MethodPost, "/api/tasks/"+task.ID+"/blocks", map[string]any{
			"blockType": blockType,
		})
		require.Equal(t, http.StatusBadRequest, w.Code, "blockType %s", blockType)
	}
}

func TestCreateTaskBlock_DuplicateRejected(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskNew)

	payload := map[string]any{"blockType": "MANUAL", "message": "hold"}
	w := doJSON(t, r, token, http.MethodPost, "/api/tasks/"+task.ID+"/blocks", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, token, http.MethodPost, "/api/tasks/"+task.ID+"/blocks", payload)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "DUPLICATE_BLOCK", decodeBody(t, w)["code"])
}

func TestResolveBlock_IrreversibleAndNoAutoAdvance(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskNew)

	w := doJSON(t, r, token, http.MethodPost, "/api/tasks/"+task.ID+"/blocks", map[string]any{
		"blockType": "MANUAL",
		"message":   "hold",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var block models.TaskBlock
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &block))

	w = doJSON(t, r, token, http.MethodPost, "/api/blocks/"+block.ID+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Resolving the last START block removes the veto but never moves the task
	var fresh models.Task
	require.NoError(t, db.First(&fresh, "id = ?", task.ID).Error)
	require.Equal(t, models.TaskNew, fresh.Status)

	w = doJSON(t, r, token, http.MethodPost, "/api/blocks/"+block.ID+"/resolve", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "ALREADY_RESOLVED", decodeBody(t, w)["code"])
}

func TestResolveBlock_NotFound(t *testing.T) {
	r, _, token := setupAPI(t)

	w := doJSON(t, r, token, http.MethodPost, "/api/blocks/missing/resolve", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetTaskBlocks_ScopeAndHistory(t *testing.T) {
	r, db, token := setupAPI(t)
	task := seedTask(t, db, models.TaskNew)

	for _, payload := range []map[string]any{
		{"blockType": "MANUAL", "scope": "START", "message": "one"},
		{"blockType": "MANUAL", "scope": "DONE", "message": "two"},
	} {
		w := doJSON(t, r, token, http.MethodPost, "/api/tasks/"+task.ID+"/blocks", payload)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, token, http.MethodGet, "/api/tasks/"+task.ID+"/blocks?scope=DONE", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, decodeBody(t, w)["blocks"], 1)

	// Resolve one; default listing drops it, all=true keeps it
	blocks := activeBlocksOf(t, db, task.ID)
	w = doJSON(t, r, token, http.MethodPost, "/api/blocks/"+blocks[0].ID+"/resolve", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, token, http.MethodGet, "/api/tasks/"+task.ID+"/blocks", nil)
	require.Len(t, decodeBody(t, w)["blocks"], 1)

	w = doJSON(t, r, token, http.MethodGet, "/api/tasks/"+task.ID+"/blocks?all=true", nil)
	require.Len(t, decodeBody(t, w)["blocks"], 2)
}
