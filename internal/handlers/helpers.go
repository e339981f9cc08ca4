package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"buildops-api/internal/blocks"
	"buildops-api/internal/cache"
	"buildops-api/internal/database"
	"buildops-api/internal/engine"
	"buildops-api/internal/models"
	"buildops-api/internal/realtime"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// errConflict signals that a concurrent writer changed the entity between the
// engine's decision and the guarded status update.
var errConflict = errors.New("entity was modified concurrently")

// actorID pulls the authenticated user id set by the JWT middleware.
func actorID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User ID not found in token",
		})
		return "", false
	}
	return userID, true
}

// pageParams parses page/limit query params with the API defaults.
func pageParams(c *gin.Context) (page, limit, offset int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit, (page - 1) * limit
}

func parseDateFlexible(dateStr string) (time.Time, bool) {
	if dateStr == "" {
		return time.Time{}, false
	}
	layouts := []string{
		"2006-01-02", // ISO date
		time.RFC3339, // full RFC3339
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// optionalDate converts a date string to a nullable time, reporting false on
// a malformed non-empty value.
func optionalDate(dateStr string) (*time.Time, bool) {
	if dateStr == "" {
		return nil, true
	}
	t, ok := parseDateFlexible(dateStr)
	if !ok {
		return nil, false
	}
	return &t, true
}

// bindOptionalJSON binds a request body that may legitimately be absent. An
// empty body leaves dst untouched; a present but malformed body is rejected
// with 400.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

// respondTransitionError maps engine and store errors onto the API error
// taxonomy. Every engine failure is surfaced; nothing is retried here.
func respondTransitionError(c *gin.Context, err error) {
	var ve *engine.ValidationError
	var ite *engine.InvalidTransitionError
	var be *engine.BlockedError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"code": "VALIDATION_ERROR", "error": ve.Msg})
	case errors.As(err, &ite):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "INVALID_TRANSITION", "error": ite.Error()})
	case errors.As(err, &be):
		c.JSON(http.StatusConflict, gin.H{
			"code":     "BLOCKED_BY_ACTIVE_DEPENDENCY",
			"error":    be.Error(),
			"blockIds": be.BlockIDs,
			"messages": be.Messages,
		})
	case errors.Is(err, engine.ErrApprovalIncomplete):
		c.JSON(http.StatusConflict, gin.H{"code": "APPROVAL_INCOMPLETE", "error": err.Error()})
	case errors.Is(err, blocks.ErrDuplicateBlock):
		c.JSON(http.StatusConflict, gin.H{"code": "DUPLICATE_BLOCK", "error": err.Error()})
	case errors.Is(err, blocks.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"code": "ALREADY_RESOLVED", "error": err.Error()})
	case errors.Is(err, blocks.ErrBlockNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "error": err.Error()})
	case errors.Is(err, errConflict):
		c.JSON(http.StatusConflict, gin.H{"code": "CONFLICT", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply transition"})
	}
}

// broadcastEffects fans the committed effect list out to project watchers.
// Called strictly after commit so watchers never observe uncommitted state.
func broadcastEffects(projectID string, effects []engine.Effect) {
	hub := realtime.GetHub()
	for _, ef := range effects {
		var evt map[string]any
		switch ef.Kind {
		case engine.EffectStatusChanged:
			evt = map[string]any{
				"type":       "status_changed",
				"entityType": ef.Status.Entity.Type,
				"entityId":   ef.Status.Entity.ID,
				"from":       ef.Status.From,
				"to":         ef.Status.To,
			}
		case engine.EffectCreateIssue:
			evt = map[string]any{"type": "issue_created", "title": ef.Issue.Title}
		case engine.EffectCreateBlock:
			evt = map[string]any{"type": "block_created", "taskId": ef.Block.TaskID, "scope": ef.Block.Scope}
		case engine.EffectResolveBlocksRef:
			evt = map[string]any{"type": "blocks_resolved", "refType": ef.ResolveRef.Ref.Type, "refId": ef.ResolveRef.Ref.ID}
		default:
			continue
		}
		evt["projectId"] = projectID
		evt["version"] = 1
		if bytes, err := json.Marshal(evt); err == nil {
			hub.Broadcast(projectID, bytes)
		}
	}
}

// userNameCache keeps username lookups for response enrichment out of the hot
// path. Entries expire quickly; the DB stays the source of truth.
var userNameCache = cache.NewSimpleCache[string, string](cache.Options{ConcurrencySafe: true})

// lookupUserName resolves a user id to a display name, caching hits briefly.
func lookupUserName(userID string) string {
	if userID == "" {
		return ""
	}
	if name, ok := userNameCache.Get(userID); ok {
		return name
	}
	var u models.User
	if err := database.GetDB().Where("id = ?", userID).First(&u).Error; err != nil {
		return ""
	}
	name := u.Name
	if name == "" {
		name = u.Username
	}
	userNameCache.Set(userID, name, 30*time.Second)
	return name
}
