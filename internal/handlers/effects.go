package handlers

import (
	"fmt"
	"time"

	"buildops-api/internal/blocks"
	"buildops-api/internal/engine"
	"buildops-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// applyStatusChange performs the guarded status update for the transitioned
// entity. The WHERE clause re-checks the status the engine decided against,
// so two concurrent transitions can never both succeed: the loser sees zero
// affected rows and the whole transaction rolls back.
func applyStatusChange(tx *gorm.DB, model any, entityID, fromStatus, toStatus, actor string, extra map[string]any) error {
	updates := map[string]any{
		"status":     toStatus,
		"updated_by": actor,
	}
	for col, val := range extra {
		updates[col] = val
	}
	res := tx.Model(model).
		Where("id = ? AND status = ?", entityID, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errConflict
	}
	return nil
}

// applyEffects persists the non-status effects of an engine result inside the
// caller's transaction. Effects are all-or-nothing: any failure aborts the
// transaction and no partial list is ever applied.
func applyEffects(tx *gorm.DB, actor string, effects []engine.Effect) error {
	store := blocks.NewStore(tx)
	now := time.Now()
	for _, ef := range effects {
		switch ef.Kind {
		case engine.EffectStatusChanged:
			// Applied by the handler via applyStatusChange together with
			// its entity-specific timestamp columns.
		case engine.EffectCreateIssue:
			issue := models.Issue{
				ID:           uuid.NewString(),
				ProjectID:    ef.Issue.ProjectID,
				TaskID:       ef.Issue.TaskID,
				InspectionID: ef.Issue.InspectionID,
				LocationID:   ef.Issue.LocationID,
				Title:        ef.Issue.Title,
				Description:  ef.Issue.Description,
				Status:       models.IssueOpen,
				Priority:     ef.Issue.Priority,
				DueDate:      ef.Issue.DueDate,
				CreatedBy:    actor,
				UpdatedBy:    actor,
			}
			if err := tx.Create(&issue).Error; err != nil {
				return fmt.Errorf("create cascaded issue: %w", err)
			}
		case engine.EffectCreateBlock:
			refType := ef.Block.Ref.Type
			refID := ef.Block.Ref.ID
			block := models.TaskBlock{
				TaskID:    ef.Block.TaskID,
				BlockType: ef.Block.BlockType,
				Scope:     ef.Block.Scope,
				Message:   ef.Block.Message,
				CreatedBy: actor,
			}
			if !ef.Block.Ref.IsZero() {
				block.RefEntityType = &refType
				block.RefEntityID = &refID
			}
			if err := store.CreateBlock(&block); err != nil {
				return err
			}
		case engine.EffectResolveBlocksRef:
			if _, err := store.ResolveBlocksByRef(ef.ResolveRef.Ref.Type, ef.ResolveRef.Ref.ID, ef.ResolveRef.Scope, now); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown effect kind %q", ef.Kind)
		}
	}
	return nil
}
