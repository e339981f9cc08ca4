package blocks

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"buildops-api/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrDuplicateBlock is returned when an active block with the same
	// (task, type, ref, scope) already exists.
	ErrDuplicateBlock = errors.New("an active block with the same reference already exists")

	// ErrAlreadyResolved is returned when resolving a block that is no
	// longer active. Blocks are resolved exactly once.
	ErrAlreadyResolved = errors.New("block is already resolved")

	// ErrBlockNotFound is returned when the block id is unknown.
	ErrBlockNotFound = errors.New("block not found")
)

// Store maintains the blocking edges between tasks and the entities holding
// them back. It is constructed over the caller's transaction handle so that
// block writes commit atomically with the entity writes they belong to.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over the given database or transaction handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ActiveBlocksFor returns the active blocks vetoing a task boundary. An empty
// scope returns active blocks of both scopes.
func (s *Store) ActiveBlocksFor(taskID string, scope models.BlockScope) ([]models.TaskBlock, error) {
	query := s.db.Where("task_id = ? AND is_active = ?", taskID, true)
	if scope != "" {
		query = query.Where("scope = ?", scope)
	}
	var found []models.TaskBlock
	if err := query.Order("created_at asc").Find(&found).Error; err != nil {
		return nil, fmt.Errorf("query active blocks: %w", err)
	}
	return found, nil
}

// CreateBlock inserts a new active block. Fails with ErrDuplicateBlock when
// an active block with identical (taskId, blockType, refEntityType,
// refEntityId, scope) exists.
func (s *Store) CreateBlock(block *models.TaskBlock) error {
	if block.TaskID == "" {
		return errors.New("block requires a task id")
	}
	if !block.BlockType.IsValid() {
		return fmt.Errorf("invalid block type %q", block.BlockType)
	}
	if !block.Scope.IsValid() {
		return fmt.Errorf("invalid block scope %q", block.Scope)
	}

	dup := s.db.Model(&models.TaskBlock{}).
		Where("task_id = ? AND block_type = ? AND scope = ? AND is_active = ?",
			block.TaskID, block.BlockType, block.Scope, true)
	if block.RefEntityType != nil && block.RefEntityID != nil {
		dup = dup.Where("ref_entity_type = ? AND ref_entity_id = ?", *block.RefEntityType, *block.RefEntityID)
	} else {
		dup = dup.Where("ref_entity_type IS NULL AND ref_entity_id IS NULL")
	}
	var count int64
	if err := dup.Count(&count).Error; err != nil {
		return fmt.Errorf("check duplicate block: %w", err)
	}
	if count > 0 {
		return ErrDuplicateBlock
	}

	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	block.IsActive = true
	block.ResolvedAt = nil
	if err := s.db.Create(block).Error; err != nil {
		// A writer racing past the pre-check above lands on the partial
		// unique index instead.
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateBlock
		}
		return fmt.Errorf("create block: %w", err)
	}
	return nil
}

// ResolveBlock deactivates a block and stamps its resolution time. Resolution
// is irreversible: a second call fails with ErrAlreadyResolved and leaves the
// original ResolvedAt untouched. Resolving the last START block on a task
// removes the veto only; the task transition must still be requested.
func (s *Store) ResolveBlock(blockID string, resolvedAt time.Time) (*models.TaskBlock, error) {
	var block models.TaskBlock
	if err := s.db.Where("id = ?", blockID).First(&block).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlockNotFound
		}
		return nil, fmt.Errorf("load block: %w", err)
	}
	if !block.IsActive {
		return &block, ErrAlreadyResolved
	}

	// Guarded update so a concurrent resolver cannot resolve twice.
	res := s.db.Model(&models.TaskBlock{}).
		Where("id = ? AND is_active = ?", blockID, true).
		Updates(map[string]any{"is_active": false, "resolved_at": resolvedAt})
	if res.Error != nil {
		return nil, fmt.Errorf("resolve block: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &block, ErrAlreadyResolved
	}
	block.IsActive = false
	block.ResolvedAt = &resolvedAt
	return &block, nil
}

// ResolveBlocksByRef resolves every active block pointing at the given
// entity, optionally restricted to one scope. Used when the blocking entity
// reaches its own resolved status, e.g. a delivery gets accepted or a
// decision gets approved. Returns the resolved blocks.
func (s *Store) ResolveBlocksByRef(refType models.EntityType, refID string, scope *models.BlockScope, resolvedAt time.Time) ([]models.TaskBlock, error) {
	query := s.db.Where("ref_entity_type = ? AND ref_entity_id = ? AND is_active = ?", refType, refID, true)
	if scope != nil {
		query = query.Where("scope = ?", *scope)
	}
	var found []models.TaskBlock
	if err := query.Find(&found).Error; err != nil {
		return nil, fmt.Errorf("query blocks by ref: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(found))
	for _, b := range found {
		ids = append(ids, b.ID)
	}
	res := s.db.Model(&models.TaskBlock{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Updates(map[string]any{"is_active": false, "resolved_at": resolvedAt})
	if res.Error != nil {
		return nil, fmt.Errorf("resolve blocks by ref: %w", res.Error)
	}
	for i := range found {
		found[i].IsActive = false
		at := resolvedAt
		found[i].ResolvedAt = &at
	}
	return found, nil
}
