package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jmylchreest/miraview/internal/models"
)

// snapshotRepo implements SnapshotRepository using GORM.
type snapshotRepo struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db *gorm.DB) *snapshotRepo {
	return &snapshotRepo{db: db}
}

var _ SnapshotRepository = (*snapshotRepo)(nil)

// Create stores a new snapshot.
func (r *snapshotRepo) Create(ctx context.Context, snapshot *models.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recently fetched snapshot of kind, or nil if none exists.
func (r *snapshotRepo) Latest(ctx context.Context, kind models.SnapshotKind) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("fetched_at DESC, id DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting latest %s snapshot: %w", kind, err)
	}
	return &snapshot, nil
}

// List returns snapshot metadata of kind, newest first. Payloads are not loaded.
func (r *snapshotRepo) List(ctx context.Context, kind models.SnapshotKind, limit int) ([]*models.Snapshot, error) {
	var snapshots []*models.Snapshot
	q := r.db.WithContext(ctx).
		Select("id", "created_at", "kind", "source", "fetched_at", "item_count", "encoding").
		Where("kind = ?", kind).
		Order("fetched_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("listing %s snapshots: %w", kind, err)
	}
	return snapshots, nil
}

// Prune deletes all but the newest keep snapshots of kind and returns how
// many were removed.
func (r *snapshotRepo) Prune(ctx context.Context, kind models.SnapshotKind, keep int) (int64, error) {
	keep = max(keep, 1)

	var keepIDs []models.ULID
	err := r.db.WithContext(ctx).
		Model(&models.Snapshot{}).
		Where("kind = ?", kind).
		Order("fetched_at DESC, id DESC").
		Limit(keep).
		Pluck("id", &keepIDs).Error
	if err != nil {
		return 0, fmt.Errorf("selecting %s snapshots to keep: %w", kind, err)
	}
	if len(keepIDs) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Where("kind = ? AND id NOT IN ?", kind, keepIDs).
		Delete(&models.Snapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("pruning %s snapshots: %w", kind, result.Error)
	}
	return result.RowsAffected, nil
}
