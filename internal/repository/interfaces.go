// Package repository defines data access interfaces for miraview.
package repository

import (
	"context"

	"github.com/jmylchreest/miraview/internal/models"
)

// SnapshotRepository defines operations for snapshot persistence.
type SnapshotRepository interface {
	// Create stores a new snapshot.
	Create(ctx context.Context, snapshot *models.Snapshot) error
	// Latest returns the most recently fetched snapshot of kind, or nil.
	Latest(ctx context.Context, kind models.SnapshotKind) (*models.Snapshot, error)
	// List returns snapshot metadata of kind, newest first, without payloads.
	List(ctx context.Context, kind models.SnapshotKind, limit int) ([]*models.Snapshot, error)
	// Prune deletes all but the newest keep snapshots of kind.
	Prune(ctx context.Context, kind models.SnapshotKind, keep int) (int64, error)
}
