package repository

import (
	"context"

	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// SnapshotRepository defines the snapshot history store (Port).
// Implemented in the Infrastructure layer; persistence is optional, the
// engine itself keeps only in-memory rolling windows.
type SnapshotRepository interface {
	// Save persists one snapshot.
	Save(ctx context.Context, snapshot *entity.Snapshot) error

	// SaveBatch persists several snapshots in one transaction.
	SaveBatch(ctx context.Context, snapshots []*entity.Snapshot) error

	// FindByResource returns the most recent snapshots for a resource.
	FindByResource(ctx context.Context, resourceID string, limit int) ([]*entity.Snapshot, error)

	// FindByTimeRange returns snapshots for a resource within the range.
	FindByTimeRange(ctx context.Context, resourceID string, timeRange valueobject.TimeRange) ([]*entity.Snapshot, error)

	// FindLatestByResource returns the newest snapshot for a resource.
	FindLatestByResource(ctx context.Context, resourceID string) (*entity.Snapshot, error)

	// DeleteOlderThan removes snapshots measured before the cutoff.
	DeleteOlderThan(ctx context.Context, timeRange valueobject.TimeRange) error

	// Count returns the number of stored snapshots for a resource.
	Count(ctx context.Context, resourceID string) (int64, error)
}
