package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// PostgresSnapshotRepository implements repository.SnapshotRepository.
type PostgresSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSnapshotRepository(db *sql.DB) *PostgresSnapshotRepository {
	return &PostgresSnapshotRepository{
		db: db,
	}
}

// Save persists one snapshot.
func (r *PostgresSnapshotRepository) Save(ctx context.Context, snapshot *entity.Snapshot) error {
	model, err := ToDBModel(snapshot)
	if err != nil {
		return fmt.Errorf("failed to convert to DB model: %w", err)
	}

	query := `
		INSERT INTO snapshots (id, resource_id, kind, measured_value, resource_limit, stale, metadata, measured_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		model.ID,
		model.ResourceID,
		model.Kind,
		model.MeasuredValue,
		model.ResourceLimit,
		model.Stale,
		model.Metadata,
		model.MeasuredAt,
		model.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// SaveBatch persists several snapshots in one transaction.
func (r *PostgresSnapshotRepository) SaveBatch(ctx context.Context, snapshots []*entity.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots (id, resource_id, kind, measured_value, resource_limit, stale, metadata, measured_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, snapshot := range snapshots {
		model, err := ToDBModel(snapshot)
		if err != nil {
			return fmt.Errorf("failed to convert snapshot to DB model: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			model.ID,
			model.ResourceID,
			model.Kind,
			model.MeasuredValue,
			model.ResourceLimit,
			model.Stale,
			model.Metadata,
			model.MeasuredAt,
			model.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FindByResource returns the most recent snapshots for a resource.
func (r *PostgresSnapshotRepository) FindByResource(
	ctx context.Context,
	resourceID string,
	limit int,
) ([]*entity.Snapshot, error) {
	query := `
		SELECT id, resource_id, kind, measured_value, resource_limit, stale, metadata, measured_at, created_at
		FROM snapshots
		WHERE resource_id = $1
		ORDER BY measured_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, resourceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	return r.scanSnapshots(rows)
}

// FindByTimeRange returns a resource's snapshots within the range.
func (r *PostgresSnapshotRepository) FindByTimeRange(
	ctx context.Context,
	resourceID string,
	timeRange valueobject.TimeRange,
) ([]*entity.Snapshot, error) {
	query := `
		SELECT id, resource_id, kind, measured_value, resource_limit, stale, metadata, measured_at, created_at
		FROM snapshots
		WHERE resource_id = $1 AND measured_at BETWEEN $2 AND $3
		ORDER BY measured_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query,
		resourceID,
		timeRange.Start(),
		timeRange.End(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	return r.scanSnapshots(rows)
}

// FindLatestByResource returns the newest snapshot for a resource.
func (r *PostgresSnapshotRepository) FindLatestByResource(
	ctx context.Context,
	resourceID string,
) (*entity.Snapshot, error) {
	query := `
		SELECT id, resource_id, kind, measured_value, resource_limit, stale, metadata, measured_at, created_at
		FROM snapshots
		WHERE resource_id = $1
		ORDER BY measured_at DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, resourceID)
	model, err := ScanSnapshotRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no snapshots found for resource: %s", resourceID)
		}
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	return ToEntity(model)
}

// DeleteOlderThan removes snapshots measured before the range start.
func (r *PostgresSnapshotRepository) DeleteOlderThan(ctx context.Context, timeRange valueobject.TimeRange) error {
	query := `
		DELETE FROM snapshots
		WHERE measured_at < $1
	`

	_, err := r.db.ExecContext(ctx, query, timeRange.Start())
	if err != nil {
		return fmt.Errorf("failed to delete old snapshots: %w", err)
	}

	return nil
}

// Count returns the number of stored snapshots for a resource.
func (r *PostgresSnapshotRepository) Count(ctx context.Context, resourceID string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM snapshots
		WHERE resource_id = $1
	`

	var count int64
	err := r.db.QueryRowContext(ctx, query, resourceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}

	return count, nil
}

func (r *PostgresSnapshotRepository) scanSnapshots(rows *sql.Rows) ([]*entity.Snapshot, error) {
	var snapshots []*entity.Snapshot

	for rows.Next() {
		model, err := ScanSnapshotRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}

		snapshot, err := ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return snapshots, nil
}
