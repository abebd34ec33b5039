package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/entity"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
)

// SnapshotDBModel represents a snapshot row.
type SnapshotDBModel struct {
	ID            string
	ResourceID    string
	Kind          string
	MeasuredValue float64
	ResourceLimit float64
	Stale         bool
	Metadata      []byte // JSON
	MeasuredAt    time.Time
	CreatedAt     time.Time
}

// ToDBModel converts a domain snapshot into a DB model.
func ToDBModel(snapshot *entity.Snapshot) (*SnapshotDBModel, error) {
	var metadataBytes []byte
	var err error

	metadata := snapshot.Metadata()
	if len(metadata) > 0 {
		metadataBytes, err = json.Marshal(metadata)
		if err != nil {
			return nil, err
		}
	}

	return &SnapshotDBModel{
		ID:            snapshot.ID(),
		ResourceID:    snapshot.ResourceID(),
		Kind:          snapshot.Kind().String(),
		MeasuredValue: snapshot.MeasuredValue(),
		ResourceLimit: snapshot.Limit(),
		Stale:         snapshot.Stale(),
		Metadata:      metadataBytes,
		MeasuredAt:    snapshot.MeasuredAt(),
		CreatedAt:     time.Now(),
	}, nil
}

// ToEntity converts a DB model back into a domain snapshot.
func ToEntity(model *SnapshotDBModel) (*entity.Snapshot, error) {
	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, err
		}
	}

	kind := valueobject.ResourceKind(model.Kind)
	if err := kind.Validate(); err != nil {
		return nil, err
	}

	return entity.ReconstructSnapshot(
		model.ID,
		model.ResourceID,
		kind,
		model.MeasuredValue,
		model.ResourceLimit,
		model.MeasuredAt,
		model.Stale,
		metadata,
	), nil
}

// ScanSnapshotRow scans one DB row into a SnapshotDBModel.
func ScanSnapshotRow(row interface {
	Scan(dest ...interface{}) error
}) (*SnapshotDBModel, error) {
	var model SnapshotDBModel
	var metadata sql.NullString

	err := row.Scan(
		&model.ID,
		&model.ResourceID,
		&model.Kind,
		&model.MeasuredValue,
		&model.ResourceLimit,
		&model.Stale,
		&metadata,
		&model.MeasuredAt,
		&model.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	if metadata.Valid {
		model.Metadata = []byte(metadata.String)
	}

	return &model, nil
}
