package entity

import (
	"errors"
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
	"github.com/google/uuid"
)

// Snapshot is one immutable, timestamped measurement of a bounded resource
// (Aggregate Root). A snapshot is produced by a probe and never mutated;
// marking a snapshot stale produces a copy.
type Snapshot struct {
	id            string
	resourceID    string
	kind          valueobject.ResourceKind
	measuredValue float64
	limit         float64
	measuredAt    time.Time
	stale         bool
	metadata      map[string]interface{}
}

// NewSnapshot creates a snapshot for a probe measurement (Factory Method).
// The limit must be positive; the measured value may exceed it, ratios above
// 1.0 are legal and must not be clamped.
func NewSnapshot(
	resourceID string,
	kind valueobject.ResourceKind,
	measuredValue float64,
	limit float64,
	measuredAt time.Time,
) (*Snapshot, error) {
	if resourceID == "" {
		return nil, errors.New("resource id cannot be empty")
	}
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	if measuredValue < 0 {
		return nil, errors.New("measured value cannot be negative")
	}
	if measuredAt.IsZero() {
		measuredAt = time.Now()
	}

	return &Snapshot{
		id:            uuid.New().String(),
		resourceID:    resourceID,
		kind:          kind,
		measuredValue: measuredValue,
		limit:         limit,
		measuredAt:    measuredAt,
		metadata:      make(map[string]interface{}),
	}, nil
}

// ReconstructSnapshot restores a snapshot from storage (for Repository).
func ReconstructSnapshot(
	id string,
	resourceID string,
	kind valueobject.ResourceKind,
	measuredValue float64,
	limit float64,
	measuredAt time.Time,
	stale bool,
	metadata map[string]interface{},
) *Snapshot {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &Snapshot{
		id:            id,
		resourceID:    resourceID,
		kind:          kind,
		measuredValue: measuredValue,
		limit:         limit,
		measuredAt:    measuredAt,
		stale:         stale,
		metadata:      metadata,
	}
}

// ID returns the snapshot identifier.
func (s *Snapshot) ID() string {
	return s.id
}

// ResourceID returns the identifier of the measured resource.
func (s *Snapshot) ResourceID() string {
	return s.resourceID
}

// Kind returns the resource kind.
func (s *Snapshot) Kind() valueobject.ResourceKind {
	return s.kind
}

// MeasuredValue returns the raw measured value.
func (s *Snapshot) MeasuredValue() float64 {
	return s.measuredValue
}

// Limit returns the resource limit the value is measured against.
func (s *Snapshot) Limit() float64 {
	return s.limit
}

// Ratio returns measuredValue/limit. Values above 1.0 mean the resource is
// over its limit and are returned as-is.
func (s *Snapshot) Ratio() float64 {
	return s.measuredValue / s.limit
}

// MeasuredAt returns the measurement timestamp.
func (s *Snapshot) MeasuredAt() time.Time {
	return s.measuredAt
}

// Stale reports whether this snapshot was served during backend
// unavailability instead of being freshly measured.
func (s *Snapshot) Stale() bool {
	return s.stale
}

// Metadata returns a copy of the probe-supplied metadata.
func (s *Snapshot) Metadata() map[string]interface{} {
	result := make(map[string]interface{}, len(s.metadata))
	for k, v := range s.metadata {
		result[k] = v
	}
	return result
}

// SetMetadata attaches probe-specific metadata.
func (s *Snapshot) SetMetadata(key string, value interface{}) {
	s.metadata[key] = value
}

// MarkStale returns a copy of the snapshot flagged as stale.
func (s *Snapshot) MarkStale() *Snapshot {
	clone := *s
	clone.metadata = s.Metadata()
	clone.stale = true
	return &clone
}

// Age returns the time elapsed since the measurement was taken.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.measuredAt)
}

// Newer reports whether this snapshot was measured after other. Used to
// discard out-of-order probe results.
func (s *Snapshot) Newer(other *Snapshot) bool {
	if other == nil {
		return true
	}
	return s.measuredAt.After(other.measuredAt)
}
