package service

import (
	"errors"
	"time"

	"github.com/avolkov/resource-sentinel/internal/domain/entity"
)

// SnapshotValidator validates probe measurements before they enter the
// engine (Domain Service).
type SnapshotValidator struct{}

// NewSnapshotValidator creates a new SnapshotValidator.
func NewSnapshotValidator() *SnapshotValidator {
	return &SnapshotValidator{}
}

// Validate performs full validation of a snapshot.
func (v *SnapshotValidator) Validate(snapshot *entity.Snapshot) error {
	if snapshot == nil {
		return errors.New("snapshot cannot be nil")
	}

	if err := snapshot.Kind().Validate(); err != nil {
		return err
	}

	if snapshot.Limit() <= 0 {
		return errors.New("snapshot limit must be positive")
	}

	if snapshot.MeasuredValue() < 0 {
		return errors.New("measured value cannot be negative")
	}

	if snapshot.MeasuredAt().IsZero() {
		return errors.New("measured_at cannot be zero")
	}

	if snapshot.MeasuredAt().After(time.Now().Add(time.Second)) {
		return errors.New("measured_at cannot be in the future")
	}

	return nil
}

// IsReasonable reports whether the measured ratio is within sane limits.
// Over-limit ratios are legal; a ratio two orders of magnitude over limit
// almost certainly means a broken probe.
func (v *SnapshotValidator) IsReasonable(snapshot *entity.Snapshot) bool {
	ratio := snapshot.Ratio()
	return ratio >= 0 && ratio < 100
}
