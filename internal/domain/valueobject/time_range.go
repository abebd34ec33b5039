package valueobject

import (
	"errors"
	"time"
)

// TimeRange is an immutable closed interval of time (Value Object)
type TimeRange struct {
	start time.Time
	end   time.Time
}

// NewTimeRange creates a TimeRange, validating the ordering of bounds.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	if start.After(end) {
		return TimeRange{}, errors.New("start time must be before end time")
	}

	if start.IsZero() || end.IsZero() {
		return TimeRange{}, errors.New("start and end times cannot be zero")
	}

	return TimeRange{
		start: start,
		end:   end,
	}, nil
}

// NewTimeRangeFromDuration creates a TimeRange covering the last duration up to now.
func NewTimeRangeFromDuration(duration time.Duration) (TimeRange, error) {
	if duration <= 0 {
		return TimeRange{}, errors.New("duration must be positive")
	}

	now := time.Now()
	return TimeRange{
		start: now.Add(-duration),
		end:   now,
	}, nil
}

// Start returns the lower bound.
func (tr TimeRange) Start() time.Time {
	return tr.start
}

// End returns the upper bound.
func (tr TimeRange) End() time.Time {
	return tr.end
}

// Duration returns the length of the range.
func (tr TimeRange) Duration() time.Duration {
	return tr.end.Sub(tr.start)
}

// Contains reports whether t falls within the range.
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.start) && !t.After(tr.end)
}
