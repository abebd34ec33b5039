package port

import "time"

// HealthChecker exposes the liveness of an external backend (Port).
// Implementations refresh on their own interval, coarser than the probe
// interval, so a failing backend is not hammered by every probe.
type HealthChecker interface {
	// Available reports the result of the most recent health refresh.
	Available() bool

	// FailingSince returns when the backend first started failing.
	// The zero time means the backend is healthy.
	FailingSince() time.Time

	// ConsecutiveFailures returns the number of failed refreshes in a row.
	ConsecutiveFailures() int
}
