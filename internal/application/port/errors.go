package port

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by probes and the engine. Sentinel errors are
// matched with errors.Is after wrapping with fmt.Errorf("...: %w", err).
var (
	// ErrProbeTransient marks a probe failure (network, timeout, parse)
	// that is worth retrying with backoff.
	ErrProbeTransient = errors.New("transient probe failure")

	// ErrProbeFatal marks a permanent probe failure (malformed config,
	// unknown resource). Never retried.
	ErrProbeFatal = errors.New("fatal probe failure")

	// ErrBackendUnavailable is returned when the backing service is down
	// and no prior snapshot exists to serve stale.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrRemediationInvariant is returned when a remediation result violates
	// its invariants (grew consumption, dropped required keys).
	ErrRemediationInvariant = errors.New("remediation invariant violation")
)

// TransientError wraps err as a retryable probe failure.
func TransientError(err error) error {
	return fmt.Errorf("%w: %v", ErrProbeTransient, err)
}

// FatalError wraps err as a permanent probe failure.
func FatalError(err error) error {
	return fmt.Errorf("%w: %v", ErrProbeFatal, err)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrProbeTransient)
}

// IsFatal reports whether err is permanent.
func IsFatal(err error) bool {
	return errors.Is(err, ErrProbeFatal)
}

// IsBackendUnavailable reports whether err came from a failed backend.
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
