package port

import (
	"context"

	"github.com/avolkov/resource-sentinel/internal/domain/entity"
)

// ResourceProbe measures the current state of one bounded resource (Port).
// Implementations may perform I/O internally but must not mutate engine
// state; from the engine's perspective a probe call is side-effect-free.
//
// Errors are classified through the taxonomy in errors.go: transient probe
// failures are retried with backoff, fatal ones surface immediately.
type ResourceProbe interface {
	// ResourceID returns the stable identifier of the measured resource.
	ResourceID() string

	// Measure takes one measurement. The context bounds probe I/O.
	Measure(ctx context.Context) (*entity.Snapshot, error)
}
