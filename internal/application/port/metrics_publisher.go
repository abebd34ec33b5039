package port

import (
	"context"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
)

// MetricsPublisher exports session metrics to an external observability
// platform (Port). Implementations buffer and batch per the platform's
// request limits.
type MetricsPublisher interface {
	// PublishReport publishes the counters of one session report.
	PublishReport(ctx context.Context, report *dto.SessionMetricsDTO) error

	// Flush forces immediate publication of any buffered data.
	// Called during graceful shutdown to prevent data loss.
	Flush(ctx context.Context) error

	// Close stops background flushing and releases the client.
	Close(ctx context.Context) error
}
