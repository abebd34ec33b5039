package port

import (
	"context"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
)

// AlertSink receives dispatched alerts (Port). Delivery is at-least-once;
// sinks must be idempotent or deduplicate by alert id. A sink failure never
// prevents delivery to other sinks.
type AlertSink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Notify delivers one alert.
	Notify(ctx context.Context, alert *dto.AlertDTO) error
}

// AlertSinkFunc adapts a function to the AlertSink interface.
type AlertSinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, alert *dto.AlertDTO) error
}

func (f AlertSinkFunc) Name() string {
	return f.SinkName
}

func (f AlertSinkFunc) Notify(ctx context.Context, alert *dto.AlertDTO) error {
	return f.Fn(ctx, alert)
}
