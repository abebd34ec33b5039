package nats

import (
	"context"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
)

const alertSubject = "sentinel.alerts"

// AlertSink delivers alerts to the sentinel.alerts subject.
type AlertSink struct {
	publisher *Publisher
}

func NewAlertSink(publisher *Publisher) *AlertSink {
	return &AlertSink{publisher: publisher}
}

func (s *AlertSink) Name() string {
	return "nats"
}

func (s *AlertSink) Notify(ctx context.Context, alert *dto.AlertDTO) error {
	return s.publisher.PublishEvent(ctx, alertSubject, alert)
}
