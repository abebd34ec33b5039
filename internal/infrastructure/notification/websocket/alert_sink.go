package websocket

import (
	"context"

	"github.com/avolkov/resource-sentinel/internal/application/dto"
)

// AlertSink feeds dispatched alerts into the hub's broadcast.
type AlertSink struct {
	hub *Hub
}

func NewAlertSink(hub *Hub) *AlertSink {
	return &AlertSink{hub: hub}
}

func (s *AlertSink) Name() string {
	return "websocket"
}

func (s *AlertSink) Notify(_ context.Context, alert *dto.AlertDTO) error {
	s.hub.BroadcastAlert(alert)
	return nil
}
