package port

import "github.com/avolkov/resource-sentinel/internal/application/dto"

// NotificationService pushes engine output to connected dashboard clients
// (Port). Implemented by the WebSocket hub in the Infrastructure layer.
type NotificationService interface {
	// BroadcastReport sends a metrics report to all connected clients.
	BroadcastReport(report *dto.EngineReportDTO)

	// BroadcastAlert sends an alert to all connected clients.
	BroadcastAlert(alert *dto.AlertDTO)

	// ClientCount returns the number of connected clients.
	ClientCount() int
}
