package usecase

import (
	"github.com/avolkov/resource-sentinel/internal/application/dto"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

const defaultAlertLimit = 50

// AlertHistory yields the most recently dispatched alerts, newest first.
type AlertHistory interface {
	RecentAlerts(limit int) []*dto.AlertDTO
}

// GetRecentAlertsUseCase returns the recent alert feed for the API.
type GetRecentAlertsUseCase struct {
	history AlertHistory
	logger  *logger.Logger
}

func NewGetRecentAlertsUseCase(history AlertHistory, logger *logger.Logger) *GetRecentAlertsUseCase {
	return &GetRecentAlertsUseCase{
		history: history,
		logger:  logger,
	}
}

// Execute returns up to limit recent alerts. A non-positive limit falls
// back to the default.
func (uc *GetRecentAlertsUseCase) Execute(limit int) []*dto.AlertDTO {
	if limit <= 0 {
		limit = defaultAlertLimit
	}
	alerts := uc.history.RecentAlerts(limit)
	uc.logger.Debug("Recent alerts fetched", "count", len(alerts))
	return alerts
}
