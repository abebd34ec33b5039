package handler

import (
	"net/http"
	"strconv"

	"github.com/avolkov/resource-sentinel/internal/application/usecase"
	"github.com/avolkov/resource-sentinel/internal/interfaces/http/middleware"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

const maxAlertLimit = 500

// AlertsAPIHandler serves the recent alert feed.
type AlertsAPIHandler struct {
	getRecentAlertsUC *usecase.GetRecentAlertsUseCase
	logger            *logger.Logger
}

func NewAlertsAPIHandler(getRecentAlertsUC *usecase.GetRecentAlertsUseCase, logger *logger.Logger) *AlertsAPIHandler {
	return &AlertsAPIHandler{
		getRecentAlertsUC: getRecentAlertsUC,
		logger:            logger,
	}
}

// GetRecentAlerts returns the most recently dispatched alerts, newest
// first. Accepts an optional limit query parameter.
func (h *AlertsAPIHandler) GetRecentAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > maxAlertLimit {
		limit = maxAlertLimit
	}

	alerts := h.getRecentAlertsUC.Execute(limit)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
