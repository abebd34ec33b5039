package handler

import (
	"net/http"

	"github.com/avolkov/resource-sentinel/internal/application/usecase"
	"github.com/avolkov/resource-sentinel/internal/interfaces/http/middleware"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// StatusAPIHandler serves the aggregated engine status.
type StatusAPIHandler struct {
	getStatusUC *usecase.GetEngineStatusUseCase
	logger      *logger.Logger
}

func NewStatusAPIHandler(getStatusUC *usecase.GetEngineStatusUseCase, logger *logger.Logger) *StatusAPIHandler {
	return &StatusAPIHandler{
		getStatusUC: getStatusUC,
		logger:      logger,
	}
}

// GetStatus returns per-session metrics and overall health.
func (h *StatusAPIHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	report := h.getStatusUC.Execute()

	status := http.StatusOK
	if !report.Healthy {
		// Degraded sessions still answer, but load balancers should see it.
		status = http.StatusPartialContent
	}
	middleware.WriteJSON(w, status, report)
}
