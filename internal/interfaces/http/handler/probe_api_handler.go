package handler

import (
	"net/http"

	"github.com/avolkov/resource-sentinel/internal/application/usecase"
	"github.com/avolkov/resource-sentinel/internal/interfaces/http/middleware"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// ProbeAPIHandler triggers immediate probes outside the schedule.
type ProbeAPIHandler struct {
	triggerProbeUC *usecase.TriggerProbeUseCase
	logger         *logger.Logger
}

func NewProbeAPIHandler(triggerProbeUC *usecase.TriggerProbeUseCase, logger *logger.Logger) *ProbeAPIHandler {
	return &ProbeAPIHandler{
		triggerProbeUC: triggerProbeUC,
		logger:         logger,
	}
}

// TriggerProbe runs a one-shot probe for the resource named in the
// query and reports its outcome.
func (h *ProbeAPIHandler) TriggerProbe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resourceID := r.URL.Query().Get("resource")
	if resourceID == "" {
		http.Error(w, "Missing required parameter: resource", http.StatusBadRequest)
		return
	}

	if err := h.triggerProbeUC.Execute(resourceID); err != nil {
		h.logger.Warn("Manual probe failed",
			"resource_id", resourceID,
			"error", err.Error(),
		)
		middleware.WriteJSON(w, http.StatusBadGateway, map[string]string{
			"resource": resourceID,
			"status":   "failed",
			"error":    err.Error(),
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"resource": resourceID,
		"status":   "ok",
	})
}
