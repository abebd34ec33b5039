package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/avolkov/resource-sentinel/internal/application/usecase"
	"github.com/avolkov/resource-sentinel/internal/domain/valueobject"
	"github.com/avolkov/resource-sentinel/pkg/logger"
)

// HistoryAPIHandler serves snapshot history for a resource.
type HistoryAPIHandler struct {
	getHistoryUC *usecase.GetSnapshotHistoryUseCase
	maxDuration  time.Duration
	logger       *logger.Logger
}

func NewHistoryAPIHandler(
	getHistoryUC *usecase.GetSnapshotHistoryUseCase,
	maxDuration time.Duration,
	logger *logger.Logger,
) *HistoryAPIHandler {
	if maxDuration <= 0 {
		maxDuration = 24 * time.Hour
	}

	return &HistoryAPIHandler{
		getHistoryUC: getHistoryUC,
		maxDuration:  maxDuration,
		logger:       logger,
	}
}

// GetHistory returns a resource's snapshots over the requested duration
// with aggregate statistics.
func (h *HistoryAPIHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resourceID := r.URL.Query().Get("resource")
	durationStr := r.URL.Query().Get("duration")

	if resourceID == "" || durationStr == "" {
		http.Error(w, "Missing required parameters: resource, duration", http.StatusBadRequest)
		return
	}

	duration, err := time.ParseDuration(durationStr)
	if err != nil {
		http.Error(w, "Invalid duration format", http.StatusBadRequest)
		return
	}
	if duration <= 0 || duration > h.maxDuration {
		http.Error(w, "Duration out of allowed range", http.StatusBadRequest)
		return
	}

	timeRange, err := valueobject.NewTimeRangeFromDuration(duration)
	if err != nil {
		http.Error(w, "Invalid time range", http.StatusBadRequest)
		return
	}

	history, err := h.getHistoryUC.Execute(r.Context(), resourceID, timeRange)
	if err != nil {
		h.logger.Error("Failed to get snapshot history", err, "resource_id", resourceID)
		http.Error(w, "Failed to fetch history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(history); err != nil {
		h.logger.Error("Failed to encode history response", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
