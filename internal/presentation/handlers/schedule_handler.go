package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/application/services"
)

// ScheduleHandler reports the daily update schedule
type ScheduleHandler struct {
	service *services.ScheduleService
	logger  *zap.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(service *services.ScheduleService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		logger:  logger,
	}
}

// GetScheduleInfo handles GET /api/schedule-info
func (h *ScheduleHandler) GetScheduleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.Info()
	if err != nil {
		h.logger.Error("Failed to compute next scheduled run", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Failed to get schedule info"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(info)
}
