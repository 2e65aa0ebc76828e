package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bimakw/volume-tracker/internal/application/services"
)

// HealthChecker defines the interface for health checking components
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RunReporter exposes the outcome of the latest daily update
type RunReporter interface {
	LastRun() *services.RunReport
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db    HealthChecker
	cache HealthChecker
	runs  RunReporter
}

// NewHealthHandler creates a new health handler. cache and runs may be nil.
func NewHealthHandler(db, cache HealthChecker, runs RunReporter) *HealthHandler {
	return &HealthHandler{
		db:    db,
		cache: cache,
		runs:  runs,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
	}

	if err := h.db.HealthCheck(ctx); err != nil {
		response.Status = "unhealthy"
		response.Services["database"] = "unhealthy: " + err.Error()
	} else {
		response.Services["database"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.HealthCheck(ctx); err != nil {
			response.Status = degrade(response.Status)
			response.Services["cache"] = "unhealthy: " + err.Error()
		} else {
			response.Services["cache"] = "healthy"
		}
	}

	// a batch that failed outright degrades health; per-token failures do not
	if h.runs != nil {
		switch last := h.runs.LastRun(); {
		case last == nil:
			response.Services["daily_update"] = "not run yet"
		case last.Error != "":
			response.Status = degrade(response.Status)
			response.Services["daily_update"] = "failed: " + last.Error
		default:
			response.Services["daily_update"] = fmt.Sprintf("updated %d of %d at %s",
				last.Updated, last.Total, last.FinishedAt.Format(time.RFC3339))
		}
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func degrade(status string) string {
	if status == "unhealthy" {
		return status
	}
	return "degraded"
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Live handles GET /live
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
