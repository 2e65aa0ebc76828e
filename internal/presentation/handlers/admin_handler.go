package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/application/services"
)

// AdminHandler handles admin verification and batch control
type AdminHandler struct {
	admin  *services.AdminService
	volume *services.VolumeService
	logger *zap.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *services.AdminService, volume *services.VolumeService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		volume: volume,
		logger: logger,
	}
}

// RegisterRoutes registers the admin routes
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/admin/verify", h.Verify)
	r.Post("/admin/trigger-update", h.TriggerUpdate)
	r.Get("/admin/last-run", h.LastRun)
}

type verifyRequest struct {
	Password string `json:"password"`
}

// VerifyResponse reports whether a password is the admin secret
type VerifyResponse struct {
	IsAdmin bool `json:"isAdmin"`
}

// TriggerResponse is returned by the manual update trigger
type TriggerResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Run     services.RunHandle `json:"run"`
}

// LastRunResponse reports batch progress
type LastRunResponse struct {
	LastRun   *services.RunReport `json:"lastRun"`
	ActiveRun *services.RunHandle `json:"activeRun"`
}

// Verify handles POST /api/admin/verify
func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.respondJSON(w, http.StatusOK, VerifyResponse{IsAdmin: h.admin.Verify(req.Password)})
}

// TriggerUpdate handles POST /api/admin/trigger-update. The batch runs in
// the background; the response only acknowledges it.
func (h *AdminHandler) TriggerUpdate(w http.ResponseWriter, r *http.Request) {
	var req adminRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.admin.Verify(req.AdminPassword) {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized: Invalid admin password")
		return
	}

	run, started := h.volume.Trigger()
	if !started {
		h.respondJSON(w, http.StatusConflict, TriggerResponse{
			Success: false,
			Message: "Daily volume update already running",
			Run:     run,
		})
		return
	}

	h.logger.Info("Manual daily volume update triggered", zap.Int64("run_id", run.ID))
	h.respondJSON(w, http.StatusOK, TriggerResponse{
		Success: true,
		Message: "Daily volume update started",
		Run:     run,
	})
}

// LastRun handles GET /api/admin/last-run
func (h *AdminHandler) LastRun(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, LastRunResponse{
		LastRun:   h.volume.LastRun(),
		ActiveRun: h.volume.ActiveRun(),
	})
}

func (h *AdminHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *AdminHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
