package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/application/services"
	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// maxBodyBytes caps admin request bodies
const maxBodyBytes = 1 << 20

// TokenHandler handles HTTP requests for tokens
type TokenHandler struct {
	service *services.TokenService
	admin   *services.AdminService
	logger  *zap.Logger
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(service *services.TokenService, admin *services.AdminService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		service: service,
		admin:   admin,
		logger:  logger,
	}
}

// RegisterRoutes registers the token routes
func (h *TokenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tokens", h.ListTokens)
	r.Post("/tokens", h.CreateToken)
	r.Put("/tokens/{id}", h.EditToken)
	r.Delete("/tokens/{id}", h.DeleteToken)
	r.Put("/tokens/{id}/volume", h.UpdateVolume)
	r.Put("/tokens/{id}/archive", h.SetArchived)
	r.Get("/tokens/{id}/history", h.GetHistory)
}

type tokenInput struct {
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	TopToday     decimal.Decimal `json:"topToday"`
	TopYesterday decimal.Decimal `json:"topYesterday"`
	Amount       decimal.Decimal `json:"amount"`
}

type createTokenRequest struct {
	Token         tokenInput `json:"token"`
	AdminPassword string     `json:"adminPassword"`
}

type tokenUpdates struct {
	Name            *string               `json:"name"`
	Slug            *string               `json:"slug"`
	TopToday        *decimal.Decimal      `json:"topToday"`
	TopYesterday    *decimal.Decimal      `json:"topYesterday"`
	VolumeToday     *decimal.Decimal      `json:"volumeToday"`
	VolumeYesterday *decimal.Decimal      `json:"volumeYesterday"`
	Amount          *decimal.Decimal      `json:"amount"`
	CurrentPrice    *decimal.Decimal      `json:"currentPrice"`
	Status          *entities.TokenStatus `json:"status"`
	LastUpdated     *time.Time            `json:"lastUpdated"`
}

type editTokenRequest struct {
	Updates       tokenUpdates `json:"updates"`
	AdminPassword string       `json:"adminPassword"`
}

type updateVolumeRequest struct {
	VolumeToday     *decimal.Decimal `json:"volumeToday"`
	VolumeYesterday *decimal.Decimal `json:"volumeYesterday"`
	Price           *decimal.Decimal `json:"price"`
	AdminPassword   string           `json:"adminPassword"`
}

type archiveRequest struct {
	Archived      *bool  `json:"archived"`
	AdminPassword string `json:"adminPassword"`
}

type adminRequest struct {
	AdminPassword string `json:"adminPassword"`
}

// TokenResponse wraps a single token
type TokenResponse struct {
	Success bool               `json:"success"`
	Token   *services.TokenDTO `json:"token"`
	Message string             `json:"message,omitempty"`
}

// ListTokens handles GET /api/tokens
func (h *TokenHandler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.service.ListTokens(r.Context())
	if err != nil {
		h.logger.Error("Failed to get tokens", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "Failed to get tokens")
		return
	}

	h.respondJSON(w, http.StatusOK, tokens)
}

// CreateToken handles POST /api/tokens
func (h *TokenHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if !h.decode(w, r, &req) || !h.authorize(w, req.AdminPassword) {
		return
	}

	token, err := h.service.CreateToken(r.Context(), entities.NewTokenInput{
		Name:         req.Token.Name,
		Slug:         req.Token.Slug,
		TopToday:     req.Token.TopToday,
		TopYesterday: req.Token.TopYesterday,
		Amount:       req.Token.Amount,
	})
	if err != nil {
		h.handleError(w, err, "Failed to create token")
		return
	}

	h.respondJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token})
}

// EditToken handles PUT /api/tokens/{id}
func (h *TokenHandler) EditToken(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}

	var req editTokenRequest
	if !h.decode(w, r, &req) || !h.authorize(w, req.AdminPassword) {
		return
	}

	u := req.Updates
	if u.Status != nil && !u.Status.Valid() {
		h.respondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	token, err := h.service.EditToken(r.Context(), id, entities.TokenPatch{
		Name:            u.Name,
		Slug:            u.Slug,
		TopToday:        u.TopToday,
		TopYesterday:    u.TopYesterday,
		VolumeToday:     u.VolumeToday,
		VolumeYesterday: u.VolumeYesterday,
		Amount:          u.Amount,
		CurrentPrice:    u.CurrentPrice,
		Status:          u.Status,
		LastUpdated:     u.LastUpdated,
	})
	if err != nil {
		h.handleError(w, err, "Failed to update token")
		return
	}

	h.respondJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token})
}

// DeleteToken handles DELETE /api/tokens/{id}
func (h *TokenHandler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}

	var req adminRequest
	if !h.decode(w, r, &req) || !h.authorize(w, req.AdminPassword) {
		return
	}

	token, err := h.service.DeleteToken(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "Failed to delete token")
		return
	}

	h.respondJSON(w, http.StatusOK, TokenResponse{
		Success: true,
		Token:   token,
		Message: "Token deleted successfully",
	})
}

// UpdateVolume handles PUT /api/tokens/{id}/volume
func (h *TokenHandler) UpdateVolume(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}

	var req updateVolumeRequest
	if !h.decode(w, r, &req) || !h.authorize(w, req.AdminPassword) {
		return
	}

	token, err := h.service.UpdateVolume(r.Context(), id, entities.VolumeQuote{
		VolumeToday:     req.VolumeToday,
		VolumeYesterday: req.VolumeYesterday,
		Price:           req.Price,
	})
	if err != nil {
		h.handleError(w, err, "Failed to update volume")
		return
	}

	h.respondJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token})
}

// SetArchived handles PUT /api/tokens/{id}/archive
func (h *TokenHandler) SetArchived(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}

	var req archiveRequest
	if !h.decode(w, r, &req) || !h.authorize(w, req.AdminPassword) {
		return
	}
	if req.Archived == nil {
		h.respondError(w, http.StatusBadRequest, "archived must be a boolean")
		return
	}

	token, changed, err := h.service.SetArchived(r.Context(), id, *req.Archived)
	if err != nil {
		h.handleError(w, err, "Failed to update archive status")
		return
	}

	message := "No status change needed"
	switch {
	case changed && *req.Archived:
		message = "Token archived successfully"
	case changed:
		message = "Token restored to ongoing competition"
	}

	h.respondJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token, Message: message})
}

// GetHistory handles GET /api/tokens/{id}/history
func (h *TokenHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.tokenID(w, r)
	if !ok {
		return
	}

	history, err := h.service.GetHistory(r.Context(), id)
	if err != nil {
		h.handleError(w, err, "Failed to get token history")
		return
	}

	h.respondJSON(w, http.StatusOK, history)
}

func (h *TokenHandler) tokenID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid token ID")
		return 0, false
	}
	return id, true
}

func (h *TokenHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *TokenHandler) authorize(w http.ResponseWriter, password string) bool {
	if !h.admin.Verify(password) {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized: Invalid admin password")
		return false
	}
	return true
}

// handleError maps domain errors to responses; anything unknown is logged
// and reported as fallback
func (h *TokenHandler) handleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, entities.ErrTokenNotFound):
		h.respondError(w, http.StatusNotFound, "Token not found")
	case errors.Is(err, entities.ErrDuplicateToken):
		h.respondError(w, http.StatusBadRequest, "Token with this name or slug already exists")
	case errors.Is(err, entities.ErrTokenArchived):
		h.respondError(w, http.StatusBadRequest, "Cannot update volume for archived token. Competition has ended.")
	case errors.Is(err, entities.ErrInvalidToken):
		h.respondError(w, http.StatusBadRequest, "Name and slug are required")
	default:
		h.logger.Error(fallback, zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *TokenHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *TokenHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
