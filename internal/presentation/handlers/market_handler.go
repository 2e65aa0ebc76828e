package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/application/services"
	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// MarketHandler proxies live market volume lookups
type MarketHandler struct {
	service *services.MarketService
	logger  *zap.Logger
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(service *services.MarketService, logger *zap.Logger) *MarketHandler {
	return &MarketHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the market routes
func (h *MarketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/volume/{symbol}", h.GetVolume)
}

// GetVolume handles GET /api/volume/{symbol}
func (h *MarketHandler) GetVolume(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(chi.URLParam(r, "symbol"))
	if symbol == "" {
		h.respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Symbol is required"})
		return
	}

	response, err := h.service.GetVolume(r.Context(), symbol)
	switch {
	case err == nil:
		h.respondJSON(w, http.StatusOK, response)
	case errors.Is(err, entities.ErrSymbolNotFound):
		h.respondJSON(w, http.StatusNotFound, map[string]string{
			"error":   "Token not found",
			"message": fmt.Sprintf("Token %s not found in Binance Alpha", symbol),
		})
	case errors.Is(err, entities.ErrMarketDataUnavailable):
		h.respondJSON(w, http.StatusNotFound, map[string]string{
			"error":   "No trading data found",
			"message": fmt.Sprintf("No kline data available for %s", symbol),
		})
	default:
		h.logger.Error("Failed to fetch volume data", zap.String("symbol", symbol), zap.Error(err))
		h.respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":       "Failed to fetch volume data",
			"message":     "Market data provider request failed",
			"tokenSymbol": symbol,
		})
	}
}

func (h *MarketHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
