package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/application/services"
	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/testutil"
)

func setupMarketHandlerTest() (http.Handler, *testutil.MockVolumeFetcher) {
	fetcher := testutil.NewMockVolumeFetcher()
	logger := zap.NewNop()

	handler := NewMarketHandler(services.NewMarketService(fetcher, logger), logger)
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, fetcher
}

func TestMarketHandler_GetVolume(t *testing.T) {
	r, fetcher := setupMarketHandlerTest()
	fetcher.SetSnapshot("KOGE", entities.MarketSnapshot{
		Symbol: "ALPHA_22USDT",
		Quote: entities.VolumeQuote{
			VolumeToday:     testutil.DecPtr("2000"),
			VolumeYesterday: testutil.DecPtr("1500"),
			Price:           testutil.DecPtr("0.5"),
		},
		Raw: json.RawMessage(`{"success":true}`),
	})

	rec := doRequest(r, http.MethodGet, "/volume/KOGE", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var response services.VolumeSnapshotResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Success || response.Symbol != "ALPHA_22USDT" {
		t.Errorf("unexpected response: %+v", response)
	}
	if response.VolumeYesterday == nil || !response.VolumeYesterday.Equal(testutil.Dec("1500")) {
		t.Errorf("expected volumeYesterday 1500, got %v", response.VolumeYesterday)
	}
}

func TestMarketHandler_GetVolume_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"unknown symbol", entities.ErrSymbolNotFound, http.StatusNotFound, "Token not found"},
		{"no klines", entities.ErrMarketDataUnavailable, http.StatusNotFound, "No trading data found"},
		{"transport", errors.New("dial tcp: timeout"), http.StatusInternalServerError, "Failed to fetch volume data"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fetcher := setupMarketHandlerTest()
			fetcher.SnapshotFunc = func(ctx context.Context, symbol string) (*entities.MarketSnapshot, error) {
				return nil, tt.err
			}

			rec := doRequest(r, http.MethodGet, "/volume/KOGE", "")

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if msg := decodeError(t, rec); msg != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, msg)
			}
		})
	}
}
