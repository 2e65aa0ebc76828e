package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/application/services"
	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/testutil"
)

func setupStatsHandlerTest() (*StatsHandler, *testutil.MockTokenRepository) {
	tokenRepo := testutil.NewMockTokenRepository()
	historyRepo := testutil.NewMockHistoryRepository(tokenRepo)
	logger := zap.NewNop()

	service := services.NewStatsService(tokenRepo, historyRepo, nil, logger)
	return NewStatsHandler(service, logger), tokenRepo
}

func TestStatsHandler_GetStats(t *testing.T) {
	handler, tokenRepo := setupStatsHandlerTest()
	tokenRepo.AddToken(testutil.CreateTestToken())
	tokenRepo.AddHistory(1,
		testutil.CreateTestEntry(entities.KindTopVolume, "2024-06-08", "1", entities.EntryManualEntry, testutil.FixtureTime),
	)

	req := httptest.NewRequest(http.MethodGet, "/tokens/stats", nil)
	rec := httptest.NewRecorder()
	handler.GetStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var stats []services.TokenStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(stats))
	}
	if stats[0].HistoryCount.TopVolume != 1 || stats[0].HistoryCount.TradingVolume != 0 {
		t.Errorf("unexpected counts: %+v", stats[0].HistoryCount)
	}
	if stats[0].FirstRecorded.TopVolume == nil || *stats[0].FirstRecorded.TopVolume != "2024-06-08" {
		t.Errorf("unexpected first recorded: %v", stats[0].FirstRecorded.TopVolume)
	}
	if stats[0].FirstRecorded.TradingVolume != nil {
		t.Errorf("expected null trading first date, got %v", *stats[0].FirstRecorded.TradingVolume)
	}
}

func TestStatsHandler_GetStats_ServiceError(t *testing.T) {
	handler, tokenRepo := setupStatsHandlerTest()
	tokenRepo.GetAllFunc = func(ctx context.Context) ([]entities.Token, error) {
		return nil, errors.New("database error")
	}

	req := httptest.NewRequest(http.MethodGet, "/tokens/stats", nil)
	rec := httptest.NewRecorder()
	handler.GetStats(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Failed to get token stats" {
		t.Errorf("unexpected error message: %s", msg)
	}
}
