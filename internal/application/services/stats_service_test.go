package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/domain/repositories"
	"github.com/bimakw/volume-tracker/internal/testutil"
)

func setupStatsServiceTest() (*StatsService, *testutil.MockTokenRepository, *testutil.MockHistoryRepository) {
	tokenRepo := testutil.NewMockTokenRepository()
	historyRepo := testutil.NewMockHistoryRepository(tokenRepo)
	service := NewStatsService(tokenRepo, historyRepo, nil, zap.NewNop())
	return service, tokenRepo, historyRepo
}

func TestStatsService_GetStats(t *testing.T) {
	service, tokenRepo, _ := setupStatsServiceTest()
	ctx := context.Background()

	koge := testutil.CreateTestToken(testutil.TokenWithVolume("2000", "1500"))
	tokenRepo.AddToken(koge)
	zkj := testutil.CreateTestToken(
		testutil.TokenWithName("ZKJ"),
		testutil.TokenWithCreatedAt(testutil.FixtureTime.Add(time.Hour)),
	)
	tokenRepo.AddToken(zkj)

	base := testutil.FixtureTime
	tokenRepo.AddHistory(koge.ID,
		testutil.CreateTestEntry(entities.KindTopVolume, "2024-06-07", "10", entities.EntryManualEntry, base),
		testutil.CreateTestEntry(entities.KindTopVolume, "2024-06-09", "20", entities.EntryManualUpdate, base.Add(time.Hour)),
		testutil.CreateTestEntry(entities.KindTradingVolume, "2024-06-09", "1500", entities.EntryDailyFetch2Day, base.Add(time.Hour)),
		// backfilled later, but the earliest day
		testutil.CreateTestEntry(entities.KindTopVolume, "2024-06-05", "5", entities.EntryManualBackfill, base.Add(2*time.Hour)),
	)

	stats, err := service.GetStats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 stats, got %d", len(stats))
	}

	if stats[0].Name != "ZKJ" {
		t.Errorf("expected ZKJ first, got %s", stats[0].Name)
	}
	if stats[0].HistoryCount.TopVolume != 0 || stats[0].FirstRecorded.TopVolume != nil {
		t.Errorf("expected empty summary for ZKJ, got %+v", stats[0])
	}

	got := stats[1]
	if got.HistoryCount.TopVolume != 3 || got.HistoryCount.TradingVolume != 1 {
		t.Errorf("unexpected counts: %+v", got.HistoryCount)
	}
	if got.FirstRecorded.TopVolume == nil || *got.FirstRecorded.TopVolume != "2024-06-05" {
		t.Errorf("expected first top date 2024-06-05, got %v", got.FirstRecorded.TopVolume)
	}
	if got.VolumeToday == nil || !got.VolumeToday.Equal(testutil.Dec("2000")) {
		t.Errorf("expected volumeToday 2000, got %v", got.VolumeToday)
	}
}

func TestStatsService_GetStats_Empty(t *testing.T) {
	service, _, _ := setupStatsServiceTest()

	stats, err := service.GetStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats == nil || len(stats) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", stats)
	}
}

func TestStatsService_GetStats_SummaryError(t *testing.T) {
	service, tokenRepo, historyRepo := setupStatsServiceTest()
	tokenRepo.AddToken(testutil.CreateTestToken())

	historyRepo.SummaryFunc = func(ctx context.Context, tokenID int64, kind entities.HistoryKind) (*repositories.HistorySummary, error) {
		return nil, errors.New("database error")
	}

	if _, err := service.GetStats(context.Background()); err == nil {
		t.Error("expected error, got nil")
	}
}
