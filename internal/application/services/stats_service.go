package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/domain/repositories"
	"github.com/bimakw/volume-tracker/internal/infrastructure/cache"
)

// statsWorkers bounds concurrent history summary queries
const statsWorkers = 4

// StatsService provides per-token history summaries
type StatsService struct {
	tokenRepo   repositories.TokenRepository
	historyRepo repositories.HistoryRepository
	cache       *cache.RedisCache
	logger      *zap.Logger
}

// NewStatsService creates a new stats service
func NewStatsService(
	tokenRepo repositories.TokenRepository,
	historyRepo repositories.HistoryRepository,
	cache *cache.RedisCache,
	logger *zap.Logger,
) *StatsService {
	return &StatsService{
		tokenRepo:   tokenRepo,
		historyRepo: historyRepo,
		cache:       cache,
		logger:      logger,
	}
}

// HistoryCounts holds one number per history log
type HistoryCounts struct {
	TopVolume     int64 `json:"topVolume"`
	TradingVolume int64 `json:"tradingVolume"`
}

// FirstRecorded holds the earliest date of each history log
type FirstRecorded struct {
	TopVolume     *string `json:"topVolume"`
	TradingVolume *string `json:"tradingVolume"`
}

// TokenStats is the API representation of a token's history summary
type TokenStats struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Slug            string           `json:"slug"`
	TopToday        decimal.Decimal  `json:"topToday"`
	TopYesterday    decimal.Decimal  `json:"topYesterday"`
	VolumeToday     *decimal.Decimal `json:"volumeToday"`
	VolumeYesterday *decimal.Decimal `json:"volumeYesterday"`
	LastUpdated     *time.Time       `json:"lastUpdated"`
	HistoryCount    HistoryCounts    `json:"historyCount"`
	FirstRecorded   FirstRecorded    `json:"firstRecorded"`
}

// GetStats summarizes the history logs of every token
func (s *StatsService) GetStats(ctx context.Context) ([]TokenStats, error) {
	var cached []TokenStats
	if s.cache != nil {
		if err := s.cache.Get(ctx, cache.KeyTokenStats, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cache.KeyTokenStats))
			return cached, nil
		}
	}

	tokens, err := s.tokenRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	stats := make([]TokenStats, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsWorkers)

	for i, token := range tokens {
		i, token := i, token // capture
		g.Go(func() error {
			top, err := s.historyRepo.Summary(gctx, token.ID, entities.KindTopVolume)
			if err != nil {
				return fmt.Errorf("failed to summarize top volume of token %d: %w", token.ID, err)
			}
			trading, err := s.historyRepo.Summary(gctx, token.ID, entities.KindTradingVolume)
			if err != nil {
				return fmt.Errorf("failed to summarize trading volume of token %d: %w", token.ID, err)
			}

			// each goroutine owns its own index
			stats[i] = TokenStats{
				ID:              token.ID,
				Name:            token.Name,
				Slug:            token.Slug,
				TopToday:        token.TopToday,
				TopYesterday:    token.TopYesterday,
				VolumeToday:     nullable(token.VolumeToday),
				VolumeYesterday: nullable(token.VolumeYesterday),
				LastUpdated:     utcTime(token.LastUpdated),
				HistoryCount: HistoryCounts{
					TopVolume:     top.Count,
					TradingVolume: trading.Count,
				},
				FirstRecorded: FirstRecorded{
					TopVolume:     top.FirstDate,
					TradingVolume: trading.FirstDate,
				},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetWithTTL(ctx, cache.KeyTokenStats, stats, 60*time.Second); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return stats, nil
}
