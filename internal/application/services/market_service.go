package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarketService serves live market readings for arbitrary exchange symbols
type MarketService struct {
	fetcher VolumeFetcher
	logger  *zap.Logger
}

// NewMarketService creates a new market service
func NewMarketService(fetcher VolumeFetcher, logger *zap.Logger) *MarketService {
	return &MarketService{
		fetcher: fetcher,
		logger:  logger,
	}
}

// VolumeSnapshotResponse is the API response for live volume lookups
type VolumeSnapshotResponse struct {
	Success         bool             `json:"success"`
	VolumeToday     *decimal.Decimal `json:"volumeToday"`
	VolumeYesterday *decimal.Decimal `json:"volumeYesterday"`
	Price           *decimal.Decimal `json:"price"`
	Symbol          string           `json:"symbol"`
	RawData         json.RawMessage  `json:"rawData"`
}

// GetVolume reads the live two-day window of symbol
func (s *MarketService) GetVolume(ctx context.Context, symbol string) (*VolumeSnapshotResponse, error) {
	symbol = strings.TrimSpace(symbol)

	snap, err := s.fetcher.Snapshot(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volume for %s: %w", symbol, err)
	}

	s.logger.Debug("Fetched live volume",
		zap.String("symbol", symbol),
		zap.String("pair", snap.Symbol),
	)

	return &VolumeSnapshotResponse{
		Success:         true,
		VolumeToday:     snap.Quote.VolumeToday,
		VolumeYesterday: snap.Quote.VolumeYesterday,
		Price:           snap.Quote.Price,
		Symbol:          snap.Symbol,
		RawData:         snap.Raw,
	}, nil
}
