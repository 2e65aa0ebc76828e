/*
 * Copyright (c) 2024 Bima Kharisma Wicaksana
 * GitHub: https://github.com/bimakw
 *
 * Licensed under MIT License with Attribution Requirement.
 * See LICENSE file for details.
 */

package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// Fetcher resolves tokens to vendor alpha ids and reads their daily volume
type Fetcher struct {
	client *Client
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	group    singleflight.Group
	mu       sync.RWMutex
	alphaIDs map[string]string
	loadedAt time.Time
}

// NewFetcher creates a new market data fetcher. The alpha token list is
// kept in memory for ttl.
func NewFetcher(client *Client, ttl time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// ResolveAlphaID returns the alpha id listed for symbol (case-insensitive)
func (f *Fetcher) ResolveAlphaID(ctx context.Context, symbol string) (string, error) {
	ids, err := f.tokenIndex(ctx)
	if err != nil {
		return "", err
	}

	id, ok := ids[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return "", fmt.Errorf("%s: %w", symbol, entities.ErrSymbolNotFound)
	}
	return id, nil
}

// FetchQuote reads the two-day volume window of a token. The slug is tried
// first, then the name.
func (f *Fetcher) FetchQuote(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error) {
	alphaID, err := f.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	body, err := f.client.DailyKlines(ctx, alphaID+QuoteAsset)
	if err != nil {
		return nil, err
	}

	rows, err := ParseKlines(body)
	if err != nil {
		return nil, err
	}

	quote, err := QuoteFromKlines(rows)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Fetched volume quote",
		zap.String("token", token.Name),
		zap.String("alpha_id", alphaID),
		zap.String("volume_today", decimalString(quote.VolumeToday)),
		zap.String("volume_yesterday", decimalString(quote.VolumeYesterday)),
	)

	return quote, nil
}

// Snapshot reads the live two-day window of an exchange symbol and keeps
// the vendor payload alongside the parsed quote.
func (f *Fetcher) Snapshot(ctx context.Context, symbol string) (*entities.MarketSnapshot, error) {
	alphaID, err := f.ResolveAlphaID(ctx, symbol)
	if err != nil {
		return nil, err
	}

	pair := alphaID + QuoteAsset
	body, err := f.client.DailyKlines(ctx, pair)
	if err != nil {
		return nil, err
	}

	rows, err := ParseKlines(body)
	if err != nil {
		return nil, err
	}

	quote, err := QuoteFromKlines(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", pair, err)
	}

	return &entities.MarketSnapshot{
		Symbol: pair,
		Quote:  *quote,
		Raw:    body,
	}, nil
}

func (f *Fetcher) resolveToken(ctx context.Context, token entities.Token) (string, error) {
	candidates := []string{token.Slug}
	if !strings.EqualFold(token.Slug, token.Name) {
		candidates = append(candidates, token.Name)
	}

	var lastErr error
	for _, symbol := range candidates {
		if symbol == "" {
			continue
		}
		id, err := f.ResolveAlphaID(ctx, symbol)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, entities.ErrSymbolNotFound) {
			return "", err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("token %d has no symbol: %w", token.ID, entities.ErrSymbolNotFound)
	}
	return "", lastErr
}

// tokenIndex returns the symbol to alpha id index, refreshing it when stale.
// Concurrent refreshes share one upstream request.
func (f *Fetcher) tokenIndex(ctx context.Context) (map[string]string, error) {
	f.mu.RLock()
	ids, loadedAt := f.alphaIDs, f.loadedAt
	f.mu.RUnlock()

	if ids != nil && f.now().Sub(loadedAt) < f.ttl {
		return ids, nil
	}

	// Shared by every waiter, detached from whichever caller starts it.
	ch := f.group.DoChan("token-list", func() (interface{}, error) {
		refreshCtx, cancel := f.client.detached(ctx)
		defer cancel()

		tokens, err := f.client.TokenList(refreshCtx)
		if err != nil {
			return nil, err
		}

		index := make(map[string]string, len(tokens))
		for _, t := range tokens {
			if t.Symbol == "" || t.AlphaID == "" {
				continue
			}
			key := strings.ToUpper(t.Symbol)
			if _, dup := index[key]; !dup {
				index[key] = t.AlphaID
			}
		}

		f.mu.Lock()
		f.alphaIDs = index
		f.loadedAt = f.now()
		f.mu.Unlock()

		f.logger.Info("Refreshed alpha token list", zap.Int("symbols", len(index)))
		return index, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		if ids != nil {
			return ids, nil
		}
		return nil, fmt.Errorf("failed to wait for token list: %w", ctx.Err())
	case res = <-ch:
	}

	v, err := res.Val, res.Err
	if err != nil {
		if ids != nil {
			f.logger.Warn("Failed to refresh alpha token list, using stale copy", zap.Error(err))
			return ids, nil
		}
		return nil, err
	}

	return v.(map[string]string), nil
}

func decimalString(d *decimal.Decimal) string {
	if d == nil {
		return "null"
	}
	return d.String()
}
