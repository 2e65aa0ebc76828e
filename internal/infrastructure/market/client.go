package market

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/config"
	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

const (
	tokenListPath = "/bapi/defi/v1/public/wallet-direct/buw/wallet/cex/alpha/all/token/list"
	klinesPath    = "/bapi/defi/v1/public/alpha-trade/klines"

	// QuoteAsset is appended to an alpha id to form the trading pair
	QuoteAsset = "USDT"
)

// AlphaToken is one entry of the vendor's alpha token list
type AlphaToken struct {
	AlphaID string `json:"alphaId"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
}

type envelope struct {
	Code    string          `json:"code"`
	Message *string         `json:"message"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Client wraps the market data REST API with retry logic
type Client struct {
	http   *resty.Client
	config config.MarketConfig
	logger *zap.Logger
}

// NewClient creates a new market data client
func NewClient(cfg config.MarketConfig, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryDelay).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})

	return &Client{
		http:   http,
		config: cfg,
		logger: logger,
	}
}

// detached returns a context that outlives ctx's cancellation but is still
// bounded by one request's full retry budget.
func (c *Client) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	retries := time.Duration(c.config.MaxRetries)
	budget := (retries+1)*c.config.RequestTimeout + retries*c.config.RetryDelay
	if budget <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, budget)
}

// TokenList returns the vendor's full alpha token list
func (c *Client) TokenList(ctx context.Context) ([]AlphaToken, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(tokenListPath)
	if err != nil {
		return nil, fmt.Errorf("failed to request token list: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("token list request failed with status %d", resp.StatusCode())
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, fmt.Errorf("failed to decode token list: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("token list returned code %q: %w", env.Code, entities.ErrMarketDataUnavailable)
	}

	var tokens []AlphaToken
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &tokens); err != nil {
			return nil, fmt.Errorf("failed to decode token list data: %w", err)
		}
	}

	c.logger.Debug("Fetched alpha token list", zap.Int("count", len(tokens)))

	return tokens, nil
}

// DailyKlines returns the raw two-day kline payload for a trading pair
func (c *Client) DailyKlines(ctx context.Context, pair string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"interval": "1d",
			"limit":    "2",
			"symbol":   pair,
		}).
		Get(klinesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to request klines for %s: %w", pair, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("klines request for %s failed with status %d", pair, resp.StatusCode())
	}

	return resp.Body(), nil
}
