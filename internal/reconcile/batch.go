package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// FetchFunc resolves a token's two-day market quote. A nil quote with a nil
// error means the vendor had nothing for this token.
type FetchFunc func(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error)

// CommitFunc persists a fetched quote for one token. Implementations are
// expected to run ApplyFetchedVolume inside a single store transaction.
type CommitFunc func(ctx context.Context, token entities.Token, quote entities.VolumeQuote, day Day) error

// BatchResult summarizes one daily batch
type BatchResult struct {
	Updated int
	Failed  int
	Skipped int
	Total   int
}

// Batch drives the daily volume update over all tokens, one at a time.
type Batch struct {
	Fetch  FetchFunc
	Commit CommitFunc

	// Delay is inserted between consecutive fetched tokens
	Delay time.Duration

	// FetchTimeout bounds a single fetch call; zero disables the bound
	FetchTimeout time.Duration

	Logger *zap.Logger
}

// Run processes tokens sequentially. Archived tokens are skipped. A failed
// fetch or commit is logged and the batch moves on; nothing is retried and
// tokens already committed stay committed. Run only stops early when ctx is
// cancelled.
func (b *Batch) Run(ctx context.Context, tokens []entities.Token, day Day) BatchResult {
	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	result := BatchResult{Total: len(tokens)}
	processed := 0

	for _, token := range tokens {
		if token.IsArchived() {
			logger.Info("Skipping archived token", zap.String("token", token.Name))
			result.Skipped++
			continue
		}

		if processed > 0 && b.Delay > 0 {
			if err := sleep(ctx, b.Delay); err != nil {
				logger.Warn("Daily volume update interrupted",
					zap.Int("updated", result.Updated),
					zap.Int("total", result.Total),
				)
				return result
			}
		}
		processed++

		if err := b.process(ctx, token, day); err != nil {
			result.Failed++
			log := logger.Error
			if IsSoftFailure(err) {
				log = logger.Warn
			}
			log("Failed to update token volume",
				zap.String("token", token.Name),
				zap.Int64("token_id", token.ID),
				zap.Error(err),
			)
			continue
		}

		result.Updated++
		logger.Info("Updated token volume", zap.String("token", token.Name))
	}

	logger.Info("Daily volume update completed",
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Int("total", result.Total),
	)

	return result
}

func (b *Batch) process(ctx context.Context, token entities.Token, day Day) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while updating token: %v", r)
		}
	}()

	fetchCtx := ctx
	if b.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, b.FetchTimeout)
		defer cancel()
	}

	quote, err := b.Fetch(fetchCtx, token)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	if quote == nil {
		return entities.ErrMarketDataUnavailable
	}

	if err := b.Commit(ctx, token, *quote, day); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsSoftFailure reports whether err is an expected per-token batch failure
// rather than an infrastructure fault.
func IsSoftFailure(err error) bool {
	return errors.Is(err, entities.ErrMarketDataUnavailable) ||
		errors.Is(err, entities.ErrSymbolNotFound) ||
		errors.Is(err, entities.ErrTokenArchived)
}
