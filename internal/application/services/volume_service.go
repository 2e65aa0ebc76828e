package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/config"
	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/domain/repositories"
	"github.com/bimakw/volume-tracker/internal/infrastructure/cache"
	"github.com/bimakw/volume-tracker/internal/reconcile"
)

// ErrUpdateRunning is returned when a daily update is requested while one
// is still in progress
var ErrUpdateRunning = errors.New("daily volume update already running")

// VolumeFetcher reads market data for tokens and exchange symbols
type VolumeFetcher interface {
	FetchQuote(ctx context.Context, token entities.Token) (*entities.VolumeQuote, error)
	Snapshot(ctx context.Context, symbol string) (*entities.MarketSnapshot, error)
}

// BatchObserver receives the outcome of every daily update
type BatchObserver interface {
	ObserveBatch(result reconcile.BatchResult, duration time.Duration)
}

// Run triggers
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// RunHandle identifies a daily update run
type RunHandle struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"startedAt"`
}

// RunReport describes a finished daily update run
type RunReport struct {
	ID         int64     `json:"id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Total      int       `json:"total"`
	Error      string    `json:"error,omitempty"`
}

// VolumeService runs the daily market volume update over all tokens.
// At most one run is active at a time.
type VolumeService struct {
	tokenRepo repositories.TokenRepository
	fetcher   VolumeFetcher
	cache     *cache.RedisCache
	clock     *reconcile.Clock
	config    config.ScheduleConfig
	observer  BatchObserver
	logger    *zap.Logger

	mu     sync.Mutex
	active *RunHandle
	last   *RunReport
	nextID int64

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewVolumeService creates a new volume service. observer may be nil.
func NewVolumeService(
	tokenRepo repositories.TokenRepository,
	fetcher VolumeFetcher,
	cache *cache.RedisCache,
	clock *reconcile.Clock,
	cfg config.ScheduleConfig,
	observer BatchObserver,
	logger *zap.Logger,
) *VolumeService {
	baseCtx, cancel := context.WithCancel(context.Background())
	return &VolumeService{
		tokenRepo: tokenRepo,
		fetcher:   fetcher,
		cache:     cache,
		clock:     clock,
		config:    cfg,
		observer:  observer,
		logger:    logger,
		baseCtx:   baseCtx,
		cancel:    cancel,
	}
}

// RunDailyUpdate runs one update synchronously. It returns ErrUpdateRunning
// when another run is active.
func (s *VolumeService) RunDailyUpdate(ctx context.Context) (*RunReport, error) {
	handle, started := s.begin()
	if !started {
		return nil, ErrUpdateRunning
	}
	return s.run(ctx, handle, TriggerScheduled)
}

// Trigger starts an update in the background and returns immediately.
// When a run is already active its handle is returned with started=false.
func (s *VolumeService) Trigger() (handle RunHandle, started bool) {
	handle, started = s.begin()
	if !started {
		return handle, false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.run(s.baseCtx, handle, TriggerManual); err != nil {
			s.logger.Error("Triggered volume update failed",
				zap.Int64("run_id", handle.ID),
				zap.Error(err),
			)
		}
	}()

	return handle, true
}

// LastRun returns the most recently finished run, or nil
func (s *VolumeService) LastRun() *RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	report := *s.last
	return &report
}

// ActiveRun returns the run in progress, or nil
func (s *VolumeService) ActiveRun() *RunHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return nil
	}
	handle := *s.active
	return &handle
}

// Close interrupts a triggered run between tokens and waits for it to return
func (s *VolumeService) Close() {
	s.cancel()
	s.wg.Wait()
}

func (s *VolumeService) begin() (RunHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return *s.active, false
	}

	s.nextID++
	handle := RunHandle{ID: s.nextID, StartedAt: time.Now().UTC()}
	s.active = &handle
	return handle, true
}

func (s *VolumeService) finish(report RunReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
	s.last = &report
}

func (s *VolumeService) run(ctx context.Context, handle RunHandle, trigger string) (*RunReport, error) {
	report := RunReport{ID: handle.ID, Trigger: trigger, StartedAt: handle.StartedAt}

	s.logger.Info("Starting daily volume update",
		zap.Int64("run_id", handle.ID),
		zap.String("trigger", trigger),
	)

	tokens, err := s.tokenRepo.GetAll(ctx)
	if err != nil {
		report.FinishedAt = time.Now().UTC()
		report.Error = err.Error()
		s.finish(report)
		return &report, fmt.Errorf("failed to load tokens: %w", err)
	}

	batch := reconcile.Batch{
		Fetch:        s.fetcher.FetchQuote,
		Commit:       s.commit,
		Delay:        s.config.TokenDelay,
		FetchTimeout: s.config.FetchTimeout,
		Logger:       s.logger.With(zap.Int64("run_id", handle.ID)),
	}

	start := time.Now()
	result := batch.Run(ctx, tokens, s.clock.Read())
	duration := time.Since(start)

	if result.Updated > 0 && s.cache != nil {
		if err := s.cache.InvalidateTokens(ctx); err != nil {
			s.logger.Warn("Failed to invalidate token cache", zap.Error(err))
		}
	}
	if s.observer != nil {
		s.observer.ObserveBatch(result, duration)
	}

	report.FinishedAt = time.Now().UTC()
	report.Updated = result.Updated
	report.Failed = result.Failed
	report.Skipped = result.Skipped
	report.Total = result.Total
	if err := ctx.Err(); err != nil {
		report.Error = err.Error()
	}
	s.finish(report)

	return &report, nil
}

// commit applies a fetched quote inside one store transaction so a token
// archived after the listing is still refused.
func (s *VolumeService) commit(ctx context.Context, token entities.Token, quote entities.VolumeQuote, day reconcile.Day) error {
	_, err := s.tokenRepo.Mutate(ctx, token.ID, func(current entities.Token) (entities.Token, []entities.HistoryEntry, error) {
		outcome, err := reconcile.ApplyFetchedVolume(current, quote, entities.EntryDailyFetch2Day, day)
		if err != nil {
			return current, nil, err
		}
		return outcome.Token, outcome.History, nil
	})
	return err
}
