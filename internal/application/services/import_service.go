package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/domain/repositories"
	"github.com/bimakw/volume-tracker/internal/infrastructure/legacy"
	"github.com/bimakw/volume-tracker/internal/reconcile"
)

// ImportService loads the legacy single-document store into the database
type ImportService struct {
	tokenRepo repositories.TokenRepository
	clock     *reconcile.Clock
	logger    *zap.Logger
}

// NewImportService creates a new import service
func NewImportService(tokenRepo repositories.TokenRepository, clock *reconcile.Clock, logger *zap.Logger) *ImportService {
	return &ImportService{
		tokenRepo: tokenRepo,
		clock:     clock,
		logger:    logger,
	}
}

// ImportResult summarizes one import
type ImportResult struct {
	Created        int
	Refreshed      int
	HistoryEntries int
	SkippedEntries int
}

// Migrated returns the number of tokens written
func (r ImportResult) Migrated() int {
	return r.Created + r.Refreshed
}

// Import creates tokens missing from the database (matched by name) along
// with their full history. Tokens already present only get their current
// state refreshed so history is never duplicated.
func (s *ImportService) Import(ctx context.Context, doc *legacy.Document) (*ImportResult, error) {
	existing, err := s.tokenRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	byName := make(map[string]int64, len(existing))
	for _, t := range existing {
		byName[t.Name] = t.ID
	}

	now := s.clock.Read().Now
	result := &ImportResult{}

	for _, src := range doc.Tokens {
		incoming := src.Entity(now)
		reconcile.RecomputeTotalPrize(&incoming)

		if id, ok := byName[incoming.Name]; ok {
			if err := s.refresh(ctx, id, incoming, now); err != nil {
				return result, err
			}
			result.Refreshed++
			s.logger.Info("Refreshed existing token", zap.String("token", incoming.Name))
			continue
		}

		history, skipped := src.History(now)
		if err := s.tokenRepo.Create(ctx, &incoming, history); err != nil {
			return result, fmt.Errorf("failed to import token %s: %w", incoming.Name, err)
		}
		byName[incoming.Name] = incoming.ID

		result.Created++
		result.HistoryEntries += len(history)
		result.SkippedEntries += skipped

		s.logger.Info("Imported token",
			zap.String("token", incoming.Name),
			zap.Int("history_entries", len(history)),
			zap.Int("skipped_entries", skipped),
		)
	}

	return result, nil
}

func (s *ImportService) refresh(ctx context.Context, id int64, incoming entities.Token, now time.Time) error {
	_, err := s.tokenRepo.Mutate(ctx, id, func(current entities.Token) (entities.Token, []entities.HistoryEntry, error) {
		next := current
		next.Slug = incoming.Slug
		next.TopToday = incoming.TopToday
		next.TopYesterday = incoming.TopYesterday
		next.Amount = incoming.Amount
		next.VolumeToday = incoming.VolumeToday
		next.VolumeYesterday = incoming.VolumeYesterday
		next.CurrentPrice = incoming.CurrentPrice
		next.Status = incoming.Status
		next.ArchivedAt = incoming.ArchivedAt
		next.LastUpdated = incoming.LastUpdated
		next.UpdatedAt = now
		reconcile.RecomputeTotalPrize(&next)
		return next, nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to refresh token %s: %w", incoming.Name, err)
	}
	return nil
}
