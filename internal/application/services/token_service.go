package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/domain/repositories"
	"github.com/bimakw/volume-tracker/internal/infrastructure/cache"
	"github.com/bimakw/volume-tracker/internal/reconcile"
)

// TokenService provides business logic for token queries and admin edits
type TokenService struct {
	tokenRepo   repositories.TokenRepository
	historyRepo repositories.HistoryRepository
	cache       *cache.RedisCache
	clock       *reconcile.Clock
	logger      *zap.Logger
}

// NewTokenService creates a new token service
func NewTokenService(
	tokenRepo repositories.TokenRepository,
	historyRepo repositories.HistoryRepository,
	cache *cache.RedisCache,
	clock *reconcile.Clock,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		tokenRepo:   tokenRepo,
		historyRepo: historyRepo,
		cache:       cache,
		clock:       clock,
		logger:      logger,
	}
}

// ListTokens returns the current state of every token, newest first
func (s *TokenService) ListTokens(ctx context.Context) ([]TokenDTO, error) {
	var cached []TokenDTO
	if s.cache != nil {
		if err := s.cache.Get(ctx, cache.KeyTokenList, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cache.KeyTokenList))
			return cached, nil
		}
	}

	tokens, err := s.tokenRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	dtos := make([]TokenDTO, len(tokens))
	for i, t := range tokens {
		dtos[i] = tokenToDTO(t)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cache.KeyTokenList, dtos); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return dtos, nil
}

// CreateToken adds a token and seeds its top volume history
func (s *TokenService) CreateToken(ctx context.Context, input entities.NewTokenInput) (*TokenDTO, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Slug) == "" {
		return nil, entities.ErrInvalidToken
	}

	existing, err := s.tokenRepo.FindBySlugOrName(ctx, input.Slug, input.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check token uniqueness: %w", err)
	}
	if existing != nil {
		return nil, entities.ErrDuplicateToken
	}

	outcome := reconcile.NewToken(input, s.clock.Read())
	token := outcome.Token
	if err := s.tokenRepo.Create(ctx, &token, outcome.History); err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	s.logger.Info("Token created",
		zap.Int64("token_id", token.ID),
		zap.String("token", token.Name),
	)
	s.invalidate(ctx)

	dto := tokenToDTO(token)
	return &dto, nil
}

// EditToken applies an admin patch and records the resulting history
func (s *TokenService) EditToken(ctx context.Context, id int64, patch entities.TokenPatch) (*TokenDTO, error) {
	if blank(patch.Name) || blank(patch.Slug) {
		return nil, entities.ErrInvalidToken
	}

	day := s.clock.Read()

	var appended int
	token, err := s.tokenRepo.Mutate(ctx, id, func(current entities.Token) (entities.Token, []entities.HistoryEntry, error) {
		outcome := reconcile.ApplyManualEdit(current, patch, day)
		appended = len(outcome.History)
		return outcome.Token, outcome.History, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to edit token %d: %w", id, err)
	}

	s.logger.Info("Token edited",
		zap.Int64("token_id", id),
		zap.Int("history_entries", appended),
	)
	s.invalidate(ctx)

	dto := tokenToDTO(*token)
	return &dto, nil
}

// DeleteToken removes a token and its history
func (s *TokenService) DeleteToken(ctx context.Context, id int64) (*TokenDTO, error) {
	token, err := s.tokenRepo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete token %d: %w", id, err)
	}
	if token == nil {
		return nil, entities.ErrTokenNotFound
	}

	s.logger.Info("Token deleted",
		zap.Int64("token_id", id),
		zap.String("token", token.Name),
	)
	s.invalidate(ctx)

	dto := tokenToDTO(*token)
	return &dto, nil
}

// UpdateVolume stores caller-supplied market figures as an interactive
// fetch. Archived tokens are rejected with ErrTokenArchived.
func (s *TokenService) UpdateVolume(ctx context.Context, id int64, quote entities.VolumeQuote) (*TokenDTO, error) {
	day := s.clock.Read()

	token, err := s.tokenRepo.Mutate(ctx, id, func(current entities.Token) (entities.Token, []entities.HistoryEntry, error) {
		outcome, err := reconcile.ApplyFetchedVolume(current, quote, entities.EntryAPIFetch2Day, day)
		if err != nil {
			return current, nil, err
		}
		return outcome.Token, outcome.History, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update volume of token %d: %w", id, err)
	}

	s.invalidate(ctx)

	dto := tokenToDTO(*token)
	return &dto, nil
}

// SetArchived moves a token between the ongoing and finished competitions.
// It reports whether the status actually changed.
func (s *TokenService) SetArchived(ctx context.Context, id int64, archived bool) (*TokenDTO, bool, error) {
	day := s.clock.Read()

	var changed bool
	token, err := s.tokenRepo.Mutate(ctx, id, func(current entities.Token) (entities.Token, []entities.HistoryEntry, error) {
		outcome, ok := reconcile.SetArchiveState(current, archived, day)
		changed = ok
		return outcome.Token, outcome.History, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to change archive state of token %d: %w", id, err)
	}

	if changed {
		s.logger.Info("Token archive state changed",
			zap.Int64("token_id", id),
			zap.Bool("archived", archived),
		)
		s.invalidate(ctx)
	}

	dto := tokenToDTO(*token)
	return &dto, changed, nil
}

// GetHistory returns both history logs of a token sorted newest day first
func (s *TokenService) GetHistory(ctx context.Context, id int64) (*TokenHistoryResponse, error) {
	cacheKey := cache.HistoryKey(id)

	var cached TokenHistoryResponse
	if s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.logger.Debug("Cache hit", zap.String("key", cacheKey))
			return &cached, nil
		}
	}

	token, err := s.tokenRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if token == nil {
		return nil, entities.ErrTokenNotFound
	}

	top, err := s.historyRepo.List(ctx, id, entities.KindTopVolume)
	if err != nil {
		return nil, fmt.Errorf("failed to get top volume history: %w", err)
	}
	trading, err := s.historyRepo.List(ctx, id, entities.KindTradingVolume)
	if err != nil {
		return nil, fmt.Errorf("failed to get trading volume history: %w", err)
	}

	response := &TokenHistoryResponse{
		TokenName:            token.Name,
		TopVolumeHistory:     newestFirst(top),
		TradingVolumeHistory: newestFirst(trading),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, response); err != nil {
			s.logger.Warn("Failed to cache response", zap.Error(err))
		}
	}

	return response, nil
}

func (s *TokenService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTokens(ctx); err != nil {
		s.logger.Warn("Failed to invalidate token cache", zap.Error(err))
	}
}

// newestFirst orders entries by date descending; same-day entries keep the
// most recently recorded first.
func newestFirst(entries []entities.HistoryEntry) []HistoryEntryDTO {
	sorted := make([]entities.HistoryEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date > sorted[j].Date
		}
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	dtos := make([]HistoryEntryDTO, len(sorted))
	for i, e := range sorted {
		dtos[i] = entryToDTO(e)
	}
	return dtos
}

// blank reports whether an optional field was supplied but holds only whitespace
func blank(v *string) bool {
	return v != nil && strings.TrimSpace(*v) == ""
}
