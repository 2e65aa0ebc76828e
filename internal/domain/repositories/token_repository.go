package repositories

import (
	"context"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// MutateFunc computes the next state of a token from its current, locked
// state. It returns the new token and the history entries to append.
// Returning an error aborts the mutation without writing anything.
type MutateFunc func(current entities.Token) (entities.Token, []entities.HistoryEntry, error)

// TokenRepository defines the interface for token data operations
type TokenRepository interface {
	// GetAll retrieves all tokens, newest first
	GetAll(ctx context.Context) ([]entities.Token, error)

	// GetByID retrieves a token by id; returns nil when missing
	GetByID(ctx context.Context, id int64) (*entities.Token, error)

	// FindBySlugOrName returns a token whose slug (case-insensitive) or name matches
	FindBySlugOrName(ctx context.Context, slug, name string) (*entities.Token, error)

	// Create inserts a token and its seed history in one transaction.
	// ID and bookkeeping timestamps are assigned on the passed token.
	Create(ctx context.Context, token *entities.Token, seed []entities.HistoryEntry) error

	// Mutate performs an atomic read-modify-write of a single token.
	// Returns entities.ErrTokenNotFound when the id is unknown.
	Mutate(ctx context.Context, id int64, fn MutateFunc) (*entities.Token, error)

	// Delete removes a token and, by cascade, its history; returns nil when missing
	Delete(ctx context.Context, id int64) (*entities.Token, error)
}
