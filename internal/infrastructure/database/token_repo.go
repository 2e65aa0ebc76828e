package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/domain/repositories"
)

// Ensure TokenRepo implements TokenRepository
var _ repositories.TokenRepository = (*TokenRepo)(nil)

const tokenColumns = `id, name, slug, top_today, top_yesterday, volume_today, volume_yesterday,
	amount, current_price, total_prize, status, archived_at, last_updated, created_at, updated_at`

// TokenRepo implements TokenRepository using PostgreSQL
type TokenRepo struct {
	db *sqlx.DB
}

// NewTokenRepo creates a new token repository
func NewTokenRepo(db *sqlx.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// GetAll retrieves all tokens, newest first
func (r *TokenRepo) GetAll(ctx context.Context) ([]entities.Token, error) {
	var tokens []entities.Token
	query := `SELECT ` + tokenColumns + ` FROM tokens ORDER BY created_at DESC, id DESC`

	if err := r.db.SelectContext(ctx, &tokens, query); err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	return tokens, nil
}

// GetByID retrieves a token by id
func (r *TokenRepo) GetByID(ctx context.Context, id int64) (*entities.Token, error) {
	var token entities.Token
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`

	if err := r.db.GetContext(ctx, &token, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return &token, nil
}

// FindBySlugOrName returns a token whose slug or name collides with the given ones
func (r *TokenRepo) FindBySlugOrName(ctx context.Context, slug, name string) (*entities.Token, error) {
	var token entities.Token
	query := `SELECT ` + tokenColumns + ` FROM tokens
		WHERE LOWER(slug) = LOWER($1) OR name = UPPER($2)
		ORDER BY id
		LIMIT 1`

	if err := r.db.GetContext(ctx, &token, query, slug, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	return &token, nil
}

// Create inserts a token together with its seed history
func (r *TokenRepo) Create(ctx context.Context, token *entities.Token, seed []entities.HistoryEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO tokens (
			name, slug, top_today, top_yesterday, volume_today, volume_yesterday,
			amount, current_price, total_prize, status, archived_at, last_updated,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`

	err = tx.QueryRowxContext(ctx, query,
		token.Name,
		token.Slug,
		token.TopToday,
		token.TopYesterday,
		token.VolumeToday,
		token.VolumeYesterday,
		token.Amount,
		token.CurrentPrice,
		token.TotalPrize,
		token.Status,
		utcPtr(token.ArchivedAt),
		utcPtr(token.LastUpdated),
		token.CreatedAt.UTC(),
		token.UpdatedAt.UTC(),
	).Scan(&token.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return entities.ErrDuplicateToken
		}
		return fmt.Errorf("failed to insert token: %w", err)
	}

	if err := insertHistory(ctx, tx, token.ID, seed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit token: %w", err)
	}

	return nil
}

// Mutate locks the token row, applies fn and writes the result with its
// history in the same transaction.
func (r *TokenRepo) Mutate(ctx context.Context, id int64, fn repositories.MutateFunc) (*entities.Token, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current entities.Token
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &current, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to lock token: %w", err)
	}

	next, history, err := fn(current)
	if err != nil {
		return nil, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt

	update := `
		UPDATE tokens SET
			name = $2,
			slug = $3,
			top_today = $4,
			top_yesterday = $5,
			volume_today = $6,
			volume_yesterday = $7,
			amount = $8,
			current_price = $9,
			total_prize = $10,
			status = $11,
			archived_at = $12,
			last_updated = $13,
			updated_at = $14
		WHERE id = $1
	`

	_, err = tx.ExecContext(ctx, update,
		next.ID,
		next.Name,
		next.Slug,
		next.TopToday,
		next.TopYesterday,
		next.VolumeToday,
		next.VolumeYesterday,
		next.Amount,
		next.CurrentPrice,
		next.TotalPrize,
		next.Status,
		utcPtr(next.ArchivedAt),
		utcPtr(next.LastUpdated),
		next.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, entities.ErrDuplicateToken
		}
		return nil, fmt.Errorf("failed to update token: %w", err)
	}

	if err := insertHistory(ctx, tx, next.ID, history); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit token update: %w", err)
	}

	return &next, nil
}

// Delete removes a token; history rows go with it via ON DELETE CASCADE
func (r *TokenRepo) Delete(ctx context.Context, id int64) (*entities.Token, error) {
	var token entities.Token
	query := `DELETE FROM tokens WHERE id = $1 RETURNING ` + tokenColumns

	if err := r.db.GetContext(ctx, &token, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to delete token: %w", err)
	}

	return &token, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, tokenID int64, entries []entities.HistoryEntry) error {
	for _, e := range entries {
		table, err := historyTable(e.Kind)
		if err != nil {
			return err
		}

		query := fmt.Sprintf(`
			INSERT INTO %s (token_id, date, value, previous_value, timestamp, type, note)
			VALUES ($1, $2::date, $3, $4, $5, $6, $7)
		`, table)

		_, err = tx.ExecContext(ctx, query,
			tokenID,
			e.Date,
			e.Value,
			e.PreviousValue,
			e.Timestamp.UTC(),
			e.Type,
			e.Note,
		)
		if err != nil {
			return fmt.Errorf("failed to append %s history: %w", e.Kind, err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
