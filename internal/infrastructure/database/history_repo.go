package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
	"github.com/bimakw/volume-tracker/internal/domain/repositories"
)

// Ensure HistoryRepo implements HistoryRepository
var _ repositories.HistoryRepository = (*HistoryRepo)(nil)

// HistoryRepo reads the top and trading volume history tables
type HistoryRepo struct {
	db *sqlx.DB
}

// NewHistoryRepo creates a new history repository
func NewHistoryRepo(db *sqlx.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// List returns a token's entries of one kind in recording order
func (r *HistoryRepo) List(ctx context.Context, tokenID int64, kind entities.HistoryKind) ([]entities.HistoryEntry, error) {
	table, err := historyTable(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, token_id, to_char(date, 'YYYY-MM-DD') AS date, value, previous_value,
			   timestamp, type, note, created_at
		FROM %s
		WHERE token_id = $1
		ORDER BY timestamp ASC, id ASC
	`, table)

	var entries []entities.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, tokenID); err != nil {
		return nil, fmt.Errorf("failed to get %s history: %w", kind, err)
	}

	for i := range entries {
		entries[i].Kind = kind
	}

	return entries, nil
}

// Summary returns the entry count and earliest date of one log
func (r *HistoryRepo) Summary(ctx context.Context, tokenID int64, kind entities.HistoryKind) (*repositories.HistorySummary, error) {
	table, err := historyTable(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) AS count, to_char(MIN(date), 'YYYY-MM-DD') AS first_date
		FROM %s
		WHERE token_id = $1
	`, table)

	var row struct {
		Count     int64   `db:"count"`
		FirstDate *string `db:"first_date"`
	}
	if err := r.db.GetContext(ctx, &row, query, tokenID); err != nil {
		return nil, fmt.Errorf("failed to summarize %s history: %w", kind, err)
	}

	return &repositories.HistorySummary{
		Count:     row.Count,
		FirstDate: row.FirstDate,
	}, nil
}

func historyTable(kind entities.HistoryKind) (string, error) {
	switch kind {
	case entities.KindTopVolume:
		return "top_volume_history", nil
	case entities.KindTradingVolume:
		return "trading_volume_history", nil
	default:
		return "", fmt.Errorf("unknown history kind %q", kind)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
