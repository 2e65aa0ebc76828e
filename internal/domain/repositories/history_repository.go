package repositories

import (
	"context"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// HistorySummary holds aggregate facts about one history log
type HistorySummary struct {
	Count int64
	// FirstDate is the date of the earliest recorded entry, nil when empty
	FirstDate *string
}

// HistoryRepository defines read access to the append-only history logs.
// Entries are only ever written through TokenRepository.Create and Mutate.
type HistoryRepository interface {
	// List returns a token's entries of one kind ordered by timestamp ascending
	List(ctx context.Context, tokenID int64, kind entities.HistoryKind) ([]entities.HistoryEntry, error)

	// Summary returns the entry count and first recorded date of one log
	Summary(ctx context.Context, tokenID int64, kind entities.HistoryKind) (*HistorySummary, error)
}
