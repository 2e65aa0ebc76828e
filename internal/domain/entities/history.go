package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryKind selects one of the two per-token history logs
type HistoryKind string

const (
	KindTopVolume     HistoryKind = "top_volume"
	KindTradingVolume HistoryKind = "trading_volume"
)

// EntryType explains why a history entry exists
type EntryType string

const (
	EntryManualEntry         EntryType = "manual_entry"
	EntryManualUpdate        EntryType = "manual_update"
	EntryManualShiftUpdate   EntryType = "manual_shift_update"
	EntryManualBackfill      EntryType = "manual_backfill"
	EntryAPIFetch2Day        EntryType = "api_fetch_2day"
	EntryDailyFetch2Day      EntryType = "daily_fetch_2day"
	EntryCompetitionArchived EntryType = "competition_archived"
	EntryCompetitionRestored EntryType = "competition_restored"
)

// DateLayout is the calendar day format used for history dates
const DateLayout = "2006-01-02"

// HistoryEntry is one immutable record in a token's history log.
// Date is a reporting-timezone calendar day; Timestamp is UTC.
type HistoryEntry struct {
	ID            int64               `db:"id"`
	TokenID       int64               `db:"token_id"`
	Kind          HistoryKind         `db:"-"`
	Date          string              `db:"date"`
	Value         decimal.Decimal     `db:"value"`
	PreviousValue decimal.NullDecimal `db:"previous_value"`
	Timestamp     time.Time           `db:"timestamp"`
	Type          EntryType           `db:"type"`
	Note          *string             `db:"note"`
	CreatedAt     time.Time           `db:"created_at"`
}
