package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenStatus is the competition state of a token
type TokenStatus string

const (
	StatusOngoing  TokenStatus = "ongoing"
	StatusArchived TokenStatus = "archived"
)

// Valid reports whether s is a known status
func (s TokenStatus) Valid() bool {
	return s == StatusOngoing || s == StatusArchived
}

// Token represents a tracked competition entrant
type Token struct {
	ID              int64               `db:"id"`
	Name            string              `db:"name"`
	Slug            string              `db:"slug"`
	TopToday        decimal.Decimal     `db:"top_today"`
	TopYesterday    decimal.Decimal     `db:"top_yesterday"`
	VolumeToday     decimal.NullDecimal `db:"volume_today"`
	VolumeYesterday decimal.NullDecimal `db:"volume_yesterday"`
	Amount          decimal.Decimal     `db:"amount"`
	CurrentPrice    decimal.NullDecimal `db:"current_price"`
	TotalPrize      decimal.NullDecimal `db:"total_prize"`
	Status          TokenStatus         `db:"status"`
	ArchivedAt      *time.Time          `db:"archived_at"`
	LastUpdated     *time.Time          `db:"last_updated"`
	CreatedAt       time.Time           `db:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at"`
}

// IsArchived reports whether the token's competition has ended
func (t *Token) IsArchived() bool {
	return t.Status == StatusArchived
}

// NewTokenInput carries the admin-supplied fields of a token being created
type NewTokenInput struct {
	Name         string
	Slug         string
	TopToday     decimal.Decimal
	TopYesterday decimal.Decimal
	Amount       decimal.Decimal
}

// TokenPatch is a partial update of a token. A nil field is absent from the
// request. TotalPrize is intentionally not patchable; it is always derived.
type TokenPatch struct {
	Name            *string
	Slug            *string
	TopToday        *decimal.Decimal
	TopYesterday    *decimal.Decimal
	VolumeToday     *decimal.Decimal
	VolumeYesterday *decimal.Decimal
	Amount          *decimal.Decimal
	CurrentPrice    *decimal.Decimal
	Status          *TokenStatus
	LastUpdated     *time.Time
}

// VolumeQuote is one market data reading covering a two-day window.
// Any field may be nil when the vendor did not report it.
type VolumeQuote struct {
	VolumeToday     *decimal.Decimal
	VolumeYesterday *decimal.Decimal
	Price           *decimal.Decimal
}
