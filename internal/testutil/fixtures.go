package testutil

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// Reference instant used by fixtures: 2024-06-10 03:00 UTC, 10:00 in UTC+7
var FixtureTime = time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)

// Dec parses a decimal literal and panics on bad input
func Dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// DecPtr is Dec returning a pointer
func DecPtr(v string) *decimal.Decimal {
	d := Dec(v)
	return &d
}

// NullDec returns a valid NullDecimal
func NullDec(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(Dec(v))
}

// CreateTestToken creates a test token with default values
func CreateTestToken(opts ...TokenOption) *entities.Token {
	t := &entities.Token{
		Name:         "KOGE",
		Slug:         "koge",
		TopToday:     Dec("100"),
		TopYesterday: Dec("80"),
		Amount:       decimal.Zero,
		Status:       entities.StatusOngoing,
		CreatedAt:    FixtureTime,
		UpdatedAt:    FixtureTime,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

type TokenOption func(*entities.Token)

func TokenWithID(id int64) TokenOption {
	return func(t *entities.Token) {
		t.ID = id
	}
}

// TokenWithName sets the name and a matching slug
func TokenWithName(name string) TokenOption {
	return func(t *entities.Token) {
		t.Name = name
		t.Slug = strings.ToLower(name)
	}
}

func TokenWithSlug(slug string) TokenOption {
	return func(t *entities.Token) {
		t.Slug = slug
	}
}

func TokenWithTop(today, yesterday string) TokenOption {
	return func(t *entities.Token) {
		t.TopToday = Dec(today)
		t.TopYesterday = Dec(yesterday)
	}
}

func TokenWithVolume(today, yesterday string) TokenOption {
	return func(t *entities.Token) {
		t.VolumeToday = NullDec(today)
		t.VolumeYesterday = NullDec(yesterday)
	}
}

// TokenWithPrize sets amount and price and the matching prize
func TokenWithPrize(amount, price string) TokenOption {
	return func(t *entities.Token) {
		t.Amount = Dec(amount)
		t.CurrentPrice = NullDec(price)
		t.TotalPrize = decimal.NewNullDecimal(Dec(amount).Mul(Dec(price)))
	}
}

func TokenArchived(at time.Time) TokenOption {
	return func(t *entities.Token) {
		t.Status = entities.StatusArchived
		t.ArchivedAt = &at
	}
}

func TokenWithCreatedAt(ts time.Time) TokenOption {
	return func(t *entities.Token) {
		t.CreatedAt = ts
		t.UpdatedAt = ts
	}
}

// CreateTestEntry creates a history entry with default values
func CreateTestEntry(kind entities.HistoryKind, date, value string, typ entities.EntryType, ts time.Time) entities.HistoryEntry {
	return entities.HistoryEntry{
		Kind:      kind,
		Date:      date,
		Value:     Dec(value),
		Timestamp: ts,
		Type:      typ,
	}
}

// PointerTo returns a pointer to the given value
func PointerTo[T any](v T) *T {
	return &v
}
