package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// TokenDTO is the API representation of a token
type TokenDTO struct {
	ID              int64            `json:"id"`
	Name            string           `json:"name"`
	Slug            string           `json:"slug"`
	TopToday        decimal.Decimal  `json:"topToday"`
	TopYesterday    decimal.Decimal  `json:"topYesterday"`
	VolumeToday     *decimal.Decimal `json:"volumeToday"`
	VolumeYesterday *decimal.Decimal `json:"volumeYesterday"`
	Amount          decimal.Decimal  `json:"amount"`
	CurrentPrice    *decimal.Decimal `json:"currentPrice"`
	TotalPrize      *decimal.Decimal `json:"totalPrize"`
	Status          string           `json:"status"`
	ArchivedAt      *time.Time       `json:"archivedAt"`
	LastUpdated     *time.Time       `json:"lastUpdated"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// HistoryEntryDTO is the API representation of a history entry
type HistoryEntryDTO struct {
	ID            int64            `json:"id"`
	Date          string           `json:"date"`
	Value         decimal.Decimal  `json:"value"`
	PreviousValue *decimal.Decimal `json:"previousValue"`
	Timestamp     time.Time        `json:"timestamp"`
	Type          string           `json:"type"`
	Note          *string          `json:"note,omitempty"`
}

// TokenHistoryResponse holds both logs of one token, newest day first
type TokenHistoryResponse struct {
	TokenName            string            `json:"tokenName"`
	TopVolumeHistory     []HistoryEntryDTO `json:"topVolumeHistory"`
	TradingVolumeHistory []HistoryEntryDTO `json:"tradingVolumeHistory"`
}

// tokenToDTO converts a token entity to a DTO
func tokenToDTO(t entities.Token) TokenDTO {
	status := t.Status
	if status == "" {
		status = entities.StatusOngoing
	}
	return TokenDTO{
		ID:              t.ID,
		Name:            t.Name,
		Slug:            t.Slug,
		TopToday:        t.TopToday,
		TopYesterday:    t.TopYesterday,
		VolumeToday:     nullable(t.VolumeToday),
		VolumeYesterday: nullable(t.VolumeYesterday),
		Amount:          t.Amount,
		CurrentPrice:    nullable(t.CurrentPrice),
		TotalPrize:      nullable(t.TotalPrize),
		Status:          string(status),
		ArchivedAt:      utcTime(t.ArchivedAt),
		LastUpdated:     utcTime(t.LastUpdated),
		CreatedAt:       t.CreatedAt.UTC(),
		UpdatedAt:       t.UpdatedAt.UTC(),
	}
}

func entryToDTO(e entities.HistoryEntry) HistoryEntryDTO {
	return HistoryEntryDTO{
		ID:            e.ID,
		Date:          e.Date,
		Value:         e.Value,
		PreviousValue: nullable(e.PreviousValue),
		Timestamp:     e.Timestamp.UTC(),
		Type:          string(e.Type),
		Note:          e.Note,
	}
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func utcTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
