package legacy

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// Document is the single-file store the service used before PostgreSQL
type Document struct {
	Tokens      []Token `json:"tokens"`
	LastUpdated *string `json:"lastUpdated"`
}

// Token is a token record with its two history logs embedded
type Token struct {
	Name                 string              `json:"name"`
	Slug                 string              `json:"slug"`
	TopToday             decimal.NullDecimal `json:"topToday"`
	TopYesterday         decimal.NullDecimal `json:"topYesterday"`
	VolumeToday          decimal.NullDecimal `json:"volumeToday"`
	VolumeYesterday      decimal.NullDecimal `json:"volumeYesterday"`
	Amount               decimal.NullDecimal `json:"amount"`
	CurrentPrice         decimal.NullDecimal `json:"currentPrice"`
	Status               string              `json:"status"`
	ArchivedAt           *time.Time          `json:"archivedAt"`
	LastUpdated          *time.Time          `json:"lastUpdated"`
	TopVolumeHistory     []Entry             `json:"topVolumeHistory"`
	TradingVolumeHistory []Entry             `json:"tradingVolumeHistory"`
}

// Entry is one embedded history record
type Entry struct {
	Date          string              `json:"date"`
	Value         decimal.NullDecimal `json:"value"`
	PreviousValue decimal.NullDecimal `json:"previousValue"`
	Timestamp     *time.Time          `json:"timestamp"`
	Type          string              `json:"type"`
	Note          *string             `json:"note"`
}

// ReadFile loads a legacy document from disk
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy document: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a legacy document
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode legacy document: %w", err)
	}
	return &doc, nil
}

// Entity converts the record's current-state fields. The prize is left for
// the caller to derive.
func (t Token) Entity(now time.Time) entities.Token {
	status := entities.TokenStatus(t.Status)
	if !status.Valid() {
		status = entities.StatusOngoing
	}

	token := entities.Token{
		Name:            strings.ToUpper(strings.TrimSpace(t.Name)),
		Slug:            strings.ToLower(strings.TrimSpace(t.Slug)),
		TopToday:        orZero(t.TopToday),
		TopYesterday:    orZero(t.TopYesterday),
		VolumeToday:     t.VolumeToday,
		VolumeYesterday: t.VolumeYesterday,
		Amount:          orZero(t.Amount),
		CurrentPrice:    t.CurrentPrice,
		Status:          status,
		LastUpdated:     utc(t.LastUpdated),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if status == entities.StatusArchived {
		token.ArchivedAt = utc(t.ArchivedAt)
	}
	return token
}

// History converts both embedded logs. Entries without a value or a
// parseable date cannot be stored and are returned as skipped.
func (t Token) History(fallback time.Time) (entries []entities.HistoryEntry, skipped int) {
	convert := func(kind entities.HistoryKind, src []Entry) {
		for _, e := range src {
			if !e.Value.Valid {
				skipped++
				continue
			}
			if _, err := time.Parse(entities.DateLayout, e.Date); err != nil {
				skipped++
				continue
			}

			ts := fallback
			if e.Timestamp != nil {
				ts = e.Timestamp.UTC()
			}
			typ := entities.EntryType(e.Type)
			if typ == "" {
				typ = entities.EntryManualEntry
			}

			entries = append(entries, entities.HistoryEntry{
				Kind:          kind,
				Date:          e.Date,
				Value:         e.Value.Decimal,
				PreviousValue: e.PreviousValue,
				Timestamp:     ts,
				Type:          typ,
				Note:          e.Note,
			})
		}
	}

	convert(entities.KindTopVolume, t.TopVolumeHistory)
	convert(entities.KindTradingVolume, t.TradingVolumeHistory)
	return entries, skipped
}

// Backup copies the document next to itself as
// database_backup_<unix millis>.json and returns the new path.
func Backup(path string, now time.Time) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open legacy document: %w", err)
	}
	defer src.Close()

	backupPath := filepath.Join(filepath.Dir(path), fmt.Sprintf("database_backup_%d.json", now.UnixMilli()))
	dst, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup: %w", err)
	}

	return backupPath, nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
