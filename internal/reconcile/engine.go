// Package reconcile decides how every change to a token's top or trading
// volume is recorded. Functions here are pure: they take the current token
// state and return the next state plus the history entries to append. The
// caller is responsible for applying both atomically.
package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

const (
	noteArchived = "Token moved to finished competition"
	noteRestored = "Token restored to ongoing competition"
)

// Outcome is the result of reconciling one mutation
type Outcome struct {
	Token   entities.Token
	History []entities.HistoryEntry
}

// NewToken builds a token from admin input and seeds its top volume log
// with a manual_entry for today.
func NewToken(input entities.NewTokenInput, day Day) Outcome {
	token := entities.Token{
		Name:         strings.ToUpper(strings.TrimSpace(input.Name)),
		Slug:         strings.ToLower(strings.TrimSpace(input.Slug)),
		TopToday:     input.TopToday,
		TopYesterday: input.TopYesterday,
		Amount:       input.Amount,
		Status:       entities.StatusOngoing,
		CreatedAt:    day.Now,
		UpdatedAt:    day.Now,
	}
	RecomputeTotalPrize(&token)

	return Outcome{
		Token: token,
		History: []entities.HistoryEntry{
			entry(entities.KindTopVolume, day.Today, input.TopToday, decimal.NullDecimal{}, entities.EntryManualEntry, day),
		},
	}
}

// ApplyManualEdit merges an admin patch into token and classifies the change.
//
// Top volume: a new topToday whose accompanying topYesterday equals the old
// topToday is a day-roll (manual_shift_update); any other new topToday is a
// manual_update. A changed topYesterday sent without topToday is a
// manual_backfill dated yesterday. A changed volumeYesterday is a trading
// volume manual_backfill dated yesterday.
func ApplyManualEdit(token entities.Token, patch entities.TokenPatch, day Day) Outcome {
	var history []entities.HistoryEntry

	if patch.TopToday != nil && !patch.TopToday.Equal(token.TopToday) {
		kind := entities.EntryManualUpdate
		if patch.TopYesterday != nil && patch.TopYesterday.Equal(token.TopToday) {
			kind = entities.EntryManualShiftUpdate
		}
		history = append(history, entry(
			entities.KindTopVolume, day.Today, *patch.TopToday,
			decimal.NewNullDecimal(token.TopToday), kind, day,
		))
	}

	if patch.TopToday == nil && patch.TopYesterday != nil && !patch.TopYesterday.Equal(token.TopYesterday) {
		history = append(history, entry(
			entities.KindTopVolume, day.Yesterday, *patch.TopYesterday,
			decimal.NewNullDecimal(token.TopYesterday), entities.EntryManualBackfill, day,
		))
	}

	if patch.VolumeYesterday != nil && !nullEqual(token.VolumeYesterday, *patch.VolumeYesterday) {
		history = append(history, entry(
			entities.KindTradingVolume, day.Yesterday, *patch.VolumeYesterday,
			token.VolumeYesterday, entities.EntryManualBackfill, day,
		))
	}

	next := applyPatch(token, patch, day)
	return Outcome{Token: next, History: history}
}

// ApplyFetchedVolume stores a two-day market quote on token. Volumes are
// taken as-is (the vendor already returns the two-day window, so nothing is
// shifted). Fetch-sourced entries never carry a previous value.
//
// A daily fetch replaces both volumes, clearing any the vendor did not
// report. Other sources leave an absent volume unchanged. An absent price
// never clears the stored one.
func ApplyFetchedVolume(token entities.Token, quote entities.VolumeQuote, source entities.EntryType, day Day) (Outcome, error) {
	if token.IsArchived() {
		return Outcome{Token: token}, entities.ErrTokenArchived
	}

	replace := source == entities.EntryDailyFetch2Day

	next := token
	if quote.VolumeToday != nil || replace {
		next.VolumeToday = nullable(quote.VolumeToday)
	}
	if quote.VolumeYesterday != nil || replace {
		next.VolumeYesterday = nullable(quote.VolumeYesterday)
	}
	if quote.Price != nil {
		next.CurrentPrice = decimal.NewNullDecimal(*quote.Price)
	}
	now := day.Now
	next.LastUpdated = &now
	next.UpdatedAt = day.Now
	RecomputeTotalPrize(&next)

	var history []entities.HistoryEntry
	if quote.VolumeToday != nil {
		history = append(history, entry(
			entities.KindTradingVolume, day.Today, *quote.VolumeToday,
			decimal.NullDecimal{}, source, day,
		))
	}

	return Outcome{Token: next, History: history}, nil
}

// SetArchiveState moves a token between ongoing and archived. It reports
// false and returns the token untouched when no transition is needed.
func SetArchiveState(token entities.Token, archived bool, day Day) (Outcome, bool) {
	target := entities.StatusOngoing
	if archived {
		target = entities.StatusArchived
	}
	if currentStatus(token) == target {
		return Outcome{Token: token}, false
	}

	next := token
	next.Status = target
	next.UpdatedAt = day.Now

	kind, note := entities.EntryCompetitionRestored, noteRestored
	if archived {
		now := day.Now
		next.ArchivedAt = &now
		kind, note = entities.EntryCompetitionArchived, noteArchived
	} else {
		next.ArchivedAt = nil
	}

	marker := entry(entities.KindTopVolume, day.Today, token.TopToday, decimal.NullDecimal{}, kind, day)
	marker.Note = &note

	return Outcome{Token: next, History: []entities.HistoryEntry{marker}}, true
}

// RecomputeTotalPrize derives TotalPrize from CurrentPrice and Amount.
// The prize exists only when a price is known and amount is non-zero.
func RecomputeTotalPrize(t *entities.Token) {
	if t.CurrentPrice.Valid && !t.Amount.IsZero() {
		t.TotalPrize = decimal.NewNullDecimal(t.CurrentPrice.Decimal.Mul(t.Amount))
		return
	}
	t.TotalPrize = decimal.NullDecimal{}
}

func applyPatch(token entities.Token, patch entities.TokenPatch, day Day) entities.Token {
	next := token

	if patch.Name != nil {
		next.Name = strings.ToUpper(strings.TrimSpace(*patch.Name))
	}
	if patch.Slug != nil {
		next.Slug = strings.ToLower(strings.TrimSpace(*patch.Slug))
	}
	if patch.TopToday != nil {
		next.TopToday = *patch.TopToday
	}
	if patch.TopYesterday != nil {
		next.TopYesterday = *patch.TopYesterday
	}
	if patch.VolumeToday != nil {
		next.VolumeToday = decimal.NewNullDecimal(*patch.VolumeToday)
	}
	if patch.VolumeYesterday != nil {
		next.VolumeYesterday = decimal.NewNullDecimal(*patch.VolumeYesterday)
	}
	if patch.Amount != nil {
		next.Amount = *patch.Amount
	}
	if patch.CurrentPrice != nil {
		next.CurrentPrice = decimal.NewNullDecimal(*patch.CurrentPrice)
	}
	if patch.Status != nil && *patch.Status != currentStatus(token) {
		next.Status = *patch.Status
		if next.Status == entities.StatusArchived {
			now := day.Now
			next.ArchivedAt = &now
		} else {
			next.ArchivedAt = nil
		}
	}
	if patch.LastUpdated != nil {
		lu := patch.LastUpdated.UTC()
		next.LastUpdated = &lu
	}

	next.UpdatedAt = day.Now
	RecomputeTotalPrize(&next)
	return next
}

func entry(kind entities.HistoryKind, date string, value decimal.Decimal, prev decimal.NullDecimal, typ entities.EntryType, day Day) entities.HistoryEntry {
	return entities.HistoryEntry{
		Kind:          kind,
		Date:          date,
		Value:         value,
		PreviousValue: prev,
		Timestamp:     day.Now,
		Type:          typ,
	}
}

func nullable(v *decimal.Decimal) decimal.NullDecimal {
	if v == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*v)
}

func nullEqual(current decimal.NullDecimal, v decimal.Decimal) bool {
	return current.Valid && current.Decimal.Equal(v)
}

// currentStatus treats an unset status as ongoing, matching legacy rows
func currentStatus(t entities.Token) entities.TokenStatus {
	if t.Status == "" {
		return entities.StatusOngoing
	}
	return t.Status
}
