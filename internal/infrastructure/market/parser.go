package market

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bimakw/volume-tracker/internal/domain/entities"
)

// Kline columns: open time, open, high, low, close, volume, close time,
// quote asset volume, trades, taker buy base, taker buy quote, ignore.
const (
	colClose       = 4
	colQuoteVolume = 7
)

// ParseKlines decodes a kline payload into its rows, oldest first
func ParseKlines(body []byte) ([][]json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode klines: %w", err)
	}
	if !env.Success {
		return nil, fmt.Errorf("klines returned code %q: %w", env.Code, entities.ErrMarketDataUnavailable)
	}

	var rows [][]json.RawMessage
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode kline rows: %w", err)
		}
	}

	return rows, nil
}

// QuoteFromKlines maps two daily klines onto a volume quote. The first row
// is yesterday; the second, when present, is today and carries the price.
func QuoteFromKlines(rows [][]json.RawMessage) (*entities.VolumeQuote, error) {
	if len(rows) == 0 {
		return nil, entities.ErrMarketDataUnavailable
	}

	yesterday, err := cellDecimal(rows[0], colQuoteVolume)
	if err != nil {
		return nil, fmt.Errorf("invalid yesterday kline: %w", err)
	}

	quote := &entities.VolumeQuote{VolumeYesterday: yesterday}
	if len(rows) > 1 {
		today, err := cellDecimal(rows[1], colQuoteVolume)
		if err != nil {
			return nil, fmt.Errorf("invalid today kline: %w", err)
		}
		price, err := cellDecimal(rows[1], colClose)
		if err != nil {
			return nil, fmt.Errorf("invalid today kline: %w", err)
		}
		quote.VolumeToday = today
		quote.Price = price
	}

	return quote, nil
}

// cellDecimal reads a numeric kline cell. The vendor sends numbers as
// strings but bare JSON numbers are accepted too.
func cellDecimal(row []json.RawMessage, idx int) (*decimal.Decimal, error) {
	if idx >= len(row) {
		return nil, fmt.Errorf("kline has %d columns, need %d", len(row), idx+1)
	}

	raw := bytes.TrimSpace(row[idx])
	if bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var s string
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("column %d: %w", idx, err)
		}
	} else {
		s = string(raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("column %d: %w", idx, err)
	}
	return &d, nil
}
