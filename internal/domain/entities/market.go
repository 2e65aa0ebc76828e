package entities

import "encoding/json"

// MarketSnapshot is a live two-day reading for an exchange symbol together
// with the vendor payload it was parsed from.
type MarketSnapshot struct {
	// Symbol is the vendor trading pair, e.g. ALPHA_123USDT
	Symbol string
	Quote  VolumeQuote
	Raw    json.RawMessage
}
