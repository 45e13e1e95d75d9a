package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketEvent is one entry from the streaming event feed (prints, sweeps,
// level touches). Payload is carried through to the analysis prompt as-is.
type MarketEvent struct {
	Symbol    string                 `json:"symbol"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// Candle is a single OHLCV bar for one timeframe.
type Candle struct {
	Symbol    string          `json:"symbol"`
	Timeframe string          `json:"timeframe"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	OpenTime  time.Time       `json:"open_time"`
}
