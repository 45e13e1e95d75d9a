package ai

import (
	"time"

	"trade_sentinel_backend/models"
)

// TimeframeCandles groups the recent bars for one timeframe.
type TimeframeCandles struct {
	Timeframe string          `json:"timeframe"`
	Candles   []models.Candle `json:"candles"`
}

// AnalysisPayload is the full context handed to the reasoning collaborator:
// symbol/session metadata, the recent event stream, multi-timeframe candle
// context, and any manually maintained levels.
type AnalysisPayload struct {
	Symbol       string               `json:"symbol"`
	Session      string               `json:"session"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Events       []models.MarketEvent `json:"events"`
	Candles      []TimeframeCandles   `json:"candles"`
	ManualLevels []string             `json:"manual_levels,omitempty"`
}

// SessionLabel classifies a moment into the trading session used as prompt
// metadata. Futures hours, US/Eastern-as-UTC approximation: regular session
// 13:30-20:00 UTC on weekdays.
func SessionLabel(t time.Time) string {
	utc := t.UTC()
	if utc.Weekday() == time.Saturday || utc.Weekday() == time.Sunday {
		return "CLOSED"
	}
	minutes := utc.Hour()*60 + utc.Minute()
	if minutes >= 13*60+30 && minutes < 20*60 {
		return "RTH"
	}
	return "ETH"
}
