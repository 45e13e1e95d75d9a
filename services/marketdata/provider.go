package marketdata

import (
	"context"
	"time"

	"trade_sentinel_backend/models"
)

// EventSource serves a bounded recent window of streaming market events.
type EventSource interface {
	RecentEvents(ctx context.Context, symbol string, lookback time.Duration) ([]models.MarketEvent, error)
}

// CandleSource serves the most recent bars for one timeframe.
type CandleSource interface {
	RecentCandles(ctx context.Context, symbol, timeframe string, count int) ([]models.Candle, error)
}
