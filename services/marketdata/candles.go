package marketdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"trade_sentinel_backend/models"
)

// CandleClient fetches recent OHLCV bars from the candle HTTP API.
type CandleClient struct {
	http *resty.Client
}

// NewCandleClient builds a client against baseURL. The API key is optional.
func NewCandleClient(baseURL, apiKey string) *CandleClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}
	return &CandleClient{http: client}
}

type candleResponse struct {
	Data []models.Candle `json:"data"`
}

// RecentCandles returns the most recent count bars for one timeframe,
// oldest first. Network and server failures come back as TransientError so
// the run is retried on the task's next fire.
func (c *CandleClient) RecentCandles(ctx context.Context, symbol, timeframe string, count int) ([]models.Candle, error) {
	var out candleResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    symbol,
			"timeframe": timeframe,
			"limit":     strconv.Itoa(count),
		}).
		SetResult(&out).
		Get("/candles")
	if err != nil {
		return nil, &models.TransientError{Op: "candle fetch", Err: err}
	}
	if resp.IsError() {
		return nil, &models.TransientError{
			Op:  "candle fetch",
			Err: fmt.Errorf("candle api returned %s for %s %s", resp.Status(), symbol, timeframe),
		}
	}
	return out.Data, nil
}
