package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"trade_sentinel_backend/models"
)

// systemInstructions is the fixed system prompt. The collaborator must
// answer with a single JSON object matching the TradeSignal schema.
const systemInstructions = `You are a futures trade analyst. Analyze the provided market context ` +
	`and respond with exactly one JSON object with fields: status (TRADE_IDENTIFIED, NO_SETUP, ` +
	`INSUFFICIENT_DATA or ERROR), direction (LONG or SHORT), confidence (integer 0-100), ` +
	`entry {zone_type, zone, price}, stop {placement, price}, targets (array of prices), ` +
	`narrative, trigger_conditions (array), invalidations (array). ` +
	`Report NO_SETUP unless the context shows a clearly tradeable setup.`

// Analyzer produces a structured verdict for an analysis payload.
type Analyzer interface {
	Analyze(ctx context.Context, payload *AnalysisPayload) (*models.TradeSignal, error)
}

// Client calls an OpenAI-compatible chat-completions endpoint. The call is
// bounded by the configured timeout; timeouts and rate limits surface as
// TransientError, malformed output as ParseError.
type Client struct {
	http    *resty.Client
	model   string
	timeout time.Duration
}

// NewClient builds the AI collaborator client.
func NewClient(endpoint, apiKey, model string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(endpoint).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey)
	return &Client{http: client, model: model, timeout: timeout}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Analyze sends the payload and parses the verdict.
func (c *Client) Analyze(ctx context.Context, payload *AnalysisPayload) (*models.TradeSignal, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis payload: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out chatResponse
	resp, err := c.http.R().
		SetContext(callCtx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemInstructions},
				{Role: "user", Content: string(body)},
			},
			Temperature:    0.1,
			ResponseFormat: &respFormat{Type: "json_object"},
		}).
		SetResult(&out).
		Post("")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() != nil {
			return nil, &models.TransientError{Op: "ai analyze", Err: fmt.Errorf("timed out after %s", c.timeout)}
		}
		return nil, &models.TransientError{Op: "ai analyze", Err: err}
	}
	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, &models.TransientError{Op: "ai analyze", Err: errors.New("rate limited")}
	}
	if resp.IsError() {
		return nil, &models.TransientError{Op: "ai analyze", Err: fmt.Errorf("ai endpoint returned %s", resp.Status())}
	}
	if len(out.Choices) == 0 {
		return nil, &models.ParseError{Reason: "ai response contained no choices"}
	}

	return ParseTradeSignal(out.Choices[0].Message.Content)
}
