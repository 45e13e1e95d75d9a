package ai

import (
	"encoding/json"
	"strings"

	"trade_sentinel_backend/models"
)

// ParseTradeSignal decodes the collaborator's raw text output into a
// TradeSignal. Markdown code fences around the JSON are tolerated; anything
// that does not decode to the schema is a ParseError.
func ParseTradeSignal(raw string) (*models.TradeSignal, error) {
	text := stripFences(raw)
	if text == "" {
		return nil, &models.ParseError{Reason: "empty ai output"}
	}

	var signal models.TradeSignal
	decoder := json.NewDecoder(strings.NewReader(text))
	if err := decoder.Decode(&signal); err != nil {
		return nil, &models.ParseError{Reason: "ai output is not valid JSON: " + err.Error()}
	}
	if signal.Status == "" {
		return nil, &models.ParseError{Field: "status", Reason: "missing from ai output"}
	}
	return &signal, nil
}

// stripFences removes a surrounding markdown code fence, if present.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
