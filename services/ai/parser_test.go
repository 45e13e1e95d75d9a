package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_sentinel_backend/models"
)

func TestParseTradeSignalPlainJSON(t *testing.T) {
	raw := `{"status":"TRADE_IDENTIFIED","direction":"LONG","confidence":82,"entry":{"zone_type":"FVG","zone":"18250-18260","price":"18255"}}`

	signal, err := ParseTradeSignal(raw)
	require.NoError(t, err)
	assert.Equal(t, models.SignalTradeIdentified, signal.Status)
	assert.Equal(t, models.DirectionLong, signal.Direction)
	assert.Equal(t, 82, signal.Confidence)
	require.NotNil(t, signal.Entry)
	assert.Equal(t, "18250-18260", signal.Entry.Zone)
}

func TestParseTradeSignalFencedJSON(t *testing.T) {
	raw := "```json\n{\"status\":\"NO_SETUP\",\"narrative\":\"chop\"}\n```"

	signal, err := ParseTradeSignal(raw)
	require.NoError(t, err)
	assert.Equal(t, models.SignalNoSetup, signal.Status)
	assert.Equal(t, "chop", signal.Narrative)
}

func TestParseTradeSignalBareFence(t *testing.T) {
	raw := "```\n{\"status\":\"INSUFFICIENT_DATA\"}\n```"

	signal, err := ParseTradeSignal(raw)
	require.NoError(t, err)
	assert.Equal(t, models.SignalInsufficientData, signal.Status)
}

func TestParseTradeSignalMalformed(t *testing.T) {
	_, err := ParseTradeSignal("the market looks bullish today")
	require.Error(t, err)
	assert.True(t, models.IsParseError(err))
}

func TestParseTradeSignalEmpty(t *testing.T) {
	_, err := ParseTradeSignal("   ")
	require.Error(t, err)
	assert.True(t, models.IsParseError(err))
}

func TestParseTradeSignalMissingStatus(t *testing.T) {
	_, err := ParseTradeSignal(`{"confidence":50}`)
	require.Error(t, err)
	assert.True(t, models.IsParseError(err))
}
