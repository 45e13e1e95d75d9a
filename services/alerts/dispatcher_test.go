package alerts

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"trade_sentinel_backend/models"
)

func sampleTrade() *models.IdentifiedTrade {
	return &models.IdentifiedTrade{
		ID:         "t-1",
		Symbol:     "NQ",
		Direction:  models.DirectionLong,
		Confidence: 85,
		Entry: models.EntrySnapshot{
			ZoneType: "FVG",
			Zone:     "18250-18260",
			Price:    decimal.NewFromInt(18255),
		},
		Stop: models.StopSnapshot{
			Placement: "below zone",
			Price:     decimal.NewFromInt(18240),
		},
		Targets: []decimal.Decimal{decimal.NewFromInt(18300), decimal.NewFromInt(18350)},
	}
}

func TestFormatSummaryIncludesKeyLevels(t *testing.T) {
	summary := FormatSummary(sampleTrade())

	assert.Contains(t, summary, "LONG NQ")
	assert.Contains(t, summary, "18250-18260")
	assert.Contains(t, summary, "18240")
	assert.Contains(t, summary, "18300")
}

func TestDispatchLogOnlyIsNoop(t *testing.T) {
	d := NewMultiChannelDispatcher("", "", "", "")
	err := d.Dispatch(context.Background(), models.AlertLogOnly, sampleTrade())
	assert.NoError(t, err)
}

func TestDispatchFailsWithNoChannelsConfigured(t *testing.T) {
	d := NewMultiChannelDispatcher("", "", "", "")
	err := d.Dispatch(context.Background(), models.AlertSMSTelegram, sampleTrade())
	assert.Error(t, err)
}
