package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedIntervalParsesMilliseconds(t *testing.T) {
	cfg := &ScheduleConfig{ScheduleExpression: "300000"}
	interval, err := cfg.FixedInterval()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, interval)
}

func TestFixedIntervalRejectsInvalidExpressions(t *testing.T) {
	for _, expr := range []string{"", "abc", "0", "-100", "1.5"} {
		cfg := &ScheduleConfig{ScheduleExpression: expr}
		_, err := cfg.FixedInterval()
		assert.Error(t, err, "expression %q", expr)
	}
}

func TestStringParam(t *testing.T) {
	cfg := &ScheduleConfig{Parameters: map[string]interface{}{
		"symbol": "NQ",
		"count":  3,
	}}

	symbol, ok := cfg.StringParam("symbol")
	assert.True(t, ok)
	assert.Equal(t, "NQ", symbol)

	_, ok = cfg.StringParam("count")
	assert.False(t, ok)

	_, ok = cfg.StringParam("missing")
	assert.False(t, ok)

	empty := &ScheduleConfig{}
	_, ok = empty.StringParam("symbol")
	assert.False(t, ok)
}
