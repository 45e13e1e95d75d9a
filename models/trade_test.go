package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTradeStatusIsTerminal(t *testing.T) {
	assert.False(t, TradeStatusIdentified.IsTerminal())
	assert.False(t, TradeStatusAlerted.IsTerminal())
	assert.True(t, TradeStatusExpired.IsTerminal())
	assert.True(t, TradeStatusTaken.IsTerminal())
	assert.True(t, TradeStatusInvalidated.IsTerminal())
	assert.True(t, TradeStatusCancelled.IsTerminal())
}

func TestTradeStatusTransitions(t *testing.T) {
	terminals := []TradeStatus{TradeStatusExpired, TradeStatusTaken, TradeStatusInvalidated, TradeStatusCancelled}

	// Active states can reach every terminal state.
	for _, from := range []TradeStatus{TradeStatusIdentified, TradeStatusAlerted} {
		for _, to := range terminals {
			assert.True(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	// ALERTED is only reachable from IDENTIFIED.
	assert.True(t, TradeStatusIdentified.CanTransitionTo(TradeStatusAlerted))
	assert.False(t, TradeStatusAlerted.CanTransitionTo(TradeStatusAlerted))

	// Terminal states allow nothing out.
	for _, from := range terminals {
		for _, to := range append(terminals, TradeStatusIdentified, TradeStatusAlerted) {
			assert.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	// No path back to IDENTIFIED.
	assert.False(t, TradeStatusAlerted.CanTransitionTo(TradeStatusIdentified))
	assert.False(t, TradeStatusIdentified.CanTransitionTo(TradeStatusIdentified))
}
