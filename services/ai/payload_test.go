package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionLabel(t *testing.T) {
	// Monday 2025-03-10
	assert.Equal(t, "RTH", SessionLabel(time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)))
	assert.Equal(t, "RTH", SessionLabel(time.Date(2025, 3, 10, 13, 30, 0, 0, time.UTC)))
	assert.Equal(t, "ETH", SessionLabel(time.Date(2025, 3, 10, 13, 29, 0, 0, time.UTC)))
	assert.Equal(t, "ETH", SessionLabel(time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)))
	assert.Equal(t, "ETH", SessionLabel(time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)))

	// Weekend
	assert.Equal(t, "CLOSED", SessionLabel(time.Date(2025, 3, 8, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, "CLOSED", SessionLabel(time.Date(2025, 3, 9, 15, 0, 0, 0, time.UTC)))
}
