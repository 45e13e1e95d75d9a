package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_sentinel_backend/models"
)

type fakeSweeper struct {
	expired    int64
	expireErr  error
	stats      *models.TradeStatistics
	statsErr   error
	sweptAt    time.Time
	windowSeen int
}

func (f *fakeSweeper) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	f.sweptAt = now
	return f.expired, f.expireErr
}

func (f *fakeSweeper) Statistics(_ context.Context, windowHours int) (*models.TradeStatistics, error) {
	f.windowSeen = windowHours
	return f.stats, f.statsErr
}

func TestSweepExpiredReturnsCount(t *testing.T) {
	sweeper := &fakeSweeper{expired: 3}
	m := NewTradeLifecycleManager(sweeper)

	count, err := m.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.WithinDuration(t, time.Now().UTC(), sweeper.sweptAt, time.Second)
}

func TestSweepExpiredPropagatesError(t *testing.T) {
	sweeper := &fakeSweeper{expireErr: errors.New("mongo down")}
	m := NewTradeLifecycleManager(sweeper)

	count, err := m.SweepExpired(context.Background())
	require.Error(t, err)
	assert.Zero(t, count)
}

func TestReportStatisticsPassesWindow(t *testing.T) {
	sweeper := &fakeSweeper{stats: &models.TradeStatistics{WindowHours: 48, Total: 7}}
	m := NewTradeLifecycleManager(sweeper)

	stats, err := m.ReportStatistics(context.Background(), 48)
	require.NoError(t, err)
	assert.Equal(t, 48, sweeper.windowSeen)
	assert.Equal(t, int64(7), stats.Total)
}
