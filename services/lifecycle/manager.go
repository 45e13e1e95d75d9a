package lifecycle

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"trade_sentinel_backend/models"
)

// TradeSweeper is the slice of the trade store the lifecycle manager needs.
type TradeSweeper interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	Statistics(ctx context.Context, windowHours int) (*models.TradeStatistics, error)
}

// TradeLifecycleManager expires stale trades and reports aggregate
// statistics. It runs on its own schedule, independent of trade finding.
type TradeLifecycleManager struct {
	trades TradeSweeper
}

// NewTradeLifecycleManager creates the manager.
func NewTradeLifecycleManager(trades TradeSweeper) *TradeLifecycleManager {
	return &TradeLifecycleManager{trades: trades}
}

// SweepExpired moves every active trade past its expiry to EXPIRED and
// returns how many were transitioned.
func (m *TradeLifecycleManager) SweepExpired(ctx context.Context) (int64, error) {
	expired, err := m.trades.ExpireStale(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		logrus.WithField("expired", expired).Info("lifecycle sweep expired stale trades")
	}
	return expired, nil
}

// ReportStatistics aggregates counts and average confidence over the
// trailing window. Read-only.
func (m *TradeLifecycleManager) ReportStatistics(ctx context.Context, windowHours int) (*models.TradeStatistics, error) {
	return m.trades.Statistics(ctx, windowHours)
}
