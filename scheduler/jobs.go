package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"trade_sentinel_backend/models"
	"trade_sentinel_backend/services"
)

// Built-in handler references. Handlers are registered against these names
// in main; schedule configs point at them through handler_ref.
const (
	HandlerTradeFinder    = "trade_finder"
	HandlerLifecycleSweep = "trade_lifecycle_sweep"
)

// Bootstrap loads every enabled config from the store and schedules it.
// A config that fails validation is logged and skipped; one broken record
// must not keep the rest of the schedules from coming up.
func Bootstrap(ctx context.Context, store *services.ScheduleStore, ts *TaskScheduler) error {
	configs, err := store.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to load enabled schedule configs: %w", err)
	}

	started := 0
	for i := range configs {
		cfg := configs[i]
		if err := ts.Schedule(&cfg); err != nil {
			logrus.WithError(err).WithField("task", cfg.Name).Error("skipping schedule config")
			continue
		}
		started++
	}

	logrus.WithFields(logrus.Fields{"started": started, "total": len(configs)}).
		Info("scheduler bootstrap completed")
	return nil
}

// SeedDefaults creates the stock set of jobs when the config collection is
// empty: one trade finder per watched symbol plus the lifecycle sweep.
func SeedDefaults(ctx context.Context, store *services.ScheduleStore, symbols []string, finderIntervalMs int, sweepInterval time.Duration) error {
	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, symbol := range symbols {
		cfg := &models.ScheduleConfig{
			Name:               fmt.Sprintf("%s-finder", symbol),
			Description:        fmt.Sprintf("Trade signal finder for %s", symbol),
			Enabled:            true,
			ScheduleType:       models.ScheduleTypeFixedRate,
			ScheduleExpression: strconv.Itoa(finderIntervalMs),
			Parameters:         map[string]interface{}{"symbol": symbol},
			HandlerRef:         HandlerTradeFinder,
			Priority:           10,
		}
		if err := store.Create(ctx, cfg); err != nil {
			return fmt.Errorf("failed to seed finder for %s: %w", symbol, err)
		}
	}

	sweep := &models.ScheduleConfig{
		Name:               "trade-lifecycle-sweep",
		Description:        "Expires stale identified trades",
		Enabled:            true,
		ScheduleType:       models.ScheduleTypeFixedDelay,
		ScheduleExpression: strconv.FormatInt(sweepInterval.Milliseconds(), 10),
		HandlerRef:         HandlerLifecycleSweep,
		Priority:           5,
	}
	if err := store.Create(ctx, sweep); err != nil {
		return fmt.Errorf("failed to seed lifecycle sweep: %w", err)
	}

	logrus.WithField("symbols", symbols).Info("seeded default schedule configs")
	return nil
}
