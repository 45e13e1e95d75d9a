package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade_sentinel_backend/models"
)

// fakeStats records execution outcomes in memory.
type fakeStats struct {
	mu        sync.Mutex
	successes int
	failures  int
	lastError string
}

func (f *fakeStats) RecordSuccess(_ context.Context, _ string, _ time.Time, _ *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.successes++
	return nil
}

func (f *fakeStats) RecordFailure(_ context.Context, _ string, _ time.Time, _ *time.Time, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures++
	f.lastError = message
	return nil
}

func (f *fakeStats) SetNextExecution(context.Context, string, time.Time) error {
	return nil
}

func (f *fakeStats) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.successes, f.failures
}

func newTestScheduler() (*TaskScheduler, *HandlerDispatcher, *fakeStats) {
	d := NewHandlerDispatcher()
	stats := &fakeStats{}
	return NewTaskScheduler(d, stats), d, stats
}

func fixedRateConfig(name, handler, intervalMs string) *models.ScheduleConfig {
	return &models.ScheduleConfig{
		Name:               name,
		Enabled:            true,
		ScheduleType:       models.ScheduleTypeFixedRate,
		ScheduleExpression: intervalMs,
		HandlerRef:         handler,
	}
}

func TestScheduleRejectsUnknownHandler(t *testing.T) {
	s, _, _ := newTestScheduler()
	defer s.Stop()

	err := s.Schedule(fixedRateConfig("job", "missing", "1000"))
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
	assert.False(t, s.IsRunning("job"))
}

func TestScheduleRejectsBadCronExpression(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()
	d.Register("job", func(context.Context, map[string]interface{}) error { return nil })

	err := s.Schedule(&models.ScheduleConfig{
		Name:               "bad-cron",
		Enabled:            true,
		ScheduleType:       models.ScheduleTypeCron,
		ScheduleExpression: "not a cron line",
		HandlerRef:         "job",
	})
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

func TestScheduleRejectsBadInterval(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()
	d.Register("job", func(context.Context, map[string]interface{}) error { return nil })

	for _, expr := range []string{"abc", "-5", "0"} {
		err := s.Schedule(fixedRateConfig("bad-"+expr, "job", expr))
		assert.True(t, models.IsConfigurationError(err), "expression %q", expr)
	}
}

func TestScheduleRejectsUnknownType(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()
	d.Register("job", func(context.Context, map[string]interface{}) error { return nil })

	err := s.Schedule(&models.ScheduleConfig{
		Name:               "weird",
		Enabled:            true,
		ScheduleType:       models.ScheduleType("EVERY_FULL_MOON"),
		ScheduleExpression: "1000",
		HandlerRef:         "job",
	})
	assert.True(t, models.IsConfigurationError(err))
}

func TestScheduleRejectsDuplicateName(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()
	d.Register("job", func(context.Context, map[string]interface{}) error { return nil })

	require.NoError(t, s.Schedule(fixedRateConfig("dup", "job", "60000")))
	err := s.Schedule(fixedRateConfig("dup", "job", "60000"))
	assert.True(t, models.IsConfigurationError(err))
}

func TestFixedRateFiresRepeatedly(t *testing.T) {
	s, d, stats := newTestScheduler()
	defer s.Stop()

	var runs int64
	d.Register("counter", func(context.Context, map[string]interface{}) error {
		atomic.AddInt64(&runs, 1)
		return nil
	})

	require.NoError(t, s.Schedule(fixedRateConfig("counter", "counter", "20")))
	time.Sleep(150 * time.Millisecond)
	s.Cancel("counter")

	assert.GreaterOrEqual(t, atomic.LoadInt64(&runs), int64(3))
	successes, _ := stats.counts()
	assert.GreaterOrEqual(t, successes, 3)
}

func TestFixedDelayNeverOverlaps(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()

	var inFlight, maxInFlight, runs int64
	d.Register("slow", func(context.Context, map[string]interface{}) error {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			seen := atomic.LoadInt64(&maxInFlight)
			if n <= seen || atomic.CompareAndSwapInt64(&maxInFlight, seen, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		atomic.AddInt64(&runs, 1)
		return nil
	})

	cfg := fixedRateConfig("slow", "slow", "10")
	cfg.ScheduleType = models.ScheduleTypeFixedDelay
	require.NoError(t, s.Schedule(cfg))

	time.Sleep(200 * time.Millisecond)
	s.Cancel("slow")

	assert.GreaterOrEqual(t, atomic.LoadInt64(&runs), int64(2))
	assert.Equal(t, int64(1), atomic.LoadInt64(&maxInFlight))
}

func TestHandlerFailureDoesNotCancelSchedule(t *testing.T) {
	s, d, stats := newTestScheduler()
	defer s.Stop()

	d.Register("failing", func(context.Context, map[string]interface{}) error {
		return errors.New("downstream unavailable")
	})

	require.NoError(t, s.Schedule(fixedRateConfig("failing", "failing", "20")))
	time.Sleep(100 * time.Millisecond)

	assert.True(t, s.IsRunning("failing"))
	_, failures := stats.counts()
	assert.GreaterOrEqual(t, failures, 2)
	stats.mu.Lock()
	assert.Equal(t, "downstream unavailable", stats.lastError)
	stats.mu.Unlock()
}

func TestCancelIsIdempotent(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()
	d.Register("job", func(context.Context, map[string]interface{}) error { return nil })

	require.NoError(t, s.Schedule(fixedRateConfig("job", "job", "60000")))
	s.Cancel("job")
	s.Cancel("job")
	s.Cancel("never-existed")

	assert.False(t, s.IsRunning("job"))
}

func TestRescheduleReplacesDefinition(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()
	d.Register("job", func(context.Context, map[string]interface{}) error { return nil })

	require.NoError(t, s.Schedule(fixedRateConfig("job", "job", "60000")))

	updated := fixedRateConfig("job", "job", "30000")
	require.NoError(t, s.Reschedule(updated))

	running := s.Running()
	require.Len(t, running, 1)
	assert.Equal(t, "30000", running[0].ScheduleExpression)
}

func TestRescheduleWorksWhenNotRunning(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()
	d.Register("job", func(context.Context, map[string]interface{}) error { return nil })

	require.NoError(t, s.Reschedule(fixedRateConfig("fresh", "job", "60000")))
	assert.True(t, s.IsRunning("fresh"))
}

func TestReconcileDisabledCancels(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()
	d.Register("job", func(context.Context, map[string]interface{}) error { return nil })

	cfg := fixedRateConfig("job", "job", "60000")
	require.NoError(t, s.Schedule(cfg))

	cfg.Enabled = false
	require.NoError(t, s.Reconcile(cfg))
	assert.False(t, s.IsRunning("job"))
}

func TestFailureInOneTaskIsolatedFromOthers(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()

	var healthyRuns int64
	d.Register("panicky", func(context.Context, map[string]interface{}) error {
		panic("kaboom")
	})
	d.Register("healthy", func(context.Context, map[string]interface{}) error {
		atomic.AddInt64(&healthyRuns, 1)
		return nil
	})

	require.NoError(t, s.Schedule(fixedRateConfig("panicky", "panicky", "20")))
	require.NoError(t, s.Schedule(fixedRateConfig("healthy", "healthy", "20")))

	time.Sleep(120 * time.Millisecond)

	assert.True(t, s.IsRunning("panicky"))
	assert.True(t, s.IsRunning("healthy"))
	assert.GreaterOrEqual(t, atomic.LoadInt64(&healthyRuns), int64(2))
}

func TestValidateConfigDoesNotStartTask(t *testing.T) {
	s, d, _ := newTestScheduler()
	defer s.Stop()
	d.Register("job", func(context.Context, map[string]interface{}) error { return nil })

	cfg := &models.ScheduleConfig{
		Name:               "cron-job",
		Enabled:            true,
		ScheduleType:       models.ScheduleTypeCron,
		ScheduleExpression: "*/5 * * * *",
		HandlerRef:         "job",
	}
	require.NoError(t, s.ValidateConfig(cfg))
	assert.False(t, s.IsRunning("cron-job"))
}

func TestStopWaitsForLoops(t *testing.T) {
	s, d, _ := newTestScheduler()
	d.Register("job", func(context.Context, map[string]interface{}) error { return nil })

	require.NoError(t, s.Schedule(fixedRateConfig("a", "job", "60000")))
	require.NoError(t, s.Schedule(fixedRateConfig("b", "job", "60000")))

	s.Stop()
	assert.Empty(t, s.Running())
}
