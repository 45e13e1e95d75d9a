package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"trade_sentinel_backend/models"
)

// Dispatcher resolves and runs handler references.
type Dispatcher interface {
	Resolve(ref string) (HandlerFunc, error)
	Invoke(ctx context.Context, ref string, params map[string]interface{}) error
}

// StatsRecorder receives per-fire execution outcomes. The schedule store
// implements it with atomic counter increments.
type StatsRecorder interface {
	RecordSuccess(ctx context.Context, name string, ranAt time.Time, next *time.Time) error
	RecordFailure(ctx context.Context, name string, ranAt time.Time, next *time.Time, message string) error
	SetNextExecution(ctx context.Context, name string, next time.Time) error
}

// runningTask is the in-memory handle for one live schedule. Never
// persisted; destroyed on cancel, disable, delete, or reschedule.
type runningTask struct {
	config   models.ScheduleConfig
	cancel   context.CancelFunc
	done     chan struct{}
	cronSpec cron.Schedule // set for CRON tasks
	interval time.Duration // set for FIXED_RATE / FIXED_DELAY tasks
}

// TaskScheduler owns the live set of scheduled jobs. All mutations of the
// task map go through one mutex; no lock is ever held across a handler run
// or a network call. Cancellation means no new starts: an in-flight run
// always completes and its side effects stand.
type TaskScheduler struct {
	mu         sync.Mutex
	tasks      map[string]*runningTask
	dispatcher Dispatcher
	stats      StatsRecorder
	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewTaskScheduler creates a scheduler with no live tasks.
func NewTaskScheduler(dispatcher Dispatcher, stats StatsRecorder) *TaskScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskScheduler{
		tasks:      make(map[string]*runningTask),
		dispatcher: dispatcher,
		stats:      stats,
		rootCtx:    ctx,
		rootCancel: cancel,
	}
}

// Schedule validates a config and starts its timer. Rejects with a
// ConfigurationError when the expression does not parse under the declared
// type, the handler ref is unknown, or a task with that name is already
// running.
func (s *TaskScheduler) Schedule(cfg *models.ScheduleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleLocked(cfg)
}

// Cancel stops future fires for a task. Idempotent: cancelling a task that
// is not running is a no-op.
func (s *TaskScheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(name)
}

// Reschedule atomically replaces a running task with the new definition
// under the same name. Persisted counters are untouched; only the live
// timer is rebuilt.
func (s *TaskScheduler) Reschedule(cfg *models.ScheduleConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(cfg.Name)
	return s.scheduleLocked(cfg)
}

// Reconcile brings the live task for cfg.Name in line with the desired
// state in the config record. Idempotent: called after every create,
// update, enable, and disable.
func (s *TaskScheduler) Reconcile(cfg *models.ScheduleConfig) error {
	if !cfg.Enabled {
		s.Cancel(cfg.Name)
		return nil
	}
	return s.Reschedule(cfg)
}

// ValidateConfig checks a config the same way Schedule does, without
// starting it. Used by the admin API so invalid definitions are rejected
// before they are persisted.
func (s *TaskScheduler) ValidateConfig(cfg *models.ScheduleConfig) error {
	if _, err := s.dispatcher.Resolve(cfg.HandlerRef); err != nil {
		return &models.ConfigurationError{Name: cfg.Name, Reason: "handler resolution failed", Err: err}
	}
	switch cfg.ScheduleType {
	case models.ScheduleTypeCron:
		if _, err := cron.ParseStandard(cfg.ScheduleExpression); err != nil {
			return &models.ConfigurationError{Name: cfg.Name, Reason: "invalid cron expression", Err: err}
		}
	case models.ScheduleTypeFixedRate, models.ScheduleTypeFixedDelay:
		if _, err := cfg.FixedInterval(); err != nil {
			return &models.ConfigurationError{Name: cfg.Name, Reason: "invalid interval expression", Err: err}
		}
	default:
		return &models.ConfigurationError{Name: cfg.Name, Reason: fmt.Sprintf("unknown schedule type %q", cfg.ScheduleType)}
	}
	return nil
}

// IsRunning reports whether a live task exists for name.
func (s *TaskScheduler) IsRunning(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[name]
	return ok
}

// Running returns snapshots of the configs behind all live tasks, sorted
// by name.
func (s *TaskScheduler) Running() []models.ScheduleConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	configs := make([]models.ScheduleConfig, 0, len(s.tasks))
	for _, rt := range s.tasks {
		configs = append(configs, rt.config)
	}
	sort.Slice(configs, func(i, j int) bool { return configs[i].Name < configs[j].Name })
	return configs
}

// Stop cancels every live task and waits for the timer loops to exit.
// In-flight handler runs are not interrupted.
func (s *TaskScheduler) Stop() {
	s.mu.Lock()
	for name := range s.tasks {
		s.cancelLocked(name)
	}
	s.mu.Unlock()
	s.rootCancel()
	s.wg.Wait()
	logrus.Info("task scheduler stopped")
}

func (s *TaskScheduler) scheduleLocked(cfg *models.ScheduleConfig) error {
	if _, exists := s.tasks[cfg.Name]; exists {
		return &models.ConfigurationError{Name: cfg.Name, Reason: "task already running"}
	}
	if _, err := s.dispatcher.Resolve(cfg.HandlerRef); err != nil {
		return &models.ConfigurationError{Name: cfg.Name, Reason: "handler resolution failed", Err: err}
	}

	rt := &runningTask{
		config: *cfg,
		done:   make(chan struct{}),
	}

	var first time.Time
	now := time.Now()
	switch cfg.ScheduleType {
	case models.ScheduleTypeCron:
		spec, err := cron.ParseStandard(cfg.ScheduleExpression)
		if err != nil {
			return &models.ConfigurationError{Name: cfg.Name, Reason: "invalid cron expression", Err: err}
		}
		rt.cronSpec = spec
		first = spec.Next(now)
	case models.ScheduleTypeFixedRate, models.ScheduleTypeFixedDelay:
		interval, err := cfg.FixedInterval()
		if err != nil {
			return &models.ConfigurationError{Name: cfg.Name, Reason: "invalid interval expression", Err: err}
		}
		rt.interval = interval
		first = now.Add(interval)
	default:
		return &models.ConfigurationError{Name: cfg.Name, Reason: fmt.Sprintf("unknown schedule type %q", cfg.ScheduleType)}
	}

	taskCtx, cancel := context.WithCancel(s.rootCtx)
	rt.cancel = cancel
	s.tasks[cfg.Name] = rt

	s.wg.Add(1)
	go s.runLoop(taskCtx, rt)

	go s.persistNextExecution(cfg.Name, first)

	logrus.WithFields(logrus.Fields{
		"task":       cfg.Name,
		"type":       cfg.ScheduleType,
		"expression": cfg.ScheduleExpression,
		"next":       first,
	}).Info("task scheduled")
	return nil
}

func (s *TaskScheduler) cancelLocked(name string) {
	rt, ok := s.tasks[name]
	if !ok {
		return
	}
	rt.cancel()
	delete(s.tasks, name)
	logrus.WithField("task", name).Info("task cancelled")
}

// runLoop drives one task's timer until its context is cancelled.
func (s *TaskScheduler) runLoop(ctx context.Context, rt *runningTask) {
	defer s.wg.Done()
	defer close(rt.done)

	switch rt.config.ScheduleType {
	case models.ScheduleTypeCron:
		s.runCron(ctx, rt)
	case models.ScheduleTypeFixedRate:
		s.runFixedRate(ctx, rt)
	case models.ScheduleTypeFixedDelay:
		s.runFixedDelay(ctx, rt)
	}
}

// runCron fires at each evaluator-computed time. Runs may overlap
// themselves; handlers are required to be safe under that.
func (s *TaskScheduler) runCron(ctx context.Context, rt *runningTask) {
	for {
		next := rt.cronSpec.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			go s.executeOnce(rt.config, func() time.Time {
				return rt.cronSpec.Next(time.Now())
			})
		}
	}
}

// runFixedRate fires every interval from the scheduling moment, regardless
// of how long the previous run took.
func (s *TaskScheduler) runFixedRate(ctx context.Context, rt *runningTask) {
	ticker := time.NewTicker(rt.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			go s.executeOnce(rt.config, func() time.Time {
				return tick.Add(rt.interval)
			})
		}
	}
}

// runFixedDelay runs the handler inline and arms the next timer only after
// it returns, so runs of the same name are strictly serialized.
func (s *TaskScheduler) runFixedDelay(ctx context.Context, rt *runningTask) {
	timer := time.NewTimer(rt.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.executeOnce(rt.config, func() time.Time {
				return time.Now().Add(rt.interval)
			})
			timer.Reset(rt.interval)
		}
	}
}

// executeOnce runs the handler and converts the outcome into persisted
// statistics. Handler errors never stop the schedule; the task's own next
// fire is the only retry.
func (s *TaskScheduler) executeOnce(cfg models.ScheduleConfig, computeNext func() time.Time) {
	started := time.Now().UTC()
	log := logrus.WithFields(logrus.Fields{"task": cfg.Name, "handler": cfg.HandlerRef})
	log.Debug("task firing")

	// The handler gets a fresh context: cancelling the schedule must never
	// interrupt an in-flight run.
	err := s.dispatcher.Invoke(context.Background(), cfg.HandlerRef, cfg.Parameters)

	next := computeNext()
	statsCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err != nil {
		log.WithError(err).WithField("duration", time.Since(started)).Warn("task run failed")
		if recErr := s.stats.RecordFailure(statsCtx, cfg.Name, started, &next, err.Error()); recErr != nil {
			log.WithError(recErr).Error("failed to record task failure")
		}
		return
	}

	log.WithField("duration", time.Since(started)).Debug("task run completed")
	if recErr := s.stats.RecordSuccess(statsCtx, cfg.Name, started, &next); recErr != nil {
		log.WithError(recErr).Error("failed to record task success")
	}
}

func (s *TaskScheduler) persistNextExecution(name string, next time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.stats.SetNextExecution(ctx, name, next); err != nil {
		logrus.WithError(err).WithField("task", name).Error("failed to persist next execution time")
	}
}
