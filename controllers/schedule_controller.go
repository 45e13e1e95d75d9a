package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"trade_sentinel_backend/models"
	"trade_sentinel_backend/scheduler"
	"trade_sentinel_backend/services"
)

// ScheduleController exposes ScheduleConfig CRUD. Every mutation reconciles
// the live scheduler against the stored record, so the durable config is
// always the source of truth.
type ScheduleController struct {
	store     *services.ScheduleStore
	scheduler *scheduler.TaskScheduler
}

// NewScheduleController creates the controller.
func NewScheduleController(store *services.ScheduleStore, ts *scheduler.TaskScheduler) *ScheduleController {
	return &ScheduleController{store: store, scheduler: ts}
}

// CreateSchedule validates and persists a new config, starting it when
// enabled.
// POST /api/v1/schedules
func (sc *ScheduleController) CreateSchedule(c *gin.Context) {
	var cfg models.ScheduleConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := sc.scheduler.ValidateConfig(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := sc.store.Create(c.Request.Context(), &cfg); err != nil {
		if errors.Is(err, models.ErrDuplicateName) {
			c.JSON(http.StatusConflict, gin.H{"error": "schedule name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create schedule"})
		return
	}

	sc.reconcile(&cfg)
	c.JSON(http.StatusCreated, gin.H{"data": cfg})
}

// GetSchedule returns one config.
// GET /api/v1/schedules/:name
func (sc *ScheduleController) GetSchedule(c *gin.Context) {
	cfg, err := sc.store.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch schedule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cfg})
}

// GetSchedules lists all configs.
// GET /api/v1/schedules
func (sc *ScheduleController) GetSchedules(c *gin.Context) {
	configs, err := sc.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list schedules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": configs})
}

// UpdateSchedule rewrites a config definition; execution counters are
// preserved by the store.
// PUT /api/v1/schedules/:name
func (sc *ScheduleController) UpdateSchedule(c *gin.Context) {
	var cfg models.ScheduleConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg.Name = c.Param("name")

	if err := sc.scheduler.ValidateConfig(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := sc.store.Update(c.Request.Context(), &cfg); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update schedule"})
		return
	}

	updated, err := sc.store.GetByName(c.Request.Context(), cfg.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reload schedule"})
		return
	}

	sc.reconcile(updated)
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

// DeleteSchedule removes a config and cancels its live task.
// DELETE /api/v1/schedules/:name
func (sc *ScheduleController) DeleteSchedule(c *gin.Context) {
	name := c.Param("name")
	if err := sc.store.Delete(c.Request.Context(), name); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete schedule"})
		return
	}

	sc.scheduler.Cancel(name)
	c.JSON(http.StatusOK, gin.H{"message": "schedule deleted"})
}

// EnableSchedule flips a config live.
// POST /api/v1/schedules/:name/enable
func (sc *ScheduleController) EnableSchedule(c *gin.Context) {
	sc.setEnabled(c, true)
}

// DisableSchedule stops future fires; counters stay untouched.
// POST /api/v1/schedules/:name/disable
func (sc *ScheduleController) DisableSchedule(c *gin.Context) {
	sc.setEnabled(c, false)
}

// SchedulerStatus lists the live tasks.
// GET /api/v1/scheduler/status
func (sc *ScheduleController) SchedulerStatus(c *gin.Context) {
	running := sc.scheduler.Running()
	tasks := make([]gin.H, len(running))
	for i, cfg := range running {
		tasks[i] = gin.H{
			"name":                cfg.Name,
			"schedule_type":       cfg.ScheduleType,
			"schedule_expression": cfg.ScheduleExpression,
			"handler_ref":         cfg.HandlerRef,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"running": tasks,
		"count":   len(running),
	})
}

func (sc *ScheduleController) setEnabled(c *gin.Context, enabled bool) {
	name := c.Param("name")
	if err := sc.store.SetEnabled(c.Request.Context(), name, enabled); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update schedule"})
		return
	}

	cfg, err := sc.store.GetByName(c.Request.Context(), name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reload schedule"})
		return
	}

	sc.reconcile(cfg)
	c.JSON(http.StatusOK, gin.H{"data": cfg})
}

// reconcile brings the live task in line with the stored record; a
// reconciliation failure is logged but never fails the admin request,
// since the durable record is already updated.
func (sc *ScheduleController) reconcile(cfg *models.ScheduleConfig) {
	if err := sc.scheduler.Reconcile(cfg); err != nil {
		logrus.WithError(err).WithField("task", cfg.Name).Error("scheduler reconcile failed")
	}
}
