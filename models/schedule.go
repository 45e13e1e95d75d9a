package models

import (
	"fmt"
	"strconv"
	"time"
)

// ScheduleType determines how the next fire time of a job is computed.
type ScheduleType string

const (
	ScheduleTypeCron       ScheduleType = "CRON"        // standard 5-field cron expression
	ScheduleTypeFixedRate  ScheduleType = "FIXED_RATE"  // every N ms from the scheduling moment
	ScheduleTypeFixedDelay ScheduleType = "FIXED_DELAY" // N ms after the previous run completes
)

// Execution status values recorded after each fire.
const (
	ExecutionStatusSuccess = "SUCCESS"
	ExecutionStatusFailed  = "FAILED"
)

// ScheduleConfig is the durable definition of a scheduled job. The name is
// the unique, immutable key; the in-memory running task map is only a cache
// of this record.
type ScheduleConfig struct {
	Name               string                 `bson:"_id" json:"name" binding:"required"`
	Description        string                 `bson:"description" json:"description"`
	Enabled            bool                   `bson:"enabled" json:"enabled"`
	ScheduleType       ScheduleType           `bson:"schedule_type" json:"schedule_type" binding:"required"`
	ScheduleExpression string                 `bson:"schedule_expression" json:"schedule_expression" binding:"required"`
	Parameters         map[string]interface{} `bson:"parameters" json:"parameters"`
	HandlerRef         string                 `bson:"handler_ref" json:"handler_ref" binding:"required"`
	Priority           int                    `bson:"priority" json:"priority"`
	ExecutionCount     int64                  `bson:"execution_count" json:"execution_count"`
	FailureCount       int64                  `bson:"failure_count" json:"failure_count"`
	LastStatus         string                 `bson:"last_status,omitempty" json:"last_status,omitempty"`
	LastError          string                 `bson:"last_error,omitempty" json:"last_error,omitempty"`
	LastExecutionAt    *time.Time             `bson:"last_execution_at,omitempty" json:"last_execution_at,omitempty"`
	NextExecutionAt    *time.Time             `bson:"next_execution_at,omitempty" json:"next_execution_at,omitempty"`
	CreatedAt          time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time              `bson:"updated_at" json:"updated_at"`
}

// FixedInterval interprets the schedule expression as a millisecond duration.
// Only valid for FIXED_RATE and FIXED_DELAY configs.
func (c *ScheduleConfig) FixedInterval() (time.Duration, error) {
	ms, err := strconv.ParseInt(c.ScheduleExpression, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("schedule expression %q is not a millisecond duration: %w", c.ScheduleExpression, err)
	}
	if ms <= 0 {
		return 0, fmt.Errorf("schedule expression must be a positive millisecond duration, got %d", ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// StringParam reads a string value from the opaque parameter bag. The
// handler owns its own parameter schema; this is just the common accessor.
func (c *ScheduleConfig) StringParam(key string) (string, bool) {
	if c.Parameters == nil {
		return "", false
	}
	v, ok := c.Parameters[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
