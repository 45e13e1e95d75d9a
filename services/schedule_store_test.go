package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"trade_sentinel_backend/models"
)

func TestDefinitionUpdatePreservesCounters(t *testing.T) {
	cfg := &models.ScheduleConfig{
		Name:               "nq-finder",
		Description:        "Trade signal finder for NQ",
		Enabled:            false,
		ScheduleType:       models.ScheduleTypeFixedRate,
		ScheduleExpression: "5000",
		HandlerRef:         "trade_finder",
		Priority:           10,
		ExecutionCount:     42,
		FailureCount:       7,
		LastStatus:         models.ExecutionStatusFailed,
	}

	doc := definitionUpdate(cfg, time.Now().UTC())
	set, ok := doc["$set"].(bson.M)
	require.True(t, ok)

	// An edit must never write counters or last-run bookkeeping, or a
	// disable/edit/enable cycle would reset them.
	for _, key := range []string{
		"_id", "execution_count", "failure_count",
		"last_status", "last_error", "last_execution_at", "next_execution_at",
		"created_at",
	} {
		assert.NotContains(t, set, key)
	}
	_, hasInc := doc["$inc"]
	assert.False(t, hasInc)

	assert.Equal(t, false, set["enabled"])
	assert.Equal(t, models.ScheduleTypeFixedRate, set["schedule_type"])
	assert.Equal(t, "5000", set["schedule_expression"])
	assert.Equal(t, "trade_finder", set["handler_ref"])
}

func TestEnabledUpdateTouchesOnlyTheFlag(t *testing.T) {
	now := time.Now().UTC()
	doc := enabledUpdate(true, now)

	set, ok := doc["$set"].(bson.M)
	require.True(t, ok)
	assert.Len(t, set, 2)
	assert.Equal(t, true, set["enabled"])
	assert.Equal(t, now, set["updated_at"])
	assert.Len(t, doc, 1)
}

func TestCreateDuplicateNameReturnsErrDuplicateName(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("second create under the same name loses", func(mt *mtest.T) {
		store := &ScheduleStore{coll: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "E11000 duplicate key error collection: trade_sentinel.schedule_configs",
			}),
		)

		first := &models.ScheduleConfig{Name: "nq-finder", ScheduleType: models.ScheduleTypeFixedRate, ScheduleExpression: "5000", HandlerRef: "trade_finder"}
		second := &models.ScheduleConfig{Name: "nq-finder", ScheduleType: models.ScheduleTypeCron, ScheduleExpression: "*/5 * * * *", HandlerRef: "trade_finder"}

		require.NoError(t, store.Create(context.Background(), first))
		assert.ErrorIs(t, store.Create(context.Background(), second), models.ErrDuplicateName)
	})
}
