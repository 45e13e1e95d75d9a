package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trade_sentinel_backend/models"
)

// ScheduleStore persists ScheduleConfig documents. The durable record is
// the source of truth; the scheduler's in-memory task map is reconciled
// against it on every mutation.
type ScheduleStore struct {
	coll *mongo.Collection
}

// NewScheduleStore creates a schedule store backed by the shared client.
func NewScheduleStore(client *MongoDBClient) *ScheduleStore {
	return &ScheduleStore{coll: client.Collection(MongoScheduleCollection)}
}

// Create inserts a new config. Returns ErrDuplicateName when the name is
// taken (the name is the document _id).
func (s *ScheduleStore) Create(ctx context.Context, cfg *models.ScheduleConfig) error {
	now := time.Now().UTC()
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, cfg)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return models.ErrDuplicateName
		}
		return err
	}
	return nil
}

// GetByName loads one config.
func (s *ScheduleStore) GetByName(ctx context.Context, name string) (*models.ScheduleConfig, error) {
	var cfg models.ScheduleConfig
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&cfg)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// List returns all configs sorted by priority then name.
func (s *ScheduleStore) List(ctx context.Context) ([]models.ScheduleConfig, error) {
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var configs []models.ScheduleConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// ListEnabled returns the configs that should be live.
func (s *ScheduleStore) ListEnabled(ctx context.Context) ([]models.ScheduleConfig, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"enabled": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var configs []models.ScheduleConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// Update rewrites the definition fields only. Execution counters and
// last-run bookkeeping are never touched here, so a disable/edit/enable
// cycle preserves them.
func (s *ScheduleStore) Update(ctx context.Context, cfg *models.ScheduleConfig) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": cfg.Name}, definitionUpdate(cfg, time.Now().UTC()))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// definitionUpdate builds the update document for a config edit. Only
// definition fields are written: execution counters and last-run
// bookkeeping must survive any edit, so a disable/edit/enable cycle
// preserves them.
func definitionUpdate(cfg *models.ScheduleConfig, now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"description":         cfg.Description,
			"enabled":             cfg.Enabled,
			"schedule_type":       cfg.ScheduleType,
			"schedule_expression": cfg.ScheduleExpression,
			"parameters":          cfg.Parameters,
			"handler_ref":         cfg.HandlerRef,
			"priority":            cfg.Priority,
			"updated_at":          now,
		},
	}
}

// SetEnabled flips the enabled flag.
func (s *ScheduleStore) SetEnabled(ctx context.Context, name string, enabled bool) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": name}, enabledUpdate(enabled, time.Now().UTC()))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// enabledUpdate flips the enabled flag and touches nothing else.
func enabledUpdate(enabled bool, now time.Time) bson.M {
	return bson.M{"$set": bson.M{"enabled": enabled, "updated_at": now}}
}

// Delete removes a config.
func (s *ScheduleStore) Delete(ctx context.Context, name string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RecordSuccess bumps the execution counter atomically and records the
// outcome. $inc avoids lost updates when runs of the same job overlap.
func (s *ScheduleStore) RecordSuccess(ctx context.Context, name string, ranAt time.Time, next *time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": name}, bson.M{
		"$inc": bson.M{"execution_count": 1},
		"$set": bson.M{
			"last_status":       models.ExecutionStatusSuccess,
			"last_error":        "",
			"last_execution_at": ranAt,
			"next_execution_at": next,
			"updated_at":        time.Now().UTC(),
		},
	})
	return err
}

// RecordFailure bumps the failure counter atomically. The schedule stays
// live; failures only show up in the statistics.
func (s *ScheduleStore) RecordFailure(ctx context.Context, name string, ranAt time.Time, next *time.Time, message string) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": name}, bson.M{
		"$inc": bson.M{"failure_count": 1},
		"$set": bson.M{
			"last_status":       models.ExecutionStatusFailed,
			"last_error":        message,
			"last_execution_at": ranAt,
			"next_execution_at": next,
			"updated_at":        time.Now().UTC(),
		},
	})
	return err
}

// SetNextExecution records the first computed fire time when a config
// becomes live.
func (s *ScheduleStore) SetNextExecution(ctx context.Context, name string, next time.Time) error {
	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": name}, bson.M{
		"$set": bson.M{"next_execution_at": next, "updated_at": time.Now().UTC()},
	})
	return err
}

// Count returns the number of stored configs.
func (s *ScheduleStore) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{})
}
