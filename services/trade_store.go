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

// TradeQuery filters identified-trade lookups.
type TradeQuery struct {
	Symbol string
	Status models.TradeStatus
	From   time.Time
	To     time.Time
	Limit  int64
}

// TradeStore persists IdentifiedTrade documents. Deduplication is the
// unique index on dedupe_key: Insert either wins or reports a duplicate,
// there is no separate existence check.
type TradeStore struct {
	coll *mongo.Collection
}

// NewTradeStore creates a trade store backed by the shared client.
func NewTradeStore(client *MongoDBClient) *TradeStore {
	return &TradeStore{coll: client.Collection(MongoTradeCollection)}
}

// Insert persists a new trade. Returns ErrDuplicateSignal when another
// insert with the same dedupe key already won; callers discard silently.
func (s *TradeStore) Insert(ctx context.Context, trade *models.IdentifiedTrade) error {
	now := time.Now().UTC()
	trade.CreatedAt = now
	trade.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, trade)
	if err != nil {
		if IsDuplicateKeyError(err) {
			return models.ErrDuplicateSignal
		}
		return err
	}
	return nil
}

// GetByID loads one trade.
func (s *TradeStore) GetByID(ctx context.Context, id string) (*models.IdentifiedTrade, error) {
	var trade models.IdentifiedTrade
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&trade)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &trade, nil
}

// Query returns trades matching the filter, newest first.
func (s *TradeStore) Query(ctx context.Context, q TradeQuery) ([]models.IdentifiedTrade, error) {
	filter := bson.M{}
	if q.Symbol != "" {
		filter["symbol"] = q.Symbol
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	timeRange := bson.M{}
	if !q.From.IsZero() {
		timeRange["$gte"] = q.From
	}
	if !q.To.IsZero() {
		timeRange["$lte"] = q.To
	}
	if len(timeRange) > 0 {
		filter["identified_at"] = timeRange
	}

	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "identified_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trades []models.IdentifiedTrade
	if err := cursor.All(ctx, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// MarkAlerted records a successful alert dispatch and moves the trade from
// IDENTIFIED to ALERTED in one guarded update.
func (s *TradeStore) MarkAlerted(ctx context.Context, id string, alertType models.AlertType, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.TradeStatusIdentified},
		bson.M{"$set": bson.M{
			"status":        models.TradeStatusAlerted,
			"alert_sent":    true,
			"alert_sent_at": at,
			"alert_type":    alertType,
			"updated_at":    time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateStatus applies a manual lifecycle transition. The filter restricts
// the update to statuses the transition is legal from, so a concurrent
// sweep or alert cannot be overwritten.
func (s *TradeStore) UpdateStatus(ctx context.Context, id string, next models.TradeStatus) (*models.IdentifiedTrade, error) {
	from := allowedFrom(next)
	if len(from) == 0 {
		return nil, models.ErrInvalidTransition
	}

	after := options.After
	opts := options.FindOneAndUpdate().SetReturnDocument(after)
	var trade models.IdentifiedTrade
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": from}},
		bson.M{"$set": bson.M{"status": next, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&trade)
	if err == nil {
		return &trade, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// Distinguish a missing record from an illegal transition.
	if _, lookupErr := s.GetByID(ctx, id); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, models.ErrInvalidTransition
}

// allowedFrom lists the statuses a transition to next may start from.
func allowedFrom(next models.TradeStatus) []models.TradeStatus {
	switch next {
	case models.TradeStatusAlerted:
		return []models.TradeStatus{models.TradeStatusIdentified}
	case models.TradeStatusExpired, models.TradeStatusTaken,
		models.TradeStatusInvalidated, models.TradeStatusCancelled:
		return []models.TradeStatus{models.TradeStatusIdentified, models.TradeStatusAlerted}
	}
	return nil
}

// ExpireStale moves every active trade whose expiry has passed to EXPIRED.
// Returns the number of trades expired.
func (s *TradeStore) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.coll.UpdateMany(ctx, expireStaleFilter(now), expireStaleUpdate(now))
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// expireStaleFilter matches only active trades whose expiry has passed;
// terminal trades are never touched by a sweep.
func expireStaleFilter(now time.Time) bson.M {
	return bson.M{
		"status":     bson.M{"$in": []models.TradeStatus{models.TradeStatusIdentified, models.TradeStatusAlerted}},
		"expires_at": bson.M{"$lte": now},
	}
}

// expireStaleUpdate moves a matched trade to EXPIRED and nothing else.
func expireStaleUpdate(now time.Time) bson.M {
	return bson.M{"$set": bson.M{"status": models.TradeStatusExpired, "updated_at": now}}
}

// Statistics aggregates counts and average confidence over a trailing
// window. Read-only; used for observability.
func (s *TradeStore) Statistics(ctx context.Context, windowHours int) (*models.TradeStatistics, error) {
	if windowHours <= 0 {
		windowHours = 24
	}
	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	match := bson.M{"identified_at": bson.M{"$gte": since}}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$facet", Value: bson.M{
			"by_status": bson.A{
				bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
			"by_symbol": bson.A{
				bson.M{"$group": bson.M{"_id": "$symbol", "count": bson.M{"$sum": 1}}},
			},
			"by_direction": bson.A{
				bson.M{"$group": bson.M{"_id": "$direction", "count": bson.M{"$sum": 1}}},
			},
			"overall": bson.A{
				bson.M{"$group": bson.M{
					"_id":            nil,
					"total":          bson.M{"$sum": 1},
					"avg_confidence": bson.M{"$avg": "$confidence"},
				}},
			},
		}}},
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raw []struct {
		ByStatus []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"by_status"`
		BySymbol []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"by_symbol"`
		ByDirection []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"by_direction"`
		Overall []struct {
			Total         int64   `bson:"total"`
			AvgConfidence float64 `bson:"avg_confidence"`
		} `bson:"overall"`
	}
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	stats := &models.TradeStatistics{
		WindowHours: windowHours,
		ByStatus:    make(map[models.TradeStatus]int64),
		BySymbol:    make(map[string]int64),
		ByDirection: make(map[models.TradeDirection]int64),
	}
	if len(raw) == 0 {
		return stats, nil
	}
	for _, row := range raw[0].ByStatus {
		stats.ByStatus[models.TradeStatus(row.ID)] = row.Count
	}
	for _, row := range raw[0].BySymbol {
		stats.BySymbol[row.ID] = row.Count
	}
	for _, row := range raw[0].ByDirection {
		stats.ByDirection[models.TradeDirection(row.ID)] = row.Count
	}
	if len(raw[0].Overall) > 0 {
		stats.Total = raw[0].Overall[0].Total
		stats.AvgConfidence = raw[0].Overall[0].AvgConfidence
	}
	return stats, nil
}
