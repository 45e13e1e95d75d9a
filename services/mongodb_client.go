package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDB collection names
const (
	MongoScheduleCollection = "schedule_configs"
	MongoTradeCollection    = "identified_trades"
)

// MongoDBClient handles the MongoDB connection and index setup. It is the
// single durable store: schedule configs and identified trades both live
// here, and both uniqueness invariants (config name, trade dedupe key) are
// enforced by the server, not by read-then-write checks.
type MongoDBClient struct {
	client      *mongo.Client
	database    *mongo.Database
	mu          sync.RWMutex
	isConnected bool
}

// NewMongoDBClient creates an unconnected client.
func NewMongoDBClient() *MongoDBClient {
	return &MongoDBClient{}
}

// Connect establishes the connection, verifies it with a ping, and ensures
// the indexes the invariants depend on.
func (m *MongoDBClient) Connect(uri, database string) error {
	if uri == "" {
		return fmt.Errorf("mongodb uri not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetMinPoolSize(2).
		SetMaxConnIdleTime(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.mu.Lock()
	m.client = client
	m.database = client.Database(database)
	m.isConnected = true
	m.mu.Unlock()

	if err := m.ensureIndexes(); err != nil {
		return err
	}

	logrus.WithField("database", database).Info("MongoDB connected")
	return nil
}

// IsConnected reports whether the client holds a verified connection.
func (m *MongoDBClient) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isConnected
}

// Ping verifies the connection is still alive.
func (m *MongoDBClient) Ping(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("mongodb not connected")
	}
	return client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (m *MongoDBClient) Close() error {
	if m.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Collection returns a handle to a named collection.
func (m *MongoDBClient) Collection(name string) *mongo.Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.database.Collection(name)
}

// ensureIndexes creates the indexes the store invariants rely on.
// Schedule configs use the name as _id, so name uniqueness comes for free.
func (m *MongoDBClient) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	trades := m.Collection(MongoTradeCollection)
	_, err := trades.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// The deduplication gate: exactly one insert per key ever wins.
			Keys:    bson.D{{Key: "dedupe_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Lifecycle sweep scans active trades by expiry.
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "symbol", Value: 1}, {Key: "identified_at", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create trade indexes: %w", err)
	}

	schedules := m.Collection(MongoScheduleCollection)
	_, err = schedules.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "enabled", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create schedule indexes: %w", err)
	}

	logrus.Info("MongoDB indexes ensured")
	return nil
}

// IsDuplicateKeyError reports whether err is a unique-index violation.
func IsDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
