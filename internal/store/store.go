// Package store encapsulates MongoDB client management and collection helpers.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tg_join_gate_bot/internal/config"
)

// Collection names used across the bot.
const (
	CollectionMembers     = "members"
	CollectionCommunities = "communities"
	CollectionSettings    = "settings"
	CollectionActivity    = "activity"
)

// mongoClient captures the subset of mongo.Client behavior we rely on to
// allow lightweight stubbing in tests without a live Mongo deployment.
type mongoClient interface {
	Ping(context.Context, *readpref.ReadPref) error
	Database(string, ...*options.DatabaseOptions) *mongo.Database
	Disconnect(context.Context) error
}

// connectMongo is overridable for tests.
var connectMongo = func(ctx context.Context, opts *options.ClientOptions) (mongoClient, error) {
	return mongo.Connect(ctx, opts)
}

// createIndexes is overridable for tests.
var createIndexes = func(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) ([]string, error) {
	return coll.Indexes().CreateMany(ctx, models)
}

// Manager owns a MongoDB client and the configured database handle.
type Manager struct {
	client mongoClient
	db     *mongo.Database
}

// NewManager initializes the Mongo client using the supplied configuration
// and verifies connectivity with a ping.
func NewManager(ctx context.Context, cfg config.Config) (*Manager, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	client, err := connectMongo(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Manager{
		client: client,
		db:     client.Database(cfg.MongoDB),
	}, nil
}

// Database returns the configured database handle.
func (m *Manager) Database() *mongo.Database {
	return m.db
}

// Collection returns a collection handle for the given name.
func (m *Manager) Collection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

// Members returns the members collection handle.
func (m *Manager) Members() *mongo.Collection {
	return m.Collection(CollectionMembers)
}

// Communities returns the communities collection handle.
func (m *Manager) Communities() *mongo.Collection {
	return m.Collection(CollectionCommunities)
}

// Settings returns the settings collection handle.
func (m *Manager) Settings() *mongo.Collection {
	return m.Collection(CollectionSettings)
}

// Activity returns the activity log collection handle.
func (m *Manager) Activity() *mongo.Collection {
	return m.Collection(CollectionActivity)
}

// Ping verifies connectivity against the primary; used by the health server.
func (m *Manager) Ping(ctx context.Context) error {
	if m == nil || m.client == nil {
		return errors.New("store manager is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	return nil
}

// EnsureBaseIndexes creates the foundational indexes for the members and
// communities collections. Collections are created implicitly if they do not
// already exist.
func (m *Manager) EnsureBaseIndexes(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if m == nil || m.db == nil {
		return errors.New("store manager is not initialized")
	}

	memberIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("user_id_unique").
				SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "requested_at", Value: 1}},
			Options: options.Index().SetName("status_requested_at"),
		},
	}

	if _, err := createIndexes(ctx, m.Members(), memberIndexes); err != nil {
		return fmt.Errorf("create members indexes: %w", err)
	}

	communityIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "chat_id", Value: 1}},
			Options: options.Index().
				SetName("chat_id_unique").
				SetUnique(true),
		},
	}

	if _, err := createIndexes(ctx, m.Communities(), communityIndexes); err != nil {
		return fmt.Errorf("create communities indexes: %w", err)
	}

	activityIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "at", Value: -1}},
			Options: options.Index().SetName("at_desc"),
		},
	}

	if _, err := createIndexes(ctx, m.Activity(), activityIndexes); err != nil {
		return fmt.Errorf("create activity indexes: %w", err)
	}

	return nil
}

// Close disconnects the Mongo client.
func (m *Manager) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	return m.client.Disconnect(ctx)
}
