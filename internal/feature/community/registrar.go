// Package community provides helpers for registering and tracking the chats
// whose join requests the bot mediates.
package community

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_join_gate_bot/internal/logging"
)

type communityCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Sighting carries the chat metadata captured from an update.
type Sighting struct {
	ChatID   int64
	Title    string
	Type     string
	Username string
}

// Registrar ensures communities are persisted when the bot encounters them
// and keeps their last-seen timestamp updated.
type Registrar struct {
	communities communityCollection
	logger      *logrus.Entry
}

// NewRegistrar constructs a Registrar for the provided communities collection.
func NewRegistrar(communities communityCollection, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		communities: communities,
		logger:      logger,
	}
}

// EnsureCommunity upserts the community record and updates last_seen_at on
// every call. Title, type and username are refreshed when present.
func (r *Registrar) EnsureCommunity(ctx context.Context, sighting Sighting) (bool, error) {
	if r == nil || r.communities == nil {
		return false, errors.New("community registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if sighting.ChatID == 0 {
		return false, errors.New("chat id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	setFields := bson.M{"last_seen_at": now}
	if title := strings.TrimSpace(sighting.Title); title != "" {
		setFields["title"] = title
	}
	if chatType := strings.TrimSpace(sighting.Type); chatType != "" {
		setFields["type"] = chatType
	}
	if username := strings.TrimSpace(sighting.Username); username != "" {
		setFields["username"] = username
	}

	update := bson.M{
		"$set": setFields,
		"$setOnInsert": bson.M{
			"chat_id":  sighting.ChatID,
			"added_at": now,
		},
	}

	result, err := r.communities.UpdateOne(ctx,
		bson.M{"chat_id": sighting.ChatID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("ensure community: %w", err)
	}

	created := result != nil && result.UpsertedCount > 0
	if created {
		r.logger.WithFields(logging.Fields{
			"event":   "community_registered",
			"chat_id": sighting.ChatID,
			"title":   strings.TrimSpace(sighting.Title),
		}).Info("registered new community")
		return true, nil
	}

	r.logger.WithFields(logging.Fields{
		"event":   "community_seen",
		"chat_id": sighting.ChatID,
	}).Debug("updated community last seen")

	return false, nil
}
