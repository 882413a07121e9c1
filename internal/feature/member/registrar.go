// Package member provides helpers for recording direct bot contacts and
// keeping their last-seen timestamp updated.
package member

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

	"tg_join_gate_bot/internal/domain"
	"tg_join_gate_bot/internal/logging"
)

type memberCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// Contact carries the identity fields captured from a direct message.
type Contact struct {
	UserID    int64
	Username  string
	FirstName string
	LastName  string
}

// Registrar ensures members who contact the bot directly are present in the
// database. Someone who starts a private chat is already reachable, so a new
// record is created approved rather than pending.
type Registrar struct {
	members memberCollection
	logger  *logrus.Entry
}

// NewRegistrar constructs a Registrar for the provided members collection.
func NewRegistrar(members memberCollection, logger *logrus.Entry) *Registrar {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Registrar{
		members: members,
		logger:  logger,
	}
}

// EnsureContact upserts the member record for a direct contact and updates
// last_seen_at/updated_at on every call. Existing records keep their status
// and role; a queued pending member who messages the bot stays pending.
func (r *Registrar) EnsureContact(ctx context.Context, contact Contact) (bool, error) {
	if r == nil || r.members == nil {
		return false, errors.New("member registrar is not initialized")
	}
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if contact.UserID == 0 {
		return false, errors.New("user id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	setFields := bson.M{
		"updated_at":   now,
		"last_seen_at": now,
	}
	if username := strings.TrimSpace(contact.Username); username != "" {
		setFields["username"] = username
	}
	if firstName := strings.TrimSpace(contact.FirstName); firstName != "" {
		setFields["first_name"] = firstName
	}
	if lastName := strings.TrimSpace(contact.LastName); lastName != "" {
		setFields["last_name"] = lastName
	}

	update := bson.M{
		"$set": setFields,
		"$setOnInsert": bson.M{
			"user_id":    contact.UserID,
			"role":       domain.RoleUser,
			"status":     domain.StatusApproved,
			"created_at": now,
		},
	}

	result, err := r.members.UpdateOne(ctx,
		bson.M{"user_id": contact.UserID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("ensure contact: %w", err)
	}

	created := result != nil && result.UpsertedCount > 0
	if created {
		r.logger.WithFields(logging.Fields{
			"event":   "member_registered",
			"user_id": contact.UserID,
		}).Info("registered new member")
		return true, nil
	}

	r.logger.WithFields(logging.Fields{
		"event":   "member_seen",
		"user_id": contact.UserID,
	}).Debug("updated member last seen")

	return false, nil
}
