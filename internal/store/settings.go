package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_join_gate_bot/internal/domain"
)

// settingsDocID is the fixed _id of the single settings document.
const settingsDocID = "bot"

type settingsCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// SettingsRepository persists the operator-editable bot settings as a single
// upserted document.
type SettingsRepository struct {
	coll settingsCollection
}

// NewSettingsRepository constructs a SettingsRepository backed by the given
// collection.
func NewSettingsRepository(coll settingsCollection) *SettingsRepository {
	return &SettingsRepository{coll: coll}
}

// Get returns the current settings, or zero-valued settings when none have
// been committed yet.
func (r *SettingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	if r == nil || r.coll == nil {
		return domain.Settings{}, errors.New("settings repository is not initialized")
	}
	if ctx == nil {
		return domain.Settings{}, errors.New("context is required")
	}

	var settings domain.Settings
	err := r.coll.FindOne(ctx, bson.M{"_id": settingsDocID}).Decode(&settings)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Settings{}, nil
		}
		return domain.Settings{}, fmt.Errorf("find settings: %w", err)
	}

	return settings, nil
}

// SetWelcomeText commits a new welcome message text.
func (r *SettingsRepository) SetWelcomeText(ctx context.Context, text string) error {
	return r.setFields(ctx, bson.M{"welcome_text": text})
}

// SetWelcomeImage commits a new welcome image file id.
func (r *SettingsRepository) SetWelcomeImage(ctx context.Context, fileID string) error {
	return r.setFields(ctx, bson.M{"welcome_image": fileID})
}

// SetSignupURL commits a new signup link.
func (r *SettingsRepository) SetSignupURL(ctx context.Context, url string) error {
	return r.setFields(ctx, bson.M{"signup_url": url})
}

// SetJoinGroupURL commits a new join-group link.
func (r *SettingsRepository) SetJoinGroupURL(ctx context.Context, url string) error {
	return r.setFields(ctx, bson.M{"join_group_url": url})
}

// SetAdminGroupID commits the chat id of the admin group.
func (r *SettingsRepository) SetAdminGroupID(ctx context.Context, chatID int64) error {
	return r.setFields(ctx, bson.M{"admin_group_id": chatID})
}

// SetAnnouncePayload commits the payload sent by the scheduled announcer.
func (r *SettingsRepository) SetAnnouncePayload(ctx context.Context, payload domain.Payload) error {
	return r.setFields(ctx, bson.M{"announce_payload": payload})
}

// SetAnnounceEvery commits the announcement interval in hours.
func (r *SettingsRepository) SetAnnounceEvery(ctx context.Context, hours int) error {
	if hours <= 0 {
		return errors.New("announce interval must be greater than 0")
	}
	return r.setFields(ctx, bson.M{"announce_every_hours": hours})
}

func (r *SettingsRepository) setFields(ctx context.Context, fields bson.M) error {
	if r == nil || r.coll == nil {
		return errors.New("settings repository is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	fields["updated_at"] = time.Now().UTC()

	_, err := r.coll.UpdateOne(
		ctx,
		bson.M{"_id": settingsDocID},
		bson.M{"$set": fields},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	return nil
}
