package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_join_gate_bot/internal/domain"
)

type communityCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// CommunityLister reads the known communities, used by the announcer and the
// stats panel.
type CommunityLister struct {
	coll communityCollection
}

// NewCommunityLister constructs a CommunityLister backed by the given
// collection.
func NewCommunityLister(coll communityCollection) *CommunityLister {
	return &CommunityLister{coll: coll}
}

// List returns all known communities ordered by when the bot first saw them.
func (l *CommunityLister) List(ctx context.Context) ([]domain.Community, error) {
	if l == nil || l.coll == nil {
		return nil, errors.New("community lister is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := l.coll.Find(
		ctx,
		bson.D{},
		options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find communities: %w", err)
	}

	var communities []domain.Community
	if err := cursor.All(ctx, &communities); err != nil {
		return nil, fmt.Errorf("decode communities: %w", err)
	}

	return communities, nil
}
