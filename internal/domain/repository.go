package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type memberCollection interface {
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// MemberRepository persists and retrieves member records in MongoDB.
type MemberRepository struct {
	collection memberCollection
}

// NewMemberRepository constructs a MemberRepository.
func NewMemberRepository(collection memberCollection) *MemberRepository {
	return &MemberRepository{collection: collection}
}

// UpsertPending records a join request durably before the in-memory queue
// accepts it. An existing record keeps its status (an already-approved
// member is never flipped back to pending) while the request metadata is
// refreshed.
func (r *MemberRepository) UpsertPending(ctx context.Context, req PendingRequest) error {
	if r == nil || r.collection == nil {
		return errors.New("member repository is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if req.UserID == 0 {
		return errors.New("user_id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	requestedAt := req.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = now
	}

	update := bson.M{
		"$set": bson.M{
			"username":     req.Username,
			"first_name":   req.FirstName,
			"last_name":    req.LastName,
			"chat_id":      req.ChatID,
			"requested_at": requestedAt,
			"updated_at":   now,
		},
		"$setOnInsert": bson.M{
			"user_id":    req.UserID,
			"role":       RoleUser,
			"status":     StatusPending,
			"created_at": now,
		},
	}

	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": req.UserID},
		update,
		options.Update().SetUpsert(true),
	); err != nil {
		return fmt.Errorf("upsert pending member: %w", err)
	}

	return nil
}

// MarkApproved transitions a member to the approved status and stamps the
// approval time. Safe to repeat; the record stays approved.
func (r *MemberRepository) MarkApproved(ctx context.Context, userID int64, approvedAt time.Time) error {
	if r == nil || r.collection == nil {
		return errors.New("member repository is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if userID == 0 {
		return errors.New("user_id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if approvedAt.IsZero() {
		approvedAt = now
	}

	if _, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{
			"status":      StatusApproved,
			"approved_at": approvedAt,
			"updated_at":  now,
		}},
	); err != nil {
		return fmt.Errorf("mark member approved: %w", err)
	}

	return nil
}

// GetByID fetches a member by Telegram user_id.
func (r *MemberRepository) GetByID(ctx context.Context, userID int64) (Member, error) {
	if r == nil || r.collection == nil {
		return Member{}, errors.New("member repository is not initialized")
	}
	if ctx == nil {
		return Member{}, errors.New("context is required")
	}
	if userID == 0 {
		return Member{}, errors.New("user_id is required")
	}

	result := r.collection.FindOne(ctx, bson.M{"user_id": userID})
	if result == nil {
		return Member{}, errors.New("find member returned no result")
	}
	if err := result.Err(); err != nil {
		return Member{}, fmt.Errorf("find member: %w", err)
	}

	var member Member
	if err := result.Decode(&member); err != nil {
		return Member{}, fmt.Errorf("decode member: %w", err)
	}

	return member, nil
}

// ListPending returns all members awaiting admission, oldest request first.
// Used by the reconciler to rebuild the queue at startup.
func (r *MemberRepository) ListPending(ctx context.Context) ([]Member, error) {
	if r == nil || r.collection == nil {
		return nil, errors.New("member repository is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := r.collection.Find(ctx,
		bson.M{"status": StatusPending},
		options.Find().SetSort(bson.D{{Key: "requested_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list pending members: %w", err)
	}

	var members []Member
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("decode pending members: %w", err)
	}

	return members, nil
}

// ListRecipients returns the broadcast audience: every recorded member
// without an elevated role.
func (r *MemberRepository) ListRecipients(ctx context.Context) ([]Member, error) {
	if r == nil || r.collection == nil {
		return nil, errors.New("member repository is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	cursor, err := r.collection.Find(ctx,
		bson.M{"role": RoleUser},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}

	var members []Member
	if err := cursor.All(ctx, &members); err != nil {
		return nil, fmt.Errorf("decode recipients: %w", err)
	}

	return members, nil
}
