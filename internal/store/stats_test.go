package store

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_join_gate_bot/internal/domain"
)

func TestStatsProviderCountsMembersAndCommunities(t *testing.T) {
	members := &stubCountCollection{count: 12}
	communities := &stubCountCollection{count: 5}

	provider := NewStatsProvider(members, communities)

	ctx := context.Background()

	memberCount, err := provider.CountMembers(ctx)
	if err != nil {
		t.Fatalf("expected member count to succeed, got error: %v", err)
	}
	if memberCount != 12 {
		t.Fatalf("expected 12 members, got %d", memberCount)
	}
	if members.calls != 1 {
		t.Fatalf("expected member count to be called once, got %d", members.calls)
	}

	communityCount, err := provider.CountCommunities(ctx)
	if err != nil {
		t.Fatalf("expected community count to succeed, got error: %v", err)
	}
	if communityCount != 5 {
		t.Fatalf("expected 5 communities, got %d", communityCount)
	}
	if communities.calls != 1 {
		t.Fatalf("expected community count to be called once, got %d", communities.calls)
	}
}

func TestStatsProviderCountsPendingWithStatusFilter(t *testing.T) {
	members := &stubCountCollection{count: 3}
	provider := NewStatsProvider(members, &stubCountCollection{})

	count, err := provider.CountPending(context.Background())
	if err != nil {
		t.Fatalf("expected pending count to succeed, got error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 pending members, got %d", count)
	}

	filter, ok := members.lastFilter.(bson.D)
	if !ok {
		t.Fatalf("expected bson.D filter, got %T", members.lastFilter)
	}
	if len(filter) != 1 || filter[0].Key != "status" || filter[0].Value != domain.StatusPending {
		t.Fatalf("expected status=pending filter, got %v", filter)
	}
}

func TestStatsProviderRequiresContext(t *testing.T) {
	provider := NewStatsProvider(&stubCountCollection{}, &stubCountCollection{})

	if _, err := provider.CountMembers(nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if _, err := provider.CountPending(nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
	if _, err := provider.CountCommunities(nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
}

func TestStatsProviderRequiresInitialization(t *testing.T) {
	var provider *StatsProvider

	if _, err := provider.CountMembers(context.Background()); err == nil {
		t.Fatalf("expected error for nil provider")
	}
	if _, err := provider.CountCommunities(context.Background()); err == nil {
		t.Fatalf("expected error for nil provider")
	}
}

func TestStatsProviderPropagatesErrors(t *testing.T) {
	expectedErr := errors.New("count failed")
	provider := NewStatsProvider(
		&stubCountCollection{err: expectedErr},
		&stubCountCollection{err: expectedErr},
	)

	if _, err := provider.CountMembers(context.Background()); err == nil {
		t.Fatalf("expected error from member count")
	}
	if _, err := provider.CountCommunities(context.Background()); err == nil {
		t.Fatalf("expected error from community count")
	}
}

type stubCountCollection struct {
	count      int64
	err        error
	calls      int
	lastFilter interface{}
}

func (s *stubCountCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	s.calls++
	s.lastFilter = filter
	return s.count, s.err
}
