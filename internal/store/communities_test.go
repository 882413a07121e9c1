package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_join_gate_bot/internal/domain"
)

func TestCommunityListerReturnsKnownCommunities(t *testing.T) {
	first := domain.Community{ChatID: -1001, Title: "alpha", AddedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	second := domain.Community{ChatID: -1002, Title: "beta", AddedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}

	coll := &stubCommunityCollection{found: []interface{}{first, second}}
	lister := NewCommunityLister(coll)

	communities, err := lister.List(context.Background())
	if err != nil {
		t.Fatalf("expected communities, got error: %v", err)
	}

	if len(communities) != 2 {
		t.Fatalf("expected 2 communities, got %d", len(communities))
	}
	if communities[0].ChatID != first.ChatID || communities[1].ChatID != second.ChatID {
		t.Fatalf("expected ordered communities, got %v", communities)
	}
}

func TestCommunityListerPropagatesErrors(t *testing.T) {
	coll := &stubCommunityCollection{findErr: errors.New("find failed")}
	lister := NewCommunityLister(coll)

	if _, err := lister.List(context.Background()); err == nil {
		t.Fatalf("expected find error")
	}
}

func TestCommunityListerValidatesInputs(t *testing.T) {
	var lister *CommunityLister
	if _, err := lister.List(context.Background()); err == nil {
		t.Fatalf("expected error for nil lister")
	}

	lister = NewCommunityLister(&stubCommunityCollection{})
	if _, err := lister.List(nil); err == nil {
		t.Fatalf("expected error for nil context")
	}
}

type stubCommunityCollection struct {
	found   []interface{}
	findErr error
}

func (s *stubCommunityCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	docs := s.found
	if docs == nil {
		docs = []interface{}{}
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}
