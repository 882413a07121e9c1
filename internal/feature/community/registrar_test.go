package community

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestEnsureCommunityCreatesNewRecord(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	coll := newFakeCommunityCollection(t)
	registrar := NewRegistrar(coll, logrus.NewEntry(hookLogger))

	created, err := registrar.EnsureCommunity(context.Background(), Sighting{
		ChatID: -1001,
		Title:  "Builders",
		Type:   "supergroup",
	})
	if err != nil {
		t.Fatalf("EnsureCommunity returned error: %v", err)
	}
	if !created {
		t.Fatalf("expected created to be true for new community")
	}

	doc := coll.docFor(t, -1001)
	assertFieldEquals(t, doc, "chat_id", int64(-1001))
	assertFieldEquals(t, doc, "title", "Builders")
	assertFieldEquals(t, doc, "type", "supergroup")
	assertTimeField(t, doc, "added_at")
	assertTimeField(t, doc, "last_seen_at")
}

func TestEnsureCommunityRefreshesMetadata(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	coll := newFakeCommunityCollection(t)

	addedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	coll.seed(t, bson.M{
		"chat_id":      int64(-1001),
		"title":        "Old Name",
		"added_at":     addedAt,
		"last_seen_at": addedAt,
	})

	registrar := NewRegistrar(coll, logrus.NewEntry(hookLogger))

	created, err := registrar.EnsureCommunity(context.Background(), Sighting{ChatID: -1001, Title: "New Name"})
	if err != nil {
		t.Fatalf("EnsureCommunity returned error: %v", err)
	}
	if created {
		t.Fatalf("expected created=false for known community")
	}

	doc := coll.docFor(t, -1001)
	assertFieldEquals(t, doc, "title", "New Name")
	assertFieldEquals(t, doc, "added_at", addedAt)

	lastSeen := assertTimeField(t, doc, "last_seen_at")
	if !lastSeen.After(addedAt) {
		t.Fatalf("expected last_seen_at to advance beyond %v, got %v", addedAt, lastSeen)
	}
}

func TestEnsureCommunityKeepsTitleWhenBlank(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	coll := newFakeCommunityCollection(t)

	coll.seed(t, bson.M{
		"chat_id": int64(-1002),
		"title":   "Keep Me",
	})

	registrar := NewRegistrar(coll, logrus.NewEntry(hookLogger))

	if _, err := registrar.EnsureCommunity(context.Background(), Sighting{ChatID: -1002}); err != nil {
		t.Fatalf("EnsureCommunity returned error: %v", err)
	}

	assertFieldEquals(t, coll.docFor(t, -1002), "title", "Keep Me")
}

func TestEnsureCommunityValidatesInputs(t *testing.T) {
	hookLogger, _ := logtest.NewNullLogger()
	registrar := NewRegistrar(newFakeCommunityCollection(t), logrus.NewEntry(hookLogger))

	if _, err := registrar.EnsureCommunity(context.Background(), Sighting{}); err == nil {
		t.Fatalf("expected error for missing chat id")
	}
	if _, err := registrar.EnsureCommunity(nil, Sighting{ChatID: -1001}); err == nil {
		t.Fatalf("expected error for nil context")
	}
}

type fakeCommunityCollection struct {
	t    *testing.T
	docs map[int64]bson.M
}

func newFakeCommunityCollection(t *testing.T) *fakeCommunityCollection {
	t.Helper()
	return &fakeCommunityCollection{
		t:    t,
		docs: make(map[int64]bson.M),
	}
}

func (f *fakeCommunityCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	filterDoc, ok := filter.(bson.M)
	if !ok {
		f.t.Fatalf("unexpected filter type %T", filter)
	}

	chatID := readInt64(f.t, filterDoc["chat_id"])

	updateDoc, ok := update.(bson.M)
	if !ok {
		f.t.Fatalf("unexpected update type %T", update)
	}

	setDoc, _ := updateDoc["$set"].(bson.M)
	setOnInsertDoc, _ := updateDoc["$setOnInsert"].(bson.M)

	upsert := len(opts) > 0 && opts[0] != nil && opts[0].Upsert != nil && *opts[0].Upsert

	doc, found := f.docs[chatID]
	if !found && !upsert {
		return &mongo.UpdateResult{}, nil
	}
	if !found {
		doc = bson.M{}
		merge(doc, setOnInsertDoc)
	}

	merge(doc, setDoc)
	f.docs[chatID] = doc

	result := &mongo.UpdateResult{
		MatchedCount:  1,
		ModifiedCount: 1,
	}

	if !found && upsert {
		result.MatchedCount = 0
		result.UpsertedCount = 1
		result.UpsertedID = chatID
	}

	return result, nil
}

func (f *fakeCommunityCollection) docFor(t *testing.T, chatID int64) bson.M {
	t.Helper()

	doc, ok := f.docs[chatID]
	if !ok {
		t.Fatalf("no document stored for chat_id=%d", chatID)
	}

	return doc
}

func (f *fakeCommunityCollection) seed(t *testing.T, doc bson.M) {
	t.Helper()
	idVal, ok := doc["chat_id"]
	if !ok {
		t.Fatalf("seed document missing chat_id: %v", doc)
	}

	f.docs[readInt64(t, idVal)] = doc
}

func merge(dst bson.M, updates bson.M) {
	for k, v := range updates {
		dst[k] = v
	}
}

func readInt64(t *testing.T, value interface{}) int64 {
	t.Helper()

	switch v := value.(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	default:
		t.Fatalf("expected int64-compatible value, got %T", value)
		return 0
	}
}

func assertFieldEquals(t *testing.T, doc bson.M, field string, expected interface{}) {
	t.Helper()

	val, ok := doc[field]
	if !ok {
		t.Fatalf("expected field %s to be set", field)
	}

	if val != expected {
		t.Fatalf("expected %s=%v, got %v", field, expected, val)
	}
}

func assertTimeField(t *testing.T, doc bson.M, field string) time.Time {
	t.Helper()

	val, ok := doc[field]
	if !ok {
		t.Fatalf("expected field %s to be set", field)
	}

	ts, ok := val.(time.Time)
	if !ok {
		t.Fatalf("expected field %s to be time.Time, got %T", field, val)
	}

	if ts.IsZero() {
		t.Fatalf("expected field %s to be non-zero", field)
	}

	return ts
}
