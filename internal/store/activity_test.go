package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestActivityAppendStampsTimestamp(t *testing.T) {
	coll := &stubActivityCollection{}
	log := NewActivityLog(coll)

	fixed := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	log.now = func() time.Time { return fixed }

	if err := log.Append(context.Background(), "accepted user 42"); err != nil {
		t.Fatalf("expected append to succeed, got error: %v", err)
	}

	if len(coll.inserted) != 1 {
		t.Fatalf("expected 1 inserted entry, got %d", len(coll.inserted))
	}

	entry, ok := coll.inserted[0].(ActivityEntry)
	if !ok {
		t.Fatalf("expected ActivityEntry, got %T", coll.inserted[0])
	}
	if !entry.At.Equal(fixed) {
		t.Fatalf("expected timestamp %v, got %v", fixed, entry.At)
	}
	if entry.Line != "accepted user 42" {
		t.Fatalf("expected line to be stored, got %q", entry.Line)
	}
}

func TestActivityAppendRejectsEmptyLine(t *testing.T) {
	log := NewActivityLog(&stubActivityCollection{})

	if err := log.Append(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank line")
	}
}

func TestActivityLastNReturnsChronologicalOrder(t *testing.T) {
	newest := ActivityEntry{At: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), Line: "third"}
	middle := ActivityEntry{At: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Line: "second"}
	oldest := ActivityEntry{At: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Line: "first"}

	// The collection returns entries newest-first, matching the query sort.
	coll := &stubActivityCollection{found: []interface{}{newest, middle, oldest}}
	log := NewActivityLog(coll)

	entries, err := log.LastN(context.Background(), 10)
	if err != nil {
		t.Fatalf("expected entries, got error: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Line != "first" || entries[2].Line != "third" {
		t.Fatalf("expected chronological order, got %v", entries)
	}

	if coll.lastFindOpts == nil || coll.lastFindOpts.Limit == nil || *coll.lastFindOpts.Limit != 10 {
		t.Fatalf("expected limit of 10, got %+v", coll.lastFindOpts)
	}
}

func TestActivityLastNValidatesCount(t *testing.T) {
	log := NewActivityLog(&stubActivityCollection{})

	if _, err := log.LastN(context.Background(), 0); err == nil {
		t.Fatalf("expected error for non-positive count")
	}
}

func TestRenderFormatsEntries(t *testing.T) {
	entries := []ActivityEntry{
		{At: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), Line: "accepted user 1"},
		{At: time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC), Line: "broadcast - sent: 3, failed: 0, total: 3"},
	}

	rendered := Render(entries)
	lines := strings.Split(rendered, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "[2024-03-01T10:00:00Z]") {
		t.Fatalf("expected timestamp prefix, got %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "total: 3") {
		t.Fatalf("expected line content, got %q", lines[1])
	}
}

func TestRenderHandlesEmptyLog(t *testing.T) {
	if got := Render(nil); got != "no activity recorded yet" {
		t.Fatalf("expected empty-log message, got %q", got)
	}
}

type stubActivityCollection struct {
	inserted     []interface{}
	insertErr    error
	found        []interface{}
	findErr      error
	lastFindOpts *options.FindOptions
}

func (s *stubActivityCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.inserted = append(s.inserted, document)
	return &mongo.InsertOneResult{}, nil
}

func (s *stubActivityCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if len(opts) > 0 {
		s.lastFindOpts = opts[0]
	}
	docs := s.found
	if docs == nil {
		docs = []interface{}{}
	}
	return mongo.NewCursorFromDocuments(docs, nil, nil)
}
