package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type activityCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
}

// ActivityEntry is a single timestamped line in the activity log.
type ActivityEntry struct {
	At   time.Time `bson:"at" json:"at"`
	Line string    `bson:"line" json:"line"`
}

// ActivityLog is the append-only record of notable bot actions: admissions,
// broadcasts, and settings changes.
type ActivityLog struct {
	coll activityCollection
	now  func() time.Time
}

// NewActivityLog constructs an ActivityLog backed by the given collection.
func NewActivityLog(coll activityCollection) *ActivityLog {
	return &ActivityLog{
		coll: coll,
		now:  time.Now,
	}
}

// Append records one activity line with the current timestamp. Appends are
// best-effort from the caller's perspective; a failed append must never block
// the action it describes.
func (l *ActivityLog) Append(ctx context.Context, line string) error {
	if l == nil || l.coll == nil {
		return errors.New("activity log is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return errors.New("activity line is required")
	}

	entry := ActivityEntry{
		At:   l.now().UTC(),
		Line: line,
	}

	if _, err := l.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}

	return nil
}

// LastN returns the most recent n entries, oldest first.
func (l *ActivityLog) LastN(ctx context.Context, n int) ([]ActivityEntry, error) {
	if l == nil || l.coll == nil {
		return nil, errors.New("activity log is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if n <= 0 {
		return nil, errors.New("entry count must be greater than 0")
	}

	cursor, err := l.coll.Find(
		ctx,
		bson.D{},
		options.Find().
			SetSort(bson.D{{Key: "at", Value: -1}}).
			SetLimit(int64(n)),
	)
	if err != nil {
		return nil, fmt.Errorf("find activity: %w", err)
	}

	var entries []ActivityEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode activity: %w", err)
	}

	// Reverse the newest-first query order so callers render chronologically.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Render formats entries as display lines, one per entry.
func Render(entries []ActivityEntry) string {
	if len(entries) == 0 {
		return "no activity recorded yet"
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("[%s] %s", entry.At.Format(time.RFC3339), entry.Line))
	}

	return strings.Join(lines, "\n")
}
