// Package queue holds the in-memory pending admission queue and the batch
// selection rules operators use to drain it.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"tg_join_gate_bot/internal/domain"
)

// Recorder persists queue entries so the queue can be rebuilt after a
// restart. *domain.MemberRepository satisfies it.
type Recorder interface {
	UpsertPending(ctx context.Context, req domain.PendingRequest) error
}

// PendingQueue is the ordered set of unapproved join requests. The slice is
// the working copy; the member records behind Recorder are the durable
// source of truth.
type PendingQueue struct {
	mu      sync.Mutex
	entries []domain.PendingRequest
	records Recorder
	logger  *logrus.Entry
}

// New constructs an empty queue backed by the given recorder.
func New(records Recorder, logger *logrus.Entry) *PendingQueue {
	return &PendingQueue{
		records: records,
		logger:  logger,
	}
}

// Enqueue persists the request and appends it in arrival order. A request
// from a user already queued for the same chat replaces the earlier entry in
// place, keeping its position. The entry is admitted to the in-memory queue
// even when persistence fails, so admissions keep working in degraded mode;
// the persistence error is returned for the caller to log.
func (q *PendingQueue) Enqueue(ctx context.Context, req domain.PendingRequest) error {
	if q == nil {
		return errors.New("queue is not initialized")
	}
	if req.UserID == 0 {
		return errors.New("user_id is required")
	}

	var persistErr error
	if q.records != nil {
		if err := q.records.UpsertPending(ctx, req); err != nil {
			persistErr = fmt.Errorf("persist pending request: %w", err)
		}
	}

	q.mu.Lock()
	replaced := false
	for i := range q.entries {
		if q.entries[i].SameIdentity(req) {
			q.entries[i] = req
			replaced = true
			break
		}
	}
	if !replaced {
		q.entries = append(q.entries, req)
	}
	size := len(q.entries)
	q.mu.Unlock()

	if q.logger != nil {
		q.logger.WithFields(logrus.Fields{
			"event":      "queue_enqueue",
			"user_id":    req.UserID,
			"chat_id":    req.ChatID,
			"replaced":   replaced,
			"queue_size": size,
		}).Info("join request queued")
	}

	return persistErr
}

// Snapshot returns a copy of the queue in arrival order.
func (q *PendingQueue) Snapshot() []domain.PendingRequest {
	if q == nil {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.PendingRequest, len(q.entries))
	copy(out, q.entries)
	return out
}

// Remove deletes the entry matching the request's identity and reports
// whether it was present. Callers reserve an entry by removing it before
// acting on it; a false return means another path already claimed it.
func (q *PendingQueue) Remove(req domain.PendingRequest) bool {
	if q == nil {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.entries {
		if q.entries[i].SameIdentity(req) {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}

	return false
}

// Len returns the current queue depth.
func (q *PendingQueue) Len() int {
	if q == nil {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Reconcile rebuilds the queue from durable member records at startup.
// Records already present in the queue are skipped, so reconciling twice is
// harmless. A record whose chat id was never captured falls back to
// fallbackChatID; when that is zero the record is skipped with a warning
// rather than guessed at.
func (q *PendingQueue) Reconcile(members []domain.Member, fallbackChatID int64) int {
	if q == nil {
		return 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	queued := make(map[int64]bool, len(q.entries))
	for _, entry := range q.entries {
		queued[entry.UserID] = true
	}

	added := 0
	for _, member := range members {
		if member.Status != domain.StatusPending {
			continue
		}
		if queued[member.UserID] {
			continue
		}

		chatID := member.ChatID
		if chatID == 0 {
			chatID = fallbackChatID
		}
		if chatID == 0 {
			if q.logger != nil {
				q.logger.WithFields(logrus.Fields{
					"event":   "queue_reconcile_skip",
					"user_id": member.UserID,
				}).Warn("pending record has no recoverable chat id")
			}
			continue
		}

		q.entries = append(q.entries, domain.PendingRequest{
			ChatID:      chatID,
			UserID:      member.UserID,
			Username:    member.Username,
			FirstName:   member.FirstName,
			LastName:    member.LastName,
			RequestedAt: member.RequestedAt,
		})
		queued[member.UserID] = true
		added++
	}

	if q.logger != nil && added > 0 {
		q.logger.WithFields(logrus.Fields{
			"event":      "queue_reconciled",
			"added":      added,
			"queue_size": len(q.entries),
		}).Info("pending queue rebuilt from member records")
	}

	return added
}
