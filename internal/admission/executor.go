// Package admission drains selected entries from the pending queue by
// approving join requests and sending welcome messages.
package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tg_join_gate_bot/internal/domain"
	"tg_join_gate_bot/internal/queue"
)

// perEntryTimeout bounds the Telegram calls made for one admission so a
// stalled call cannot block the rest of the batch.
const perEntryTimeout = 15 * time.Second

// Approver approves a join request on the platform.
type Approver interface {
	ApproveJoinRequest(ctx context.Context, chatID, userID int64) error
}

// WelcomeSender delivers the configured welcome message to a user.
type WelcomeSender interface {
	SendWelcome(ctx context.Context, userID int64) error
}

// Marker transitions the durable member record once the approval succeeded.
type Marker interface {
	MarkApproved(ctx context.Context, userID int64, approvedAt time.Time) error
}

// Appender records admission outcomes in the activity log.
type Appender interface {
	Append(ctx context.Context, line string) error
}

// Queue is the slice of pending-queue behavior the executor needs.
type Queue interface {
	Snapshot() []domain.PendingRequest
	Remove(req domain.PendingRequest) bool
	Len() int
}

// Outcome summarizes one batch admission run.
type Outcome struct {
	Accepted  int
	Failed    int
	Remaining int
}

// Executor runs batch admissions against the pending queue.
type Executor struct {
	queue    Queue
	approver Approver
	welcomer WelcomeSender
	marker   Marker
	activity Appender
	logger   *logrus.Entry
	now      func() time.Time
}

// NewExecutor wires an admission executor. The activity appender and logger
// are optional; everything else is required.
func NewExecutor(q Queue, approver Approver, welcomer WelcomeSender, marker Marker, activity Appender, logger *logrus.Entry) (*Executor, error) {
	if q == nil {
		return nil, errors.New("queue is required")
	}
	if approver == nil {
		return nil, errors.New("approver is required")
	}
	if welcomer == nil {
		return nil, errors.New("welcome sender is required")
	}
	if marker == nil {
		return nil, errors.New("member marker is required")
	}

	return &Executor{
		queue:    q,
		approver: approver,
		welcomer: welcomer,
		marker:   marker,
		activity: activity,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Process selects entries per the directive and admits them one at a time.
// Each entry is reserved (removed from the queue) before any platform call
// is made, so a concurrent run cannot act on the same entry. Failures are
// isolated per entry: a failed approval does not stop the batch, and the
// failed member record stays pending so a later reconcile can requeue it.
func (e *Executor) Process(ctx context.Context, directive queue.Directive) (Outcome, error) {
	if e == nil {
		return Outcome{}, errors.New("executor is not initialized")
	}
	if ctx == nil {
		return Outcome{}, errors.New("context is required")
	}

	selected, err := queue.Select(e.queue.Snapshot(), directive)
	if err != nil {
		return Outcome{}, fmt.Errorf("select entries: %w", err)
	}

	var outcome Outcome
	for _, entry := range selected {
		if ctx.Err() != nil {
			break
		}
		if !e.queue.Remove(entry) {
			// Claimed by another run between snapshot and now.
			continue
		}

		if e.admit(ctx, entry) {
			outcome.Accepted++
		} else {
			outcome.Failed++
		}
	}

	outcome.Remaining = e.queue.Len()

	e.logOutcome(directive, outcome)
	e.record(ctx, outcome)

	return outcome, nil
}

// admit approves one entry and sends its welcome message. Approval failure
// fails the entry. Welcome failure after a successful approval still counts
// the entry as failed, but the member record is marked approved so the
// reconciler does not approve the same user twice.
func (e *Executor) admit(ctx context.Context, entry domain.PendingRequest) bool {
	entryCtx, cancel := context.WithTimeout(ctx, perEntryTimeout)
	defer cancel()

	if err := e.approver.ApproveJoinRequest(entryCtx, entry.ChatID, entry.UserID); err != nil {
		e.logEntry(entry, "admission_approve_failed", err)
		e.recordEntry(ctx, entry, fmt.Errorf("approve: %w", err))
		return false
	}

	if err := e.marker.MarkApproved(entryCtx, entry.UserID, e.now().UTC()); err != nil {
		// The platform approval went through; the stale record is the
		// lesser problem and is logged for manual follow-up.
		e.logEntry(entry, "admission_mark_failed", err)
	}

	if err := e.welcomer.SendWelcome(entryCtx, entry.UserID); err != nil {
		e.logEntry(entry, "admission_welcome_failed", err)
		e.recordEntry(ctx, entry, fmt.Errorf("welcome: %w", err))
		return false
	}

	e.logEntry(entry, "admission_accepted", nil)
	e.recordEntry(ctx, entry, nil)
	return true
}

func (e *Executor) logEntry(entry domain.PendingRequest, event string, err error) {
	if e.logger == nil {
		return
	}

	fields := logrus.Fields{
		"event":   event,
		"user_id": entry.UserID,
		"chat_id": entry.ChatID,
	}

	if err != nil {
		e.logger.WithFields(fields).WithError(err).Warn("admission entry failed")
		return
	}

	e.logger.WithFields(fields).Info("member admitted")
}

func (e *Executor) logOutcome(directive queue.Directive, outcome Outcome) {
	if e.logger == nil {
		return
	}

	e.logger.WithFields(logrus.Fields{
		"event":     "admission_batch_done",
		"selection": string(directive.Kind),
		"accepted":  outcome.Accepted,
		"failed":    outcome.Failed,
		"remaining": outcome.Remaining,
	}).Info("admission batch finished")
}

// recordEntry appends one activity line per admission outcome, so the logs
// view shows which users were admitted and which failed with what cause.
func (e *Executor) recordEntry(ctx context.Context, entry domain.PendingRequest, cause error) {
	if e.activity == nil {
		return
	}

	line := fmt.Sprintf("admission accepted - user %d, chat %d", entry.UserID, entry.ChatID)
	if cause != nil {
		line = fmt.Sprintf("admission failed - user %d, chat %d: %v", entry.UserID, entry.ChatID, cause)
	}

	if err := e.activity.Append(ctx, line); err != nil && e.logger != nil {
		e.logger.WithError(err).Warn("failed to record admission activity")
	}
}

func (e *Executor) record(ctx context.Context, outcome Outcome) {
	if e.activity == nil || outcome.Accepted+outcome.Failed == 0 {
		return
	}

	line := fmt.Sprintf("admission - accepted: %d, failed: %d, remaining: %d",
		outcome.Accepted, outcome.Failed, outcome.Remaining)

	if err := e.activity.Append(ctx, line); err != nil && e.logger != nil {
		e.logger.WithError(err).Warn("failed to record admission activity")
	}
}
