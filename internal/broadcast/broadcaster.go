// Package broadcast fans an operator-supplied message out to every recorded
// member, isolating per-recipient delivery failures.
package broadcast

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"tg_join_gate_bot/internal/domain"
)

// RecipientLister provides the broadcast audience.
type RecipientLister interface {
	ListRecipients(ctx context.Context) ([]domain.Member, error)
}

// Sender delivers one payload to one chat.
type Sender interface {
	SendPayload(ctx context.Context, chatID int64, payload domain.Payload) error
}

// Appender records the broadcast summary in the activity log.
type Appender interface {
	Append(ctx context.Context, line string) error
}

// Summary reports one broadcast run.
type Summary struct {
	Sent   int
	Failed int
	Total  int
}

// String renders the summary in the operator-facing format.
func (s Summary) String() string {
	return fmt.Sprintf("broadcast - sent: %d, failed: %d, total: %d", s.Sent, s.Failed, s.Total)
}

// Broadcaster delivers payloads to all recorded members.
type Broadcaster struct {
	recipients RecipientLister
	sender     Sender
	activity   Appender
	logger     *logrus.Entry
}

// New wires a broadcaster. The activity appender and logger are optional.
func New(recipients RecipientLister, sender Sender, activity Appender, logger *logrus.Entry) (*Broadcaster, error) {
	if recipients == nil {
		return nil, errors.New("recipient lister is required")
	}
	if sender == nil {
		return nil, errors.New("sender is required")
	}

	return &Broadcaster{
		recipients: recipients,
		sender:     sender,
		activity:   activity,
		logger:     logger,
	}, nil
}

// Deliver sends the payload to every recipient. A failed delivery never
// stops the run; it is counted and logged, and the next recipient is tried.
func (b *Broadcaster) Deliver(ctx context.Context, payload domain.Payload) (Summary, error) {
	if b == nil {
		return Summary{}, errors.New("broadcaster is not initialized")
	}
	if ctx == nil {
		return Summary{}, errors.New("context is required")
	}
	if payload.IsZero() {
		return Summary{}, errors.New("payload is required")
	}

	members, err := b.recipients.ListRecipients(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list recipients: %w", err)
	}

	summary := Summary{Total: len(members)}
	for _, member := range members {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		if err := b.sender.SendPayload(ctx, member.UserID, payload); err != nil {
			summary.Failed++
			if b.logger != nil {
				b.logger.WithFields(logrus.Fields{
					"event":   "broadcast_delivery_failed",
					"user_id": member.UserID,
				}).WithError(err).Warn("broadcast delivery failed")
			}
			continue
		}
		summary.Sent++
	}

	if b.logger != nil {
		b.logger.WithFields(logrus.Fields{
			"event":  "broadcast_done",
			"sent":   summary.Sent,
			"failed": summary.Failed,
			"total":  summary.Total,
		}).Info("broadcast finished")
	}

	if b.activity != nil {
		if err := b.activity.Append(ctx, summary.String()); err != nil && b.logger != nil {
			b.logger.WithError(err).Warn("failed to record broadcast activity")
		}
	}

	return summary, nil
}
