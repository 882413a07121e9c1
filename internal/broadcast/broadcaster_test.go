package broadcast

import (
	"context"
	"errors"
	"testing"

	"tg_join_gate_bot/internal/domain"
)

func TestDeliverReachesEveryRecipient(t *testing.T) {
	recipients := &stubRecipients{members: members(1, 2, 3)}
	sender := &stubSender{}
	activity := &stubAppender{}

	b, err := New(recipients, sender, activity, nil)
	if err != nil {
		t.Fatalf("new broadcaster: %v", err)
	}

	summary, err := b.Deliver(context.Background(), domain.Payload{Kind: domain.PayloadText, Text: "announcement"})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if summary.Sent != 3 || summary.Failed != 0 || summary.Total != 3 {
		t.Fatalf("expected full delivery, got %+v", summary)
	}
	if len(sender.sent) != 3 {
		t.Fatalf("expected 3 sends, got %d", len(sender.sent))
	}
	if len(activity.lines) != 1 || activity.lines[0] != "broadcast - sent: 3, failed: 0, total: 3" {
		t.Fatalf("expected summary activity line, got %v", activity.lines)
	}
}

func TestDeliverIsolatesRecipientFailures(t *testing.T) {
	recipients := &stubRecipients{members: members(1, 2, 3, 4)}
	sender := &stubSender{errs: map[int64]error{2: errors.New("blocked")}}

	b, err := New(recipients, sender, nil, nil)
	if err != nil {
		t.Fatalf("new broadcaster: %v", err)
	}

	summary, err := b.Deliver(context.Background(), domain.Payload{Kind: domain.PayloadPhoto, FileID: "f1"})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if summary.Sent != 3 || summary.Failed != 1 || summary.Total != 4 {
		t.Fatalf("expected one isolated failure, got %+v", summary)
	}

	// Recipients after the failed one are still attempted.
	if len(sender.sent) != 3 || sender.sent[2] != 4 {
		t.Fatalf("expected delivery to continue past the failure, got %v", sender.sent)
	}
}

func TestDeliverRejectsEmptyPayload(t *testing.T) {
	b, err := New(&stubRecipients{}, &stubSender{}, nil, nil)
	if err != nil {
		t.Fatalf("new broadcaster: %v", err)
	}

	if _, err := b.Deliver(context.Background(), domain.Payload{}); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestDeliverPropagatesRecipientListErrors(t *testing.T) {
	b, err := New(&stubRecipients{err: errors.New("find failed")}, &stubSender{}, nil, nil)
	if err != nil {
		t.Fatalf("new broadcaster: %v", err)
	}

	if _, err := b.Deliver(context.Background(), domain.Payload{Kind: domain.PayloadText, Text: "x"}); err == nil {
		t.Fatalf("expected recipient list error")
	}
}

func TestDeliverStopsOnCancelledContext(t *testing.T) {
	recipients := &stubRecipients{members: members(1, 2, 3)}
	ctx, cancel := context.WithCancel(context.Background())

	sender := &stubSender{}
	sender.afterSend = func() {
		if len(sender.sent) == 1 {
			cancel()
		}
	}

	b, err := New(recipients, sender, nil, nil)
	if err != nil {
		t.Fatalf("new broadcaster: %v", err)
	}

	summary, err := b.Deliver(ctx, domain.Payload{Kind: domain.PayloadText, Text: "x"})
	if err == nil {
		t.Fatalf("expected context error")
	}
	if summary.Sent != 1 {
		t.Fatalf("expected delivery to stop after cancellation, got %+v", summary)
	}
}

func TestNewValidatesDependencies(t *testing.T) {
	if _, err := New(nil, &stubSender{}, nil, nil); err == nil {
		t.Fatalf("expected error for missing recipients")
	}
	if _, err := New(&stubRecipients{}, nil, nil, nil); err == nil {
		t.Fatalf("expected error for missing sender")
	}
}

func members(userIDs ...int64) []domain.Member {
	out := make([]domain.Member, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, domain.Member{UserID: id, Role: domain.RoleUser, Status: domain.StatusApproved})
	}
	return out
}

type stubRecipients struct {
	members []domain.Member
	err     error
}

func (s *stubRecipients) ListRecipients(ctx context.Context) ([]domain.Member, error) {
	return s.members, s.err
}

type stubAppender struct {
	lines []string
}

func (s *stubAppender) Append(ctx context.Context, line string) error {
	s.lines = append(s.lines, line)
	return nil
}

type stubSender struct {
	sent      []int64
	errs      map[int64]error
	afterSend func()
}

func (s *stubSender) SendPayload(ctx context.Context, chatID int64, payload domain.Payload) error {
	defer func() {
		if s.afterSend != nil {
			s.afterSend()
		}
	}()

	if err := s.errs[chatID]; err != nil {
		return err
	}
	s.sent = append(s.sent, chatID)
	return nil
}
