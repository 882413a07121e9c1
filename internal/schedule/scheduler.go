// Package schedule periodically pushes the configured announcement payload
// to every known community.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tg_join_gate_bot/internal/domain"
)

// runTimeout bounds one announcement pass.
const runTimeout = 2 * time.Minute

// SettingsReader loads the current bot settings.
type SettingsReader interface {
	Get(ctx context.Context) (domain.Settings, error)
}

// CommunityLister provides the announcement destinations.
type CommunityLister interface {
	List(ctx context.Context) ([]domain.Community, error)
}

// Sender delivers one payload to one chat.
type Sender interface {
	SendPayload(ctx context.Context, chatID int64, payload domain.Payload) error
}

// Announcer sends the configured announcement to every known community.
type Announcer struct {
	settings    SettingsReader
	communities CommunityLister
	sender      Sender
	logger      *logrus.Entry
}

// NewAnnouncer wires an announcer. The logger is optional.
func NewAnnouncer(settings SettingsReader, communities CommunityLister, sender Sender, logger *logrus.Entry) (*Announcer, error) {
	if settings == nil {
		return nil, errors.New("settings reader is required")
	}
	if communities == nil {
		return nil, errors.New("community lister is required")
	}
	if sender == nil {
		return nil, errors.New("sender is required")
	}

	return &Announcer{
		settings:    settings,
		communities: communities,
		sender:      sender,
		logger:      logger,
	}, nil
}

// RunOnce performs one announcement pass. A pass with no configured payload
// is a no-op. Delivery failures are isolated per community.
func (a *Announcer) RunOnce(ctx context.Context) error {
	if a == nil {
		return errors.New("announcer is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	settings, err := a.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.AnnouncePayload.IsZero() {
		return nil
	}

	communities, err := a.communities.List(ctx)
	if err != nil {
		return fmt.Errorf("list communities: %w", err)
	}

	sent, failed := 0, 0
	for _, community := range communities {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := a.sender.SendPayload(ctx, community.ChatID, settings.AnnouncePayload); err != nil {
			failed++
			if a.logger != nil {
				a.logger.WithFields(logrus.Fields{
					"event":   "announce_delivery_failed",
					"chat_id": community.ChatID,
				}).WithError(err).Warn("announcement delivery failed")
			}
			continue
		}
		sent++
	}

	if a.logger != nil && sent+failed > 0 {
		a.logger.WithFields(logrus.Fields{
			"event":  "announce_done",
			"sent":   sent,
			"failed": failed,
		}).Info("announcement pass finished")
	}

	return nil
}

// Scheduler drives the announcer on a fixed interval.
type Scheduler struct {
	cron     *cron.Cron
	announce *Announcer
	logger   *logrus.Entry
}

// NewScheduler builds a scheduler firing every intervalHours hours.
func NewScheduler(announcer *Announcer, intervalHours int, logger *logrus.Entry) (*Scheduler, error) {
	if announcer == nil {
		return nil, errors.New("announcer is required")
	}
	if intervalHours <= 0 {
		return nil, fmt.Errorf("interval must be greater than 0, got %d", intervalHours)
	}

	s := &Scheduler{
		cron:     cron.New(),
		announce: announcer,
		logger:   logger,
	}

	spec := fmt.Sprintf("@every %dh", intervalHours)
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("schedule announcements: %w", err)
	}

	return s, nil
}

// Start begins firing the schedule in its own goroutine.
func (s *Scheduler) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
}

// Stop halts the schedule and waits for a running pass to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return nil
	}

	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if err := s.announce.RunOnce(ctx); err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("scheduled announcement failed")
	}
}
