package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tg_join_gate_bot/internal/broadcast"
	"tg_join_gate_bot/internal/config"
	"tg_join_gate_bot/internal/conversation"
	"tg_join_gate_bot/internal/domain"
	"tg_join_gate_bot/internal/feature/community"
	"tg_join_gate_bot/internal/feature/member"
	"tg_join_gate_bot/internal/feature/owner"
	"tg_join_gate_bot/internal/health"
	"tg_join_gate_bot/internal/logging"
	"tg_join_gate_bot/internal/queue"
	"tg_join_gate_bot/internal/schedule"
	"tg_join_gate_bot/internal/store"
	"tg_join_gate_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	mongoDisconnectTimeout  = 5 * time.Second
	ownerBootstrapTimeout   = 5 * time.Second
	reconcileTimeout        = 10 * time.Second
	settingsReadTimeout     = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	healthShutdownTimeout   = 5 * time.Second
	schedulerStopTimeout    = 5 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(cfg.FormatRedacted())
		return
	}

	logger.WithFields(logging.Fields{
		"event":    "startup",
		"mongo_db": cfg.MongoDB,
	}).Info("configuration loaded")

	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	mongoManager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		logger.WithError(err).Error("mongo connection error")
		fmt.Fprintf(os.Stderr, "mongo connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "mongo_connect").Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	if err := mongoManager.EnsureBaseIndexes(indexCtx); err != nil {
		cancelIndexes()
		logger.WithError(err).Error("mongo index setup error")
		fmt.Fprintf(os.Stderr, "mongo index setup error: %v\n", err)
		os.Exit(1)
	}
	cancelIndexes()

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	ownerRegistrar := owner.NewRegistrar(mongoManager.Members(), logger)
	ownerCtx, cancelOwner := context.WithTimeout(context.Background(), ownerBootstrapTimeout)
	if err := ownerRegistrar.EnsureOwner(ownerCtx, cfg.BotOwnerID); err != nil {
		cancelOwner()
		logger.WithError(err).Error("owner bootstrap error")
		fmt.Fprintf(os.Stderr, "owner bootstrap error: %v\n", err)
		os.Exit(1)
	}
	cancelOwner()

	memberRepository := domain.NewMemberRepository(mongoManager.Members())
	settingsRepository := store.NewSettingsRepository(mongoManager.Settings())
	activityLog := store.NewActivityLog(mongoManager.Activity())
	statsProvider := store.NewStatsProvider(mongoManager.Members(), mongoManager.Communities())
	communityLister := store.NewCommunityLister(mongoManager.Communities())
	contactRegistrar := member.NewRegistrar(mongoManager.Members(), logger)
	communityRegistrar := community.NewRegistrar(mongoManager.Communities(), logger)

	pendingQueue := queue.New(memberRepository, logger)

	reconcileCtx, cancelReconcile := context.WithTimeout(context.Background(), reconcileTimeout)
	pendingMembers, err := memberRepository.ListPending(reconcileCtx)
	cancelReconcile()
	if err != nil {
		// Degraded start: the queue refills as new join requests arrive.
		logger.WithError(err).Warn("pending queue reconcile failed, starting empty")
	} else if added := pendingQueue.Reconcile(pendingMembers, cfg.FallbackChatID); added > 0 {
		logger.WithFields(logging.Fields{
			"event": "reconcile_complete",
			"added": added,
		}).Info("restored pending join requests from member records")
	}

	tgClient, err := telegram.NewClient(cfg, logger,
		telegram.WithQueue(pendingQueue),
		telegram.WithMembers(memberRepository),
		telegram.WithSettings(settingsRepository),
		telegram.WithActivity(activityLog),
		telegram.WithStats(statsProvider),
		telegram.WithContactRegistrar(contactRegistrar),
		telegram.WithCommunityRegistrar(communityRegistrar),
		telegram.WithConversations(conversation.NewManager(logger)),
	)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	broadcaster, err := broadcast.New(memberRepository, tgClient, activityLog, logger)
	if err != nil {
		logger.WithError(err).Error("broadcaster setup error")
		fmt.Fprintf(os.Stderr, "broadcaster setup error: %v\n", err)
		os.Exit(1)
	}
	tgClient.AttachBroadcaster(broadcaster)

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	scheduler, err := buildScheduler(cfg, settingsRepository, communityLister, tgClient, logger)
	if err != nil {
		logger.WithError(err).Error("scheduler setup error")
		fmt.Fprintf(os.Stderr, "scheduler setup error: %v\n", err)
		os.Exit(1)
	}
	scheduler.Start()

	healthServer := health.NewServer(cfg.HTTPPort, mongoManager, pendingQueue, logger)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil {
			logger.WithError(err).Error("health server error")
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	tgDone := make(chan struct{})

	go func() {
		tgClient.Start(telegramCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	schedCtx, cancelSched := context.WithTimeout(context.Background(), schedulerStopTimeout)
	if err := scheduler.Stop(schedCtx); err != nil {
		logger.WithError(err).Warn("scheduler stop error")
	}
	cancelSched()

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(healthCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelHealth()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
	if err := mongoManager.Close(shutdownCtx); err != nil {
		logger.WithError(err).Error("mongo disconnect error")
	} else {
		logger.WithField("event", "mongo_disconnect").Info("mongo client disconnected")
	}
	cancelShutdown()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}

// buildScheduler wires the recurring announcer. An interval committed in the
// stored settings takes precedence over the environment default.
func buildScheduler(
	cfg config.Config,
	settings *store.SettingsRepository,
	communities *store.CommunityLister,
	sender schedule.Sender,
	logger *logrus.Entry,
) (*schedule.Scheduler, error) {
	announcer, err := schedule.NewAnnouncer(settings, communities, sender, logger)
	if err != nil {
		return nil, err
	}

	interval := cfg.AnnounceInterval
	readCtx, cancelRead := context.WithTimeout(context.Background(), settingsReadTimeout)
	stored, err := settings.Get(readCtx)
	cancelRead()
	if err != nil {
		logger.WithError(err).Warn("settings read failed, using default announce interval")
	} else if stored.AnnounceEvery > 0 {
		interval = stored.AnnounceEvery
	}

	return schedule.NewScheduler(announcer, interval, logger)
}
