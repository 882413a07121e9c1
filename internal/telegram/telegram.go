// Package telegram hosts the Telegram client, routing, and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"tg_join_gate_bot/internal/admission"
	"tg_join_gate_bot/internal/broadcast"
	"tg_join_gate_bot/internal/config"
	"tg_join_gate_bot/internal/conversation"
	"tg_join_gate_bot/internal/domain"
	"tg_join_gate_bot/internal/feature/community"
	"tg_join_gate_bot/internal/feature/member"
	"tg_join_gate_bot/internal/logging"
	"tg_join_gate_bot/internal/queue"
	"tg_join_gate_bot/internal/store"
)

// botAPI is the slice of *bot.Bot behavior the client uses, extracted so
// handler tests can run against a fake without network access.
type botAPI interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*models.Message, error)
	SendVoice(ctx context.Context, params *bot.SendVoiceParams) (*models.Message, error)
	SendAudio(ctx context.Context, params *bot.SendAudioParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	SendVideoNote(ctx context.Context, params *bot.SendVideoNoteParams) (*models.Message, error)
	SendSticker(ctx context.Context, params *bot.SendStickerParams) (*models.Message, error)
	SendAnimation(ctx context.Context, params *bot.SendAnimationParams) (*models.Message, error)
	ApproveChatJoinRequest(ctx context.Context, params *bot.ApproveChatJoinRequestParams) (bool, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	GetChat(ctx context.Context, params *bot.GetChatParams) (*models.ChatFullInfo, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*models.ChatMember, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"callback_query",
		"chat_join_request",
		"my_chat_member",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Client wraps the Telegram bot instance and the collaborators behind the
// operator surface.
type Client struct {
	api    botAPI
	logger *logrus.Entry

	ownerID       int64
	queue         *queue.PendingQueue
	members       *domain.MemberRepository
	settings      *store.SettingsRepository
	activity      *store.ActivityLog
	stats         *store.StatsProvider
	contacts      *member.Registrar
	communities   *community.Registrar
	conversations *conversation.Manager
	broadcaster   *broadcast.Broadcaster
	executor      *admission.Executor
}

// Option customizes the client's collaborators.
type Option func(*Client)

// WithQueue attaches the pending admission queue.
func WithQueue(q *queue.PendingQueue) Option {
	return func(c *Client) { c.queue = q }
}

// WithMembers attaches the member repository.
func WithMembers(members *domain.MemberRepository) Option {
	return func(c *Client) { c.members = members }
}

// WithSettings attaches the settings repository.
func WithSettings(settings *store.SettingsRepository) Option {
	return func(c *Client) { c.settings = settings }
}

// WithActivity attaches the activity log.
func WithActivity(activity *store.ActivityLog) Option {
	return func(c *Client) { c.activity = activity }
}

// WithStats attaches the stats provider backing the panel's stats view.
func WithStats(stats *store.StatsProvider) Option {
	return func(c *Client) { c.stats = stats }
}

// WithContactRegistrar attaches the direct-contact registrar.
func WithContactRegistrar(contacts *member.Registrar) Option {
	return func(c *Client) { c.contacts = contacts }
}

// WithCommunityRegistrar attaches the community registrar.
func WithCommunityRegistrar(communities *community.Registrar) Option {
	return func(c *Client) { c.communities = communities }
}

// WithConversations attaches the per-operator conversation manager.
func WithConversations(conversations *conversation.Manager) Option {
	return func(c *Client) { c.conversations = conversations }
}

// WithBroadcaster attaches the member broadcaster.
func WithBroadcaster(broadcaster *broadcast.Broadcaster) Option {
	return func(c *Client) { c.broadcaster = broadcaster }
}

// AttachBroadcaster wires the broadcaster after construction. The broadcaster
// sends through the client itself, so it cannot exist before the client does.
func (c *Client) AttachBroadcaster(broadcaster *broadcast.Broadcaster) {
	c.broadcaster = broadcaster
}

// NewClient initializes the Telegram bot with long polling, routing all
// updates through the client's handlers.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{
		logger:  logger,
		ownerID: cfg.BotOwnerID,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.queue == nil {
		return nil, errors.New("pending queue is required")
	}
	if client.members == nil {
		return nil, errors.New("member repository is required")
	}
	if client.settings == nil {
		return nil, errors.New("settings repository is required")
	}
	if client.conversations == nil {
		return nil, errors.New("conversation manager is required")
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}
	client.api = tgBot

	executor, err := admission.NewExecutor(client.queue, client, client, client.members, client.activity, logger)
	if err != nil {
		return nil, fmt.Errorf("init admission executor: %w", err)
	}
	client.executor = executor

	if err := client.registerFlows(); err != nil {
		return nil, fmt.Errorf("register conversation flows: %w", err)
	}

	return client, nil
}

// Start begins receiving updates via long polling until the context is
// canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.api.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

// handleUpdate is the single routing point for every inbound update.
func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}

	switch {
	case update.ChatJoinRequest != nil:
		c.handleJoinRequest(ctx, update.ChatJoinRequest)
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	case update.MyChatMember != nil:
		c.handleMembershipChange(ctx, update.MyChatMember)
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	default:
		c.logger.WithField("event", "telegram_update_ignored").Debug("unhandled update type")
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}
