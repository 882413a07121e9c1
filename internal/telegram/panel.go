package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"tg_join_gate_bot/internal/conversation"
	"tg_join_gate_bot/internal/logging"
	"tg_join_gate_bot/internal/store"
)

// Callback data for the admin panel buttons.
const (
	cbWelcomeText  = "panel:welcome_text"
	cbWelcomeImage = "panel:welcome_image"
	cbSignupURL    = "panel:signup_url"
	cbJoinURL      = "panel:join_url"
	cbAdminGroup   = "panel:admin_group"
	cbBroadcast    = "panel:broadcast"
	cbAnnounce     = "panel:announce"
	cbAddCommunity = "panel:add_community"
	cbViewLogs     = "panel:view_logs"
	cbViewStats    = "panel:view_stats"
	cbPending      = "panel:pending"
)

// Scopes for the shared URL-field flow.
const (
	scopeSignupURL = "signup_url"
	scopeJoinURL   = "join_group_url"
)

// scopeAnnounce marks the broadcast-shaped flow that saves the payload for
// the scheduler instead of delivering it immediately.
const scopeAnnounce = "announce"

// activityViewLimit is how many log lines the panel shows.
const activityViewLimit = 10

// sendPanel shows the operator control panel.
func (c *Client) sendPanel(ctx context.Context, chatID int64) {
	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "Welcome text", CallbackData: cbWelcomeText},
				{Text: "Welcome image", CallbackData: cbWelcomeImage},
			},
			{
				{Text: "Signup link", CallbackData: cbSignupURL},
				{Text: "Group link", CallbackData: cbJoinURL},
			},
			{
				{Text: "Admin group", CallbackData: cbAdminGroup},
				{Text: "Add community", CallbackData: cbAddCommunity},
			},
			{
				{Text: "Broadcast", CallbackData: cbBroadcast},
				{Text: "Announcement", CallbackData: cbAnnounce},
			},
			{
				{Text: "Pending", CallbackData: cbPending},
				{Text: "Logs", CallbackData: cbViewLogs},
				{Text: "Stats", CallbackData: cbViewStats},
			},
		},
	}

	if _, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        "Admin panel: choose an action.",
		ReplyMarkup: keyboard,
	}); err != nil {
		c.logger.WithField("event", "panel_send_failed").WithError(err).Warn("failed to send admin panel")
	}
}

// handleCallback dispatches a panel button press.
func (c *Client) handleCallback(ctx context.Context, query *models.CallbackQuery) {
	if query == nil {
		return
	}

	// Always acknowledge so the client stops its spinner.
	if _, err := c.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: query.ID,
	}); err != nil {
		c.logger.WithField("event", "callback_ack_failed").WithError(err).Debug("failed to answer callback")
	}

	operatorID := query.From.ID
	if !c.isOperator(ctx, operatorID) {
		return
	}

	chatID := messageChatID(query.Message)
	if chatID == 0 {
		chatID = operatorID
	}

	switch query.Data {
	case cbWelcomeText:
		c.beginFlow(ctx, operatorID, chatID, conversation.State{Flow: conversation.FlowWelcomeText},
			"Send the new welcome text.")
	case cbWelcomeImage:
		c.beginFlow(ctx, operatorID, chatID, conversation.State{Flow: conversation.FlowWelcomeImage},
			"Send the new welcome image as a photo.")
	case cbSignupURL:
		c.beginFlow(ctx, operatorID, chatID, conversation.State{Flow: conversation.FlowURLField, Scope: scopeSignupURL},
			"Send the new signup link (https://…).")
	case cbJoinURL:
		c.beginFlow(ctx, operatorID, chatID, conversation.State{Flow: conversation.FlowURLField, Scope: scopeJoinURL},
			"Send the new group link (https://…).")
	case cbAdminGroup:
		c.beginFlow(ctx, operatorID, chatID, conversation.State{Flow: conversation.FlowAdminGroup},
			"Send the admin group chat id (use /id in the group).")
	case cbBroadcast:
		c.beginFlow(ctx, operatorID, chatID, conversation.State{Flow: conversation.FlowBroadcast},
			"Send the broadcast message (text or media). It goes to every member.")
	case cbAnnounce:
		c.beginFlow(ctx, operatorID, chatID, conversation.State{Flow: conversation.FlowBroadcast, Scope: scopeAnnounce},
			"Send the recurring announcement message (text or media).")
	case cbAddCommunity:
		c.beginFlow(ctx, operatorID, chatID, conversation.State{Flow: conversation.FlowCommunityRef},
			"Send the community's @username or chat id.")
	case cbViewLogs:
		c.sendActivityView(ctx, chatID)
	case cbViewStats:
		c.sendStatsView(ctx, chatID)
	case cbPending:
		c.sendText(ctx, chatID, c.renderPending())
	default:
		c.logger.WithFields(logging.Fields{
			"event": "callback_unknown",
			"data":  query.Data,
		}).Debug("unknown panel callback")
	}
}

func (c *Client) beginFlow(ctx context.Context, operatorID, chatID int64, state conversation.State, prompt string) {
	if err := c.conversations.Begin(operatorID, state); err != nil {
		c.logger.WithField("event", "flow_begin_failed").WithError(err).Warn("failed to start conversation flow")
		return
	}

	c.sendText(ctx, chatID, prompt+"\nSend /cancel to abort.")
}

func (c *Client) sendActivityView(ctx context.Context, chatID int64) {
	if c.activity == nil {
		c.sendText(ctx, chatID, "Activity log is not available.")
		return
	}

	entries, err := c.activity.LastN(ctx, activityViewLimit)
	if err != nil {
		c.sendText(ctx, chatID, fmt.Sprintf("Failed to load activity: %v", err))
		return
	}

	c.sendText(ctx, chatID, store.Render(entries))
}

func (c *Client) sendStatsView(ctx context.Context, chatID int64) {
	if c.stats == nil {
		c.sendText(ctx, chatID, "Stats are not available.")
		return
	}

	members, err := c.stats.CountMembers(ctx)
	if err != nil {
		c.sendText(ctx, chatID, fmt.Sprintf("Failed to load stats: %v", err))
		return
	}
	pending, err := c.stats.CountPending(ctx)
	if err != nil {
		c.sendText(ctx, chatID, fmt.Sprintf("Failed to load stats: %v", err))
		return
	}
	communities, err := c.stats.CountCommunities(ctx)
	if err != nil {
		c.sendText(ctx, chatID, fmt.Sprintf("Failed to load stats: %v", err))
		return
	}

	c.sendText(ctx, chatID, fmt.Sprintf(
		"Members: %d\nPending: %d (queued now: %d)\nCommunities: %d",
		members, pending, c.queue.Len(), communities))
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return msg.Message.Chat.ID
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return msg.InaccessibleMessage.Chat.ID
	default:
		return 0
	}
}
