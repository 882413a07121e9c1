package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"tg_join_gate_bot/internal/domain"
	"tg_join_gate_bot/internal/feature/community"
	"tg_join_gate_bot/internal/feature/member"
	"tg_join_gate_bot/internal/logging"
	"tg_join_gate_bot/internal/queue"
)

// pendingListLimit caps the entries rendered by the /pending command.
const pendingListLimit = 10

// handleJoinRequest queues an inbound join request and records the
// community it targets.
func (c *Client) handleJoinRequest(ctx context.Context, jr *models.ChatJoinRequest) {
	if jr == nil {
		return
	}

	req := domain.PendingRequest{
		ChatID:      jr.Chat.ID,
		UserID:      jr.From.ID,
		Username:    jr.From.Username,
		FirstName:   jr.From.FirstName,
		LastName:    jr.From.LastName,
		RequestedAt: time.Unix(int64(jr.Date), 0).UTC(),
	}

	if err := c.queue.Enqueue(ctx, req); err != nil {
		// The entry is still queued in memory; only durability degraded.
		c.logger.WithFields(logging.Fields{
			"event":   "join_request_persist_degraded",
			"user_id": req.UserID,
			"chat_id": req.ChatID,
		}).WithError(err).Warn("join request accepted without durable record")
	}

	c.recordSighting(ctx, community.Sighting{
		ChatID:   jr.Chat.ID,
		Title:    jr.Chat.Title,
		Type:     string(jr.Chat.Type),
		Username: jr.Chat.Username,
	})
}

// handleMembershipChange tracks chats the bot itself is added to.
func (c *Client) handleMembershipChange(ctx context.Context, upd *models.ChatMemberUpdated) {
	if upd == nil || upd.Chat.Type == "private" {
		return
	}

	c.recordSighting(ctx, community.Sighting{
		ChatID:   upd.Chat.ID,
		Title:    upd.Chat.Title,
		Type:     string(upd.Chat.Type),
		Username: upd.Chat.Username,
	})
}

func (c *Client) recordSighting(ctx context.Context, sighting community.Sighting) {
	if c.communities == nil {
		return
	}

	if _, err := c.communities.EnsureCommunity(ctx, sighting); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "community_record_degraded",
			"chat_id": sighting.ChatID,
		}).WithError(err).Warn("failed to record community")
	}
}

// handleMessage routes private commands, conversation inputs, and group
// sightings.
func (c *Client) handleMessage(ctx context.Context, msg *models.Message) {
	if msg == nil || msg.From == nil {
		return
	}

	if msg.Chat.Type != models.ChatTypePrivate {
		c.recordSighting(ctx, community.Sighting{
			ChatID:   msg.Chat.ID,
			Title:    msg.Chat.Title,
			Type:     string(msg.Chat.Type),
			Username: msg.Chat.Username,
		})
		if command(msg.Text) == "/id" {
			c.handleGroupID(ctx, msg)
		}
		return
	}

	if cmd := command(msg.Text); cmd != "" {
		c.handleCommand(ctx, msg, cmd)
		return
	}

	// Not a command: offer it to the sender's active conversation flow.
	handled, _, err := c.conversations.Consume(ctx, msg.From.ID, payloadFromMessage(msg))
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "conversation_error",
			"user_id": msg.From.ID,
		}).WithError(err).Warn("conversation input failed")
		c.sendText(ctx, msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	if !handled {
		c.logger.WithFields(logging.Fields{
			"event":   "message_ignored",
			"user_id": msg.From.ID,
		}).Debug("message outside any flow")
	}
}

// command extracts the leading bot command from a message text, stripping
// any @botname suffix. Returns "" for non-command text.
func command(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}

	cmd := fields[0]
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}

	return strings.ToLower(cmd)
}

func (c *Client) handleCommand(ctx context.Context, msg *models.Message, cmd string) {
	args := strings.Fields(strings.TrimSpace(msg.Text))[1:]
	senderID := msg.From.ID

	switch cmd {
	case "/start":
		c.handleStart(ctx, msg)
	case "/id":
		c.sendText(ctx, msg.Chat.ID, fmt.Sprintf("Your id: %d", senderID))
	case "/cancel":
		if c.conversations.Cancel(senderID) {
			c.sendText(ctx, msg.Chat.ID, "Cancelled.")
		} else {
			c.sendText(ctx, msg.Chat.ID, "Nothing to cancel.")
		}
	case "/admin":
		if !c.isOperator(ctx, senderID) {
			return
		}
		c.sendPanel(ctx, msg.Chat.ID)
	case "/pending":
		if !c.isOperator(ctx, senderID) {
			return
		}
		c.sendText(ctx, msg.Chat.ID, c.renderPending())
	case "/accept":
		if !c.isOperator(ctx, senderID) {
			return
		}
		c.handleAccept(ctx, msg.Chat.ID, args)
	default:
		c.sendText(ctx, msg.Chat.ID, "Unknown command.")
	}
}

// handleStart records the contact and greets them with the configured
// welcome message.
func (c *Client) handleStart(ctx context.Context, msg *models.Message) {
	if c.contacts != nil {
		_, err := c.contacts.EnsureContact(ctx, member.Contact{
			UserID:    msg.From.ID,
			Username:  msg.From.Username,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
		})
		if err != nil {
			c.logger.WithFields(logging.Fields{
				"event":   "contact_record_degraded",
				"user_id": msg.From.ID,
			}).WithError(err).Warn("failed to record contact")
		}
	}

	if err := c.SendWelcome(ctx, msg.From.ID); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "start_welcome_failed",
			"user_id": msg.From.ID,
		}).WithError(err).Warn("failed to send welcome")
	}
}

// handleAccept parses the selection directive and runs a batch admission.
func (c *Client) handleAccept(ctx context.Context, chatID int64, args []string) {
	directive, err := queue.ParseDirective(args)
	if err != nil {
		c.sendText(ctx, chatID, fmt.Sprintf("Usage: /accept <n> | all | date YYYY-MM-DD | range YYYY-MM-DD YYYY-MM-DD\n%v", err))
		return
	}

	outcome, err := c.executor.Process(ctx, directive)
	if err != nil {
		c.sendText(ctx, chatID, fmt.Sprintf("Admission failed: %v", err))
		return
	}

	c.sendText(ctx, chatID, fmt.Sprintf("Accepted: %d, failed: %d, remaining: %d",
		outcome.Accepted, outcome.Failed, outcome.Remaining))
}

// renderPending formats the queue for the operator, oldest first.
func (c *Client) renderPending() string {
	entries := c.queue.Snapshot()
	if len(entries) == 0 {
		return "No pending join requests."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Pending join requests: %d\n", len(entries))
	for i, entry := range entries {
		if i == pendingListLimit {
			fmt.Fprintf(&b, "… and %d more", len(entries)-pendingListLimit)
			break
		}
		fmt.Fprintf(&b, "%d. %s (%d) - %s\n", i+1, displayName(entry), entry.UserID, entry.RequestedAt.Format("2006-01-02 15:04"))
	}

	return strings.TrimRight(b.String(), "\n")
}

func displayName(entry domain.PendingRequest) string {
	if entry.Username != "" {
		return "@" + entry.Username
	}

	name := strings.TrimSpace(entry.FirstName + " " + entry.LastName)
	if name == "" {
		return "unknown"
	}

	return name
}

// isOperator reports whether the user may use the admin surface: the
// configured owner always can, everyone else per their stored role.
func (c *Client) isOperator(ctx context.Context, id int64) bool {
	if id == 0 {
		return false
	}
	if id == c.ownerID {
		return true
	}

	m, err := c.members.GetByID(ctx, id)
	if err != nil {
		return false
	}

	return m.IsOperator()
}

// handleGroupID replies with the chat id when a chat admin asks for it.
// Used when wiring a group as the admin group or fallback destination.
func (c *Client) handleGroupID(ctx context.Context, msg *models.Message) {
	if !c.isChatAdmin(ctx, msg.Chat.ID, msg.From.ID) {
		return
	}

	c.sendText(ctx, msg.Chat.ID, fmt.Sprintf("Chat id: %d", msg.Chat.ID))
}

func (c *Client) isChatAdmin(ctx context.Context, chatID, id int64) bool {
	if id == c.ownerID {
		return true
	}

	cm, err := c.api.GetChatMember(ctx, &bot.GetChatMemberParams{ChatID: chatID, UserID: id})
	if err != nil || cm == nil {
		return false
	}

	switch cm.Type {
	case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator:
		return true
	default:
		return false
	}
}
