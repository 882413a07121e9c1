package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"

	"tg_join_gate_bot/internal/conversation"
	"tg_join_gate_bot/internal/domain"
	"tg_join_gate_bot/internal/feature/community"
)

// registerFlows installs the conversation handlers behind the admin panel.
// Mismatch policy differs per flow: the settings flows re-prompt until the
// operator sends the expected shape or cancels, while broadcast and
// community-reference treat the first unexpected input as terminal.
func (c *Client) registerFlows() error {
	flows := map[conversation.Flow]conversation.HandlerFunc{
		conversation.FlowWelcomeText:  c.flowWelcomeText,
		conversation.FlowWelcomeImage: c.flowWelcomeImage,
		conversation.FlowURLField:     c.flowURLField,
		conversation.FlowAdminGroup:   c.flowAdminGroup,
		conversation.FlowBroadcast:    c.flowBroadcast,
		conversation.FlowCommunityRef: c.flowCommunityRef,
	}

	for flow, handler := range flows {
		if err := c.conversations.Register(flow, handler); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) flowWelcomeText(ctx context.Context, operatorID int64, _ conversation.State, payload domain.Payload) (conversation.Result, error) {
	if payload.Kind != domain.PayloadText || payload.Text == "" {
		c.sendText(ctx, operatorID, "Please send the welcome message as plain text, or /cancel.")
		return conversation.Retry, nil
	}

	if err := c.settings.SetWelcomeText(ctx, payload.Text); err != nil {
		c.sendText(ctx, operatorID, "Failed to save the welcome text, please try again.")
		return conversation.Retry, err
	}

	c.sendText(ctx, operatorID, "Welcome text updated.")
	c.recordActivity(ctx, "settings - welcome text updated")
	return conversation.Completed, nil
}

func (c *Client) flowWelcomeImage(ctx context.Context, operatorID int64, _ conversation.State, payload domain.Payload) (conversation.Result, error) {
	if payload.Kind != domain.PayloadPhoto {
		c.sendText(ctx, operatorID, "Please send the welcome image as a photo, or /cancel.")
		return conversation.Retry, nil
	}

	if err := c.settings.SetWelcomeImage(ctx, payload.FileID); err != nil {
		c.sendText(ctx, operatorID, "Failed to save the welcome image, please try again.")
		return conversation.Retry, err
	}

	c.sendText(ctx, operatorID, "Welcome image updated.")
	c.recordActivity(ctx, "settings - welcome image updated")
	return conversation.Completed, nil
}

func (c *Client) flowURLField(ctx context.Context, operatorID int64, state conversation.State, payload domain.Payload) (conversation.Result, error) {
	url := strings.TrimSpace(payload.Text)
	if payload.Kind != domain.PayloadText || !validURL(url) {
		c.sendText(ctx, operatorID, "Please send a full link starting with http:// or https://, or /cancel.")
		return conversation.Retry, nil
	}

	var err error
	var field string
	switch state.Scope {
	case scopeSignupURL:
		field = "signup link"
		err = c.settings.SetSignupURL(ctx, url)
	case scopeJoinURL:
		field = "group link"
		err = c.settings.SetJoinGroupURL(ctx, url)
	default:
		return conversation.Aborted, fmt.Errorf("unknown url field scope %q", state.Scope)
	}

	if err != nil {
		c.sendText(ctx, operatorID, "Failed to save the link, please try again.")
		return conversation.Retry, err
	}

	c.sendText(ctx, operatorID, "Saved the "+field+".")
	c.recordActivity(ctx, "settings - "+field+" updated")
	return conversation.Completed, nil
}

func (c *Client) flowAdminGroup(ctx context.Context, operatorID int64, _ conversation.State, payload domain.Payload) (conversation.Result, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(payload.Text), 10, 64)
	if payload.Kind != domain.PayloadText || err != nil || chatID == 0 {
		c.sendText(ctx, operatorID, "Please send a numeric chat id (use /id in the group), or /cancel.")
		return conversation.Retry, nil
	}

	if err := c.settings.SetAdminGroupID(ctx, chatID); err != nil {
		c.sendText(ctx, operatorID, "Failed to save the admin group, please try again.")
		return conversation.Retry, err
	}

	c.sendText(ctx, operatorID, fmt.Sprintf("Admin group set to %d.", chatID))
	c.recordActivity(ctx, fmt.Sprintf("settings - admin group set to %d", chatID))
	return conversation.Completed, nil
}

// flowBroadcast handles both immediate broadcasts and the recurring
// announcement (scopeAnnounce). An unsupported message kind aborts instead
// of re-prompting.
func (c *Client) flowBroadcast(ctx context.Context, operatorID int64, state conversation.State, payload domain.Payload) (conversation.Result, error) {
	if payload.IsZero() {
		c.sendText(ctx, operatorID, "Unsupported message type, broadcast aborted.")
		return conversation.Aborted, nil
	}

	if state.Scope == scopeAnnounce {
		if err := c.settings.SetAnnouncePayload(ctx, payload); err != nil {
			c.sendText(ctx, operatorID, "Failed to save the announcement.")
			return conversation.Aborted, err
		}
		c.sendText(ctx, operatorID, "Announcement saved; it goes out on the configured interval.")
		c.recordActivity(ctx, "settings - announcement updated")
		return conversation.Completed, nil
	}

	if c.broadcaster == nil {
		c.sendText(ctx, operatorID, "Broadcast is not available.")
		return conversation.Aborted, nil
	}

	summary, err := c.broadcaster.Deliver(ctx, payload)
	if err != nil {
		c.sendText(ctx, operatorID, fmt.Sprintf("Broadcast failed: %v", err))
		return conversation.Aborted, err
	}

	c.sendText(ctx, operatorID, fmt.Sprintf("Broadcast done. Sent: %d, failed: %d, total: %d.",
		summary.Sent, summary.Failed, summary.Total))
	return conversation.Completed, nil
}

// flowCommunityRef registers a community from an operator-supplied chat id
// or @username. A non-text input aborts.
func (c *Client) flowCommunityRef(ctx context.Context, operatorID int64, _ conversation.State, payload domain.Payload) (conversation.Result, error) {
	if payload.Kind != domain.PayloadText {
		c.sendText(ctx, operatorID, "Expected a chat id or @username, aborted.")
		return conversation.Aborted, nil
	}

	ref := strings.TrimSpace(payload.Text)
	sighting, err := c.resolveCommunity(ctx, ref)
	if err != nil {
		c.sendText(ctx, operatorID, fmt.Sprintf("Could not resolve %q: %v", ref, err))
		return conversation.Aborted, nil
	}

	if c.communities == nil {
		c.sendText(ctx, operatorID, "Community registry is not available.")
		return conversation.Aborted, nil
	}

	created, err := c.communities.EnsureCommunity(ctx, sighting)
	if err != nil {
		c.sendText(ctx, operatorID, "Failed to save the community.")
		return conversation.Aborted, err
	}

	if created {
		c.sendText(ctx, operatorID, fmt.Sprintf("Community %d registered.", sighting.ChatID))
		c.recordActivity(ctx, fmt.Sprintf("community %d registered", sighting.ChatID))
	} else {
		c.sendText(ctx, operatorID, fmt.Sprintf("Community %d was already registered.", sighting.ChatID))
	}

	return conversation.Completed, nil
}

// resolveCommunity turns a chat id or @username reference into a sighting,
// consulting the platform for metadata when possible.
func (c *Client) resolveCommunity(ctx context.Context, ref string) (community.Sighting, error) {
	if ref == "" {
		return community.Sighting{}, fmt.Errorf("reference is empty")
	}

	var chatRef any
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		chatRef = id
	} else if strings.HasPrefix(ref, "@") {
		chatRef = ref
	} else {
		return community.Sighting{}, fmt.Errorf("expected a numeric chat id or @username")
	}

	info, err := c.api.GetChat(ctx, &bot.GetChatParams{ChatID: chatRef})
	if err != nil {
		// A bare id is still usable without metadata.
		if id, ok := chatRef.(int64); ok {
			return community.Sighting{ChatID: id}, nil
		}
		return community.Sighting{}, err
	}

	return community.Sighting{
		ChatID:   info.ID,
		Title:    info.Title,
		Type:     string(info.Type),
		Username: info.Username,
	}, nil
}

func validURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// recordActivity appends a line to the activity log, best effort.
func (c *Client) recordActivity(ctx context.Context, line string) {
	if c.activity == nil {
		return
	}

	if err := c.activity.Append(ctx, line); err != nil {
		c.logger.WithField("event", "activity_append_degraded").WithError(err).Warn("failed to record activity")
	}
}
