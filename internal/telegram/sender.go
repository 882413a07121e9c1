package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"tg_join_gate_bot/internal/domain"
	"tg_join_gate_bot/internal/logging"
)

// ApproveJoinRequest approves a pending join request on the platform.
func (c *Client) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	if c == nil || c.api == nil {
		return errors.New("telegram client is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	ok, err := c.api.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		return fmt.Errorf("approve join request: %w", err)
	}
	if !ok {
		return errors.New("approve join request: platform declined")
	}

	return nil
}

// SendWelcome delivers the configured welcome message to a user: the welcome
// image with the text as caption when an image is set, plain text otherwise.
// Configured signup/join links are attached as URL buttons.
func (c *Client) SendWelcome(ctx context.Context, userID int64) error {
	if c == nil || c.api == nil {
		return errors.New("telegram client is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	settings, err := c.settings.Get(ctx)
	if err != nil {
		// Degraded: the default greeting still goes out.
		c.logger.WithField("event", "welcome_settings_degraded").WithError(err).Warn("using default welcome settings")
		settings = domain.Settings{}
	}

	text := settings.WelcomeText
	if text == "" {
		text = domain.DefaultWelcomeText
	}

	markup := welcomeLinks(settings)

	if settings.WelcomeImage != "" {
		_, err := c.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      userID,
			Photo:       &models.InputFileString{Data: settings.WelcomeImage},
			Caption:     text,
			ReplyMarkup: markup,
		})
		if err == nil {
			return nil
		}
		c.logger.WithFields(logging.Fields{
			"event":   "welcome_photo_fallback",
			"user_id": userID,
		}).WithError(err).Warn("welcome photo failed, falling back to text")
	}

	if _, err := c.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      userID,
		Text:        text,
		ReplyMarkup: markup,
	}); err != nil {
		return fmt.Errorf("send welcome: %w", err)
	}

	return nil
}

func welcomeLinks(settings domain.Settings) models.ReplyMarkup {
	var row []models.InlineKeyboardButton
	if settings.SignupURL != "" {
		row = append(row, models.InlineKeyboardButton{Text: "Sign up", URL: settings.SignupURL})
	}
	if settings.JoinGroupURL != "" {
		row = append(row, models.InlineKeyboardButton{Text: "Join group", URL: settings.JoinGroupURL})
	}
	if len(row) == 0 {
		return nil
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

// SendPayload delivers a payload to a chat, selecting the platform call by
// kind. When a rich-media send fails and the payload carries text, the text
// is sent as a degraded fallback.
func (c *Client) SendPayload(ctx context.Context, chatID int64, payload domain.Payload) error {
	if c == nil || c.api == nil {
		return errors.New("telegram client is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if payload.IsZero() {
		return errors.New("payload is required")
	}

	err := c.sendByKind(ctx, chatID, payload)
	if err == nil {
		return nil
	}

	if payload.Kind != domain.PayloadText && payload.FallbackText() != "" {
		c.logger.WithFields(logging.Fields{
			"event":   "payload_text_fallback",
			"chat_id": chatID,
			"kind":    string(payload.Kind),
		}).WithError(err).Warn("rich payload failed, sending text fallback")

		if _, fbErr := c.api.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   payload.FallbackText(),
		}); fbErr == nil {
			return nil
		}
	}

	return fmt.Errorf("send %s payload: %w", payload.Kind, err)
}

func (c *Client) sendByKind(ctx context.Context, chatID int64, payload domain.Payload) error {
	media := &models.InputFileString{Data: payload.FileID}

	var err error
	switch payload.Kind {
	case domain.PayloadText:
		_, err = c.api.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: payload.Text})
	case domain.PayloadPhoto:
		_, err = c.api.SendPhoto(ctx, &bot.SendPhotoParams{ChatID: chatID, Photo: media, Caption: payload.Caption})
	case domain.PayloadVideo:
		_, err = c.api.SendVideo(ctx, &bot.SendVideoParams{ChatID: chatID, Video: media, Caption: payload.Caption})
	case domain.PayloadVoice:
		_, err = c.api.SendVoice(ctx, &bot.SendVoiceParams{ChatID: chatID, Voice: media, Caption: payload.Caption})
	case domain.PayloadAudio:
		_, err = c.api.SendAudio(ctx, &bot.SendAudioParams{ChatID: chatID, Audio: media, Caption: payload.Caption})
	case domain.PayloadDocument:
		_, err = c.api.SendDocument(ctx, &bot.SendDocumentParams{ChatID: chatID, Document: media, Caption: payload.Caption})
	case domain.PayloadVideoNote:
		_, err = c.api.SendVideoNote(ctx, &bot.SendVideoNoteParams{ChatID: chatID, VideoNote: media})
	case domain.PayloadSticker:
		_, err = c.api.SendSticker(ctx, &bot.SendStickerParams{ChatID: chatID, Sticker: media})
	case domain.PayloadAnimation:
		_, err = c.api.SendAnimation(ctx, &bot.SendAnimationParams{ChatID: chatID, Animation: media, Caption: payload.Caption})
	default:
		return fmt.Errorf("unsupported payload kind %q", payload.Kind)
	}

	return err
}

// sendText is the internal helper for operator-facing replies.
func (c *Client) sendText(ctx context.Context, chatID int64, text string) {
	if _, err := c.api.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "reply_failed",
			"chat_id": chatID,
		}).WithError(err).Warn("failed to send reply")
	}
}
