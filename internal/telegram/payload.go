package telegram

import (
	"strings"

	"github.com/go-telegram/bot/models"

	"tg_join_gate_bot/internal/domain"
)

// payloadFromMessage classifies an inbound message into the payload union.
// The message is inspected exactly once, here; everything downstream works
// with the resulting payload. An unrecognized message yields a zero payload.
func payloadFromMessage(msg *models.Message) domain.Payload {
	if msg == nil {
		return domain.Payload{}
	}

	caption := strings.TrimSpace(msg.Caption)

	switch {
	case strings.TrimSpace(msg.Text) != "":
		return domain.Payload{Kind: domain.PayloadText, Text: strings.TrimSpace(msg.Text)}
	case len(msg.Photo) > 0:
		// Telegram orders photo sizes smallest first.
		return domain.Payload{
			Kind:    domain.PayloadPhoto,
			FileID:  msg.Photo[len(msg.Photo)-1].FileID,
			Caption: caption,
		}
	case msg.Video != nil:
		return domain.Payload{Kind: domain.PayloadVideo, FileID: msg.Video.FileID, Caption: caption}
	case msg.Voice != nil:
		return domain.Payload{Kind: domain.PayloadVoice, FileID: msg.Voice.FileID, Caption: caption}
	case msg.Audio != nil:
		return domain.Payload{Kind: domain.PayloadAudio, FileID: msg.Audio.FileID, Caption: caption}
	case msg.VideoNote != nil:
		return domain.Payload{Kind: domain.PayloadVideoNote, FileID: msg.VideoNote.FileID}
	case msg.Sticker != nil:
		return domain.Payload{Kind: domain.PayloadSticker, FileID: msg.Sticker.FileID}
	case msg.Animation != nil:
		// GIF messages carry both animation and document; animation wins.
		return domain.Payload{Kind: domain.PayloadAnimation, FileID: msg.Animation.FileID, Caption: caption}
	case msg.Document != nil:
		return domain.Payload{Kind: domain.PayloadDocument, FileID: msg.Document.FileID, Caption: caption}
	default:
		return domain.Payload{}
	}
}
