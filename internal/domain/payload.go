package domain

// PayloadKind discriminates the message payload union.
type PayloadKind string

// Supported payload kinds, mirroring the Telegram message shapes the bot
// sends and accepts from operators.
const (
	PayloadText      PayloadKind = "text"
	PayloadPhoto     PayloadKind = "photo"
	PayloadVideo     PayloadKind = "video"
	PayloadVoice     PayloadKind = "voice"
	PayloadAudio     PayloadKind = "audio"
	PayloadDocument  PayloadKind = "document"
	PayloadVideoNote PayloadKind = "video_note"
	PayloadSticker   PayloadKind = "sticker"
	PayloadAnimation PayloadKind = "animation"
)

// Payload is a tagged union describing one outbound or inbound message.
// It is constructed once at ingestion and passed opaquely afterwards; no
// consumer inspects raw platform messages.
type Payload struct {
	Kind    PayloadKind `bson:"kind" json:"kind"`
	Text    string      `bson:"text,omitempty" json:"text,omitempty"`
	FileID  string      `bson:"file_id,omitempty" json:"file_id,omitempty"`
	Caption string      `bson:"caption,omitempty" json:"caption,omitempty"`
}

// IsZero reports whether the payload carries no recognized content.
func (p Payload) IsZero() bool {
	return p.Kind == ""
}

// FallbackText returns the best plain-text rendition of the payload, used
// when a rich-media send fails.
func (p Payload) FallbackText() string {
	if p.Text != "" {
		return p.Text
	}
	return p.Caption
}
