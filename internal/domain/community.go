package domain

import "time"

// Community represents a managed Telegram chat whose join requests the bot
// mediates.
type Community struct {
	ChatID     int64     `bson:"chat_id" json:"chat_id"`
	Title      string    `bson:"title" json:"title"`
	Type       string    `bson:"type" json:"type"`
	Username   string    `bson:"username,omitempty" json:"username,omitempty"`
	AddedAt    time.Time `bson:"added_at" json:"added_at"`
	LastSeenAt time.Time `bson:"last_seen_at" json:"last_seen_at"`
}
