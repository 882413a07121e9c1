package domain

import "time"

// PendingRequest is one unapproved join attempt. At most one live request
// exists per (ChatID, UserID); a duplicate arrival replaces the earlier one
// in place instead of appending.
type PendingRequest struct {
	ChatID      int64     `bson:"chat_id" json:"chat_id"`
	UserID      int64     `bson:"user_id" json:"user_id"`
	Username    string    `bson:"username,omitempty" json:"username,omitempty"`
	FirstName   string    `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName    string    `bson:"last_name,omitempty" json:"last_name,omitempty"`
	RequestedAt time.Time `bson:"requested_at" json:"requested_at"`
}

// SameIdentity reports whether two requests target the same user in the
// same community.
func (r PendingRequest) SameIdentity(other PendingRequest) bool {
	return r.ChatID == other.ChatID && r.UserID == other.UserID
}
