package domain

import "time"

// Membership statuses. A member transitions pending -> approved exactly once
// and is never deleted.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

// Member is the durable per-user record, independent of queue membership.
// Records with status=pending are the source of truth for rebuilding the
// pending admission queue after a restart.
type Member struct {
	UserID      int64     `bson:"user_id" json:"user_id"`
	Username    string    `bson:"username,omitempty" json:"username,omitempty"`
	FirstName   string    `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName    string    `bson:"last_name,omitempty" json:"last_name,omitempty"`
	Role        string    `bson:"role" json:"role"`
	Status      string    `bson:"status" json:"status"`
	ChatID      int64     `bson:"chat_id,omitempty" json:"chat_id,omitempty"`
	RequestedAt time.Time `bson:"requested_at,omitempty" json:"requested_at,omitempty"`
	ApprovedAt  time.Time `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// IsOperator reports whether the member may use the admin surface.
func (m Member) IsOperator() bool {
	return m.Role == RoleOwner || m.Role == RoleAdmin
}
