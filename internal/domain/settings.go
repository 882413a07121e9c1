package domain

// DefaultWelcomeText is sent when no welcome message has been configured.
const DefaultWelcomeText = "Welcome to our community!"

// Settings holds the operator-editable configuration committed by the
// conversation flows. It is persisted as a single document.
type Settings struct {
	WelcomeText     string  `bson:"welcome_text,omitempty" json:"welcome_text,omitempty"`
	WelcomeImage    string  `bson:"welcome_image,omitempty" json:"welcome_image,omitempty"`
	SignupURL       string  `bson:"signup_url,omitempty" json:"signup_url,omitempty"`
	JoinGroupURL    string  `bson:"join_group_url,omitempty" json:"join_group_url,omitempty"`
	AdminGroupID    int64   `bson:"admin_group_id,omitempty" json:"admin_group_id,omitempty"`
	AnnouncePayload Payload `bson:"announce_payload,omitempty" json:"announce_payload,omitempty"`
	AnnounceEvery   int     `bson:"announce_every_hours,omitempty" json:"announce_every_hours,omitempty"`
}
