package domain

import "time"

// Channels a distribution can be created for.
const (
	ChannelEmail  = "email"
	ChannelSMS    = "sms"
	ChannelSocial = "social"
	ChannelVoice  = "voice" // voice calls only appear through v_all_distributions
)

// Distribution delivery states.
const (
	DistPending   = "pending"
	DistQueued    = "queued"
	DistScheduled = "scheduled"
	DistSent      = "sent"
	DistDelivered = "delivered"
	DistFailed    = "failed"
	DistBounced   = "bounced"
)

// ValidSendChannel reports whether ch can be used to create distributions.
func ValidSendChannel(ch string) bool {
	switch ch {
	case ChannelEmail, ChannelSMS, ChannelSocial:
		return true
	}
	return false
}

// Distribution is one message sent (or scheduled) to one contact.
type Distribution struct {
	ID               string     `json:"id"                gorm:"type:varchar(36);primaryKey"`
	ContentID        *string    `json:"content_id"        gorm:"type:varchar(36);index"`
	GHLContactID     string     `json:"ghl_contact_id"    gorm:"column:ghl_contact_id;type:varchar(64);not null;index"`
	Channel          string     `json:"channel"           gorm:"type:varchar(16);not null;index"`
	MessageType      string     `json:"message_type"      gorm:"type:varchar(32)"`
	Subject          string     `json:"subject"           gorm:"type:varchar(255)"`
	MessageContent   string     `json:"message_content"   gorm:"type:text"`
	Status           string     `json:"status"            gorm:"type:varchar(16);not null;default:'pending'"`
	ScheduledFor     *time.Time `json:"scheduled_for"`
	SentAt           *time.Time `json:"sent_at"           gorm:"index"`
	DeliveredAt      *time.Time `json:"delivered_at"`
	OpenedAt         *time.Time `json:"opened_at"`
	ClickedAt        *time.Time `json:"clicked_at"`
	ResponseReceived bool       `json:"response_received" gorm:"not null;default:false"`
	ResponseText     string     `json:"response_text"     gorm:"type:text"`
	ResponseAt       *time.Time `json:"response_at"`
	CreatedAt        time.Time  `json:"created_at"        gorm:"index"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Distribution.
func (Distribution) TableName() string { return "distributions" }

// AllDistribution is a row of v_all_distributions, the union of message
// distributions and voice calls keyed by a common ghl_id.
type AllDistribution struct {
	ID               string     `json:"id"`
	Source           string     `json:"source"`
	ContentID        *string    `json:"content_id"`
	GHLID            string     `json:"ghl_id"            gorm:"column:ghl_id"`
	Channel          string     `json:"channel"`
	MessageType      string     `json:"message_type"`
	Subject          string     `json:"subject"`
	Status           string     `json:"status"`
	SentAt           *time.Time `json:"sent_at"`
	ResponseReceived bool       `json:"response_received"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TableName returns the view name for AllDistribution.
func (AllDistribution) TableName() string { return "v_all_distributions" }

// DistributionWithContact is an AllDistribution row with its contact joined
// in; Contact is nil when the ghl_id has no synced contact.
type DistributionWithContact struct {
	AllDistribution
	Contact *ContactRef `json:"contact"`
}

// DistributionPerformance is a row of v_distribution_performance. Rates are
// percentages in [0,100].
type DistributionPerformance struct {
	Channel      string  `json:"channel"`
	MessageType  string  `json:"message_type"`
	TotalSent    int64   `json:"total_sent"`
	Opened       int64   `json:"opened"`
	Clicked      int64   `json:"clicked"`
	Responded    int64   `json:"responded"`
	OpenRate     float64 `json:"open_rate"`
	ClickRate    float64 `json:"click_rate"`
	ResponseRate float64 `json:"response_rate"`
}

// TableName returns the view name for DistributionPerformance.
func (DistributionPerformance) TableName() string { return "v_distribution_performance" }

// ChannelCount is one bar of the distributions-by-channel chart.
type ChannelCount struct {
	Channel   string `json:"channel"`
	SentCount int64  `json:"sent_count"`
}
