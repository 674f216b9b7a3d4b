package domain

import "time"

// Segment is a lookup row for contact segmentation (e.g. "active_investor").
type Segment struct {
	ID          int64  `json:"id"          gorm:"primaryKey"`
	Slug        string `json:"slug"        gorm:"type:varchar(64);not null;uniqueIndex"`
	Name        string `json:"name"        gorm:"type:varchar(128);not null"`
	Description string `json:"description" gorm:"type:text"`
	Emoji       string `json:"emoji"       gorm:"type:varchar(16)"`
}

// TableName returns the database table name for Segment.
func (Segment) TableName() string { return "segments" }

// InvestorStatus is a lookup row for the investor pipeline stage.
type InvestorStatus struct {
	ID            int64  `json:"id"             gorm:"primaryKey"`
	Slug          string `json:"slug"           gorm:"type:varchar(64);not null;uniqueIndex"`
	Name          string `json:"name"           gorm:"type:varchar(128);not null"`
	Description   string `json:"description"    gorm:"type:text"`
	PriorityLevel int    `json:"priority_level" gorm:"not null;default:0"`
}

// TableName returns the database table name for InvestorStatus.
func (InvestorStatus) TableName() string { return "investor_statuses" }

// Contact is a CRM contact mirrored from GoHighLevel by the sync workflow.
// Segment and InvestorStatus hold lookup slugs and are null until scored.
type Contact struct {
	ID               string     `json:"id"                 gorm:"type:varchar(36);primaryKey"`
	GHLID            string     `json:"ghl_id"             gorm:"column:ghl_id;type:varchar(64);not null;uniqueIndex"`
	Email            string     `json:"email"              gorm:"type:varchar(255);index"`
	Phone            string     `json:"phone"              gorm:"type:varchar(32)"`
	FirstName        string     `json:"first_name"         gorm:"type:varchar(128)"`
	LastName         string     `json:"last_name"          gorm:"type:varchar(128)"`
	Segment          *string    `json:"segment"            gorm:"type:varchar(64);index"`
	InvestorStatus   *string    `json:"investor_status"    gorm:"type:varchar(64);index"`
	Score            int        `json:"score"              gorm:"not null;default:0;index"`
	Tags             StringList `json:"tags"`
	TouchpointCount  int        `json:"touchpoint_count"   gorm:"not null;default:0"`
	ResponseCount    int        `json:"response_count"     gorm:"not null;default:0"`
	LastTouchpointAt *time.Time `json:"last_touchpoint_at"`
	LastResponseAt   *time.Time `json:"last_response_at"`
	SyncStatus       string     `json:"sync_status"        gorm:"type:varchar(32);not null;default:'synced'"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Contact.
func (Contact) TableName() string { return "contacts_sync" }

// FullName joins first and last name, trimming the gap when either is empty.
func (c Contact) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// ContactOverview is a row of the v_contact_overview view: a contact plus
// its resolved segment and status display names.
type ContactOverview struct {
	Contact
	SegmentName        *string `json:"segment_name"`
	InvestorStatusName *string `json:"investor_status_name"`
}

// TableName returns the view name for ContactOverview.
func (ContactOverview) TableName() string { return "v_contact_overview" }

// ContactRef is the slim contact projection joined onto distribution rows.
type ContactRef struct {
	GHLID     string `json:"ghl_id"     gorm:"column:ghl_id"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// VoiceCall is an inbound or outbound call logged by the voice workflow.
type VoiceCall struct {
	ID              string    `json:"id"               gorm:"type:varchar(36);primaryKey"`
	GHLID           string    `json:"ghl_id"           gorm:"column:ghl_id;type:varchar(64);not null;index"`
	Direction       string    `json:"direction"        gorm:"type:varchar(16)"`
	Status          string    `json:"status"           gorm:"type:varchar(32)"`
	DurationSeconds int       `json:"duration_seconds"`
	RecordingURL    string    `json:"recording_url"    gorm:"type:text"`
	Transcript      string    `json:"transcript"       gorm:"type:text"`
	Summary         string    `json:"summary"          gorm:"type:text"`
	CreatedAt       time.Time `json:"created_at"       gorm:"index"`
}

// TableName returns the database table name for VoiceCall.
func (VoiceCall) TableName() string { return "voice_calls" }
