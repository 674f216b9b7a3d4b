package domain

import "time"

// Content lifecycle states.
const (
	ContentPending     = "pending"
	ContentProcessing  = "processing"
	ContentReady       = "ready"
	ContentDistributed = "distributed"
	ContentArchived    = "archived"
)

// Content priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ValidContentStatus reports whether s is a known content status.
func ValidContentStatus(s string) bool {
	switch s {
	case ContentPending, ContentProcessing, ContentReady, ContentDistributed, ContentArchived:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known content priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Content is a source asset (video, podcast, article) that the AI workflow
// parses into hooks and clips for distribution to audiences.
type Content struct {
	ID                    string     `json:"id"                      gorm:"type:varchar(36);primaryKey"`
	Title                 string     `json:"title"                   gorm:"type:varchar(255)"`
	Description           string     `json:"description"             gorm:"type:text"`
	RawText               string     `json:"raw_text"                gorm:"type:text;not null"`
	SourceType            string     `json:"source_type"             gorm:"type:varchar(32);not null"`
	SourceURL             string     `json:"source_url"              gorm:"type:text"`
	Audiences             StringList `json:"audiences"`
	ContentType           string     `json:"content_type"            gorm:"type:varchar(32)"`
	Status                string     `json:"status"                  gorm:"type:varchar(16);not null;default:'pending';index"`
	Priority              string     `json:"priority"                gorm:"type:varchar(16);not null;default:'medium';index"`
	Score                 *float64   `json:"score"`
	IsFeatured            bool       `json:"is_featured"             gorm:"not null;default:false"`
	IsEvergreen           bool       `json:"is_evergreen"            gorm:"not null;default:false"`
	Hooks                 JSON       `json:"hooks"                   swaggertype:"object"`
	Clips                 JSON       `json:"clips"                   swaggertype:"object"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at"`
	CreatedAt             time.Time  `json:"created_at"              gorm:"index"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Content.
func (Content) TableName() string { return "contents" }

// Hook is a short attention-grabbing excerpt extracted from a Content.
type Hook struct {
	ID        string    `json:"id"         gorm:"type:varchar(36);primaryKey"`
	ContentID string    `json:"content_id" gorm:"type:varchar(36);not null;index"`
	Text      string    `json:"text"       gorm:"type:text;not null"`
	Timestamp string    `json:"timestamp"  gorm:"type:varchar(16)"`
	HookType  string    `json:"hook_type"  gorm:"type:varchar(32)"`
	Score     *float64  `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Hook.
func (Hook) TableName() string { return "hooks" }
