package domain

import "time"

// Prompt is one version of an AI prompt. Rows sharing PromptID form a
// version family; at most one of them is active at a time.
type Prompt struct {
	ID          string     `json:"id"          gorm:"type:varchar(36);primaryKey"`
	PromptID    string     `json:"prompt_id"   gorm:"type:varchar(128);not null;uniqueIndex:ux_prompt_version,priority:1"`
	Version     int        `json:"version"     gorm:"not null;uniqueIndex:ux_prompt_version,priority:2"`
	System      string     `json:"system"      gorm:"type:varchar(64);not null;index"`
	Category    string     `json:"category"    gorm:"type:varchar(64);not null;index"`
	Name        string     `json:"name"        gorm:"type:varchar(255);not null"`
	Description string     `json:"description" gorm:"type:text"`
	Content     string     `json:"content"     gorm:"type:text;not null"`
	Variables   StringList `json:"variables"`
	IsActive    bool       `json:"is_active"   gorm:"not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"  gorm:"index"`
}

// TableName returns the database table name for Prompt.
func (Prompt) TableName() string { return "prompts" }
