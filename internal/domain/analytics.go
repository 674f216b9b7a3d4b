package domain

import "time"

// WorkflowError is the workflow_logs status used for failed runs.
const WorkflowError = "error"

// AnalyticsEvent is a telemetry event emitted by an n8n workflow.
type AnalyticsEvent struct {
	ID            string    `json:"id"             gorm:"type:varchar(36);primaryKey"`
	EventType     string    `json:"event_type"     gorm:"type:varchar(64);not null;index"`
	EventCategory string    `json:"event_category" gorm:"type:varchar(64);index"`
	WorkflowName  string    `json:"workflow_name"  gorm:"type:varchar(128);index"`
	Success       bool      `json:"success"        gorm:"not null"`
	DurationMS    *int64    `json:"duration_ms"`
	EventData     JSON      `json:"event_data"     swaggertype:"object"`
	CreatedAt     time.Time `json:"created_at"     gorm:"index"`
}

// TableName returns the database table name for AnalyticsEvent.
func (AnalyticsEvent) TableName() string { return "analytics_events" }

// WorkflowLog records one execution of an n8n workflow.
type WorkflowLog struct {
	ID           string     `json:"id"            gorm:"type:varchar(36);primaryKey"`
	WorkflowName string     `json:"workflow_name" gorm:"type:varchar(128);not null;index"`
	ExecutionID  string     `json:"execution_id"  gorm:"type:varchar(64)"`
	Status       string     `json:"status"        gorm:"type:varchar(16);not null;index"`
	ErrorMessage string     `json:"error_message" gorm:"type:text"`
	StartedAt    time.Time  `json:"started_at"    gorm:"index"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"    gorm:"index"`
}

// TableName returns the database table name for WorkflowLog.
func (WorkflowLog) TableName() string { return "workflow_logs" }
