package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
)

// EventQuery narrows analytics_events; bounds apply to created_at.
type EventQuery struct {
	EventType     string
	EventCategory string
	WorkflowName  string
	From          *time.Time
	To            *time.Time
}

func (q EventQuery) scope() Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Scopes(
			eq("event_type", q.EventType),
			eq("event_category", q.EventCategory),
			eq("workflow_name", q.WorkflowName),
			between("created_at", q.From, q.To),
		)
	}
}

// WorkflowQuery narrows workflow_logs; bounds apply to started_at.
type WorkflowQuery struct {
	WorkflowName string
	Status       string
	From         *time.Time
	To           *time.Time
}

func (q WorkflowQuery) scope() Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Scopes(
			eq("workflow_name", q.WorkflowName),
			eq("status", q.Status),
			between("started_at", q.From, q.To),
		)
	}
}

// CountEvents counts analytics events matching q.
func CountEvents(ctx context.Context, db *gorm.DB, q EventQuery) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.AnalyticsEvent{}).Scopes(q.scope()).Count(&total).Error
	return total, err
}

// ListEventsPage returns a page of events, newest first.
func ListEventsPage(ctx context.Context, db *gorm.DB, q EventQuery, offset, limit int) ([]domain.AnalyticsEvent, error) {
	out := []domain.AnalyticsEvent{}
	err := db.WithContext(ctx).
		Scopes(q.scope(), paginate(offset, limit)).
		Order("created_at DESC").
		Order("id").
		Find(&out).Error
	return out, err
}

// CountWorkflowLogs counts workflow logs matching q.
func CountWorkflowLogs(ctx context.Context, db *gorm.DB, q WorkflowQuery) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.WorkflowLog{}).Scopes(q.scope()).Count(&total).Error
	return total, err
}

// ListWorkflowLogsPage returns a page of workflow logs, latest start first.
func ListWorkflowLogsPage(ctx context.Context, db *gorm.DB, q WorkflowQuery, offset, limit int) ([]domain.WorkflowLog, error) {
	out := []domain.WorkflowLog{}
	err := db.WithContext(ctx).
		Scopes(q.scope(), paginate(offset, limit)).
		Order("started_at DESC").
		Order("id").
		Find(&out).Error
	return out, err
}

// RecentEvents returns the latest limit events.
func RecentEvents(ctx context.Context, db *gorm.DB, limit int) ([]domain.AnalyticsEvent, error) {
	return ListEventsPage(ctx, db, EventQuery{}, 0, limit)
}

// RecentWorkflowErrors returns the latest failed workflow runs by
// created_at.
func RecentWorkflowErrors(ctx context.Context, db *gorm.DB, limit int) ([]domain.WorkflowLog, error) {
	out := []domain.WorkflowLog{}
	err := db.WithContext(ctx).
		Where("status = ?", domain.WorkflowError).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CreateEvents inserts events in one batch, assigning ids where missing.
func CreateEvents(ctx context.Context, db *gorm.DB, evs []domain.AnalyticsEvent) error {
	if len(evs) == 0 {
		return nil
	}
	for i := range evs {
		if evs[i].ID == "" {
			evs[i].ID = uuid.NewString()
		}
	}
	return db.WithContext(ctx).CreateInBatches(evs, 100).Error
}

// CreateWorkflowLogs inserts logs in one batch, assigning ids where missing.
func CreateWorkflowLogs(ctx context.Context, db *gorm.DB, logs []domain.WorkflowLog) error {
	if len(logs) == 0 {
		return nil
	}
	for i := range logs {
		if logs[i].ID == "" {
			logs[i].ID = uuid.NewString()
		}
	}
	return db.WithContext(ctx).CreateInBatches(logs, 100).Error
}
