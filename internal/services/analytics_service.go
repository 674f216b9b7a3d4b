package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/repo"
	"github.com/CachoMX/vhlabs/internal/utils"
)

// AnalyticsService reads the analytics events and workflow logs written by
// the n8n workflows.
type AnalyticsService struct {
	DB            *gorm.DB
	ExportMaxRows int
}

// Events returns one page of analytics events matching f, newest first.
func (s *AnalyticsService) Events(ctx context.Context, f filters.AnalyticsFilters, page, pageSize int) ([]domain.AnalyticsEvent, int64, error) {
	ctx, span := otel.Tracer("services/AnalyticsService").Start(ctx, "Events",
		trace.WithAttributes(
			attribute.String("filter.event_type", f.EventType),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	q, err := eventQuery(f)
	if err != nil {
		return nil, 0, err
	}
	page, pageSize = utils.ClampPage(page, pageSize)
	total, err := repo.CountEvents(ctx, s.DB, q)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.AnalyticsEvent{}, 0, nil
	}
	items, err := repo.ListEventsPage(ctx, s.DB, q, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Workflows returns one page of workflow logs matching f, most recently
// started first.
func (s *AnalyticsService) Workflows(ctx context.Context, f filters.AnalyticsFilters, page, pageSize int) ([]domain.WorkflowLog, int64, error) {
	ctx, span := otel.Tracer("services/AnalyticsService").Start(ctx, "Workflows",
		trace.WithAttributes(
			attribute.String("filter.workflow_name", f.WorkflowName),
			attribute.String("filter.status", f.Status),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	rng, err := dateRange(f.StartDate, f.EndDate)
	if err != nil {
		return nil, 0, err
	}
	q := repo.WorkflowQuery{WorkflowName: f.WorkflowName, Status: f.Status, From: rng.Start, To: rng.End}

	page, pageSize = utils.ClampPage(page, pageSize)
	total, err := repo.CountWorkflowLogs(ctx, s.DB, q)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.WorkflowLog{}, 0, nil
	}
	items, err := repo.ListWorkflowLogsPage(ctx, s.DB, q, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Export returns every event matching f, up to ExportMaxRows.
func (s *AnalyticsService) Export(ctx context.Context, f filters.AnalyticsFilters) ([]domain.AnalyticsEvent, error) {
	ctx, span := otel.Tracer("services/AnalyticsService").Start(ctx, "Export")
	defer span.End()

	q, err := eventQuery(f)
	if err != nil {
		return nil, err
	}
	return repo.ListEventsPage(ctx, s.DB, q, 0, exportLimit(s.ExportMaxRows))
}

func eventQuery(f filters.AnalyticsFilters) (repo.EventQuery, error) {
	rng, err := dateRange(f.StartDate, f.EndDate)
	if err != nil {
		return repo.EventQuery{}, err
	}
	return repo.EventQuery{
		EventType:     f.EventType,
		EventCategory: f.EventCategory,
		WorkflowName:  f.WorkflowName,
		From:          rng.Start,
		To:            rng.End,
	}, nil
}

// dateRange parses optional start/end bounds in UTC. A date-only end covers
// its whole day.
func dateRange(start, end string) (filters.Range, error) {
	rng, err := filters.DashboardFilters{StartDate: start, EndDate: end}.Resolve(time.Now().UTC())
	if err != nil {
		return filters.Range{}, invalidDates(err)
	}
	return rng, nil
}

func invalidDates(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
