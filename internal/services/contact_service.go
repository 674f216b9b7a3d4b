package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/repo"
	"github.com/CachoMX/vhlabs/internal/utils"
)

// contactHistoryLimit caps the distributions and voice calls shown on a
// contact's detail view.
const contactHistoryLimit = 20

// ContactDetail is a contact with its recent outreach history.
type ContactDetail struct {
	Contact       domain.ContactOverview `json:"contact"`
	Distributions []domain.Distribution  `json:"distributions"`
	VoiceCalls    []domain.VoiceCall     `json:"voice_calls"`
}

// ContactService reads contacts synced from the CRM.
type ContactService struct {
	DB            *gorm.DB
	ExportMaxRows int
}

// ListPage returns one page of contacts matching f and the total number of
// matches.
func (s *ContactService) ListPage(ctx context.Context, f filters.ContactFilters, page, pageSize int) ([]domain.ContactOverview, int64, error) {
	ctx, span := otel.Tracer("services/ContactService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	page, pageSize = utils.ClampPage(page, pageSize)
	total, err := repo.CountContacts(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ContactOverview{}, 0, nil
	}
	items, err := repo.ListContactsPage(ctx, s.DB, f, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Get returns the contact with its latest distributions and voice calls.
func (s *ContactService) Get(ctx context.Context, id string) (*ContactDetail, error) {
	ctx, span := otel.Tracer("services/ContactService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("contact.id", id)),
	)
	defer span.End()

	c, err := repo.GetContact(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	dists, err := repo.ListContactDistributions(ctx, s.DB, c.GHLID, contactHistoryLimit)
	if err != nil {
		return nil, err
	}
	calls, err := repo.ListContactVoiceCalls(ctx, s.DB, c.GHLID, contactHistoryLimit)
	if err != nil {
		return nil, err
	}
	return &ContactDetail{Contact: *c, Distributions: dists, VoiceCalls: calls}, nil
}

// Export returns every contact matching f, up to ExportMaxRows.
func (s *ContactService) Export(ctx context.Context, f filters.ContactFilters) ([]domain.ContactOverview, error) {
	ctx, span := otel.Tracer("services/ContactService").Start(ctx, "Export")
	defer span.End()

	return repo.ListContactsPage(ctx, s.DB, f, 0, exportLimit(s.ExportMaxRows))
}

// exportLimit falls back to a fixed cap when none is configured so an
// export never streams an unbounded table.
func exportLimit(n int) int {
	if n <= 0 {
		return 10000
	}
	return n
}

// Segments returns the segment lookup table.
func (s *ContactService) Segments(ctx context.Context) ([]domain.Segment, error) {
	return repo.ListSegments(ctx, s.DB)
}

// InvestorStatuses returns the investor status lookup table.
func (s *ContactService) InvestorStatuses(ctx context.Context) ([]domain.InvestorStatus, error) {
	return repo.ListInvestorStatuses(ctx, s.DB)
}
