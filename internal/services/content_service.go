package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/cache"
	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/repo"
	"github.com/CachoMX/vhlabs/internal/utils"
)

// Cache key prefixes. Writes invalidate by prefix.
const (
	cacheContent       = "content:"
	cacheDistributions = "distributions:"
	cacheDashboard     = "dashboard:"
)

// ContentInput is the payload for creating a content item.
type ContentInput struct {
	Title       string   `json:"title"        binding:"omitempty,max=255"`
	Description string   `json:"description"`
	RawText     string   `json:"raw_text"`
	SourceType  string   `json:"source_type"  binding:"omitempty,max=32"`
	SourceURL   string   `json:"source_url"   binding:"omitempty,url"`
	ContentType string   `json:"content_type" binding:"omitempty,max=32"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Audiences   []string `json:"audiences"`
	Score       *float64 `json:"score"        binding:"omitempty,gte=0,lte=100"`
	IsFeatured  bool     `json:"is_featured"`
	IsEvergreen bool     `json:"is_evergreen"`
}

// ContentUpdate is a partial update. Nil fields are left unchanged; id and
// the timestamps cannot be set.
type ContentUpdate struct {
	Title       *string   `json:"title"        binding:"omitempty,max=255"`
	Description *string   `json:"description"`
	RawText     *string   `json:"raw_text"`
	SourceType  *string   `json:"source_type"  binding:"omitempty,max=32"`
	SourceURL   *string   `json:"source_url"   binding:"omitempty,url"`
	ContentType *string   `json:"content_type" binding:"omitempty,max=32"`
	Status      *string   `json:"status"`
	Priority    *string   `json:"priority"`
	Audiences   *[]string `json:"audiences"`
	Score       *float64  `json:"score"        binding:"omitempty,gte=0,lte=100"`
	IsFeatured  *bool     `json:"is_featured"`
	IsEvergreen *bool     `json:"is_evergreen"`
}

// ContentService manages content items and their hooks.
type ContentService struct {
	DB            *gorm.DB
	Cache         *cache.Cache
	TTL           time.Duration
	ExportMaxRows int
}

// ListPage returns one page of content matching f and the total number of
// matches.
func (s *ContentService) ListPage(ctx context.Context, f filters.ContentFilters, page, pageSize int) ([]domain.Content, int64, error) {
	ctx, span := otel.Tracer("services/ContentService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("filter.status", f.Status),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	page, pageSize = utils.ClampPage(page, pageSize)
	total, err := repo.CountContents(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Content{}, 0, nil
	}
	items, err := repo.ListContentsPage(ctx, s.DB, f, utils.Offset(page, pageSize), pageSize)
	return items, total, err
}

// Stats returns the row count and latest update of the content matching f,
// for list ETags.
func (s *ContentService) Stats(ctx context.Context, f filters.ContentFilters) (int64, *time.Time, error) {
	return repo.ContentsStats(ctx, s.DB, f)
}

// Get returns one content item.
func (s *ContentService) Get(ctx context.Context, id string) (*domain.Content, error) {
	ctx, span := otel.Tracer("services/ContentService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("content.id", id)),
	)
	defer span.End()

	c, err := repo.GetContent(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrContentNotFound
	}
	return c, err
}

// Hooks returns the hooks extracted from a content item.
func (s *ContentService) Hooks(ctx context.Context, id string) ([]domain.Hook, error) {
	ctx, span := otel.Tracer("services/ContentService").Start(ctx, "Hooks",
		trace.WithAttributes(attribute.String("content.id", id)),
	)
	defer span.End()

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return repo.ListContentHooks(ctx, s.DB, id)
}

// Distributions returns every distribution of a content item. Results are
// cached.
func (s *ContentService) Distributions(ctx context.Context, id string) ([]domain.Distribution, error) {
	ctx, span := otel.Tracer("services/ContentService").Start(ctx, "Distributions",
		trace.WithAttributes(attribute.String("content.id", id)),
	)
	defer span.End()

	return cache.GetOrLoad(ctx, s.Cache, cacheContent+id+":distributions", s.TTL,
		func(ctx context.Context) ([]domain.Distribution, error) {
			return repo.ListContentDistributions(ctx, s.DB, id)
		})
}

// Create validates in and stores a new content item. raw_text, source_type
// and status are required.
func (s *ContentService) Create(ctx context.Context, in ContentInput) (*domain.Content, error) {
	ctx, span := otel.Tracer("services/ContentService").Start(ctx, "Create")
	defer span.End()

	in.RawText = strings.TrimSpace(in.RawText)
	in.SourceType = strings.TrimSpace(in.SourceType)
	in.Status = strings.TrimSpace(in.Status)
	switch {
	case in.RawText == "":
		return nil, fmt.Errorf("%w: raw_text is required", ErrInvalidInput)
	case in.SourceType == "":
		return nil, fmt.Errorf("%w: source_type is required", ErrInvalidInput)
	case in.Status == "":
		return nil, fmt.Errorf("%w: status is required", ErrInvalidInput)
	case !domain.ValidContentStatus(in.Status):
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(in.Priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, in.Priority)
	}

	c := &domain.Content{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		RawText:     in.RawText,
		SourceType:  in.SourceType,
		SourceURL:   strings.TrimSpace(in.SourceURL),
		ContentType: in.ContentType,
		Status:      in.Status,
		Priority:    in.Priority,
		Audiences:   domain.StringList(in.Audiences),
		Score:       in.Score,
		IsFeatured:  in.IsFeatured,
		IsEvergreen: in.IsEvergreen,
	}
	if err := repo.CreateContent(ctx, s.DB, c); err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, cacheDashboard)
	return c, nil
}

// Update applies the non-nil fields of in and returns the updated item.
func (s *ContentService) Update(ctx context.Context, id string, in ContentUpdate) (*domain.Content, error) {
	ctx, span := otel.Tracer("services/ContentService").Start(ctx, "Update",
		trace.WithAttributes(attribute.String("content.id", id)),
	)
	defer span.End()

	fields, err := in.fields()
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateContent(ctx, s.DB, id, fields); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}
	s.Cache.Invalidate(ctx, cacheContent+id)
	return s.Get(ctx, id)
}

// Archive moves a content item to the archived status.
func (s *ContentService) Archive(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("services/ContentService").Start(ctx, "Archive",
		trace.WithAttributes(attribute.String("content.id", id)),
	)
	defer span.End()

	if err := repo.ArchiveContent(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrContentNotFound
		}
		return err
	}
	s.Cache.Invalidate(ctx, cacheContent+id)
	return nil
}

// Export returns every content item matching f, up to ExportMaxRows.
func (s *ContentService) Export(ctx context.Context, f filters.ContentFilters) ([]domain.Content, error) {
	ctx, span := otel.Tracer("services/ContentService").Start(ctx, "Export")
	defer span.End()

	return repo.ListContentsPage(ctx, s.DB, f, 0, exportLimit(s.ExportMaxRows))
}

// fields converts the update into a column map, validating enums.
func (u ContentUpdate) fields() (map[string]any, error) {
	m := map[string]any{}
	if u.Status != nil {
		if !domain.ValidContentStatus(*u.Status) {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *u.Status)
		}
		m["status"] = *u.Status
	}
	if u.Priority != nil {
		if !domain.ValidPriority(*u.Priority) {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, *u.Priority)
		}
		m["priority"] = *u.Priority
	}
	if u.RawText != nil {
		if strings.TrimSpace(*u.RawText) == "" {
			return nil, fmt.Errorf("%w: raw_text cannot be empty", ErrInvalidInput)
		}
		m["raw_text"] = *u.RawText
	}
	if u.SourceType != nil {
		if strings.TrimSpace(*u.SourceType) == "" {
			return nil, fmt.Errorf("%w: source_type cannot be empty", ErrInvalidInput)
		}
		m["source_type"] = *u.SourceType
	}
	if u.Title != nil {
		m["title"] = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		m["description"] = *u.Description
	}
	if u.SourceURL != nil {
		m["source_url"] = *u.SourceURL
	}
	if u.ContentType != nil {
		m["content_type"] = *u.ContentType
	}
	if u.Audiences != nil {
		m["audiences"] = domain.StringList(*u.Audiences)
	}
	if u.Score != nil {
		m["score"] = *u.Score
	}
	if u.IsFeatured != nil {
		m["is_featured"] = *u.IsFeatured
	}
	if u.IsEvergreen != nil {
		m["is_evergreen"] = *u.IsEvergreen
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	return m, nil
}
