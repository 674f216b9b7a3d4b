package handlers

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/auth"
	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/export"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/http/middleware"
	"github.com/CachoMX/vhlabs/internal/services"
	"github.com/CachoMX/vhlabs/internal/utils"
)

//
// Service contracts (context-aware)
//

// ContactService reads CRM contacts and the lookup tables used to filter
// them.
type ContactService interface {
	ListPage(ctx context.Context, f filters.ContactFilters, page, pageSize int) ([]domain.ContactOverview, int64, error)
	Get(ctx context.Context, id string) (*services.ContactDetail, error)
	Export(ctx context.Context, f filters.ContactFilters) ([]domain.ContactOverview, error)
	Segments(ctx context.Context) ([]domain.Segment, error)
	InvestorStatuses(ctx context.Context) ([]domain.InvestorStatus, error)
}

// ContentService manages content items.
type ContentService interface {
	ListPage(ctx context.Context, f filters.ContentFilters, page, pageSize int) ([]domain.Content, int64, error)
	// Stats returns the match count and newest updated_at, used for ETags.
	Stats(ctx context.Context, f filters.ContentFilters) (int64, *time.Time, error)
	Get(ctx context.Context, id string) (*domain.Content, error)
	Hooks(ctx context.Context, id string) ([]domain.Hook, error)
	Distributions(ctx context.Context, id string) ([]domain.Distribution, error)
	Create(ctx context.Context, in services.ContentInput) (*domain.Content, error)
	Update(ctx context.Context, id string, in services.ContentUpdate) (*domain.Content, error)
	Archive(ctx context.Context, id string) error
	Export(ctx context.Context, f filters.ContentFilters) ([]domain.Content, error)
}

// DistributionService lists outreach and triggers sends.
type DistributionService interface {
	ListPage(ctx context.Context, f filters.DistributionFilters, page, pageSize int) ([]domain.DistributionWithContact, int64, error)
	Export(ctx context.Context, f filters.DistributionFilters) ([]domain.DistributionWithContact, error)
	Create(ctx context.Context, req services.SendRequest, idem services.IdempotencyRef) (*services.SendResult, error)
	Performance(ctx context.Context) ([]domain.DistributionPerformance, error)
	ChartByChannel(ctx context.Context, f services.ChannelChartFilters) ([]domain.ChannelCount, error)
	// HasResult backs the idempotency middleware's replay lookup.
	HasResult(ctx context.Context, userID, scope, key string, now time.Time) (bool, error)
}

// PromptService manages the versioned prompt library.
type PromptService interface {
	ListPage(ctx context.Context, f filters.PromptFilters, page, pageSize int) ([]domain.Prompt, int64, error)
	Stats(ctx context.Context, f filters.PromptFilters) (int64, *time.Time, error)
	Get(ctx context.Context, id string) (*services.PromptDetail, error)
	Create(ctx context.Context, in services.PromptInput) (*domain.Prompt, error)
	UpdateVersion(ctx context.Context, promptID string, in services.PromptInput) (*domain.Prompt, error)
	ToggleActive(ctx context.Context, id string, active bool) error
	Render(ctx context.Context, id string, vars map[string]string) (*services.RenderResult, error)
}

// AnalyticsService reads workflow analytics.
type AnalyticsService interface {
	Events(ctx context.Context, f filters.AnalyticsFilters, page, pageSize int) ([]domain.AnalyticsEvent, int64, error)
	Workflows(ctx context.Context, f filters.AnalyticsFilters, page, pageSize int) ([]domain.WorkflowLog, int64, error)
	Export(ctx context.Context, f filters.AnalyticsFilters) ([]domain.AnalyticsEvent, error)
}

// DashboardService computes the overview aggregates.
type DashboardService interface {
	KPIs(ctx context.Context) (*services.KPIs, error)
	ContactBreakdown(ctx context.Context) (*services.ContactBreakdown, error)
	EngagementTrends(ctx context.Context, f filters.DashboardFilters) ([]services.TrendPoint, error)
	RecentActivity(ctx context.Context) ([]domain.AnalyticsEvent, error)
	SystemHealth(ctx context.Context) (*services.SystemHealth, error)
}

// AuthService signs users in and out.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Logout(ctx context.Context, accessToken string) error
	User(ctx context.Context, accessToken string) (*auth.User, error)
}

//
// Handler wiring
//

// Services bundles the dependencies of Handlers.
type Services struct {
	Contacts      ContactService
	Contents      ContentService
	Distributions DistributionService
	Prompts       PromptService
	Analytics     AnalyticsService
	Dashboard     DashboardService
	Auth          AuthService
}

// Handlers groups the HTTP endpoints of the dashboard API.
type Handlers struct {
	contacts      ContactService
	contents      ContentService
	distributions DistributionService
	prompts       PromptService
	analytics     AnalyticsService
	dashboard     DashboardService
	auth          AuthService

	// now is stubbed in tests.
	now func() time.Time
}

// New builds Handlers and registers the custom binding rules.
func New(s Services) *Handlers {
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	return &Handlers{
		contacts:      s.Contacts,
		contents:      s.Contents,
		distributions: s.Distributions,
		prompts:       s.Prompts,
		analytics:     s.Analytics,
		dashboard:     s.Dashboard,
		auth:          s.Auth,
		now:           time.Now,
	}
}

//
// Helpers
//

// pageParams reads page and page_size, clamped to [1, utils.MaxPageSize].
func pageParams(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(
		utils.AtoiDefault(c.Query("page"), 1),
		utils.AtoiDefault(c.Query("page_size"), utils.DefaultPageSize),
	)
}

// normalizer is implemented by the filters structs.
type normalizer interface{ Normalize() }

// bindFilters binds query parameters into f and normalizes them. It writes
// the 400 itself and reports whether the handler may continue.
func bindFilters(c *gin.Context, f any) bool {
	if err := c.ShouldBindQuery(f); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid query parameters: "+err.Error())
		return false
	}
	if n, ok := f.(normalizer); ok {
		n.Normalize()
	}
	return true
}

func bindJSON(c *gin.Context, body any) bool {
	if err := c.ShouldBindJSON(body); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindingMessage(err))
		return false
	}
	return true
}

func listPage[T any](c *gin.Context, items []T, page, pageSize int, total int64) {
	if items == nil {
		items = []T{}
	}
	ok(c, http.StatusOK, ListResponse[T]{Data: items, Pagination: utils.Paginate(page, pageSize, total)})
}

// checkETag sets a weak ETag derived from the list's identity and the
// table's (count, max updated_at), and answers 304 when If-None-Match
// matches. It is best effort: a stats error skips the ETag.
func checkETag(c *gin.Context, kind, key string, page, pageSize int, stats func() (int64, *time.Time, error)) bool {
	count, maxTS, err := stats()
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("list", kind).Msg("etag stats failed")
		return false
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.UnixNano()
	}
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s|%d|%d", key, page, pageSize)
	etag := fmt.Sprintf(`W/"%s:%x:%d:%d"`, kind, h.Sum64(), count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// writeCSV streams rows as an attachment named "<base>-YYYY-MM-DD.csv".
func writeCSV[T any](c *gin.Context, base string, cols []export.Column[T], rows []T, now time.Time) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(base, now)))
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, cols, rows); err != nil {
		// Headers are gone; all we can do is record it.
		_ = c.Error(err)
		middleware.LoggerFrom(c).Error().Err(err).Str("export", base).Msg("csv write failed")
	}
}
