package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CachoMX/vhlabs/internal/auth"
	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/http/middleware"
	"github.com/CachoMX/vhlabs/internal/services"
)

// ---------- service stubs ----------

type stubContacts struct {
	listPage func(filters.ContactFilters, int, int) ([]domain.ContactOverview, int64, error)
	get      func(string) (*services.ContactDetail, error)
	export   func(filters.ContactFilters) ([]domain.ContactOverview, error)
}

func (s stubContacts) ListPage(_ context.Context, f filters.ContactFilters, p, ps int) ([]domain.ContactOverview, int64, error) {
	if s.listPage != nil {
		return s.listPage(f, p, ps)
	}
	return nil, 0, nil
}

func (s stubContacts) Get(_ context.Context, id string) (*services.ContactDetail, error) {
	if s.get != nil {
		return s.get(id)
	}
	return nil, services.ErrContactNotFound
}

func (s stubContacts) Export(_ context.Context, f filters.ContactFilters) ([]domain.ContactOverview, error) {
	if s.export != nil {
		return s.export(f)
	}
	return nil, nil
}

func (stubContacts) Segments(context.Context) ([]domain.Segment, error) {
	return []domain.Segment{{ID: 1, Slug: "hnw", Name: "High net worth"}}, nil
}

func (stubContacts) InvestorStatuses(context.Context) ([]domain.InvestorStatus, error) {
	return nil, nil
}

type stubContents struct {
	stats    func(filters.ContentFilters) (int64, *time.Time, error)
	listPage func(filters.ContentFilters, int, int) ([]domain.Content, int64, error)
	create   func(services.ContentInput) (*domain.Content, error)
	update   func(string, services.ContentUpdate) (*domain.Content, error)
	archive  func(string) error
}

func (s stubContents) ListPage(_ context.Context, f filters.ContentFilters, p, ps int) ([]domain.Content, int64, error) {
	if s.listPage != nil {
		return s.listPage(f, p, ps)
	}
	return nil, 0, nil
}

func (s stubContents) Stats(_ context.Context, f filters.ContentFilters) (int64, *time.Time, error) {
	if s.stats != nil {
		return s.stats(f)
	}
	return 0, nil, nil
}

func (stubContents) Get(_ context.Context, id string) (*domain.Content, error) {
	return &domain.Content{ID: id}, nil
}

func (stubContents) Hooks(context.Context, string) ([]domain.Hook, error) { return nil, nil }

func (stubContents) Distributions(context.Context, string) ([]domain.Distribution, error) {
	return nil, services.ErrContentNotFound
}

func (s stubContents) Create(_ context.Context, in services.ContentInput) (*domain.Content, error) {
	if s.create != nil {
		return s.create(in)
	}
	return &domain.Content{ID: "new"}, nil
}

func (s stubContents) Update(_ context.Context, id string, in services.ContentUpdate) (*domain.Content, error) {
	if s.update != nil {
		return s.update(id, in)
	}
	return &domain.Content{ID: id}, nil
}

func (s stubContents) Archive(_ context.Context, id string) error {
	if s.archive != nil {
		return s.archive(id)
	}
	return nil
}

func (stubContents) Export(context.Context, filters.ContentFilters) ([]domain.Content, error) {
	return nil, nil
}

type stubDistributions struct {
	listPage func(filters.DistributionFilters, int, int) ([]domain.DistributionWithContact, int64, error)
	create   func(services.SendRequest, services.IdempotencyRef) (*services.SendResult, error)
	chart    func(services.ChannelChartFilters) ([]domain.ChannelCount, error)
}

func (s stubDistributions) ListPage(_ context.Context, f filters.DistributionFilters, p, ps int) ([]domain.DistributionWithContact, int64, error) {
	if s.listPage != nil {
		return s.listPage(f, p, ps)
	}
	return nil, 0, nil
}

func (stubDistributions) Export(context.Context, filters.DistributionFilters) ([]domain.DistributionWithContact, error) {
	return nil, nil
}

func (s stubDistributions) Create(_ context.Context, req services.SendRequest, idem services.IdempotencyRef) (*services.SendResult, error) {
	if s.create != nil {
		return s.create(req, idem)
	}
	return &services.SendResult{}, nil
}

func (stubDistributions) Performance(context.Context) ([]domain.DistributionPerformance, error) {
	return nil, nil
}

func (stubDistributions) HasResult(context.Context, string, string, string, time.Time) (bool, error) {
	return false, nil
}

func (s stubDistributions) ChartByChannel(_ context.Context, f services.ChannelChartFilters) ([]domain.ChannelCount, error) {
	if s.chart != nil {
		return s.chart(f)
	}
	return nil, nil
}

type stubPrompts struct {
	stats         func(filters.PromptFilters) (int64, *time.Time, error)
	create        func(services.PromptInput) (*domain.Prompt, error)
	updateVersion func(string, services.PromptInput) (*domain.Prompt, error)
	toggle        func(string, bool) error
	render        func(string, map[string]string) (*services.RenderResult, error)
}

func (stubPrompts) ListPage(context.Context, filters.PromptFilters, int, int) ([]domain.Prompt, int64, error) {
	return []domain.Prompt{{ID: "p1"}}, 1, nil
}

func (s stubPrompts) Stats(_ context.Context, f filters.PromptFilters) (int64, *time.Time, error) {
	if s.stats != nil {
		return s.stats(f)
	}
	return 0, nil, nil
}

func (stubPrompts) Get(context.Context, string) (*services.PromptDetail, error) {
	return nil, services.ErrPromptNotFound
}

func (s stubPrompts) Create(_ context.Context, in services.PromptInput) (*domain.Prompt, error) {
	if s.create != nil {
		return s.create(in)
	}
	return &domain.Prompt{ID: "p1", Version: 1}, nil
}

func (s stubPrompts) UpdateVersion(_ context.Context, id string, in services.PromptInput) (*domain.Prompt, error) {
	if s.updateVersion != nil {
		return s.updateVersion(id, in)
	}
	return &domain.Prompt{PromptID: id, Version: 2}, nil
}

func (s stubPrompts) ToggleActive(_ context.Context, id string, active bool) error {
	if s.toggle != nil {
		return s.toggle(id, active)
	}
	return nil
}

func (s stubPrompts) Render(_ context.Context, id string, vars map[string]string) (*services.RenderResult, error) {
	if s.render != nil {
		return s.render(id, vars)
	}
	return &services.RenderResult{}, nil
}

type stubAnalytics struct {
	events func(filters.AnalyticsFilters, int, int) ([]domain.AnalyticsEvent, int64, error)
}

func (s stubAnalytics) Events(_ context.Context, f filters.AnalyticsFilters, p, ps int) ([]domain.AnalyticsEvent, int64, error) {
	if s.events != nil {
		return s.events(f, p, ps)
	}
	return nil, 0, nil
}

func (stubAnalytics) Workflows(context.Context, filters.AnalyticsFilters, int, int) ([]domain.WorkflowLog, int64, error) {
	return nil, 0, nil
}

func (stubAnalytics) Export(context.Context, filters.AnalyticsFilters) ([]domain.AnalyticsEvent, error) {
	return []domain.AnalyticsEvent{{ID: "e1", EventType: "email_open"}}, nil
}

type stubDashboard struct {
	trends func(filters.DashboardFilters) ([]services.TrendPoint, error)
}

func (stubDashboard) KPIs(context.Context) (*services.KPIs, error) {
	return &services.KPIs{TotalContent: 3, OpenRate: 41.5}, nil
}

func (stubDashboard) ContactBreakdown(context.Context) (*services.ContactBreakdown, error) {
	return &services.ContactBreakdown{}, nil
}

func (s stubDashboard) EngagementTrends(_ context.Context, f filters.DashboardFilters) ([]services.TrendPoint, error) {
	if s.trends != nil {
		return s.trends(f)
	}
	return nil, nil
}

func (stubDashboard) RecentActivity(context.Context) ([]domain.AnalyticsEvent, error) {
	return nil, nil
}

func (stubDashboard) SystemHealth(context.Context) (*services.SystemHealth, error) {
	return &services.SystemHealth{}, nil
}

type stubAuth struct {
	login  func(string, string) (*auth.Session, error)
	logout func(string) error
	user   func(string) (*auth.User, error)
}

func (s stubAuth) Login(_ context.Context, email, password string) (*auth.Session, error) {
	if s.login != nil {
		return s.login(email, password)
	}
	return &auth.Session{AccessToken: "at"}, nil
}

func (s stubAuth) Logout(_ context.Context, token string) error {
	if s.logout != nil {
		return s.logout(token)
	}
	return nil
}

func (s stubAuth) User(_ context.Context, token string) (*auth.User, error) {
	if s.user != nil {
		return s.user(token)
	}
	return nil, auth.ErrMissingToken
}

// ---------- router harness ----------

// testServices fills every dependency with a default stub.
func testServices() Services {
	return Services{
		Contacts:      stubContacts{},
		Contents:      stubContents{},
		Distributions: stubDistributions{},
		Prompts:       stubPrompts{},
		Analytics:     stubAnalytics{},
		Dashboard:     stubDashboard{},
		Auth:          stubAuth{},
	}
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// newTestRouter mounts every handler the way the API router does, with a
// fixed user "u1" standing in for the auth middleware.
func newTestRouter(t *testing.T, s Services) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := New(s)
	h.now = func() time.Time { return fixedNow }

	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/auth/login", h.Login)

	api := r.Group("")
	api.Use(func(c *gin.Context) { c.Set("userID", "u1"); c.Next() })
	api.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))

	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", h.Me)

	api.GET("/contacts", h.ListContacts)
	api.GET("/contacts/export", h.ExportContacts)
	api.GET("/contacts/:id", h.GetContact)
	api.GET("/segments", h.ListSegments)
	api.GET("/investor-statuses", h.ListInvestorStatuses)

	api.GET("/contents", h.ListContents)
	api.POST("/contents", h.CreateContent)
	api.GET("/contents/:id", h.GetContent)
	api.PATCH("/contents/:id", h.UpdateContent)
	api.POST("/contents/:id/archive", h.ArchiveContent)
	api.GET("/contents/:id/hooks", h.ListContentHooks)
	api.GET("/contents/:id/distributions", h.ListContentDistributions)

	api.GET("/distributions", h.ListDistributions)
	api.POST("/distributions", h.CreateDistributions)
	api.GET("/distributions/export", h.ExportDistributions)
	api.GET("/distributions/by-channel", h.DistributionsByChannel)

	api.GET("/prompts", h.ListPrompts)
	api.POST("/prompts", h.CreatePrompt)
	api.GET("/prompts/:id", h.GetPrompt)
	api.POST("/prompts/:id/render", h.RenderPrompt)
	api.PATCH("/prompts/:id/active", h.TogglePromptActive)
	api.POST("/prompt-families/:promptId/versions", h.CreatePromptVersion)

	api.GET("/analytics/events", h.ListAnalyticsEvents)
	api.GET("/analytics/events/export", h.ExportAnalyticsEvents)
	api.GET("/dashboard/kpis", h.DashboardKPIs)
	api.GET("/dashboard/engagement", h.DashboardEngagement)
	return r
}

func do(r http.Handler, method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestRegisterValidators_Idempotent(t *testing.T) {
	if err := RegisterValidators(); err != nil {
		t.Fatal(err)
	}
	if err := RegisterValidators(); err != nil {
		t.Fatal(err)
	}
}
