package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/cache"
	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/repo"
)

const (
	recentActivityLimit = 20
	systemHealthLimit   = 10

	// unassigned labels contacts with no segment or status.
	unassigned = "unassigned"
)

// KPIs are the dashboard's headline numbers.
type KPIs struct {
	TotalContent       int64   `json:"total_content"`
	DistributionsToday int64   `json:"distributions_today"`
	OpenRate           float64 `json:"open_rate"`
	ResponseRate       float64 `json:"response_rate"`
}

// SegmentShare is one segment's slice of the contact base.
type SegmentShare struct {
	Segment    string  `json:"segment"`
	Label      string  `json:"label"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// StatusCount is the number of contacts with one investor status.
type StatusCount struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

// ContactBreakdown groups the contact base by segment and investor status.
type ContactBreakdown struct {
	Segments      []SegmentShare `json:"segments"`
	Statuses      []StatusCount  `json:"statuses"`
	TotalContacts int64          `json:"total_contacts"`
}

// TrendPoint is one UTC day of engagement.
type TrendPoint struct {
	Date         string  `json:"date"`
	Sent         int64   `json:"sent"`
	Responses    int64   `json:"responses"`
	ResponseRate float64 `json:"response_rate"`
}

// SystemHealth summarizes recent workflow failures.
type SystemHealth struct {
	ErrorLogs       []domain.WorkflowLog `json:"error_logs"`
	ErrorCount      int                  `json:"error_count"`
	LatestErrorTime *time.Time           `json:"latest_error_time"`
}

// DashboardService computes the overview page's aggregates.
type DashboardService struct {
	DB       *gorm.DB
	Cache    *cache.Cache
	LongTTL  time.Duration
	ShortTTL time.Duration

	// now is stubbed in tests.
	now func() time.Time
}

func (s *DashboardService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// KPIs returns total content, distributions sent since midnight UTC and
// the average open and response rates over channels that have one.
func (s *DashboardService) KPIs(ctx context.Context) (*KPIs, error) {
	ctx, span := otel.Tracer("services/DashboardService").Start(ctx, "KPIs")
	defer span.End()

	now := s.clock()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	key := cacheDashboard + "kpis:" + midnight.Format("2006-01-02")

	return cache.GetOrLoad(ctx, s.Cache, key, s.LongTTL, func(ctx context.Context) (*KPIs, error) {
		total, err := repo.CountAllContents(ctx, s.DB)
		if err != nil {
			return nil, err
		}
		today, err := repo.CountDistributionsSince(ctx, s.DB, midnight)
		if err != nil {
			return nil, err
		}
		perf, err := repo.ListDistributionPerformance(ctx, s.DB)
		if err != nil {
			return nil, err
		}
		open := make([]float64, 0, len(perf))
		resp := make([]float64, 0, len(perf))
		for _, p := range perf {
			open = append(open, p.OpenRate)
			resp = append(resp, p.ResponseRate)
		}
		return &KPIs{
			TotalContent:       total,
			DistributionsToday: today,
			OpenRate:           round2(positiveMean(open)),
			ResponseRate:       round2(positiveMean(resp)),
		}, nil
	})
}

// ContactBreakdown counts contacts per segment (with share of the total)
// and per investor status, largest first.
func (s *DashboardService) ContactBreakdown(ctx context.Context) (*ContactBreakdown, error) {
	ctx, span := otel.Tracer("services/DashboardService").Start(ctx, "ContactBreakdown")
	defer span.End()

	segGroups, err := repo.ContactsGroupedBy(ctx, s.DB, "segment")
	if err != nil {
		return nil, err
	}
	statusGroups, err := repo.ContactsGroupedBy(ctx, s.DB, "investor_status")
	if err != nil {
		return nil, err
	}
	segNames, statusNames, err := s.lookupNames(ctx)
	if err != nil {
		return nil, err
	}

	out := &ContactBreakdown{Segments: []SegmentShare{}, Statuses: []StatusCount{}}
	segs := mergeGroups(segGroups)
	for _, g := range segs {
		out.TotalContacts += g.count
	}
	for _, g := range segs {
		share := SegmentShare{Segment: g.key, Label: label(g.key, segNames), Count: g.count}
		if out.TotalContacts > 0 {
			share.Percentage = float64(g.count) / float64(out.TotalContacts) * 100
		}
		out.Segments = append(out.Segments, share)
	}
	for _, g := range mergeGroups(statusGroups) {
		out.Statuses = append(out.Statuses, StatusCount{Status: g.key, Label: label(g.key, statusNames), Count: g.count})
	}
	return out, nil
}

// EngagementTrends returns sent and responded distributions per UTC day
// within f's range, oldest first.
func (s *DashboardService) EngagementTrends(ctx context.Context, f filters.DashboardFilters) ([]TrendPoint, error) {
	ctx, span := otel.Tracer("services/DashboardService").Start(ctx, "EngagementTrends",
		trace.WithAttributes(attribute.String("filter.preset", f.Preset)),
	)
	defer span.End()

	rng, err := f.Resolve(s.clock())
	if err != nil {
		return nil, invalidDates(err)
	}
	rows, err := repo.ListEngagementRows(ctx, s.DB, rng.Start, rng.End)
	if err != nil {
		return nil, err
	}
	return BucketByDay(rows), nil
}

// RecentActivity returns the latest analytics events. Results are cached
// briefly.
func (s *DashboardService) RecentActivity(ctx context.Context) ([]domain.AnalyticsEvent, error) {
	ctx, span := otel.Tracer("services/DashboardService").Start(ctx, "RecentActivity")
	defer span.End()

	return cache.GetOrLoad(ctx, s.Cache, cacheDashboard+"recent-activity", s.ShortTTL,
		func(ctx context.Context) ([]domain.AnalyticsEvent, error) {
			return repo.RecentEvents(ctx, s.DB, recentActivityLimit)
		})
}

// SystemHealth returns the latest workflow errors. Results are cached
// briefly.
func (s *DashboardService) SystemHealth(ctx context.Context) (*SystemHealth, error) {
	ctx, span := otel.Tracer("services/DashboardService").Start(ctx, "SystemHealth")
	defer span.End()

	return cache.GetOrLoad(ctx, s.Cache, cacheDashboard+"system-health", s.ShortTTL,
		func(ctx context.Context) (*SystemHealth, error) {
			logs, err := repo.RecentWorkflowErrors(ctx, s.DB, systemHealthLimit)
			if err != nil {
				return nil, err
			}
			h := &SystemHealth{ErrorLogs: logs, ErrorCount: len(logs)}
			if len(logs) > 0 {
				t := logs[0].CreatedAt
				h.LatestErrorTime = &t
			}
			return h, nil
		})
}

// BucketByDay groups engagement rows by UTC calendar day.
func BucketByDay(rows []repo.EngagementRow) []TrendPoint {
	byDay := map[string]*TrendPoint{}
	for _, r := range rows {
		d := r.SentAt.UTC().Format("2006-01-02")
		p, ok := byDay[d]
		if !ok {
			p = &TrendPoint{Date: d}
			byDay[d] = p
		}
		p.Sent++
		if r.ResponseReceived {
			p.Responses++
		}
	}
	out := make([]TrendPoint, 0, len(byDay))
	for _, p := range byDay {
		if p.Sent > 0 {
			p.ResponseRate = float64(p.Responses) / float64(p.Sent) * 100
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *DashboardService) lookupNames(ctx context.Context) (segs, statuses map[string]string, err error) {
	segRows, err := repo.ListSegments(ctx, s.DB)
	if err != nil {
		return nil, nil, err
	}
	statusRows, err := repo.ListInvestorStatuses(ctx, s.DB)
	if err != nil {
		return nil, nil, err
	}
	segs = make(map[string]string, len(segRows))
	for _, r := range segRows {
		segs[r.Slug] = r.Name
	}
	statuses = make(map[string]string, len(statusRows))
	for _, r := range statusRows {
		statuses[r.Slug] = r.Name
	}
	return segs, statuses, nil
}

type keyedCount struct {
	key   string
	count int64
}

// mergeGroups folds NULL and empty keys into "unassigned" and sorts by
// count, then key.
func mergeGroups(gs []repo.GroupCount) []keyedCount {
	idx := map[string]int{}
	out := []keyedCount{}
	for _, g := range gs {
		k := unassigned
		if g.Key != nil && strings.TrimSpace(*g.Key) != "" {
			k = *g.Key
		}
		if i, ok := idx[k]; ok {
			out[i].count += g.Count
			continue
		}
		idx[k] = len(out)
		out = append(out, keyedCount{key: k, count: g.Count})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

// label returns the lookup table's display name for slug, or the slug in
// title case ("hot_lead" → "Hot Lead").
func label(slug string, names map[string]string) string {
	if n, ok := names[slug]; ok && n != "" {
		return n
	}
	return cases.Title(language.English).String(strings.NewReplacer("_", " ", "-", " ").Replace(slug))
}

// positiveMean averages the strictly positive values, or returns 0.
func positiveMean(xs []float64) float64 {
	var sum float64
	var n int
	for _, x := range xs {
		if x > 0 {
			sum += x
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
