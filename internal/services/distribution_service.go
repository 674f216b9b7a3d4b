package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/cache"
	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/filters"
	"github.com/CachoMX/vhlabs/internal/notify"
	"github.com/CachoMX/vhlabs/internal/repo"
	"github.com/CachoMX/vhlabs/internal/search"
	"github.com/CachoMX/vhlabs/internal/utils"
)

// SendRequest asks for one distribution per contact.
type SendRequest struct {
	ContentID      string     `json:"content_id"      binding:"required"`
	GHLContactIDs  []string   `json:"ghl_contact_ids" binding:"required"`
	Channel        string     `json:"channel"         binding:"required,channel"`
	MessageType    string     `json:"message_type"    binding:"omitempty,max=32"`
	Subject        string     `json:"subject"         binding:"omitempty,max=255"`
	MessageContent string     `json:"message_content"`
	ScheduledFor   *time.Time `json:"scheduled_for"`
}

// IdempotencyRef identifies a retried request. A blank Key disables replay
// detection.
type IdempotencyRef struct {
	UserID string
	Scope  string
	Key    string
}

// SendResult is the outcome of a send. Replayed is true when the rows were
// created by an earlier request with the same idempotency key.
type SendResult struct {
	Distributions []domain.Distribution `json:"distributions"`
	Replayed      bool                  `json:"replayed"`
}

// ChannelChartFilters narrows the per-channel chart.
type ChannelChartFilters struct {
	filters.DashboardFilters
	Channel string `form:"channel"`
	Status  string `form:"status"`
}

// DistributionService lists outreach across channels and records sends.
type DistributionService struct {
	DB             *gorm.DB
	Cache          *cache.Cache
	TTL            time.Duration
	Webhook        *notify.Webhook
	IdempotencyTTL time.Duration
	ExportMaxRows  int

	// now is stubbed in tests.
	now func() time.Time
}

func (s *DistributionService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// ListPage returns one page of the unified distribution view with each
// row's contact attached. A search term filters the returned page only, and
// the total then reports the filtered count.
func (s *DistributionService) ListPage(ctx context.Context, f filters.DistributionFilters, page, pageSize int) ([]domain.DistributionWithContact, int64, error) {
	ctx, span := otel.Tracer("services/DistributionService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("filter.channel", f.Channel),
			attribute.Bool("filter.search", f.Search != ""),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	q, err := s.query(f)
	if err != nil {
		return nil, 0, err
	}
	page, pageSize = utils.ClampPage(page, pageSize)

	total, err := repo.CountAllDistributions(ctx, s.DB, q)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.DistributionWithContact{}, 0, nil
	}
	rows, err := repo.ListAllDistributionsPage(ctx, s.DB, q, utils.Offset(page, pageSize), pageSize)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.withContacts(ctx, rows)
	if err != nil {
		return nil, 0, err
	}

	if m := search.NewMatcher(f.Search); !m.Empty() {
		items = search.Filter(m, items, contactFields)
		total = int64(len(items))
	}
	return items, total, nil
}

// Export returns every distribution matching f with contacts attached, up
// to ExportMaxRows.
func (s *DistributionService) Export(ctx context.Context, f filters.DistributionFilters) ([]domain.DistributionWithContact, error) {
	ctx, span := otel.Tracer("services/DistributionService").Start(ctx, "Export")
	defer span.End()

	q, err := s.query(f)
	if err != nil {
		return nil, err
	}
	rows, err := repo.ListAllDistributionsPage(ctx, s.DB, q, 0, exportLimit(s.ExportMaxRows))
	if err != nil {
		return nil, err
	}
	items, err := s.withContacts(ctx, rows)
	if err != nil {
		return nil, err
	}
	return search.Filter(search.NewMatcher(f.Search), items, contactFields), nil
}

// Create writes one distribution per contact. Scheduled sends are stored
// as "scheduled" with no sent_at; immediate sends are "sent" now. The n8n
// send webhook is notified afterwards and its failure does not fail the
// send.
func (s *DistributionService) Create(ctx context.Context, req SendRequest, idem IdempotencyRef) (*SendResult, error) {
	ctx, span := otel.Tracer("services/DistributionService").Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("content.id", req.ContentID),
			attribute.String("channel", req.Channel),
			attribute.Int("contacts", len(req.GHLContactIDs)),
			attribute.Bool("idempotent", idem.Key != ""),
		),
	)
	defer span.End()

	ids := uniqueIDs(req.GHLContactIDs)
	if len(ids) == 0 {
		return nil, ErrNoContacts
	}
	req.Channel = strings.ToLower(strings.TrimSpace(req.Channel))
	if !domain.ValidSendChannel(req.Channel) {
		return nil, ErrInvalidChannel
	}
	if strings.TrimSpace(req.ContentID) == "" {
		return nil, fmt.Errorf("%w: content_id is required", ErrInvalidInput)
	}

	if res, ok, err := s.replay(ctx, idem); err != nil || ok {
		return res, err
	}
	if _, err := repo.GetContent(ctx, s.DB, req.ContentID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}

	now := s.clock()
	status, sentAt, scheduledFor := domain.DistSent, &now, &now
	if req.ScheduledFor != nil {
		at := req.ScheduledFor.UTC()
		status, sentAt, scheduledFor = domain.DistScheduled, nil, &at
	}
	contentID := req.ContentID
	rows := make([]domain.Distribution, len(ids))
	for i, gid := range ids {
		rows[i] = domain.Distribution{
			ContentID:      &contentID,
			GHLContactID:   gid,
			Channel:        req.Channel,
			MessageType:    req.MessageType,
			Subject:        req.Subject,
			MessageContent: req.MessageContent,
			Status:         status,
			ScheduledFor:   scheduledFor,
			SentAt:         sentAt,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateDistributions(ctx, tx, rows); err != nil {
			return err
		}
		if idem.Key == "" {
			return nil
		}
		_, err := repo.CreateIdempotency(ctx, tx, idem.UserID, idem.Scope, idem.Key,
			joinIDs(rows), 201, s.IdempotencyTTL)
		return err
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// A concurrent request with the same key committed first.
		if res, ok, rerr := s.replay(ctx, idem); rerr != nil || ok {
			return res, rerr
		}
	}
	if err != nil {
		return nil, err
	}

	s.Cache.Invalidate(ctx, cacheDistributions)
	s.Cache.Invalidate(ctx, cacheContent)
	s.Cache.Invalidate(ctx, cacheDashboard)
	s.notify(ctx, req, rows, idem.UserID)

	return &SendResult{Distributions: rows}, nil
}

// HasResult reports whether a completed send is stored for the key.
func (s *DistributionService) HasResult(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Performance returns v_distribution_performance. Results are cached.
func (s *DistributionService) Performance(ctx context.Context) ([]domain.DistributionPerformance, error) {
	ctx, span := otel.Tracer("services/DistributionService").Start(ctx, "Performance")
	defer span.End()

	return cache.GetOrLoad(ctx, s.Cache, cacheDistributions+"performance", s.TTL,
		func(ctx context.Context) ([]domain.DistributionPerformance, error) {
			return repo.ListDistributionPerformance(ctx, s.DB)
		})
}

// ChartByChannel returns sent counts per channel for the chart. Results
// are cached per filter set.
func (s *DistributionService) ChartByChannel(ctx context.Context, f ChannelChartFilters) ([]domain.ChannelCount, error) {
	ctx, span := otel.Tracer("services/DistributionService").Start(ctx, "ChartByChannel",
		trace.WithAttributes(attribute.String("filter.preset", f.Preset)),
	)
	defer span.End()

	rng, err := f.Resolve(s.clock())
	if err != nil {
		return nil, invalidDates(err)
	}
	v := f.Encode()
	v.Set("channel", f.Channel)
	v.Set("status", f.Status)
	key := cacheDistributions + "by-channel:" + filters.Key(v)
	if f.Preset != "" && f.Preset != filters.PresetCustom {
		// Relative presets move with the clock; key them by day.
		key += ":" + s.clock().Format("2006-01-02")
	}

	return cache.GetOrLoad(ctx, s.Cache, key, s.TTL,
		func(ctx context.Context) ([]domain.ChannelCount, error) {
			return repo.DistributionsByChannel(ctx, s.DB, rng.Start, rng.End, f.Channel, f.Status)
		})
}

// query resolves the date bounds of f. Date-only upper bounds cover the
// whole day.
func (s *DistributionService) query(f filters.DistributionFilters) (repo.DistributionQuery, error) {
	rng, err := dateRange(f.DateFrom, f.DateTo)
	if err != nil {
		return repo.DistributionQuery{}, err
	}
	return repo.DistributionQuery{Channel: f.Channel, From: rng.Start, To: rng.End}, nil
}

// withContacts attaches contacts to rows with a single lookup.
func (s *DistributionService) withContacts(ctx context.Context, rows []domain.AllDistribution) ([]domain.DistributionWithContact, error) {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.GHLID)
	}
	refs, err := repo.ContactsByGHLIDs(ctx, s.DB, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.ContactRef, len(refs))
	for i := range refs {
		byID[refs[i].GHLID] = &refs[i]
	}
	out := make([]domain.DistributionWithContact, len(rows))
	for i, r := range rows {
		out[i] = domain.DistributionWithContact{AllDistribution: r, Contact: byID[r.GHLID]}
	}
	return out, nil
}

func (s *DistributionService) replay(ctx context.Context, idem IdempotencyRef) (*SendResult, bool, error) {
	if idem.Key == "" {
		return nil, false, nil
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, idem.UserID, idem.Scope, idem.Key, s.clock())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	rows, err := repo.DistributionsByIDs(ctx, s.DB, strings.Split(rec.ResultRef, ","))
	if err != nil {
		return nil, false, err
	}
	return &SendResult{Distributions: rows, Replayed: true}, true, nil
}

func (s *DistributionService) notify(ctx context.Context, req SendRequest, rows []domain.Distribution, userID string) {
	if !s.Webhook.Enabled() {
		return
	}
	ids := make([]string, len(rows))
	contacts := make([]string, len(rows))
	for i, r := range rows {
		ids[i], contacts[i] = r.ID, r.GHLContactID
	}
	err := s.Webhook.Notify(context.WithoutCancel(ctx), notify.DistributionsCreated{
		ContentID:       req.ContentID,
		Channel:         req.Channel,
		DistributionIDs: ids,
		GHLContactIDs:   contacts,
		ScheduledFor:    req.ScheduledFor,
		RequestedBy:     userID,
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("content_id", req.ContentID).
			Int("distributions", len(rows)).
			Msg("send webhook failed")
	}
}

func contactFields(d domain.DistributionWithContact) []string {
	if d.Contact == nil {
		return nil
	}
	return []string{d.Contact.FirstName + " " + d.Contact.LastName, d.Contact.Email, d.Contact.Phone}
}

// uniqueIDs trims ids and drops blanks and repeats, keeping first-seen
// order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func joinIDs(rows []domain.Distribution) string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return strings.Join(ids, ",")
}
