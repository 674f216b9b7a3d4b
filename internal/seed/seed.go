package seed

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/CachoMX/vhlabs/internal/domain"
	"github.com/CachoMX/vhlabs/internal/repo"
	"github.com/CachoMX/vhlabs/internal/services"
)

// ErrAlreadySeeded is returned when the sample contacts already exist.
var ErrAlreadySeeded = errors.New("sample data already present")

// Result counts the rows Run inserted.
type Result struct {
	Contacts      int
	Contents      int
	Hooks         int
	Distributions int
	Events        int
	WorkflowLogs  int
	Prompts       ImportSummary
}

// Run inserts the lookup tables, sample contacts, content, distributions,
// analytics and the starter prompt library. Timestamps are relative to now.
// Lookups and prompts are safe to re-run; everything else is inserted once.
func Run(ctx context.Context, db *gorm.DB, now time.Time) (Result, error) {
	log := zerolog.Ctx(ctx)
	var res Result

	if err := repo.UpsertSegments(ctx, db, segments()); err != nil {
		return res, err
	}
	if err := repo.UpsertInvestorStatuses(ctx, db, investorStatuses()); err != nil {
		return res, err
	}

	prompts, err := ParseLibrary(bytes.NewReader(defaultLibrary))
	if err != nil {
		return res, err
	}
	if res.Prompts, err = ImportPrompts(ctx, &services.PromptService{DB: db}, prompts); err != nil {
		return res, err
	}

	var existing int64
	if err := db.WithContext(ctx).Model(&domain.Contact{}).Where("ghl_id = ?", "GHL001").Count(&existing).Error; err != nil {
		return res, err
	}
	if existing > 0 {
		return res, ErrAlreadySeeded
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		contacts := sampleContacts(now)
		if err := repo.CreateContacts(ctx, tx, contacts); err != nil {
			return err
		}
		res.Contacts = len(contacts)

		contents := sampleContents(now)
		for i := range contents {
			if err := repo.CreateContent(ctx, tx, &contents[i]); err != nil {
				return err
			}
		}
		res.Contents = len(contents)

		hooks := sampleHooks(contents[0].ID, contents[1].ID, now)
		if err := repo.CreateHooks(ctx, tx, hooks); err != nil {
			return err
		}
		res.Hooks = len(hooks)

		dists := sampleDistributions(contents[0].ID, contents[1].ID, now)
		if err := repo.CreateDistributions(ctx, tx, dists); err != nil {
			return err
		}
		res.Distributions = len(dists)

		events := sampleEvents(now)
		if err := repo.CreateEvents(ctx, tx, events); err != nil {
			return err
		}
		res.Events = len(events)

		logs := sampleWorkflowLogs(now)
		if err := repo.CreateWorkflowLogs(ctx, tx, logs); err != nil {
			return err
		}
		res.WorkflowLogs = len(logs)
		return nil
	})
	if err != nil {
		return res, err
	}

	log.Info().
		Int("contacts", res.Contacts).
		Int("contents", res.Contents).
		Int("distributions", res.Distributions).
		Int("events", res.Events).
		Int("prompts_created", res.Prompts.Created).
		Msg("sample data seeded")
	return res, nil
}

func segments() []domain.Segment {
	return []domain.Segment{
		{Slug: "re_investors", Name: "RE Investors", Emoji: "🏠", Description: "Active and prospective real estate investors"},
		{Slug: "jv_partners", Name: "JV Partners", Emoji: "🤝", Description: "Joint venture and capital partners"},
		{Slug: "wholesalers", Name: "Wholesalers", Emoji: "📦", Description: "Deal finders and wholesalers"},
		{Slug: "lenders", Name: "Lenders", Emoji: "🏦", Description: "Private and hard money lenders"},
	}
}

func investorStatuses() []domain.InvestorStatus {
	return []domain.InvestorStatus{
		{Slug: "hot_lead", Name: "Hot Lead", PriorityLevel: 1},
		{Slug: "active_investor", Name: "Active Investor", PriorityLevel: 2},
		{Slug: "passive_investor", Name: "Passive Investor", PriorityLevel: 3},
		{Slug: "cold_lead", Name: "Cold Lead", PriorityLevel: 4},
	}
}

func days(now time.Time, n int) *time.Time {
	t := now.Add(-time.Duration(n) * 24 * time.Hour)
	return &t
}

func str(s string) *string { return &s }

func sampleContacts(now time.Time) []domain.Contact {
	return []domain.Contact{
		{
			GHLID: "GHL001", Email: "john.investor@example.com", Phone: "+1234567890",
			FirstName: "John", LastName: "Investor",
			Segment: str("re_investors"), InvestorStatus: str("active_investor"),
			Score: 85, Tags: domain.StringList{"high-value", "multifamily"},
			TouchpointCount: 12, ResponseCount: 8,
			LastTouchpointAt: days(now, 2), LastResponseAt: days(now, 3),
			SyncStatus: "active",
		},
		{
			GHLID: "GHL002", Email: "sarah.partner@example.com", Phone: "+1234567891",
			FirstName: "Sarah", LastName: "Partner",
			Segment: str("jv_partners"), InvestorStatus: str("hot_lead"),
			Score: 92, Tags: domain.StringList{"capital-partner", "experienced"},
			TouchpointCount: 5, ResponseCount: 4,
			LastTouchpointAt: days(now, 1), LastResponseAt: days(now, 1),
			SyncStatus: "active",
		},
		{
			GHLID: "GHL003", Email: "mike.wholesaler@example.com", Phone: "+1234567892",
			FirstName: "Mike", LastName: "Wholesaler",
			Segment: str("wholesalers"), InvestorStatus: str("passive_investor"),
			Score: 65, Tags: domain.StringList{"deal-finder"},
			TouchpointCount: 8, ResponseCount: 3,
			LastTouchpointAt: days(now, 5), LastResponseAt: days(now, 7),
			SyncStatus: "active",
		},
	}
}

func sampleContents(now time.Time) []domain.Content {
	score := func(v float64) *float64 { return &v }
	return []domain.Content{
		{
			Title:                 "Multifamily Investment Strategy Workshop",
			Description:           "Deep dive into multifamily investing strategies and market analysis",
			RawText:               "Workshop transcript",
			SourceType:            "workshop",
			SourceURL:             "https://example.com/workshop-recording",
			Audiences:             domain.StringList{"re_investors", "jv_partners"},
			ContentType:           "educational",
			Status:                domain.ContentReady,
			Priority:              domain.PriorityHigh,
			Score:                 score(88),
			IsFeatured:            true,
			IsEvergreen:           true,
			Clips:                 domain.JSON(`[{"start":"00:05:00","end":"00:06:30","description":"Common mistakes segment"}]`),
			ProcessingCompletedAt: &now,
		},
		{
			Title:                 "Market Update Q4 2024",
			Description:           "Latest market trends and opportunities in real estate",
			RawText:               "Call transcript",
			SourceType:            "call",
			SourceURL:             "https://example.com/market-update",
			Audiences:             domain.StringList{"re_investors", "wholesalers", "lenders"},
			ContentType:           "case_study",
			Status:                domain.ContentReady,
			Priority:              domain.PriorityMedium,
			Score:                 score(75),
			ProcessingCompletedAt: &now,
		},
	}
}

func sampleHooks(workshopID, updateID string, now time.Time) []domain.Hook {
	return []domain.Hook{
		{ContentID: workshopID, Text: "The biggest mistake investors make in multifamily deals", Timestamp: "00:05:23", HookType: "curiosity", CreatedAt: now},
		{ContentID: workshopID, Text: "How to analyze cash flow in 5 minutes", Timestamp: "00:12:45", HookType: "how_to", CreatedAt: now},
		{ContentID: updateID, Text: "Interest rates are creating unprecedented opportunities", Timestamp: "00:02:10", HookType: "insight", CreatedAt: now},
	}
}

func sampleDistributions(workshopID, updateID string, now time.Time) []domain.Distribution {
	return []domain.Distribution{
		{
			ContentID: &workshopID, GHLContactID: "GHL001",
			Channel: domain.ChannelEmail, MessageType: "teaser",
			Subject:        "New Workshop: Multifamily Investment Strategies",
			MessageContent: "Hey John, just dropped a new workshop...",
			Status:         domain.DistDelivered,
			SentAt:         days(now, 2), DeliveredAt: days(now, 2), OpenedAt: days(now, 2), ClickedAt: days(now, 2),
			ResponseReceived: true, ResponseText: "This looks great! When is the next one?", ResponseAt: days(now, 1),
			CreatedAt: *days(now, 2), UpdatedAt: *days(now, 1),
		},
		{
			ContentID: &workshopID, GHLContactID: "GHL002",
			Channel: domain.ChannelEmail, MessageType: "teaser",
			Subject:        "New Workshop: Multifamily Investment Strategies",
			MessageContent: "Hey Sarah, thought you might be interested...",
			Status:         domain.DistDelivered,
			SentAt:         days(now, 2), DeliveredAt: days(now, 2), OpenedAt: days(now, 1),
			CreatedAt: *days(now, 2), UpdatedAt: *days(now, 1),
		},
		{
			ContentID: &updateID, GHLContactID: "GHL001",
			Channel: domain.ChannelSMS, MessageType: "followup",
			MessageContent: "Quick market update - check your email!",
			Status:         domain.DistDelivered,
			SentAt:         days(now, 1), DeliveredAt: days(now, 1),
			CreatedAt: *days(now, 1), UpdatedAt: *days(now, 1),
		},
	}
}

func sampleEvents(now time.Time) []domain.AnalyticsEvent {
	ms := func(v int64) *int64 { return &v }
	return []domain.AnalyticsEvent{
		{EventType: "content_processed", EventCategory: "system2", WorkflowName: "Content Processing Pipeline", Success: true, DurationMS: ms(5420),
			EventData: domain.JSON(`{"hooks_extracted":2,"clips_identified":1}`), CreatedAt: *days(now, 2)},
		{EventType: "message_sent", EventCategory: "system3", WorkflowName: "Email Distribution", Success: true, DurationMS: ms(1230),
			EventData: domain.JSON(`{"channel":"email","recipients":2}`), CreatedAt: *days(now, 2)},
		{EventType: "response_received", EventCategory: "system1", WorkflowName: "Response Handler", Success: true, DurationMS: ms(850),
			EventData: domain.JSON(`{"sentiment":"positive"}`), CreatedAt: *days(now, 1)},
	}
}

func sampleWorkflowLogs(now time.Time) []domain.WorkflowLog {
	return []domain.WorkflowLog{
		{WorkflowName: "Content Processing Pipeline", ExecutionID: "exec-1001", Status: "success",
			StartedAt: *days(now, 2), CompletedAt: days(now, 2), CreatedAt: *days(now, 2)},
		{WorkflowName: "Email Distribution", ExecutionID: "exec-1002", Status: "error",
			ErrorMessage: "GHL API rate limit exceeded", StartedAt: *days(now, 1), CreatedAt: *days(now, 1)},
	}
}
