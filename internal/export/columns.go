package export

import "github.com/CachoMX/vhlabs/internal/domain"

// ContactColumns is the contact export layout.
var ContactColumns = []Column[domain.ContactOverview]{
	{"ghl_id", func(c domain.ContactOverview) any { return c.GHLID }},
	{"first_name", func(c domain.ContactOverview) any { return c.FirstName }},
	{"last_name", func(c domain.ContactOverview) any { return c.LastName }},
	{"email", func(c domain.ContactOverview) any { return c.Email }},
	{"phone", func(c domain.ContactOverview) any { return c.Phone }},
	{"segment", func(c domain.ContactOverview) any { return c.SegmentName }},
	{"investor_status", func(c domain.ContactOverview) any { return c.InvestorStatusName }},
	{"score", func(c domain.ContactOverview) any { return c.Score }},
	{"tags", func(c domain.ContactOverview) any { return c.Tags }},
	{"touchpoint_count", func(c domain.ContactOverview) any { return c.TouchpointCount }},
	{"response_count", func(c domain.ContactOverview) any { return c.ResponseCount }},
	{"last_touchpoint_at", func(c domain.ContactOverview) any { return c.LastTouchpointAt }},
	{"last_response_at", func(c domain.ContactOverview) any { return c.LastResponseAt }},
}

// ContentColumns is the content export layout.
var ContentColumns = []Column[domain.Content]{
	{"id", func(c domain.Content) any { return c.ID }},
	{"title", func(c domain.Content) any { return c.Title }},
	{"source_type", func(c domain.Content) any { return c.SourceType }},
	{"source_url", func(c domain.Content) any { return c.SourceURL }},
	{"content_type", func(c domain.Content) any { return c.ContentType }},
	{"status", func(c domain.Content) any { return c.Status }},
	{"priority", func(c domain.Content) any { return c.Priority }},
	{"audiences", func(c domain.Content) any { return c.Audiences }},
	{"score", func(c domain.Content) any { return c.Score }},
	{"is_featured", func(c domain.Content) any { return c.IsFeatured }},
	{"is_evergreen", func(c domain.Content) any { return c.IsEvergreen }},
	{"created_at", func(c domain.Content) any { return c.CreatedAt }},
}

// DistributionColumns is the distribution export layout.
var DistributionColumns = []Column[domain.DistributionWithContact]{
	{"id", func(d domain.DistributionWithContact) any { return d.ID }},
	{"source", func(d domain.DistributionWithContact) any { return d.Source }},
	{"channel", func(d domain.DistributionWithContact) any { return d.Channel }},
	{"status", func(d domain.DistributionWithContact) any { return d.Status }},
	{"subject", func(d domain.DistributionWithContact) any { return d.Subject }},
	{"ghl_id", func(d domain.DistributionWithContact) any { return d.GHLID }},
	{"contact_name", func(d domain.DistributionWithContact) any {
		if d.Contact == nil {
			return nil
		}
		return domain.Contact{FirstName: d.Contact.FirstName, LastName: d.Contact.LastName}.FullName()
	}},
	{"contact_email", func(d domain.DistributionWithContact) any {
		if d.Contact == nil {
			return nil
		}
		return d.Contact.Email
	}},
	{"sent_at", func(d domain.DistributionWithContact) any { return d.SentAt }},
	{"response_received", func(d domain.DistributionWithContact) any { return d.ResponseReceived }},
}

// EventColumns is the analytics event export layout.
var EventColumns = []Column[domain.AnalyticsEvent]{
	{"id", func(e domain.AnalyticsEvent) any { return e.ID }},
	{"event_type", func(e domain.AnalyticsEvent) any { return e.EventType }},
	{"event_category", func(e domain.AnalyticsEvent) any { return e.EventCategory }},
	{"workflow_name", func(e domain.AnalyticsEvent) any { return e.WorkflowName }},
	{"success", func(e domain.AnalyticsEvent) any { return e.Success }},
	{"duration_ms", func(e domain.AnalyticsEvent) any { return e.DurationMS }},
	{"event_data", func(e domain.AnalyticsEvent) any { return e.EventData }},
	{"created_at", func(e domain.AnalyticsEvent) any { return e.CreatedAt }},
}
