// Package filters defines the per-feature list filters and their round trip
// through URL query parameters. Handlers bind them with gin's form binding;
// Encode produces the canonical query string so a filtered view can be
// bookmarked, shared, and used as a cache key.
package filters

import (
	"net/url"
	"strconv"
	"strings"
)

// ContactFilters narrows the contact overview list.
type ContactFilters struct {
	Search          string   `form:"search"`
	Segment         string   `form:"segment"`
	InvestorStatus  string   `form:"investor_status"`
	ScoreMin        *int     `form:"score_min"`
	ScoreMax        *int     `form:"score_max"`
	ExcludeSegments []string `form:"exclude_segments"`
	ExcludeStatuses []string `form:"exclude_statuses"`
	ExcludeScoreMin *int     `form:"exclude_score_min"`
	ExcludeScoreMax *int     `form:"exclude_score_max"`
}

// Normalize trims values and expands comma-separated list entries, so both
// ?exclude_segments=a&exclude_segments=b and ?exclude_segments=a,b work.
func (f *ContactFilters) Normalize() {
	f.Search = strings.TrimSpace(f.Search)
	f.Segment = strings.TrimSpace(f.Segment)
	f.InvestorStatus = strings.TrimSpace(f.InvestorStatus)
	f.ExcludeSegments = splitList(f.ExcludeSegments)
	f.ExcludeStatuses = splitList(f.ExcludeStatuses)
}

// Encode returns the canonical query parameters, omitting empty fields.
func (f ContactFilters) Encode() url.Values {
	v := url.Values{}
	setStr(v, "search", f.Search)
	setStr(v, "segment", f.Segment)
	setStr(v, "investor_status", f.InvestorStatus)
	setInt(v, "score_min", f.ScoreMin)
	setInt(v, "score_max", f.ScoreMax)
	for _, s := range f.ExcludeSegments {
		v.Add("exclude_segments", s)
	}
	for _, s := range f.ExcludeStatuses {
		v.Add("exclude_statuses", s)
	}
	setInt(v, "exclude_score_min", f.ExcludeScoreMin)
	setInt(v, "exclude_score_max", f.ExcludeScoreMax)
	return v
}

// ContentFilters narrows the content list.
type ContentFilters struct {
	Status   string `form:"status"`
	Priority string `form:"priority"`
	Audience string `form:"audience"`
}

// Normalize trims all fields.
func (f *ContentFilters) Normalize() {
	f.Status = strings.TrimSpace(f.Status)
	f.Priority = strings.TrimSpace(f.Priority)
	f.Audience = strings.TrimSpace(f.Audience)
}

// Encode returns the canonical query parameters, omitting empty fields.
func (f ContentFilters) Encode() url.Values {
	v := url.Values{}
	setStr(v, "status", f.Status)
	setStr(v, "priority", f.Priority)
	setStr(v, "audience", f.Audience)
	return v
}

// DistributionFilters narrows the unified distributions list. Dates are
// ISO-8601 strings compared against sent_at.
type DistributionFilters struct {
	Channel  string `form:"channel"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
	Search   string `form:"search"`
}

// Normalize trims all fields.
func (f *DistributionFilters) Normalize() {
	f.Channel = strings.TrimSpace(f.Channel)
	f.DateFrom = strings.TrimSpace(f.DateFrom)
	f.DateTo = strings.TrimSpace(f.DateTo)
	f.Search = strings.TrimSpace(f.Search)
}

// Encode returns the canonical query parameters, omitting empty fields.
func (f DistributionFilters) Encode() url.Values {
	v := url.Values{}
	setStr(v, "channel", f.Channel)
	setStr(v, "date_from", f.DateFrom)
	setStr(v, "date_to", f.DateTo)
	setStr(v, "search", f.Search)
	return v
}

// PromptFilters narrows the prompt list.
type PromptFilters struct {
	System   string `form:"system"`
	Category string `form:"category"`
}

// Normalize trims all fields.
func (f *PromptFilters) Normalize() {
	f.System = strings.TrimSpace(f.System)
	f.Category = strings.TrimSpace(f.Category)
}

// Encode returns the canonical query parameters, omitting empty fields.
func (f PromptFilters) Encode() url.Values {
	v := url.Values{}
	setStr(v, "system", f.System)
	setStr(v, "category", f.Category)
	return v
}

// AnalyticsFilters narrows analytics events and workflow logs. Status only
// applies to workflow logs; the event fields only apply to events.
type AnalyticsFilters struct {
	EventType     string `form:"event_type"`
	EventCategory string `form:"event_category"`
	WorkflowName  string `form:"workflow_name"`
	Status        string `form:"status"`
	StartDate     string `form:"start_date"`
	EndDate       string `form:"end_date"`
}

// Normalize trims all fields.
func (f *AnalyticsFilters) Normalize() {
	f.EventType = strings.TrimSpace(f.EventType)
	f.EventCategory = strings.TrimSpace(f.EventCategory)
	f.WorkflowName = strings.TrimSpace(f.WorkflowName)
	f.Status = strings.TrimSpace(f.Status)
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.EndDate = strings.TrimSpace(f.EndDate)
}

// Encode returns the canonical query parameters, omitting empty fields.
func (f AnalyticsFilters) Encode() url.Values {
	v := url.Values{}
	setStr(v, "event_type", f.EventType)
	setStr(v, "event_category", f.EventCategory)
	setStr(v, "workflow_name", f.WorkflowName)
	setStr(v, "status", f.Status)
	setStr(v, "start_date", f.StartDate)
	setStr(v, "end_date", f.EndDate)
	return v
}

// Key returns a stable string for v, suitable as a cache key suffix.
// url.Values.Encode sorts by key, so equal filters give equal keys.
func Key(v url.Values) string { return v.Encode() }

func setStr(v url.Values, k, s string) {
	if s != "" {
		v.Set(k, s)
	}
}

func setInt(v url.Values, k string, n *int) {
	if n != nil {
		v.Set(k, strconv.Itoa(*n))
	}
}

func splitList(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
