package filters

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Date-range presets accepted by the dashboard.
const (
	PresetToday      = "today"
	PresetYesterday  = "yesterday"
	PresetLast7Days  = "last7days"
	PresetLast30Days = "last30days"
	PresetThisMonth  = "thisMonth"
	PresetLastMonth  = "lastMonth"
	PresetCustom     = "custom"
)

var (
	// ErrBadDate is returned when a custom range boundary cannot be parsed.
	ErrBadDate = errors.New("dates must be RFC3339 or YYYY-MM-DD")
	// ErrUnknownPreset is returned for a preset outside the named set.
	ErrUnknownPreset = errors.New("preset must be one of: today, yesterday, last7days, last30days, thisMonth, lastMonth, custom")
)

// DashboardFilters selects the date range for engagement trends.
type DashboardFilters struct {
	Preset    string `form:"preset"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// Encode returns the canonical query parameters, omitting empty fields.
func (f DashboardFilters) Encode() url.Values {
	v := url.Values{}
	setStr(v, "preset", f.Preset)
	setStr(v, "start_date", f.StartDate)
	setStr(v, "end_date", f.EndDate)
	return v
}

// Range is an inclusive time window. A nil bound is open.
type Range struct {
	Start *time.Time
	End   *time.Time
}

// Resolve turns the filters into a concrete range relative to now, in now's
// location. Named presets ignore StartDate/EndDate; "custom" (or explicit
// dates with no preset) parses them, treating a bare end date as the end of
// that day. With nothing set, the range is open on both sides. Any other
// preset is ErrUnknownPreset.
func (f DashboardFilters) Resolve(now time.Time) (Range, error) {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	endOf := func(d time.Time) time.Time { return d.AddDate(0, 0, 1).Add(-time.Millisecond) }

	span := func(start, end time.Time) Range { return Range{Start: &start, End: &end} }

	switch strings.TrimSpace(f.Preset) {
	case PresetToday:
		return span(today, endOf(today)), nil
	case PresetYesterday:
		y := today.AddDate(0, 0, -1)
		return span(y, endOf(y)), nil
	case PresetLast7Days:
		return span(today.AddDate(0, 0, -6), endOf(today)), nil
	case PresetLast30Days:
		return span(today.AddDate(0, 0, -29), endOf(today)), nil
	case PresetThisMonth:
		return span(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), endOf(today)), nil
	case PresetLastMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return span(first.AddDate(0, -1, 0), first.Add(-time.Millisecond)), nil
	case "", PresetCustom:
	default:
		return Range{}, ErrUnknownPreset
	}

	var r Range
	if s := strings.TrimSpace(f.StartDate); s != "" {
		t, _, err := parseDate(s, loc)
		if err != nil {
			return Range{}, err
		}
		r.Start = &t
	}
	if s := strings.TrimSpace(f.EndDate); s != "" {
		t, dateOnly, err := parseDate(s, loc)
		if err != nil {
			return Range{}, err
		}
		if dateOnly {
			t = endOf(t)
		}
		r.End = &t
	}
	return r, nil
}

// ParseBound parses an ISO date or timestamp used by list filters.
// Date-only values are interpreted in loc.
func ParseBound(s string, loc *time.Location) (time.Time, error) {
	t, _, err := parseDate(s, loc)
	return t, err
}

func parseDate(s string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, false, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, ErrBadDate
}
