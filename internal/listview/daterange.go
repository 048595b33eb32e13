package listview

import (
	"strings"
	"time"
)

// Preset is a named date range resolved relative to "now".
type Preset string

const (
	PresetToday       Preset = "today"
	PresetThisWeek    Preset = "this-week"
	PresetThisMonth   Preset = "this-month"
	PresetThisQuarter Preset = "this-quarter"
	PresetAllTime     Preset = "all-time"
)

// Presets lists the supported presets in display order.
var Presets = []Preset{PresetToday, PresetThisWeek, PresetThisMonth, PresetThisQuarter, PresetAllTime}

// ParsePreset accepts the preset names plus a few spellings the UI has used.
func ParsePreset(raw string) (Preset, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.ReplaceAll(v, "_", "-")
	switch v {
	case "", "all", "all-time", "alltime":
		return PresetAllTime, true
	case "today":
		return PresetToday, true
	case "this-week", "week":
		return PresetThisWeek, true
	case "this-month", "month":
		return PresetThisMonth, true
	case "this-quarter", "quarter":
		return PresetThisQuarter, true
	}
	return "", false
}

func (p Preset) orAllTime() Preset {
	if p == "" {
		return PresetAllTime
	}
	return p
}

// Range is a half-open interval [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.From) && t.Before(r.To)
}

// ResolvePreset turns a preset into concrete bounds in now's location. The
// boolean is false for all-time, which disables the predicate.
func ResolvePreset(p Preset, now time.Time) (Range, bool) {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	switch p.orAllTime() {
	case PresetToday:
		return Range{From: today, To: today.AddDate(0, 0, 1)}, true
	case PresetThisWeek:
		// Weeks start on Monday.
		offset := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return Range{From: start, To: start.AddDate(0, 0, 7)}, true
	case PresetThisMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return Range{From: start, To: start.AddDate(0, 1, 0)}, true
	case PresetThisQuarter:
		qm := time.Month((int(m)-1)/3*3 + 1)
		start := time.Date(y, qm, 1, 0, 0, 0, 0, loc)
		return Range{From: start, To: start.AddDate(0, 3, 0)}, true
	default:
		return Range{}, false
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate parses the ISO-ish date strings the backend emits. Values without
// a zone are read in loc.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
