// Package export renders finished searches as shareable artifacts: a PDF
// report with a summary header and one section per event, and a CSV table
// whose columns mirror the report fields. Timestamps are written without
// timezone offsets so spreadsheet tools ingest them cleanly.
package export

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/osintscope/eventsearch/internal/model"
)

// ErrNoEvents is returned when asked to export a session with no results.
var ErrNoEvents = errors.New("no events to export")

// Report bundles everything the renderers need about one finished search.
type Report struct {
	Query       model.SearchQuery
	Events      []model.Event
	GeneratedAt time.Time
}

// displayType renders an event type for humans: "military_operation"
// becomes "MILITARY OPERATION".
func displayType(t model.EventType) string {
	return strings.ToUpper(strings.ReplaceAll(string(t), "_", " "))
}

// locationText flattens a location to "City, Region, Country", skipping
// empty components.
func locationText(l *model.Location) string {
	if l == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{l.City, l.Region, l.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// stripTimezone normalises a datetime string for export: known layouts are
// reparsed and written back without an offset, date-only values stay
// date-only, and unparseable input passes through unchanged.
func stripTimezone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02")
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02 15:04:05")
		}
	}
	return s
}

type typeCount struct {
	Type  model.EventType
	Count int
}

// typeBreakdown counts events per type, most frequent first. Ties break by
// type name so output is stable.
func typeBreakdown(events []model.Event) []typeCount {
	counts := make(map[model.EventType]int)
	for _, ev := range events {
		counts[ev.EventType]++
	}
	out := make([]typeCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, typeCount{Type: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}
