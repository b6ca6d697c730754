package match

import (
	"testing"
	"time"

	"github.com/osintscope/eventsearch/internal/model"
)

func newMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := New(DefaultWeights)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestNewRejectsBadWeights(t *testing.T) {
	_, err := New(Weights{Text: 0.5, Location: 0.5, Date: 0.5, Type: 0.5})
	if err == nil {
		t.Fatalf("expected error for weights summing to 2.0")
	}
	if _, err := New(DefaultWeights); err != nil {
		t.Fatalf("default weights rejected: %v", err)
	}
}

func TestTextScoreIdenticalText(t *testing.T) {
	m := newMatcher(t)
	ev := model.Event{Title: "car bombing in central baghdad", Summary: ""}
	got := m.TextScore("car bombing in central baghdad", ev)
	if got < 0.9 {
		t.Errorf("identical text score = %v, want near 1.0", got)
	}
}

func TestTextScoreDisjointText(t *testing.T) {
	m := newMatcher(t)
	ev := model.Event{Title: "quarterly earnings beat expectations", Summary: "tech stocks rally"}
	got := m.TextScore("flood damage in jakarta", ev)
	if got > 0.3 {
		t.Errorf("disjoint text score = %v, want low", got)
	}
}

func TestTextScoreEmptyQuery(t *testing.T) {
	m := newMatcher(t)
	if got := m.TextScore("", model.Event{Title: "anything"}); got != 0 {
		t.Errorf("empty query score = %v, want 0", got)
	}
	// Query made only of stop words yields no keywords.
	if got := m.TextScore("the of and", model.Event{Title: "anything"}); got != 0 {
		t.Errorf("stop-word query score = %v, want 0", got)
	}
}

func TestLocationScoreContainment(t *testing.T) {
	m := newMatcher(t)
	loc := &model.Location{City: "Paris", Country: "France"}
	if got := m.LocationScore("paris", loc); got != 1.0 {
		t.Errorf("containment score = %v, want 1.0", got)
	}
	// Query containing the component also counts.
	if got := m.LocationScore("protests in paris today", loc); got != 1.0 {
		t.Errorf("reverse containment score = %v, want 1.0", got)
	}
}

func TestLocationScorePicksBestComponent(t *testing.T) {
	m := newMatcher(t)
	loc := &model.Location{City: "Montpellier", Region: "Occitanie", Country: "France"}
	got := m.LocationScore("france", loc)
	if got != 1.0 {
		t.Errorf("score = %v, want 1.0 from country match", got)
	}
}

func TestLocationScoreMissingSides(t *testing.T) {
	m := newMatcher(t)
	if got := m.LocationScore("", &model.Location{City: "Lagos"}); got != 0 {
		t.Errorf("empty query location = %v, want 0", got)
	}
	if got := m.LocationScore("lagos", nil); got != 0 {
		t.Errorf("nil event location = %v, want 0", got)
	}
	if got := m.LocationScore("lagos", &model.Location{}); got != 0 {
		t.Errorf("empty event location = %v, want 0", got)
	}
}

func date(y int, mo time.Month, d int) *time.Time {
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDateScore(t *testing.T) {
	m := newMatcher(t)
	tests := []struct {
		name      string
		from, to  *time.Time
		eventDate string
		want      float64
	}{
		{"no range", nil, nil, "2026-01-10", 0.5},
		{"range but no event date", date(2026, 1, 1), date(2026, 1, 31), "", 0.3},
		{"range but unparseable date", date(2026, 1, 1), date(2026, 1, 31), "sometime", 0.3},
		{"inside range", date(2026, 1, 1), date(2026, 1, 31), "2026-01-15", 1.0},
		{"at lower bound", date(2026, 1, 1), date(2026, 1, 31), "2026-01-01", 1.0},
		{"15 days before", date(2026, 1, 16), nil, "2026-01-01", 0.5},
		{"45 days before", date(2026, 2, 15), nil, "2026-01-01", 0.0},
		{"6 days after", nil, date(2026, 1, 10), "2026-01-16", 0.8},
	}
	for _, tc := range tests {
		q := model.SearchQuery{DateFrom: tc.from, DateTo: tc.to}
		ev := model.Event{EventDate: tc.eventDate}
		got := m.DateScore(q, ev)
		if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s: DateScore = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTypeScore(t *testing.T) {
	m := newMatcher(t)
	if got := m.TypeScore("", model.EventTypeProtest); got != 0.5 {
		t.Errorf("unspecified type = %v, want 0.5", got)
	}
	if got := m.TypeScore(model.EventTypeProtest, model.EventTypeProtest); got != 1.0 {
		t.Errorf("exact match = %v, want 1.0", got)
	}
	if got := m.TypeScore(model.EventTypeProtest, model.EventTypeBombing); got != 0 {
		t.Errorf("mismatch = %v, want 0", got)
	}
}

func TestScoreDiscountsByConfidence(t *testing.T) {
	m := newMatcher(t)
	q := model.SearchQuery{QueryText: "protest in paris"}
	high := model.Event{Title: "protest in paris", Confidence: 1.0}
	low := model.Event{Title: "protest in paris", Confidence: 0.5}

	sh := m.Score(q, high)
	sl := m.Score(q, low)
	if sl >= sh {
		t.Fatalf("low-confidence score %v not below high-confidence %v", sl, sh)
	}
	if diff := sl - sh/2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence scaling: got %v, want %v", sl, sh/2)
	}
}

func TestMatchFiltersAndSorts(t *testing.T) {
	m := newMatcher(t)
	q := model.SearchQuery{QueryText: "embassy bombing kabul"}
	events := []model.Event{
		{Title: "stock market update", Summary: "", Confidence: 0.9},
		{Title: "embassy bombing in kabul kills four", Summary: "a bomb detonated near the embassy", Confidence: 0.9},
		{Title: "embassy bombing reported in kabul", Summary: "", Confidence: 0.6},
	}
	got := m.Match(events, q, 0.1)
	if len(got) < 2 {
		t.Fatalf("matched %d events, want at least 2", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Relevance > got[i-1].Relevance {
			t.Errorf("results not sorted: %v before %v", got[i-1].Relevance, got[i].Relevance)
		}
	}
	if got[0].Event.Confidence != 0.9 {
		t.Errorf("best match should be the high-confidence bombing event")
	}
}

func TestMatchStableForTies(t *testing.T) {
	m := newMatcher(t)
	q := model.SearchQuery{QueryText: "border clash"}
	a := model.Event{Title: "border clash", Summary: "x", Confidence: 0.8, SourceURL: "https://a.example"}
	b := model.Event{Title: "border clash", Summary: "x", Confidence: 0.8, SourceURL: "https://b.example"}
	got := m.Match([]model.Event{a, b}, q, 0)
	if len(got) != 2 {
		t.Fatalf("matched %d, want 2", len(got))
	}
	if got[0].Event.SourceURL != "https://a.example" {
		t.Errorf("tie order not stable: got %q first", got[0].Event.SourceURL)
	}
}

func TestSimilarityBounds(t *testing.T) {
	if got := similarity("abc", "abc"); got != 1.0 {
		t.Errorf("identical similarity = %v, want 1.0", got)
	}
	if got := similarity("abc", "xyz"); got != 0 {
		t.Errorf("disjoint similarity = %v, want 0", got)
	}
	if got := similarity("", "abc"); got != 0 {
		t.Errorf("empty similarity = %v, want 0", got)
	}
}
