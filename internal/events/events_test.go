package events

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/osintscope/eventsearch/internal/llm"
	"github.com/osintscope/eventsearch/internal/model"
)

type stubProvider struct {
	text string
	err  error

	mu      sync.Mutex
	calls   int
	lastReq llm.Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	s.calls++
	s.lastReq = req
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{
		Text:     s.text,
		Model:    req.Model,
		Provider: "stub",
		Usage:    llm.Usage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubProvider) lastRequest() llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq
}

func newTestExtractor(p *stubProvider) *Extractor {
	r := llm.NewRouter("stub", false, 0, nil)
	r.Register(p, "test-model")
	return &Extractor{
		Router:          r,
		DefaultProvider: "stub",
		DefaultModel:    "test-model",
		now:             func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}
}

const summitArticle = `World leaders gathered in Geneva on Saturday for a two-day trade summit
hosted by the Swiss government. Delegations from twelve countries discussed tariff policy
and supply chain resilience. President Maria Santos and Chancellor Erik Weber led the
opening session, joined by representatives of the World Trade Organization. The talks
are expected to conclude with a joint communique on Sunday evening. Officials described
the atmosphere as constructive and said further rounds are planned for later this year.`

func TestExtractEventHappyPath(t *testing.T) {
	p := &stubProvider{text: `{
		"event_type": "summit",
		"summary": "Twelve countries met in Geneva for a trade summit.",
		"location": {"city": "Geneva", "state": "Geneva Canton", "country": "Switzerland"},
		"event_date": "2025-03-15T10:00:00",
		"individuals": ["Maria Santos", "Erik Weber"],
		"organizations": ["World Trade Organization"],
		"confidence": 0.9
	}`}
	e := newTestExtractor(p)

	art := model.Article{
		URL:     "https://www.bbc.co.uk/news/world-12345",
		Title:   "Trade summit opens in Geneva",
		Content: summitArticle,
	}
	ev, meta, err := e.ExtractEvent(context.Background(), art, Options{})
	if err != nil {
		t.Fatalf("ExtractEvent: %v", err)
	}
	if ev == nil {
		t.Fatalf("expected event, got nil (reason %q)", meta.Reason)
	}
	if ev.EventType != model.EventTypeSummit {
		t.Errorf("EventType = %q, want summit", ev.EventType)
	}
	if ev.EventDate != "2025-03-15" {
		t.Errorf("EventDate = %q, want 2025-03-15", ev.EventDate)
	}
	// Published date falls back to the event date when the article has none.
	if ev.ArticlePublishedDate != "2025-03-15" {
		t.Errorf("ArticlePublishedDate = %q, want 2025-03-15", ev.ArticlePublishedDate)
	}
	if ev.Location == nil || ev.Location.City != "Geneva" {
		t.Fatalf("Location = %+v, want city Geneva", ev.Location)
	}
	// Region adopts the "state" alias when region itself is absent.
	if ev.Location.Region != "Geneva Canton" {
		t.Errorf("Region = %q, want Geneva Canton", ev.Location.Region)
	}
	if len(ev.Participants) != 2 {
		t.Errorf("Participants = %v, want 2 names", ev.Participants)
	}
	if ev.SourceName != "BBC News" {
		t.Errorf("SourceName = %q, want BBC News", ev.SourceName)
	}
	if ev.Casualties != nil {
		t.Errorf("Casualties = %+v, want nil", ev.Casualties)
	}
	if ev.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9", ev.Confidence)
	}
	if !ev.CollectionTimestamp.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("CollectionTimestamp = %v", ev.CollectionTimestamp)
	}
	if meta.Provider != "stub" || meta.Usage.InputTokens != 100 {
		t.Errorf("meta = %+v", meta)
	}
	if req := p.lastRequest(); req.System == "" || req.Model != "test-model" {
		t.Errorf("request system/model not set: %+v", req)
	}
}

func TestExtractEventDemotesUnsupportedViolence(t *testing.T) {
	p := &stubProvider{text: `{
		"event_type": "bombing",
		"summary": "A summit took place.",
		"perpetrator": "unknown group",
		"perpetrator_type": "terrorist_group",
		"casualties": {"killed": 5, "injured": 10},
		"confidence": 0.8
	}`}
	e := newTestExtractor(p)

	art := model.Article{
		URL:     "https://example.com/a",
		Title:   "Trade summit opens in Geneva",
		Content: summitArticle,
	}
	ev, _, err := e.ExtractEvent(context.Background(), art, Options{})
	if err != nil {
		t.Fatalf("ExtractEvent: %v", err)
	}
	if ev == nil {
		t.Fatal("expected demoted event, got nil")
	}
	if ev.EventType != model.EventTypeOther {
		t.Errorf("EventType = %q, want other", ev.EventType)
	}
	if ev.Perpetrator != "" || ev.PerpetratorType != "" {
		t.Errorf("perpetrator not cleared: %q/%q", ev.Perpetrator, ev.PerpetratorType)
	}
	if ev.Casualties != nil {
		t.Errorf("Casualties = %+v, want nil after demotion", ev.Casualties)
	}
}

func TestExtractEventKeepsSupportedViolence(t *testing.T) {
	p := &stubProvider{text: `{
		"event_type": "bombing",
		"summary": "A car bomb exploded near the market.",
		"perpetrator": "Group X",
		"perpetrator_type": "terrorist_group",
		"casualties": {"killed": "3", "injured": 0},
		"confidence": 0.85
	}`}
	e := newTestExtractor(p)

	art := model.Article{
		URL:   "https://example.com/b",
		Title: "Explosion rocks city market",
		Content: `A powerful explosion tore through the central market on Friday morning.
At least three people were killed and several more wounded when the bomb detonated near
the main entrance, officials said. No group has yet claimed responsibility for the attack.
Rescue workers spent the afternoon clearing debris while investigators examined the scene.`,
	}
	ev, _, err := e.ExtractEvent(context.Background(), art, Options{})
	if err != nil {
		t.Fatalf("ExtractEvent: %v", err)
	}
	if ev == nil {
		t.Fatal("expected event, got nil")
	}
	if ev.EventType != model.EventTypeBombing {
		t.Errorf("EventType = %q, want bombing", ev.EventType)
	}
	if ev.Perpetrator != "Group X" || ev.PerpetratorType != model.PerpetratorTerroristGroup {
		t.Errorf("perpetrator = %q/%q", ev.Perpetrator, ev.PerpetratorType)
	}
	if ev.Casualties == nil || ev.Casualties.Killed != 3 || ev.Casualties.Injured != 0 {
		t.Errorf("Casualties = %+v, want killed 3", ev.Casualties)
	}
}

func TestExtractEventRejectsLowConfidence(t *testing.T) {
	p := &stubProvider{text: `{"event_type": "meeting", "summary": "s", "confidence": 0.1}`}
	e := newTestExtractor(p)

	ev, meta, err := e.ExtractEvent(context.Background(), model.Article{
		Title: "t", Content: summitArticle, URL: "https://example.com",
	}, Options{})
	if err != nil {
		t.Fatalf("ExtractEvent: %v", err)
	}
	if ev != nil {
		t.Fatalf("expected nil event, got %+v", ev)
	}
	if meta.Reason != "confidence below threshold" {
		t.Errorf("Reason = %q", meta.Reason)
	}
}

func TestExtractEventNoEventResponse(t *testing.T) {
	for _, text := range []string{
		`{"error": "no event found in article"}`,
		`{"no_event": true}`,
	} {
		p := &stubProvider{text: text}
		e := newTestExtractor(p)
		ev, meta, err := e.ExtractEvent(context.Background(), model.Article{
			Title: "t", Content: summitArticle,
		}, Options{})
		if err != nil {
			t.Fatalf("ExtractEvent(%s): %v", text, err)
		}
		if ev != nil {
			t.Errorf("ExtractEvent(%s): expected nil event", text)
		}
		if meta.Reason == "" {
			t.Errorf("ExtractEvent(%s): expected a reason", text)
		}
	}
}

func TestExtractEventUnparseableResponse(t *testing.T) {
	p := &stubProvider{text: "I could not find any event in this article, sorry."}
	e := newTestExtractor(p)
	ev, meta, err := e.ExtractEvent(context.Background(), model.Article{
		Title: "t", Content: summitArticle,
	}, Options{})
	if err != nil {
		t.Fatalf("ExtractEvent: %v", err)
	}
	if ev != nil || meta.Reason != "unparseable model response" {
		t.Errorf("ev=%v reason=%q", ev, meta.Reason)
	}
}

func TestExtractEventSkipsEmptyAndJunkContent(t *testing.T) {
	p := &stubProvider{text: `{}`}
	e := newTestExtractor(p)

	// Empty content short-circuits before any model call.
	ev, meta, err := e.ExtractEvent(context.Background(), model.Article{Title: "t", Content: "  "}, Options{})
	if err != nil || ev != nil {
		t.Fatalf("empty content: ev=%v err=%v", ev, err)
	}
	if meta.Reason != "empty content" {
		t.Errorf("Reason = %q", meta.Reason)
	}

	// Mostly-unreadable content is rejected by the quality gate.
	junk := strings.Repeat("\x00\x01�\x02", 300)
	ev, meta, err = e.ExtractEvent(context.Background(), model.Article{Title: "t", Content: junk}, Options{})
	if err != nil || ev != nil {
		t.Fatalf("junk content: ev=%v err=%v", ev, err)
	}
	if meta.Reason != "content quality too low" {
		t.Errorf("Reason = %q", meta.Reason)
	}
	if p.callCount() != 0 {
		t.Errorf("model called %d times, want 0", p.callCount())
	}
}

func TestExtractEventTransportError(t *testing.T) {
	p := &stubProvider{err: errors.New("connection refused")}
	e := newTestExtractor(p)
	_, _, err := e.ExtractEvent(context.Background(), model.Article{
		Title: "t", Content: summitArticle,
	}, Options{})
	if err == nil {
		t.Fatal("expected transport error")
	}
}

func TestExtractEventPublishedDateFallsBackToEventDate(t *testing.T) {
	p := &stubProvider{text: `{"event_type": "meeting", "summary": "s", "confidence": 0.7}`}
	e := newTestExtractor(p)
	ev, _, err := e.ExtractEvent(context.Background(), model.Article{
		Title:         "t",
		Content:       summitArticle,
		PublishedDate: "2025-02-01T08:30:00Z",
	}, Options{})
	if err != nil || ev == nil {
		t.Fatalf("ev=%v err=%v", ev, err)
	}
	if ev.EventDate != "2025-02-01" {
		t.Errorf("EventDate = %q, want published-date fallback", ev.EventDate)
	}
	if ev.ArticlePublishedDate != "2025-02-01" {
		t.Errorf("ArticlePublishedDate = %q", ev.ArticlePublishedDate)
	}
	if ev.Participants == nil || ev.Organizations == nil {
		t.Error("list fields should be non-nil")
	}
}

func TestMergeNames(t *testing.T) {
	got := mergeNames(
		[]string{"Maria Santos", "erik weber"},
		[]string{"Maria Santos", "Jane Roe", "Erik Weber", "Ali Khan"},
		2,
	)
	want := []string{"Maria Santos", "erik weber", "Jane Roe"}
	if len(got) != len(want) {
		t.Fatalf("mergeNames = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mergeNames[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2025-03-15":           "2025-03-15",
		"2025-03-15T10:00:00Z": "2025-03-15",
		"2025-03-15T10:00:00":  "2025-03-15",
		"2025-03-15 10:00:00":  "2025-03-15",
		"":                     "",
		"sometime last week":   "",
	}
	for in, want := range cases {
		if got := normalizeDate(in); got != want {
			t.Errorf("normalizeDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReadableRatio(t *testing.T) {
	if r := readableRatio(summitArticle); r < 0.95 {
		t.Errorf("prose ratio = %v, want near 1", r)
	}
	if r := readableRatio(strings.Repeat("\x00�", 500)); r > 0.1 {
		t.Errorf("junk ratio = %v, want near 0", r)
	}
	if r := readableRatio(""); r != 0 {
		t.Errorf("empty ratio = %v, want 0", r)
	}
}

func TestSourceNameFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.bbc.co.uk/news/world":      "BBC News",
		"https://edition.cnn.com/2025/x":        "CNN",
		"https://www.reuters.com/world/":        "Reuters",
		"https://apnews.com/article/abc":        "Associated Press",
		"https://www.statewatch.org/news/":      "Statewatch",
		"not a url":                             "",
	}
	for in, want := range cases {
		if got := SourceNameFromURL(in); got != want {
			t.Errorf("SourceNameFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}
