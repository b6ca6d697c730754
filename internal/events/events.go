// Package events turns fetched articles into structured events. Each
// article goes through a content quality gate, an entity pre-pass, one LLM
// call via the router, then JSON repair and normalisation onto the closed
// event-type and perpetrator-type sets. Semantic rejections are values, not
// errors: a nil event plus a Meta.Reason.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/entities"
	"github.com/osintscope/eventsearch/internal/llm"
	"github.com/osintscope/eventsearch/internal/model"
)

const (
	extractMaxTokens   = 500
	extractTemperature = 0.2

	// Extractions below this confidence are discarded.
	minConfidence = 0.3

	// Quality gate thresholds over readableRatio.
	rejectBelow = 0.30
	cleanBelow  = 0.50

	entityMergeCap = 10
)

// Violent event types must be backed by violence vocabulary in the article,
// otherwise the extraction is demoted to "other".
var violentTypes = map[string]struct{}{
	"bombing": {}, "explosion": {}, "attack": {}, "shooting": {},
	"terrorist_activity": {}, "kidnapping": {},
}

var violenceKeywords = []string{
	"bomb", "explosion", "attack", "shoot", "terror", "killed",
	"dead", "casualt", "injur", "blast", "kidnap", "abduct",
}

// Meta describes how one extraction went regardless of whether it produced
// an event. Reason is set when the event is nil for a semantic cause.
type Meta struct {
	Provider         string
	Model            string
	FallbackUsed     bool
	OriginalProvider string
	Usage            llm.Usage
	Reason           string
}

// Options selects the provider and model for one extraction. Empty fields
// fall back to the extractor's defaults, then the router's.
type Options struct {
	Provider string
	Model    string
}

// Extractor drives LLM event extraction. Zero value is not usable; Router
// must be set.
type Extractor struct {
	Router          *llm.Router
	Entities        *entities.Extractor
	DefaultProvider string
	DefaultModel    string

	// now is swappable for tests.
	now func() time.Time
}

func (e *Extractor) timestamp() time.Time {
	if e.now != nil {
		return e.now()
	}
	return time.Now().UTC()
}

// ExtractEvent runs the full per-article pipeline. It returns an error only
// for transport-level failures (the LLM call itself); everything the
// pipeline decides to reject comes back as (nil, meta, nil) with
// meta.Reason set.
func (e *Extractor) ExtractEvent(ctx context.Context, article model.Article, opts Options) (*model.Event, Meta, error) {
	if e.Router == nil {
		return nil, Meta{}, errors.New("events: no router configured")
	}

	title := article.Title
	if title == "" {
		title = "Untitled"
	}
	content := article.Content
	if strings.TrimSpace(content) == "" {
		return nil, Meta{Reason: "empty content"}, nil
	}

	switch ratio := readableRatio(content); {
	case ratio < rejectBelow:
		log.Warn().Float64("readable", ratio).Str("url", article.URL).
			Msg("content quality too low for extraction, skipping")
		return nil, Meta{Reason: "content quality too low"}, nil
	case ratio < cleanBelow:
		log.Warn().Float64("readable", ratio).Str("url", article.URL).
			Msg("content quality marginal, cleaning before extraction")
		content = aggressiveClean(content)
	}

	var bundle model.EntityBundle
	if e.Entities != nil {
		bundle = e.Entities.FromArticle(title, content)
	}

	provider := opts.Provider
	if provider == "" {
		provider = e.DefaultProvider
	}
	modelName := opts.Model
	if modelName == "" {
		modelName = e.DefaultModel
	}

	resp, err := e.Router.Generate(ctx, provider, llm.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(title, content, bundle),
		Model:       modelName,
		MaxTokens:   extractMaxTokens,
		Temperature: extractTemperature,
	})
	if err != nil {
		return nil, Meta{Provider: provider}, fmt.Errorf("events: extraction call: %w", err)
	}

	meta := Meta{
		Provider:         resp.Provider,
		Model:            resp.Model,
		FallbackUsed:     resp.FallbackUsed,
		OriginalProvider: resp.OriginalProvider,
		Usage:            resp.Usage,
	}

	if strings.TrimSpace(resp.Text) == "" {
		meta.Reason = "empty model response"
		return nil, meta, nil
	}
	raw, ok := parseResponse(resp.Text)
	if !ok {
		log.Error().Str("url", article.URL).Msg("model response was not parseable JSON")
		meta.Reason = "unparseable model response"
		return nil, meta, nil
	}
	if raw.Error != "" || raw.NoEvent {
		meta.Reason = "model reported no extractable event"
		return nil, meta, nil
	}

	rawType := strings.ToLower(strings.TrimSpace(string(raw.EventType)))
	perpetrator := string(raw.Perpetrator)
	perpType := string(raw.PerpetratorType)
	casualties := raw.casualties()
	if _, violent := violentTypes[rawType]; violent && !mentionsViolence(title, content) {
		log.Warn().Str("event_type", rawType).Str("title", clip(title, 60)).
			Msg("violent event type without violence vocabulary, demoting to other")
		rawType = "other"
		perpetrator = ""
		perpType = ""
		casualties = nil
	}

	confidence := 0.0
	if raw.Confidence != nil {
		confidence = *raw.Confidence
	}
	if confidence < minConfidence {
		log.Warn().Float64("confidence", confidence).Str("title", clip(title, 60)).
			Msg("rejecting extraction, confidence too low")
		meta.Reason = "confidence below threshold"
		return nil, meta, nil
	}

	loc := raw.location()
	region := string(loc.Region)
	if region == "" {
		region = string(loc.State)
	}
	location := model.Location{
		City:    string(loc.City),
		Region:  region,
		Country: string(loc.Country),
	}

	eventDate := normalizeDate(string(raw.EventDate))
	if eventDate == "" && raw.EventDate != "" {
		log.Warn().Str("event_date", string(raw.EventDate)).Msg("could not parse event date")
	}
	published := normalizeDate(article.PublishedDate)
	if eventDate == "" {
		eventDate = published
	}
	if published == "" {
		published = eventDate
	}

	var cas *model.Casualties
	if casualties != nil {
		killed, injured := int(casualties.Killed), int(casualties.Injured)
		if killed > 0 || injured > 0 {
			cas = &model.Casualties{Killed: killed, Injured: injured}
		}
	}

	sourceName := article.SourceName
	if sourceName == "" {
		sourceName = SourceNameFromURL(article.URL)
	}

	summary := string(raw.Summary)
	if summary == "" {
		summary = string(raw.Description)
	}

	ev := &model.Event{
		EventType:            NormalizeEventType(rawType),
		EventSubType:         string(raw.EventSubType),
		Title:                title,
		Summary:              summary,
		Perpetrator:          perpetrator,
		PerpetratorType:      NormalizePerpetratorType(perpType),
		EventDate:            eventDate,
		EventTime:            string(raw.EventTime),
		Participants:         mergeNames(raw.Individuals, bundle.Persons, entityMergeCap),
		Organizations:        mergeNames(raw.Organizations, bundle.Organizations, entityMergeCap),
		Casualties:           cas,
		SourceName:           sourceName,
		SourceURL:            article.URL,
		ArticlePublishedDate: published,
		CollectionTimestamp:  e.timestamp(),
		Confidence:           clamp01(confidence),
		FullContent:          content,
	}
	if !location.Empty() {
		ev.Location = &location
	}
	ev.EnsureLists()

	log.Info().
		Str("event_type", string(ev.EventType)).
		Str("title", clip(ev.Title, 40)).
		Str("provider", meta.Provider).
		Float64("confidence", ev.Confidence).
		Msg("extracted event")
	return ev, meta, nil
}

// mentionsViolence checks the title and the first kilobyte of body text.
func mentionsViolence(title, content string) bool {
	sample := []rune(content)
	if len(sample) > qualitySampleLen {
		sample = sample[:qualitySampleLen]
	}
	haystack := strings.ToLower(title) + " " + strings.ToLower(string(sample))
	for _, kw := range violenceKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// mergeNames appends up to k extracted entities not already present,
// deduplicating case-insensitively while keeping first spellings.
func mergeNames(base []string, extra []string, k int) []string {
	out := make([]string, 0, len(base)+k)
	seen := make(map[string]struct{}, len(base)+k)
	add := func(name string) {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	for _, name := range base {
		add(name)
	}
	for i, name := range extra {
		if i >= k {
			break
		}
		add(name)
	}
	return out
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// normalizeDate reduces a date-ish string to YYYY-MM-DD, or empty.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
