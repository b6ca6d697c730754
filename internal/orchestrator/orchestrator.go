// Package orchestrator runs the search pipeline end to end: enrich the
// query phrase, discover candidate URLs per source, fetch and extract the
// pages, turn them into events through the LLM extractor, rank against the
// query and materialise the survivors into a session. Batch mode processes
// articles concurrently and returns one response; streaming mode processes
// them one by one and emits frames as they happen.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/osintscope/eventsearch/internal/discover"
	"github.com/osintscope/eventsearch/internal/events"
	"github.com/osintscope/eventsearch/internal/extract"
	"github.com/osintscope/eventsearch/internal/fetch"
	"github.com/osintscope/eventsearch/internal/match"
	"github.com/osintscope/eventsearch/internal/model"
	"github.com/osintscope/eventsearch/internal/session"
	"github.com/osintscope/eventsearch/internal/sources"
)

// Pipeline defaults, overridable per Searcher field.
const (
	DefaultMinRelevance   = 0.1
	DefaultWorkers        = 4
	DefaultArticleTimeout = 60 * time.Second
	DefaultStageBudget    = 300 * time.Second
)

// Searcher wires the pipeline stages together. Sources, Fetcher, Events,
// Matcher and Sessions must be set; API is optional and serves sources
// marked api_based (without it those sources are skipped).
type Searcher struct {
	Sources  *sources.Registry
	Fetcher  *fetch.Client
	API      *discover.API
	Events   *events.Extractor
	Matcher  *match.Matcher
	Sessions *session.Store

	// Limits is the global cap fallback; per-request and per-source
	// values take precedence.
	Limits discover.Limits
	// MinRelevance is the score floor for ranked events. Zero means 0.1.
	MinRelevance float64
	// Workers bounds concurrent extractions in batch mode. Zero means 4.
	Workers int
	// ArticleTimeout bounds one batch extraction. Zero means 60 s.
	ArticleTimeout time.Duration
	// StageBudget bounds the whole batch extraction stage. Zero means
	// 300 s; articles still queued when it runs out are dropped.
	StageBudget time.Duration

	// now is swappable for tests.
	now func() time.Time
}

func (s *Searcher) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Searcher) minRelevance() float64 {
	if s.MinRelevance > 0 {
		return s.MinRelevance
	}
	return DefaultMinRelevance
}

func (s *Searcher) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return DefaultWorkers
}

func (s *Searcher) articleTimeout() time.Duration {
	if s.ArticleTimeout > 0 {
		return s.ArticleTimeout
	}
	return DefaultArticleTimeout
}

func (s *Searcher) stageBudget() time.Duration {
	if s.StageBudget > 0 {
		return s.StageBudget
	}
	return DefaultStageBudget
}

// enrichPhrase appends date context to the query phrase so upstream search
// engines rank period-relevant pages higher. Without any date filter the
// phrase is anchored to the present with "recent".
func enrichPhrase(q model.SearchQuery) string {
	const monthYear = "January 2006"
	switch {
	case q.DateFrom != nil && q.DateTo != nil:
		from := q.DateFrom.Format(monthYear)
		to := q.DateTo.Format(monthYear)
		if from == to {
			return q.QueryText + " " + from
		}
		return q.QueryText + " " + from + " to " + to
	case q.DateFrom != nil:
		return q.QueryText + " after " + q.DateFrom.Format(monthYear)
	case q.DateTo != nil:
		return q.QueryText + " before " + q.DateTo.Format(monthYear)
	default:
		return q.QueryText + " recent"
	}
}

// Search runs the whole pipeline and returns the materialised outcome.
// Failure modes come back as statuses, not errors: per-source and
// per-article problems are logged and skipped, and a cancelled context
// yields status cancelled with whatever was ranked by then.
func (s *Searcher) Search(ctx context.Context, query model.SearchQuery, limits discover.Limits) *model.SearchResponse {
	start := s.clock()
	phrase := enrichPhrase(query)
	log.Info().Str("phrase", phrase).Str("original", query.QueryText).Msg("starting search")

	resp := &model.SearchResponse{Query: query, Events: []model.Event{}}

	srcs := s.Sources.List(true)
	if len(srcs) == 0 {
		log.Warn().Msg("no enabled sources configured")
		resp.Status = model.SearchStatusNoSources
		resp.Message = "No enabled sources configured"
		return resp
	}
	resp.SourcesScraped = len(srcs)

	stop := func() bool { return ctx.Err() != nil }
	articles := s.scrapeArticles(ctx, srcs, phrase, limits, stop)
	resp.ArticlesScraped = len(articles)

	if stop() {
		resp.Status = model.SearchStatusCancelled
		resp.Message = "Search cancelled by user"
		resp.ProcessingTime = s.since(start)
		return resp
	}
	if len(articles) == 0 {
		log.Warn().Msg("no articles scraped")
		resp.Status = model.SearchStatusNoArticles
		resp.Message = "No articles could be scraped from sources"
		resp.ProcessingTime = s.since(start)
		return resp
	}
	log.Info().Int("articles", len(articles)).Msg("scraping finished")

	evs := s.extractEvents(ctx, articles)
	if stop() {
		matched := s.matchEvents(evs, query)
		resp.Events = matched
		resp.TotalEvents = len(matched)
		resp.Status = model.SearchStatusCancelled
		resp.Message = "Search cancelled by user"
		resp.ProcessingTime = s.since(start)
		return resp
	}
	if len(evs) == 0 {
		log.Warn().Msg("no events extracted")
		resp.Status = model.SearchStatusNoEvents
		resp.Message = "No events could be extracted from articles"
		resp.ProcessingTime = s.since(start)
		return resp
	}

	matched := s.matchEvents(evs, query)
	log.Info().Int("extracted", len(evs)).Int("relevant", len(matched)).Msg("matching finished")

	sessionID := s.Sessions.Create(query, model.SessionCompleted)
	for _, ev := range matched {
		if err := s.Sessions.AppendResult(sessionID, ev); err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("storing result")
		}
	}

	resp.SessionID = sessionID
	resp.Events = matched
	resp.TotalEvents = len(matched)
	resp.ProcessingTime = s.since(start)
	resp.Status = model.SearchStatusSuccess
	resp.Message = fmt.Sprintf("Found %d relevant events", len(matched))
	log.Info().Float64("seconds", resp.ProcessingTime).Int("events", len(matched)).Msg("search completed")
	return resp
}

// providerFor picks the discovery backend for one source. API-based sources
// need the shared API provider; everything else gets a per-source HTML
// provider over the polite fetcher.
func (s *Searcher) providerFor(src model.SourceConfig) discover.Provider {
	if src.APIBased {
		if s.API == nil {
			return nil
		}
		return s.API
	}
	return &discover.HTML{Fetcher: s.Fetcher, Source: src}
}

// scrapeArticles walks the sources in order, discovers candidate URLs and
// fetches them into articles. stop is polled before each source and before
// each URL; when it fires the articles collected so far are returned.
// Duplicate URLs across sources keep their first occurrence.
func (s *Searcher) scrapeArticles(ctx context.Context, srcs []model.SourceConfig, phrase string, requested discover.Limits, stop func() bool) []model.Article {
	var all []model.Article
	seen := make(map[string]struct{})

	for _, src := range srcs {
		if stop() {
			log.Warn().Str("source", src.Name).Msg("scraping stopped before source")
			return all
		}

		provider := s.providerFor(src)
		if provider == nil {
			log.Warn().Str("source", src.Name).Msg("api-based source has no api provider, skipping")
			continue
		}
		lim := discover.EffectiveLimits(requested, src, s.Limits)

		links, err := provider.Discover(ctx, phrase, lim.MaxSearchResults)
		if err != nil {
			log.Error().Err(err).Str("source", src.Name).Msg("discovery failed")
			continue
		}
		if len(links) > lim.MaxArticles {
			links = links[:lim.MaxArticles]
		}

		count := 0
		for _, link := range links {
			if stop() {
				log.Warn().Str("source", src.Name).Msg("scraping stopped mid source")
				return all
			}
			if _, dup := seen[link]; dup {
				log.Debug().Str("url", link).Str("source", src.Name).Msg("skipping duplicate url")
				continue
			}
			art := s.scrapeArticle(ctx, link, src)
			if art == nil {
				continue
			}
			seen[art.URL] = struct{}{}
			all = append(all, *art)
			count++
			if count >= lim.MaxArticles {
				break
			}
		}
		log.Debug().Int("articles", count).Str("source", src.Name).Msg("source scraped")
	}

	log.Info().Int("total", len(all)).Msg("scraping finished across sources")
	return all
}

// scrapeArticle fetches one URL and extracts it into an article. Any
// failure (network, robots, thin or junk content) returns nil.
func (s *Searcher) scrapeArticle(ctx context.Context, link string, src model.SourceConfig) *model.Article {
	if strings.HasPrefix(link, "/") {
		base, err := url.Parse(src.BaseURL)
		if err != nil {
			return nil
		}
		ref, err := url.Parse(link)
		if err != nil {
			return nil
		}
		link = base.ResolveReference(ref).String()
	}

	page, err := s.Fetcher.Fetch(ctx, fetch.Request{
		URL:           link,
		Headers:       src.Headers,
		RespectRobots: true,
		MinInterval:   src.MinInterval(),
	})
	if err != nil {
		log.Warn().Err(err).Str("url", link).Msg("article fetch failed")
		return nil
	}
	if strings.TrimSpace(page) == "" {
		return nil
	}

	doc := extract.FromHTML(page, src.Selectors)
	if !extract.ValidContent(doc.Content, link) {
		log.Warn().Str("url", link).Int("content_len", len(doc.Content)).
			Msg("invalid or insufficient content")
		return nil
	}
	title := doc.Title
	if title == "" {
		title = "Untitled"
	}

	return &model.Article{
		ID:            uuid.NewString(),
		URL:           link,
		Title:         title,
		Content:       doc.Content,
		PublishedDate: doc.Date,
		Author:        doc.Author,
		SourceName:    src.Name,
		ScrapedAt:     s.clock(),
	}
}

// extractEvents runs the LLM extractor over the articles with bounded
// concurrency. Results keep article order; failed or rejected extractions
// leave gaps that are compacted away. The stage budget caps the whole pass,
// so each article gets the smaller of its own timeout and what remains.
func (s *Searcher) extractEvents(ctx context.Context, articles []model.Article) []model.Event {
	stageCtx, cancel := context.WithTimeout(ctx, s.stageBudget())
	defer cancel()

	slots := make(chan struct{}, s.workers())
	g, gctx := errgroup.WithContext(stageCtx)
	results := make([]*model.Event, len(articles))

	for i, art := range articles {
		g.Go(func() error {
			select {
			case slots <- struct{}{}:
			case <-gctx.Done():
				return nil
			}
			defer func() { <-slots }()

			actx, acancel := context.WithTimeout(gctx, s.articleTimeout())
			defer acancel()

			ev, meta, err := s.Events.ExtractEvent(actx, art, events.Options{})
			if err != nil {
				log.Error().Err(err).Str("url", art.URL).Msg("event extraction failed")
				return nil
			}
			if ev == nil {
				log.Debug().Str("url", art.URL).Str("reason", meta.Reason).Msg("no event extracted")
				return nil
			}
			results[i] = ev
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.Event, 0, len(articles))
	for _, ev := range results {
		if ev != nil {
			out = append(out, *ev)
		}
	}
	log.Info().Int("events", len(out)).Int("articles", len(articles)).Msg("extraction finished")
	return out
}

// matchEvents ranks events against the query and strips the scores, keeping
// descending relevance order.
func (s *Searcher) matchEvents(evs []model.Event, q model.SearchQuery) []model.Event {
	scored := s.Matcher.Match(evs, q, s.minRelevance())
	out := make([]model.Event, len(scored))
	for i, sc := range scored {
		out[i] = sc.Event
	}
	return out
}

func (s *Searcher) since(start time.Time) float64 {
	return round2(s.clock().Sub(start).Seconds())
}

func round1(f float64) float64 { return math.Round(f*10) / 10 }

func round2(f float64) float64 { return math.Round(f*100) / 100 }

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
