package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/discover"
	"github.com/osintscope/eventsearch/internal/events"
	"github.com/osintscope/eventsearch/internal/model"
	"github.com/osintscope/eventsearch/internal/session"
)

// FrameType tags a streaming frame for the wire.
type FrameType string

const (
	FrameSession   FrameType = "session"
	FrameProgress  FrameType = "progress"
	FrameEvent     FrameType = "event"
	FrameComplete  FrameType = "complete"
	FrameCancelled FrameType = "cancelled"
	FrameError     FrameType = "error"
)

// Frame is one streaming update. Data holds the type-specific payload and
// serialises directly onto the wire.
type Frame struct {
	Type FrameType `json:"event_type"`
	Data any       `json:"data"`
}

// SessionData opens every stream so clients learn the id to cancel or poll.
type SessionData struct {
	SessionID string `json:"session_id"`
}

// ProgressData reports pipeline advancement. Stage-level frames use a
// 0-100 scale; per-article frames carry the article counter instead.
type ProgressData struct {
	Message    string  `json:"message"`
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// EventData carries one ranked event the moment it is extracted. Index
// counts emitted events, ArticleIndex the article that produced it.
type EventData struct {
	Event         model.Event `json:"event"`
	Index         int         `json:"index"`
	ArticleIndex  int         `json:"article_index"`
	TotalArticles int         `json:"total_articles"`
}

// CompleteData closes a finished stream.
type CompleteData struct {
	Message           string  `json:"message"`
	TotalEvents       int     `json:"total_events"`
	ArticlesProcessed int     `json:"articles_processed,omitempty"`
	ProcessingTime    float64 `json:"processing_time"`
}

// CancelledData closes a cancelled stream. TotalEvents is present only once
// the article loop has started; earlier cancellations have nothing to count.
type CancelledData struct {
	Message     string `json:"message"`
	TotalEvents *int   `json:"total_events,omitempty"`
}

// ErrorData closes a failed stream.
type ErrorData struct {
	Message string `json:"message"`
}

// SearchStream runs the pipeline sequentially for the given pre-created
// session and returns a channel of frames. The channel closes after the
// terminal frame (complete, cancelled or error). Cancellation through the
// session store is honoured between sources, between articles, and both
// before and after each LLM call; events extracted before the cancel stay
// in the session.
func (s *Searcher) SearchStream(ctx context.Context, query model.SearchQuery, sessionID string, limits discover.Limits, opts events.Options) <-chan Frame {
	ch := make(chan Frame)
	go func() {
		defer close(ch)
		s.stream(ctx, query, sessionID, limits, opts, ch)
	}()
	return ch
}

// emit delivers one frame unless the consumer is gone.
func emit(ctx context.Context, ch chan<- Frame, f Frame) bool {
	select {
	case ch <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Searcher) stream(ctx context.Context, query model.SearchQuery, sessionID string, limits discover.Limits, opts events.Options, ch chan<- Frame) {
	start := s.clock()
	phrase := enrichPhrase(query)
	log.Info().Str("session", sessionID).Str("phrase", phrase).Msg("starting streaming search")

	cancelled := func() bool { return s.Sessions.IsCancelled(sessionID) }

	if err := s.Sessions.SetStatus(sessionID, model.SessionProcessing); err != nil {
		emit(ctx, ch, Frame{Type: FrameError, Data: ErrorData{Message: fmt.Sprintf("Search failed: %v", err)}})
		return
	}

	if !emit(ctx, ch, Frame{Type: FrameProgress, Data: ProgressData{Message: "Loading sources...", Current: 0, Total: 100, Percentage: 0}}) {
		return
	}

	srcs := s.Sources.List(true)
	if len(srcs) == 0 {
		_ = s.Sessions.SetStatus(sessionID, model.SessionError)
		emit(ctx, ch, Frame{Type: FrameError, Data: ErrorData{Message: "No enabled sources configured"}})
		return
	}

	if !emit(ctx, ch, Frame{Type: FrameProgress, Data: ProgressData{
		Message:    fmt.Sprintf("Scraping articles from %d source(s)...", len(srcs)),
		Current:    10,
		Total:      100,
		Percentage: 10,
	}}) {
		return
	}

	if cancelled() {
		log.Warn().Str("session", sessionID).Msg("search cancelled before scraping")
		emit(ctx, ch, Frame{Type: FrameCancelled, Data: CancelledData{Message: "Search cancelled by user"}})
		return
	}

	stop := func() bool { return ctx.Err() != nil || cancelled() }
	articles := s.scrapeArticles(ctx, srcs, phrase, limits, stop)

	if cancelled() {
		log.Warn().Str("session", sessionID).Msg("search cancelled after scraping")
		emit(ctx, ch, Frame{Type: FrameCancelled, Data: CancelledData{Message: "Search cancelled by user"}})
		return
	}
	if len(articles) == 0 {
		_ = s.Sessions.SetStatus(sessionID, model.SessionCompleted)
		emit(ctx, ch, Frame{Type: FrameComplete, Data: CompleteData{
			Message:        "No articles found",
			TotalEvents:    0,
			ProcessingTime: s.since(start),
		}})
		return
	}

	total := len(articles)
	if !emit(ctx, ch, Frame{Type: FrameProgress, Data: ProgressData{
		Message:    fmt.Sprintf("Processing %d article(s)...", total),
		Current:    20,
		Total:      100,
		Percentage: 20,
	}}) {
		return
	}

	extracted := 0
	cancelFrame := func() Frame {
		n := extracted
		return Frame{Type: FrameCancelled, Data: CancelledData{
			Message:     fmt.Sprintf("Search cancelled. Extracted %d event(s).", n),
			TotalEvents: &n,
		}}
	}

	for i, article := range articles {
		idx := i + 1

		if cancelled() {
			log.Warn().Str("session", sessionID).Int("article", idx).Msg("search cancelled between articles")
			emit(ctx, ch, cancelFrame())
			return
		}

		_ = s.Sessions.UpdateProgress(sessionID, session.Progress{
			Current:    idx,
			Total:      total,
			Percentage: round1(float64(idx) / float64(total) * 100),
			Message:    fmt.Sprintf("Processing article %d/%d...", idx, total),
		})
		if !emit(ctx, ch, Frame{Type: FrameProgress, Data: ProgressData{
			Message:    fmt.Sprintf("Processing article %d/%d: %s...", idx, total, clip(article.Title, 50)),
			Current:    idx,
			Total:      total,
			Percentage: round1(20 + float64(idx)/float64(total)*70),
		}}) {
			return
		}

		// The LLM call is the expensive part; poll the flag on both sides
		// so a cancel landing mid-call stops the run right after it.
		if cancelled() {
			emit(ctx, ch, cancelFrame())
			return
		}
		ev, meta, err := s.Events.ExtractEvent(ctx, article, opts)
		if err != nil {
			log.Error().Err(err).Str("url", article.URL).Int("article", idx).Msg("event extraction failed")
			continue
		}
		if cancelled() {
			log.Warn().Str("session", sessionID).Int("article", idx).Msg("search cancelled after extraction")
			emit(ctx, ch, cancelFrame())
			return
		}
		if ev == nil {
			log.Debug().Str("url", article.URL).Str("reason", meta.Reason).Msg("no event extracted")
			continue
		}

		scored := s.Matcher.Match([]model.Event{*ev}, query, s.minRelevance())
		if len(scored) == 0 {
			log.Debug().Str("url", article.URL).Msg("event below relevance floor")
			continue
		}

		if err := s.Sessions.AppendResult(sessionID, scored[0].Event); err != nil {
			log.Error().Err(err).Str("session", sessionID).Msg("storing result")
		}
		extracted++
		if !emit(ctx, ch, Frame{Type: FrameEvent, Data: EventData{
			Event:         scored[0].Event,
			Index:         extracted,
			ArticleIndex:  idx,
			TotalArticles: total,
		}}) {
			return
		}
	}

	_ = s.Sessions.SetStatus(sessionID, model.SessionCompleted)
	_ = s.Sessions.UpdateProgress(sessionID, session.Progress{
		Current:    total,
		Total:      total,
		Percentage: 100,
		Message:    fmt.Sprintf("Completed! Found %d event(s).", extracted),
	})

	elapsed := s.since(start)
	emit(ctx, ch, Frame{Type: FrameComplete, Data: CompleteData{
		Message:           fmt.Sprintf("Search completed. Found %d event(s).", extracted),
		TotalEvents:       extracted,
		ArticlesProcessed: total,
		ProcessingTime:    elapsed,
	}})
	log.Info().Str("session", sessionID).Int("events", extracted).Float64("seconds", elapsed).Msg("streaming search completed")
}
