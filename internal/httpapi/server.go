// Package httpapi exposes the pipeline over REST and SSE: batch and
// streaming search, session polling and cancellation, source listing, LLM
// provider operations, exports and the social analysis path. Handlers
// translate HTTP shapes to pipeline calls and back; behaviour lives in the
// pipeline packages.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/events"
	"github.com/osintscope/eventsearch/internal/llm"
	"github.com/osintscope/eventsearch/internal/orchestrator"
	"github.com/osintscope/eventsearch/internal/session"
	"github.com/osintscope/eventsearch/internal/social"
	"github.com/osintscope/eventsearch/internal/sources"
)

// Server wires the pipeline components behind the HTTP surface. All fields
// except Searcher, Sources and Sessions are optional; endpoints backed by a
// nil component answer 503.
type Server struct {
	Searcher *orchestrator.Searcher
	Sources  *sources.Registry
	Sessions *session.Store
	LLM      *llm.Router
	Events   *events.Extractor
	Social   *social.Aggregator

	Version string

	// now is swappable in tests.
	now func() time.Time
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Handler builds the chi router with all routes mounted under /api/v1.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/", s.handleRoot)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/sources", s.handleSources)

		r.Post("/search", s.handleSearch)
		r.Get("/search/stream", s.handleSearchStream)
		r.Post("/search/cancel/{id}", s.handleCancel)
		r.Get("/search/session/{id}", s.handleSession)

		r.Get("/llm/status", s.handleLLMStatus)
		r.Get("/llm/models", s.handleLLMModels)
		r.Get("/llm/usage", s.handleLLMUsage)
		r.Post("/llm/reset-stats", s.handleLLMReset)

		r.Post("/export/pdf", s.handleExportPDF)
		r.Post("/export/csv", s.handleExportCSV)

		r.Post("/extract/event", s.handleExtract)

		r.Get("/social/cache/stats", s.handleSocialStats)
		r.Post("/social/cache/clear", s.handleSocialClear)
		r.Post("/social/analyze", s.handleSocialAnalyze)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encoding response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) version() string {
	if s.Version != "" {
		return s.Version
	}
	return "dev"
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "eventsearch",
		"version": s.version(),
		"status":  "running",
		"endpoints": map[string]string{
			"health":          "/api/v1/health",
			"sources":         "/api/v1/sources",
			"search":          "/api/v1/search",
			"search_stream":   "/api/v1/search/stream",
			"search_cancel":   "/api/v1/search/cancel/{id}",
			"search_session":  "/api/v1/search/session/{id}",
			"llm_status":      "/api/v1/llm/status",
			"llm_models":      "/api/v1/llm/models",
			"llm_usage":       "/api/v1/llm/usage",
			"llm_reset_stats": "/api/v1/llm/reset-stats",
			"export_pdf":      "/api/v1/export/pdf",
			"export_csv":      "/api/v1/export/csv",
			"extract_event":   "/api/v1/extract/event",
			"social_stats":    "/api/v1/social/cache/stats",
			"social_clear":    "/api/v1/social/cache/clear",
			"social_analyze":  "/api/v1/social/analyze",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.clock().Format(time.RFC3339),
		"version":   s.version(),
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if s.Sources == nil {
		writeError(w, http.StatusServiceUnavailable, "no sources configured")
		return
	}
	enabledOnly := true
	if v := r.URL.Query().Get("enabled_only"); v != "" {
		enabledOnly = v == "true" || v == "1"
	}
	enabled := s.Sources.List(true)
	listed := enabled
	if !enabledOnly {
		listed = s.Sources.List(false)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sources":       listed,
		"total_count":   s.Sources.Len(),
		"enabled_count": len(enabled),
	})
}
