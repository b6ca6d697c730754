package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/llm"
)

func (s *Server) handleLLMStatus(w http.ResponseWriter, r *http.Request) {
	if s.LLM == nil {
		writeError(w, http.StatusServiceUnavailable, "no llm providers configured")
		return
	}
	providers := make(map[string]any)
	for _, name := range s.LLM.Providers() {
		providers[name] = map[string]any{
			"available": s.LLM.Healthy(name),
			"model":     s.LLM.DefaultModel(name),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"default_provider": s.LLM.Primary(),
		"fallback_enabled": s.LLM.FallbackEnabled(),
		"providers":        providers,
		"timestamp":        s.clock().Format(time.RFC3339),
	})
}

func (s *Server) handleLLMModels(w http.ResponseWriter, r *http.Request) {
	if s.LLM == nil {
		writeError(w, http.StatusServiceUnavailable, "no llm providers configured")
		return
	}
	out := make(map[string]any)
	for _, name := range s.LLM.Providers() {
		entry := map[string]any{"default": s.LLM.DefaultModel(name)}
		if p, ok := s.LLM.Provider(name); ok {
			if lister, ok := p.(llm.ModelLister); ok {
				models, err := lister.Models(r.Context())
				if err != nil {
					log.Warn().Err(err).Str("provider", name).Msg("listing models failed")
				} else {
					entry["models"] = models
				}
			}
		}
		out[name] = entry
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"models":    out,
		"timestamp": s.clock().Format(time.RFC3339),
	})
}

func (s *Server) handleLLMUsage(w http.ResponseWriter, r *http.Request) {
	if s.LLM == nil {
		writeError(w, http.StatusServiceUnavailable, "no llm providers configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"usage":     s.LLM.Usage(),
		"timestamp": s.clock().Format(time.RFC3339),
	})
}

func (s *Server) handleLLMReset(w http.ResponseWriter, r *http.Request) {
	if s.LLM == nil {
		writeError(w, http.StatusServiceUnavailable, "no llm providers configured")
		return
	}
	s.LLM.ResetStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"message":   "usage stats reset",
		"timestamp": s.clock().Format(time.RFC3339),
	})
}
