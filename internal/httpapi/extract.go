package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/osintscope/eventsearch/internal/events"
	"github.com/osintscope/eventsearch/internal/model"
)

// extractRequest is a direct single-article extraction, bypassing discovery
// and scraping.
type extractRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	URL           string `json:"url"`
	SourceName    string `json:"source_name"`
	PublishedDate string `json:"published_date"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		writeError(w, http.StatusServiceUnavailable, "event extraction not configured")
		return
	}
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	art := model.Article{
		ID:            uuid.NewString(),
		URL:           req.URL,
		Title:         req.Title,
		Content:       req.Content,
		PublishedDate: req.PublishedDate,
		SourceName:    req.SourceName,
		ScrapedAt:     s.clock(),
	}
	ev, meta, err := s.Events.ExtractEvent(r.Context(), art, events.Options{
		Provider: req.Provider,
		Model:    req.Model,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("event extraction failed: %v", err))
		return
	}
	if ev == nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("no event extracted: %s", meta.Reason))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
