package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/osintscope/eventsearch/internal/events"
	"github.com/osintscope/eventsearch/internal/model"
	"github.com/osintscope/eventsearch/internal/social"
)

func (s *Server) handleSocialStats(w http.ResponseWriter, r *http.Request) {
	if s.Social == nil {
		writeError(w, http.StatusServiceUnavailable, "social aggregator not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.Social.Stats())
}

type socialClearRequest struct {
	Platform      string `json:"platform"`
	ClearAnalysis bool   `json:"clear_analysis"`
}

func (s *Server) handleSocialClear(w http.ResponseWriter, r *http.Request) {
	if s.Social == nil {
		writeError(w, http.StatusServiceUnavailable, "social aggregator not configured")
		return
	}
	var req socialClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	removed := s.Social.ClearCache(req.Platform, req.ClearAnalysis)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"removed": removed,
	})
}

// socialAnalyzeRequest asks for the content behind a social URL plus the
// event extracted from it.
type socialAnalyzeRequest struct {
	URL          string `json:"url"`
	Platform     string `json:"platform"`
	ForceRefresh bool   `json:"force_refresh"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
}

// handleSocialAnalyze fetches post content through the aggregator and runs
// event extraction on its text. Cached analyses short-circuit the LLM call;
// fresh ones are cached for next time.
func (s *Server) handleSocialAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.Social == nil || s.Events == nil {
		writeError(w, http.StatusServiceUnavailable, "social analysis not configured")
		return
	}
	var req socialAnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	content, err := s.Social.FetchContent(r.Context(), req.URL, social.FetchOptions{
		Platform:     req.Platform,
		ForceRefresh: req.ForceRefresh,
		Model:        req.Model,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("content fetch failed: %v", err))
		return
	}
	if content == nil {
		writeError(w, http.StatusNotFound, "no content retrieved for url")
		return
	}

	if content.ExtractedEvent != nil {
		writeJSON(w, http.StatusOK, analyzeResponse(content, content.ExtractedEvent, true, ""))
		return
	}
	if ev, ok := s.Social.CachedAnalysis(req.URL, req.Model); ok {
		content.ExtractedEvent = ev
		writeJSON(w, http.StatusOK, analyzeResponse(content, ev, true, ""))
		return
	}

	title := content.Title
	if title == "" && content.Author != nil && content.Author.Name != "" {
		title = fmt.Sprintf("%s post by %s", content.Platform, content.Author.Name)
	}
	art := model.Article{
		ID:         uuid.NewString(),
		URL:        req.URL,
		Title:      title,
		Content:    content.BodyText(),
		SourceName: content.Platform,
		ScrapedAt:  s.clock(),
	}
	if content.PostedAt != nil {
		art.PublishedDate = content.PostedAt.Format("2006-01-02")
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
		writeJSON(w, http.StatusOK, analyzeResponse(content, nil, false, meta.Reason))
		return
	}

	s.Social.SaveAnalysis(req.URL, *ev, req.Model)
	content.ExtractedEvent = ev
	writeJSON(w, http.StatusOK, analyzeResponse(content, ev, false, ""))
}

func analyzeResponse(content *model.SocialContent, ev *model.Event, cached bool, reason string) map[string]any {
	out := map[string]any{
		"content":         content,
		"event":           ev,
		"analysis_cached": cached,
	}
	if reason != "" {
		out["reason"] = reason
	}
	return out
}
