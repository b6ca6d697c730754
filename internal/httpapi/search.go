package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/discover"
	"github.com/osintscope/eventsearch/internal/model"
)

// searchRequest is the batch search body. Dates come in as YYYY-MM-DD.
type searchRequest struct {
	QueryText  string `json:"query_text"`
	Location   string `json:"location"`
	EventType  string `json:"event_type"`
	DateFrom   string `json:"date_from"`
	DateTo     string `json:"date_to"`
	MaxResults int    `json:"max_results"`
}

func parseDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	return &t, nil
}

// toQuery validates the request and converts it to the pipeline's shape.
func (req searchRequest) toQuery() (model.SearchQuery, error) {
	if req.QueryText == "" {
		return model.SearchQuery{}, fmt.Errorf("query_text is required")
	}
	q := model.SearchQuery{
		QueryText:  req.QueryText,
		Location:   req.Location,
		MaxResults: req.MaxResults,
	}
	if req.EventType != "" {
		et := model.EventType(req.EventType)
		if !et.Valid() {
			return model.SearchQuery{}, fmt.Errorf("unknown event_type %q", req.EventType)
		}
		q.EventType = et
	}
	var err error
	if q.DateFrom, err = parseDay(req.DateFrom); err != nil {
		return model.SearchQuery{}, fmt.Errorf("date_from: %w", err)
	}
	if q.DateTo, err = parseDay(req.DateTo); err != nil {
		return model.SearchQuery{}, fmt.Errorf("date_to: %w", err)
	}
	return q, nil
}

// requestLimits reads the optional max_articles and min_relevance_score
// query parameters shared by the batch and streaming endpoints.
func requestLimits(r *http.Request) (discover.Limits, float64, error) {
	var limits discover.Limits
	var minScore float64
	if v := r.URL.Query().Get("max_articles"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return limits, 0, fmt.Errorf("invalid max_articles %q", v)
		}
		limits.MaxArticles = n
	}
	if v := r.URL.Query().Get("min_relevance_score"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return limits, 0, fmt.Errorf("invalid min_relevance_score %q", v)
		}
		minScore = f
	}
	return limits, minScore, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.Searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "search pipeline not configured")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	query, err := req.toQuery()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limits, minScore, err := requestLimits(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().Str("query", query.QueryText).Int("max_articles", limits.MaxArticles).Msg("batch search request")

	// Per-request relevance floor without touching the shared searcher.
	searcher := *s.Searcher
	if minScore > 0 {
		searcher.MinRelevance = minScore
	}
	resp := searcher.Search(r.Context(), query, limits)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.Sessions.GetSession(id); !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err := s.Sessions.Cancel(id); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	results, _ := s.Sessions.GetResults(id)
	log.Info().Str("session", id).Int("events", len(results)).Msg("session cancelled")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "cancelled",
		"session_id":       id,
		"message":          fmt.Sprintf("Search cancelled. %d event(s) extracted.", len(results)),
		"events_extracted": len(results),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, ok := s.Sessions.GetSession(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("session %s not found or expired", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   id,
		"status":       sess.Status,
		"progress":     sess.Progress,
		"events":       sess.Results,
		"total_events": len(sess.Results),
	})
}
