package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/events"
	"github.com/osintscope/eventsearch/internal/model"
	"github.com/osintscope/eventsearch/internal/orchestrator"
)

// handleSearchStream runs a streaming search over SSE. The first frame names
// the session so clients can cancel or poll it; the channel's terminal frame
// (complete, cancelled or error) ends the stream. A client that disconnects
// mid-stream cancels the session, keeping events extracted so far.
func (s *Server) handleSearchStream(w http.ResponseWriter, r *http.Request) {
	if s.Searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "search pipeline not configured")
		return
	}

	params := r.URL.Query()
	req := searchRequest{
		QueryText: params.Get("query_text"),
		Location:  params.Get("location"),
		EventType: params.Get("event_type"),
		DateFrom:  params.Get("date_from"),
		DateTo:    params.Get("date_to"),
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
	opts := events.Options{
		Provider: params.Get("llm_provider"),
		Model:    params.Get("llm_model"),
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	id := s.Sessions.Create(query, model.SessionPending)
	log.Info().Str("session", id).Str("query", query.QueryText).Msg("streaming search request")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Session-ID", id)

	writeFrame(w, flusher, orchestrator.Frame{
		Type: orchestrator.FrameSession,
		Data: orchestrator.SessionData{SessionID: id},
	})

	searcher := *s.Searcher
	if minScore > 0 {
		searcher.MinRelevance = minScore
	}
	for f := range searcher.SearchStream(r.Context(), query, id, limits, opts) {
		writeFrame(w, flusher, f)
	}

	// The producer stops without a terminal frame when the client goes
	// away; mark the session cancelled so its events stay retrievable.
	if r.Context().Err() != nil {
		_ = s.Sessions.Cancel(id)
		log.Info().Str("session", id).Msg("client disconnected, session cancelled")
	}
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, f orchestrator.Frame) {
	data, err := json.Marshal(f.Data)
	if err != nil {
		log.Error().Err(err).Str("frame", string(f.Type)).Msg("encoding frame")
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", f.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
