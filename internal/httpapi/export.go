package httpapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/export"
)

// sessionReport loads the session named by ?session_id= and rejects empty
// ones; exporting nothing is a client error, not an empty file.
func (s *Server) sessionReport(w http.ResponseWriter, r *http.Request) (export.Report, bool) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return export.Report{}, false
	}
	sess, ok := s.Sessions.GetSession(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("session %s not found or expired", id))
		return export.Report{}, false
	}
	if len(sess.Results) == 0 {
		writeError(w, http.StatusBadRequest, "session has no events to export")
		return export.Report{}, false
	}
	return export.Report{
		Query:       sess.Query,
		Events:      sess.Results,
		GeneratedAt: s.clock(),
	}, true
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.sessionReport(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, rep); err != nil {
		log.Error().Err(err).Msg("pdf export failed")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("pdf export failed: %v", err))
		return
	}
	name := fmt.Sprintf("events_export_%s.pdf", s.clock().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.sessionReport(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rep.Events); err != nil {
		log.Error().Err(err).Msg("csv export failed")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("csv export failed: %v", err))
		return
	}
	name := fmt.Sprintf("events_export_%s.csv", s.clock().Format("20060102_150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	_, _ = buf.WriteTo(w)
}
