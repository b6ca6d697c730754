package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/osintscope/eventsearch/internal/model"
)

type sseFrame struct {
	event string
	data  map[string]any
}

// parseSSE splits a recorded SSE body into frames. Every frame the server
// writes is an event line plus a single data line.
func parseSSE(t *testing.T, body string) []sseFrame {
	t.Helper()
	var frames []sseFrame
	for _, block := range strings.Split(strings.TrimSpace(body), "\n\n") {
		var f sseFrame
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				f.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				raw := strings.TrimPrefix(line, "data: ")
				if err := json.Unmarshal([]byte(raw), &f.data); err != nil {
					t.Fatalf("frame data %q: %v", raw, err)
				}
			}
		}
		if f.event == "" {
			t.Fatalf("frame without event line in block %q", block)
		}
		frames = append(frames, f)
	}
	return frames
}

func TestSearchStreamEndpoint(t *testing.T) {
	articles := newArticleServer(t, "Hamburg port fire contained", fireBody)
	stub := &stubLLM{rules: []promptRule{{
		contains: "Hamburg port fire contained",
		text:     fireJSON("A fire broke out in the port of Hamburg and was contained by the evening.", 0.9),
	}}}
	e := newEnv(t, registryYAML("Test Wire", articles.URL, true), stub)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/stream?query_text=port+fire+in+hamburg", nil)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (body: %s)", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	id := rec.Header().Get("X-Session-ID")
	if id == "" {
		t.Fatal("response carries no X-Session-ID header")
	}

	frames := parseSSE(t, rec.Body.String())
	if len(frames) < 3 {
		t.Fatalf("stream has %d frames, want session, progress and a terminal one", len(frames))
	}
	if frames[0].event != "session" {
		t.Fatalf("first frame = %s, want session", frames[0].event)
	}
	if frames[0].data["session_id"] != id {
		t.Errorf("session frame id = %v, header %s", frames[0].data["session_id"], id)
	}

	last := frames[len(frames)-1]
	if last.event != "complete" {
		t.Fatalf("terminal frame = %s (%v)", last.event, last.data)
	}
	if last.data["total_events"] != float64(1) {
		t.Errorf("total_events = %v, want 1", last.data["total_events"])
	}
	if last.data["message"] != "Search completed. Found 1 event(s)." {
		t.Errorf("message = %q", last.data["message"])
	}

	var sawEvent bool
	for _, f := range frames {
		if f.event != "event" {
			continue
		}
		sawEvent = true
		ev, _ := f.data["event"].(map[string]any)
		if ev["title"] != "Hamburg port fire contained" {
			t.Errorf("streamed event title = %v", ev["title"])
		}
	}
	if !sawEvent {
		t.Error("stream emitted no event frame")
	}

	if sess, ok := e.sessions.GetSession(id); !ok || sess.Status != model.SessionCompleted {
		t.Errorf("session status = %s, ok = %v", sess.Status, ok)
	}
}

func TestSearchStreamEndpointValidation(t *testing.T) {
	e := newEnv(t, "sources: []\n", &stubLLM{})
	got := getJSON(t, e.http.URL+"/api/v1/search/stream", http.StatusBadRequest)
	if got["error"] != "query_text is required" {
		t.Errorf("error = %v", got["error"])
	}
	if e.sessions.Len() != 0 {
		t.Errorf("rejected request left %d sessions behind", e.sessions.Len())
	}
}
