package session

import (
	"sync"
	"testing"
	"time"

	"github.com/osintscope/eventsearch/internal/model"
)

func TestCreateAndGetSession(t *testing.T) {
	st := New()
	q := model.SearchQuery{QueryText: "protests in paris"}
	id := st.Create(q, model.SessionPending)
	if id == "" {
		t.Fatalf("Create returned empty id")
	}

	sess, ok := st.GetSession(id)
	if !ok {
		t.Fatalf("GetSession(%q) not found", id)
	}
	if sess.Query.QueryText != "protests in paris" {
		t.Errorf("query = %q", sess.Query.QueryText)
	}
	if len(sess.Results) != 0 {
		t.Errorf("new session has %d results, want 0", len(sess.Results))
	}
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	st := New()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := st.Create(model.SearchQuery{}, model.SessionPending)
		if seen[id] {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = true
	}
}

func TestAppendResultOrder(t *testing.T) {
	st := New()
	id := st.Create(model.SearchQuery{}, model.SessionPending)
	for _, title := range []string{"first", "second", "third"} {
		if err := st.AppendResult(id, model.Event{Title: title}); err != nil {
			t.Fatalf("AppendResult: %v", err)
		}
	}
	got, ok := st.GetResults(id)
	if !ok {
		t.Fatalf("GetResults not found")
	}
	if len(got) != 3 || got[0].Title != "first" || got[2].Title != "third" {
		t.Errorf("results out of order: %+v", got)
	}
}

func TestAppendToUnknownSession(t *testing.T) {
	st := New()
	if err := st.AppendResult("nope", model.Event{}); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCancelIsAtomicAndOneWay(t *testing.T) {
	st := New()
	id := st.Create(model.SearchQuery{}, model.SessionPending)

	if st.IsCancelled(id) {
		t.Fatalf("fresh session reports cancelled")
	}
	if err := st.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !st.IsCancelled(id) {
		t.Fatalf("IsCancelled false after Cancel")
	}
	sess, _ := st.GetSession(id)
	if sess.Status != model.SessionCancelled {
		t.Errorf("status = %q, want cancelled", sess.Status)
	}

	// A later status write must not undo the cancel.
	if err := st.SetStatus(id, model.SessionCompleted); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	sess, _ = st.GetSession(id)
	if sess.Status != model.SessionCancelled {
		t.Errorf("status after SetStatus = %q, want cancelled", sess.Status)
	}
}

func TestAppendAfterCancelPermitted(t *testing.T) {
	st := New()
	id := st.Create(model.SearchQuery{}, model.SessionPending)
	if err := st.Cancel(id); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := st.AppendResult(id, model.Event{Title: "late arrival"}); err != nil {
		t.Fatalf("AppendResult after cancel: %v", err)
	}
	got, _ := st.GetResults(id)
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
}

func TestGetSessionReturnsSnapshot(t *testing.T) {
	st := New()
	id := st.Create(model.SearchQuery{}, model.SessionPending)
	_ = st.AppendResult(id, model.Event{Title: "original"})

	snap, _ := st.GetSession(id)
	snap.Results[0].Title = "mutated"

	fresh, _ := st.GetSession(id)
	if fresh.Results[0].Title != "original" {
		t.Errorf("store mutated through snapshot: %q", fresh.Results[0].Title)
	}
}

func TestUpdateProgress(t *testing.T) {
	st := New()
	id := st.Create(model.SearchQuery{}, model.SessionPending)
	p := Progress{Current: 3, Total: 10, Percentage: 41.0, Message: "extracting"}
	if err := st.UpdateProgress(id, p); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	sess, _ := st.GetSession(id)
	if sess.Progress != p {
		t.Errorf("progress = %+v, want %+v", sess.Progress, p)
	}
}

func TestDelete(t *testing.T) {
	st := New()
	id := st.Create(model.SearchQuery{}, model.SessionPending)
	_ = st.Cancel(id)
	st.Delete(id)
	if _, ok := st.GetSession(id); ok {
		t.Fatalf("session survived Delete")
	}
	if st.IsCancelled(id) {
		t.Fatalf("cancel mark survived Delete")
	}
	st.Delete("unknown") // no-op
}

func TestCleanupOlderThan(t *testing.T) {
	st := New()
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return current }

	old := st.Create(model.SearchQuery{}, model.SessionPending)
	current = current.Add(3 * time.Hour)
	fresh := st.Create(model.SearchQuery{}, model.SessionPending)

	current = current.Add(time.Hour)
	removed := st.CleanupOlderThan(2 * time.Hour)
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := st.GetSession(old); ok {
		t.Errorf("stale session survived cleanup")
	}
	if _, ok := st.GetSession(fresh); !ok {
		t.Errorf("fresh session removed by cleanup")
	}
}

func TestConcurrentAppends(t *testing.T) {
	st := New()
	id := st.Create(model.SearchQuery{}, model.SessionPending)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = st.AppendResult(id, model.Event{Title: "e"})
		}()
	}
	wg.Wait()

	got, _ := st.GetResults(id)
	if len(got) != 20 {
		t.Fatalf("got %d results, want 20", len(got))
	}
}
