// Package session keeps per-search state in memory: the query, accumulated
// events, progress and terminal status. Sessions survive the search that
// created them so callers can poll results, export them or cancel a run in
// flight. Nothing is persisted.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osintscope/eventsearch/internal/model"
)

// ErrNotFound is returned for operations on unknown or expired session ids.
var ErrNotFound = errors.New("session not found")

// Progress describes how far a running search has advanced.
type Progress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
	Message    string  `json:"message"`
}

// Session is one search run and its accumulated results.
type Session struct {
	ID        string              `json:"session_id"`
	Query     model.SearchQuery   `json:"query"`
	Results   []model.Event       `json:"results"`
	Status    model.SessionStatus `json:"status"`
	Progress  Progress            `json:"progress"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Store holds sessions behind an RWMutex. Cancellation is tracked in a
// separate id set so it stays a one-way flag: ids are only ever added.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	cancelled map[string]struct{}

	// now is swappable in tests.
	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		sessions:  make(map[string]*Session),
		cancelled: make(map[string]struct{}),
	}
}

func (s *Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Create registers a new session for query and returns its id.
func (s *Store) Create(query model.SearchQuery, status model.SessionStatus) string {
	id := uuid.NewString()
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &Session{
		ID:        id,
		Query:     query,
		Results:   []model.Event{},
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return id
}

// AppendResult adds an event to the session. Appends to cancelled sessions
// are permitted: work already in flight when the cancel landed still counts.
func (s *Store) AppendResult(id string, ev model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Results = append(sess.Results, ev)
	sess.UpdatedAt = s.clock()
	return nil
}

// UpdateProgress replaces the session's progress snapshot.
func (s *Store) UpdateProgress(id string, p Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.Progress = p
	sess.UpdatedAt = s.clock()
	return nil
}

// SetStatus records the session's status. Cancelled sessions keep their
// cancelled status; cancellation is one-way.
func (s *Store) SetStatus(id string, status model.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if _, c := s.cancelled[id]; c && status != model.SessionCancelled {
		return nil
	}
	sess.Status = status
	sess.UpdatedAt = s.clock()
	return nil
}

// Cancel marks the session cancelled. The id joins the cancelled set and the
// status flips in the same critical section so pollers never observe one
// without the other.
func (s *Store) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.cancelled[id] = struct{}{}
	sess.Status = model.SessionCancelled
	sess.UpdatedAt = s.clock()
	return nil
}

// IsCancelled reports whether Cancel has been called for id. Unknown ids
// report false.
func (s *Store) IsCancelled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cancelled[id]
	return ok
}

// GetSession returns a snapshot copy of the session. Mutating the returned
// value does not affect the store.
func (s *Store) GetSession(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	cp := *sess
	cp.Results = make([]model.Event, len(sess.Results))
	copy(cp.Results, sess.Results)
	return cp, true
}

// GetResults returns a copy of the session's accumulated events.
func (s *Store) GetResults(id string) ([]model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	out := make([]model.Event, len(sess.Results))
	copy(out, sess.Results)
	return out, true
}

// Delete removes a session and its cancellation mark. Deleting an unknown id
// is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.cancelled, id)
}

// CleanupOlderThan removes sessions whose last update is older than maxAge
// and returns how many were removed.
func (s *Store) CleanupOlderThan(maxAge time.Duration) int {
	cutoff := s.clock().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			delete(s.cancelled, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
