package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-forecast-qa/internal/qa"
	"github.com/i474232898/weather-forecast-qa/internal/weather"
)

var (
	// ErrNotFound is returned when no session exists for an ID.
	ErrNotFound = errors.New("session not found")
)

// Session is one user's conversation: the loaded forecast plus the chat history.
type Session struct {
	ID         string           `json:"id"`
	Forecast   weather.Forecast `json:"forecast"`
	History    []qa.Turn        `json:"history"`
	CreatedAt  time.Time        `json:"createdAt"`
	LastActive time.Time        `json:"lastActive"`
}

// MemoryStore is a concurrency-safe in-memory registry of sessions.
// Nothing is persisted; sessions end on Delete or when swept for idleness.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session ID
	data map[string]*Session

	// retention configuration
	maxHistory int           // max turns kept per session
	maxIdle    time.Duration // sessions idle longer than this are swept

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory or maxIdle is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxIdle time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*Session),
		maxHistory: maxHistory,
		maxIdle:    maxIdle,
		now:        time.Now,
	}
}

// Create registers a new session for a loaded forecast.
func (s *MemoryStore) Create(fc weather.Forecast) Session {
	now := s.now().UTC()
	sess := &Session{
		ID:         uuid.NewString(),
		Forecast:   fc,
		CreatedAt:  now,
		LastActive: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = sess
	return sess.snapshot()
}

// Get returns a copy of the session.
func (s *MemoryStore) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return sess.snapshot(), nil
}

// AppendTurns adds turns to the history and enforces the history limit.
func (s *MemoryStore) AppendTurns(id string, turns ...qa.Turn) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.data[id]
	if !ok {
		return Session{}, ErrNotFound
	}

	sess.History = append(sess.History, turns...)
	sess.LastActive = s.now().UTC()

	// Enforce retention by count; drop the oldest turns.
	if s.maxHistory > 0 && len(sess.History) > s.maxHistory {
		over := len(sess.History) - s.maxHistory
		sess.History = append([]qa.Turn(nil), sess.History[over:]...)
	}
	return sess.snapshot(), nil
}

// Touch marks the session as active.
func (s *MemoryStore) Touch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.data[id]
	if !ok {
		return ErrNotFound
	}
	sess.LastActive = s.now().UTC()
	return nil
}

// Delete ends a session.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return ErrNotFound
	}
	delete(s.data, id)
	return nil
}

// Sweep removes sessions idle for longer than maxIdle and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	if s.maxIdle <= 0 {
		return 0
	}
	cutoff := s.now().UTC().Add(-s.maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.data {
		if sess.LastActive.Before(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (sess *Session) snapshot() Session {
	out := *sess
	out.History = append([]qa.Turn(nil), sess.History...)
	return out
}
