package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forecast-widget/forecast-widget/internal/forecast"
)

var (
	// ErrNotFound is returned when no session exists for a given id.
	ErrNotFound = errors.New("session not found")
)

// MemoryStore is a concurrency-safe in-memory session store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session id
	sessions map[string]*forecast.Session

	// retention configuration
	maxSessions int           // max number of live sessions (0 = unlimited)
	maxIdle     time.Duration // drop sessions idle longer than this (0 = never)

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
func NewMemoryStore(maxSessions int, maxIdle time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*forecast.Session),
		maxSessions: maxSessions,
		maxIdle:     maxIdle,
		now:         time.Now,
	}
}

// Create registers a new session with a random id and enforces the count
// limit by evicting the least recently seen sessions.
func (s *MemoryStore) Create(unit forecast.Unit) *forecast.Session {
	sess := forecast.NewSession(uuid.NewString(), unit, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess

	if s.maxSessions > 0 && len(s.sessions) > s.maxSessions {
		s.evictOldest(len(s.sessions)-s.maxSessions, sess.ID)
	}
	return sess
}

// Get returns the session for id.
func (s *MemoryStore) Get(id string) (*forecast.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// List returns all live sessions.
func (s *MemoryStore) List() []*forecast.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*forecast.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune removes sessions idle for longer than maxIdle.
func (s *MemoryStore) Prune(now time.Time) int {
	if s.maxIdle <= 0 {
		return 0
	}
	cutoff := now.Add(-s.maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// evictOldest drops the n least recently seen sessions other than keep.
// Callers hold mu.
func (s *MemoryStore) evictOldest(n int, keep string) {
	all := make([]*forecast.Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		if id != keep {
			all = append(all, sess)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].LastSeen().Before(all[j].LastSeen())
	})
	for i := 0; i < n && i < len(all); i++ {
		delete(s.sessions, all[i].ID)
	}
}
