package core

// session.go tracks per-browser sessions. Each session owns a memo cache of
// fetched responses so repeated interactions on one indicator do not refetch.
// Selecting another indicator clears the cache. Sessions live in memory only.

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one user's interaction state.
type Session struct {
	ID string

	mu        sync.Mutex
	indicator string
	memo      *MemoFetcher
	lastSeen  time.Time
}

// FetcherFor returns the session's memo fetcher for an indicator. When the
// indicator differs from the previous call the cache is invalidated first.
func (s *Session) FetcherFor(indicator string) *MemoFetcher {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indicator != indicator {
		s.memo.Invalidate()
		s.indicator = indicator
	}
	s.lastSeen = time.Now()
	return s.memo
}

// Indicator returns the indicator last selected in this session.
func (s *Session) Indicator() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indicator
}

// Sessions is an in-memory session store.
type Sessions struct {
	next Fetcher
	ttl  time.Duration

	mu   sync.Mutex
	byID map[string]*Session
}

// NewSessions creates a store whose sessions fetch through next.
// Sessions idle for longer than ttl are removed by Prune; zero keeps them.
func NewSessions(next Fetcher, ttl time.Duration) *Sessions {
	return &Sessions{next: next, ttl: ttl, byID: make(map[string]*Session)}
}

// Get returns the session with id, creating it when missing.
// An empty or unknown id yields a new session with a fresh id.
func (s *Sessions) Get(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.byID[id]; ok {
		return sess
	}

	sess := &Session{
		ID:       uuid.New().String(),
		memo:     NewMemoFetcher(s.next),
		lastSeen: time.Now(),
	}
	s.byID[sess.ID] = sess
	return sess
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// Prune removes sessions idle since before now-ttl and returns how many
// were removed.
func (s *Sessions) Prune(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.byID {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen)
		sess.mu.Unlock()
		if idle > s.ttl {
			delete(s.byID, id)
			removed++
		}
	}
	return removed
}
