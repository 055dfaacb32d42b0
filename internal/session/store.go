// Package session keeps the in-memory conversation sessions. State is
// process-memory only: a restart drops every in-flight dialogue, which the
// system accepts by design.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/adnane/nowab-bots-back/internal/domain"
)

// Store maps (tenant, user) to a live session. Map access is guarded here;
// per-session single-writer ordering is the dispatcher's job.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	idle     time.Duration
	now      func() time.Time
}

func NewStore(idle time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*domain.Session),
		idle:     idle,
		now:      time.Now,
	}
}

// Get returns the session for the pair, creating it lazily. A session idle
// beyond the boundary is replaced with a fresh one at the main menu.
func (s *Store) Get(tenantID string, userID int64) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(tenantID, userID)
	now := s.now()

	sess, ok := s.sessions[key]
	if !ok || (s.idle > 0 && now.Sub(sess.LastSeen) > s.idle) {
		sess = domain.NewSession(tenantID, userID)
		s.sessions[key] = sess
	}
	sess.LastSeen = now
	return sess
}

// DropTenant forgets every session of one tenant; called when its poller is
// retired so a reactivated tenant starts clean.
func (s *Store) DropTenant(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, sess := range s.sessions {
		if sess.TenantID == tenantID {
			delete(s.sessions, key)
		}
	}
}

// Sweep removes idle sessions; the orchestrator runs it periodically so the
// map does not grow with every user ever seen.
func (s *Store) Sweep() int {
	if s.idle <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, sess := range s.sessions {
		if now.Sub(sess.LastSeen) > s.idle {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func sessionKey(tenantID string, userID int64) string {
	return fmt.Sprintf("%s/%d", tenantID, userID)
}
