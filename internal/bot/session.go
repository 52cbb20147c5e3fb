package bot

import (
	"sync"
	"time"

	"github.com/oltinwash/backend/internal/bot/flow"
)

const (
	sessionTTL   = 30 * time.Minute
	janitorSweep = 5 * time.Minute
)

type session struct {
	draft    flow.Draft
	deadline time.Time
}

// SessionStore keeps one in-flight order draft per telegram id. Sessions
// expire after 30 minutes of inactivity; a janitor goroutine sweeps the
// map and Get also drops expired entries lazily.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]session
	done     chan struct{}
}

func NewSessionStore() *SessionStore {
	store := &SessionStore{
		sessions: make(map[int64]session),
		done:     make(chan struct{}),
	}
	go store.janitor()

	return store
}

// Get returns the draft for the user. A missing or expired session comes
// back as a zero draft at the idle step.
func (s *SessionStore) Get(userID int64) flow.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return flow.Draft{}
	}
	if time.Now().After(sess.deadline) {
		delete(s.sessions, userID)
		return flow.Draft{}
	}

	return sess.draft
}

// Set stores the draft and refreshes the inactivity deadline.
func (s *SessionStore) Set(userID int64, draft flow.Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = session{draft: draft, deadline: time.Now().Add(sessionTTL)}
}

// Clear drops the user's session.
func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, userID)
}

// Stop terminates the janitor goroutine.
func (s *SessionStore) Stop() {
	close(s.done)
}

func (s *SessionStore) janitor() {
	ticker := time.NewTicker(janitorSweep)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for id, sess := range s.sessions {
				if now.After(sess.deadline) {
					delete(s.sessions, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
