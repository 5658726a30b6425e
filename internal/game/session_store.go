// internal/game/session_store.go
package game

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/google/uuid"
)

// SessionStore manages the live sessions hosted by one worker.
// It provides thread-safe access to add, retrieve, and delete sessions.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*GameSession
}

// NewSessionStore initializes and returns an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*GameSession),
	}
}

// Add registers a session. Reports false if the id is already taken.
func (s *SessionStore) Add(sess *GameSession) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		log.Warnf("SessionStore: attempted to add session %s which already exists", sess.ID)
		return false
	}
	s.sessions[sess.ID] = sess
	return true
}

// Get retrieves a session by id.
func (s *SessionStore) Get(id uuid.UUID) (*GameSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete removes a session by id.
func (s *SessionStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// All returns a snapshot slice of the current sessions.
func (s *SessionStore) All() []*GameSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*GameSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// ReapFinished removes finished sessions from the store and returns them so
// the caller can emit their records.
func (s *SessionStore) ReapFinished() []*GameSession {
	var reaped []*GameSession
	for _, sess := range s.All() {
		if sess.Phase() == PhaseFinished {
			reaped = append(reaped, sess)
		}
	}
	s.mu.Lock()
	for _, sess := range reaped {
		delete(s.sessions, sess.ID)
	}
	s.mu.Unlock()
	for _, sess := range reaped {
		log.Infof("SessionStore: reaped finished session %s (created %s)", sess.ID, sess.CreatedAt.Format(time.RFC3339))
	}
	return reaped
}
