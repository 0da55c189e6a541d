package memory

import (
	"context"
	"sync"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/session"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu          sync.RWMutex
	sessions    map[string]*session.Controller
	checkpoints map[string]session.Snapshot
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:    make(map[string]*session.Controller),
		checkpoints: make(map[string]session.Snapshot),
	}
}

func (s *SessionStore) Put(_ context.Context, c *session.Controller) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[c.AttemptID()] = c
	return nil
}

func (s *SessionStore) Get(_ context.Context, attemptID string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[attemptID]
	return c, ok
}

func (s *SessionStore) Delete(_ context.Context, attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, attemptID)
	delete(s.checkpoints, attemptID)
}

func (s *SessionStore) All() []*session.Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*session.Controller, 0, len(s.sessions))
	for _, c := range s.sessions {
		out = append(out, c)
	}
	return out
}

func (s *SessionStore) Checkpoint(_ context.Context, snap session.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, live := s.sessions[snap.AttemptID]; !live {
		return nil
	}
	s.checkpoints[snap.AttemptID] = snap
	return nil
}

func (s *SessionStore) LoadCheckpoint(_ context.Context, attemptID string) (session.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.checkpoints[attemptID]
	if !ok {
		return session.Snapshot{}, domain.ErrSessionNotFound
	}
	return snap, nil
}
