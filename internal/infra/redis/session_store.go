package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/session"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Controllers own a running timer, so they stay in a local map; Redis holds the
//     last JSON snapshot of every attempt under a TTL as its liveness marker.
//   - The snapshot outlives the process, so a restarted instance can still answer
//     reads about an attempt even though it can no longer drive it.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*session.Controller
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*session.Controller),
	}
}

func (s *SessionStore) Put(ctx context.Context, c *session.Controller) error {
	s.mu.Lock()
	s.sessions[c.AttemptID()] = c
	s.mu.Unlock()
	return s.save(ctx, c.Snapshot())
}

func (s *SessionStore) Get(_ context.Context, attemptID string) (*session.Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.sessions[attemptID]
	return c, ok
}

func (s *SessionStore) Delete(ctx context.Context, attemptID string) {
	s.mu.Lock()
	delete(s.sessions, attemptID)
	s.mu.Unlock()
	_ = s.client.Del(ctx, s.key(attemptID)).Err()
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

// Checkpoint refreshes the stored snapshot. Snapshots of attempts already deleted
// are ignored so a late write cannot resurrect them.
func (s *SessionStore) Checkpoint(ctx context.Context, snap session.Snapshot) error {
	s.mu.RLock()
	_, live := s.sessions[snap.AttemptID]
	s.mu.RUnlock()
	if !live {
		return nil
	}
	return s.save(ctx, snap)
}

func (s *SessionStore) LoadCheckpoint(ctx context.Context, attemptID string) (session.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key(attemptID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Snapshot{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("get checkpoint %s: %w", attemptID, err)
	}
	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return session.Snapshot{}, fmt.Errorf("decode checkpoint %s: %w", attemptID, err)
	}
	return snap, nil
}

func (s *SessionStore) save(ctx context.Context, snap session.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(snap.AttemptID), raw, s.ttl).Err()
}

func (s *SessionStore) key(attemptID string) string {
	return "quiz:attempt:" + attemptID
}
