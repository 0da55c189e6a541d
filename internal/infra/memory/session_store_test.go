package memory

import (
	"context"
	"errors"
	"testing"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/session"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	ctrl := session.NewController("attempt-1", "quiz-1", domain.Identity{UserID: "u1"}, session.Options{})
	defer ctrl.Close()

	if err := store.Put(ctx, ctrl); err != nil {
		t.Fatalf("put: %v", err)
	}
	if got, ok := store.Get(ctx, "attempt-1"); !ok || got != ctrl {
		t.Fatalf("expected session present")
	}
	if n := len(store.All()); n != 1 {
		t.Fatalf("expected 1 session, got %d", n)
	}

	if err := store.Checkpoint(ctx, ctrl.Snapshot()); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	snap, err := store.LoadCheckpoint(ctx, "attempt-1")
	if err != nil || snap.State != session.StateLoading {
		t.Fatalf("unexpected checkpoint %+v, %v", snap, err)
	}

	store.Delete(ctx, "attempt-1")
	if _, ok := store.Get(ctx, "attempt-1"); ok {
		t.Fatalf("expected session removed")
	}
	if _, err := store.LoadCheckpoint(ctx, "attempt-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected checkpoint removed, got %v", err)
	}
}

func TestSessionStoreIgnoresCheckpointOfDeletedSession(t *testing.T) {
	store := NewSessionStore()
	if err := store.Checkpoint(context.Background(), session.Snapshot{AttemptID: "gone"}); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if _, err := store.LoadCheckpoint(context.Background(), "gone"); err == nil {
		t.Fatalf("late checkpoint must not resurrect a discarded session")
	}
}
