package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/session"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	ctx := context.Background()
	ctrl := session.NewController("attempt-1", "quiz-1", domain.Identity{UserID: "u1"}, session.Options{})
	defer ctrl.Close()

	if err := store.Put(ctx, ctrl); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !mr.Exists("quiz:attempt:attempt-1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:attempt:attempt-1"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %s", ttl)
	}
	if _, ok := store.Get(ctx, "attempt-1"); !ok {
		t.Fatalf("expected local controller")
	}

	snap := ctrl.Snapshot()
	snap.State = session.StateSubmitted
	snap.SubmissionID = "sub-1"
	if err := store.Checkpoint(ctx, snap); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	got, err := store.LoadCheckpoint(ctx, "attempt-1")
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if got.State != session.StateSubmitted || got.SubmissionID != "sub-1" || got.UserID != "u1" {
		t.Fatalf("unexpected checkpoint %+v", got)
	}

	store.Delete(ctx, "attempt-1")
	if mr.Exists("quiz:attempt:attempt-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if err := store.Checkpoint(ctx, snap); err != nil {
		t.Fatalf("late checkpoint: %v", err)
	}
	if _, err := store.LoadCheckpoint(ctx, "attempt-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("late checkpoint must not resurrect the attempt, got %v", err)
	}
}

func TestCheckpointSurvivesProcessRestart(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	first := NewSessionStore(newClient(mr), time.Minute)
	ctrl := session.NewController("attempt-9", "quiz-1", domain.Identity{UserID: "u1"}, session.Options{})
	defer ctrl.Close()
	if err := first.Put(ctx, ctrl); err != nil {
		t.Fatalf("put: %v", err)
	}

	second := NewSessionStore(newClient(mr), time.Minute)
	if _, ok := second.Get(ctx, "attempt-9"); ok {
		t.Fatalf("controllers are process-local")
	}
	snap, err := second.LoadCheckpoint(ctx, "attempt-9")
	if err != nil || snap.QuizID != "quiz-1" {
		t.Fatalf("expected checkpoint from redis, got %+v, %v", snap, err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := second.LoadCheckpoint(ctx, "attempt-9"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected checkpoint to expire, got %v", err)
	}
}
