package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"quizhub-service/internal/config"
	"quizhub-service/internal/domain"
)

func TestBuildServiceDefaultsToSampleCatalog(t *testing.T) {
	service, cleanup, err := buildService(context.Background(), config.Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer cleanup()

	who := domain.Identity{UserID: "u1"}
	snap, err := service.Start(context.Background(), who, "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = service.Discard(context.Background(), who, snap.AttemptID) }()
	if snap.TotalQuestions != 2 {
		t.Fatalf("expected sample quiz, got %+v", snap)
	}
}

func TestBuildServiceUsesRedisWhenConfigured(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	var cfg config.Config
	cfg.Redis.Addr = mr.Addr()
	service, cleanup, err := buildService(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer cleanup()

	who := domain.Identity{UserID: "u1"}
	snap, err := service.Start(context.Background(), who, "quiz-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = service.Discard(context.Background(), who, snap.AttemptID) }()

	if !mr.Exists("quiz:attempt:" + snap.AttemptID) {
		t.Fatalf("expected attempt checkpoint in redis")
	}
	if !mr.Exists("quiz:quiz-1:meta") {
		t.Fatalf("expected quiz metadata cached in redis")
	}
}

func TestBuildServiceReadsCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizzes.yaml")
	raw := `
quizzes:
  - id: capitals
    title: Capitals
    time_limit: 1
    pass_percentage: 100
    questions:
      - id: fr
        content: Capital of France?
        type: SINGLE
        options:
          - {id: a, text: Paris, correct: true}
          - {id: b, text: Lyon}
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	var cfg config.Config
	cfg.Quiz.CatalogFile = path
	service, cleanup, err := buildService(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer cleanup()

	quiz, err := service.Quiz(context.Background(), domain.Identity{}, "capitals")
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	if quiz.Title != "Capitals" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if _, err := service.Quiz(context.Background(), domain.Identity{}, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("sample catalog must not be served alongside a file, got %v", err)
	}

	cfg.Quiz.CatalogFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, _, err := buildService(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected missing catalog to fail")
	}
}

func TestBuildServiceRejectsBadBackendURL(t *testing.T) {
	var cfg config.Config
	cfg.Backend.URL = "://nope"
	if _, _, err := buildService(context.Background(), cfg, zap.NewNop()); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
