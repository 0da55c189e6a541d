package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	loader := &countingLoader{StaticQuizLoader: memory.NewStaticQuizLoader(memory.SampleCatalog())}
	repo := NewQuizRepository(client, loader, time.Minute)
	ctx := context.Background()

	quiz, err := repo.LoadQuiz(ctx, domain.Identity{}, "quiz-1")
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	if quiz.Title != "Arithmetic warm-up" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	questions, err := repo.LoadQuestions(ctx, domain.Identity{}, "quiz-1")
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if len(questions) != 2 || !questions[0].Options[1].Correct {
		t.Fatalf("unexpected questions %+v", questions)
	}
	if !mr.Exists("quiz:quiz-1:meta") || !mr.Exists("quiz:quiz-1:questions") {
		t.Fatalf("expected both cache keys to be set")
	}
	if ttl := mr.TTL("quiz:quiz-1:meta"); ttl < time.Minute || ttl > 66*time.Second {
		t.Fatalf("expected ttl within jitter window, got %s", ttl)
	}

	// Second round should hit cache, loader not incremented.
	_, _ = repo.LoadQuiz(ctx, domain.Identity{}, "quiz-1")
	_, _ = repo.LoadQuestions(ctx, domain.Identity{}, "quiz-1")
	if loader.quizCalls.Load() != 1 || loader.questionCalls.Load() != 1 {
		t.Fatalf("expected cache hits, loader calls quiz=%d questions=%d", loader.quizCalls.Load(), loader.questionCalls.Load())
	}

	if err := repo.Invalidate(ctx, "quiz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:quiz-1:meta") {
		t.Fatalf("expected cache key removed")
	}
}

func TestQuizRepositoryFallsBackWhenRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	loader := &countingLoader{StaticQuizLoader: memory.NewStaticQuizLoader(memory.SampleCatalog())}
	repo := NewQuizRepository(client, loader, time.Minute)

	if _, err := repo.LoadQuiz(context.Background(), domain.Identity{}, "quiz-1"); err != nil {
		t.Fatalf("expected loader fallback, got %v", err)
	}
	if _, err := repo.LoadQuiz(context.Background(), domain.Identity{}, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	*memory.StaticQuizLoader
	quizCalls     atomic.Int32
	questionCalls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, who domain.Identity, quizID string) (domain.Quiz, error) {
	l.quizCalls.Add(1)
	return l.StaticQuizLoader.LoadQuiz(ctx, who, quizID)
}

func (l *countingLoader) LoadQuestions(ctx context.Context, who domain.Identity, quizID string) ([]domain.Question, error) {
	l.questionCalls.Add(1)
	return l.StaticQuizLoader.LoadQuestions(ctx, who, quizID)
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
