package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quizhub-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{StaticQuizLoader: NewStaticQuizLoader(SampleCatalog())}
	repo := NewQuizRepository(loader, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := repo.LoadQuiz(ctx, domain.Identity{}, "quiz-1"); err != nil {
			t.Fatalf("load quiz: %v", err)
		}
		qs, err := repo.LoadQuestions(ctx, domain.Identity{}, "quiz-1")
		if err != nil {
			t.Fatalf("load questions: %v", err)
		}
		if len(qs) != 2 {
			t.Fatalf("expected 2 questions, got %d", len(qs))
		}
	}
	if loader.quizCalls.Load() != 1 || loader.questionCalls.Load() != 1 {
		t.Fatalf("expected one load each, got quiz=%d questions=%d", loader.quizCalls.Load(), loader.questionCalls.Load())
	}

	repo.Invalidate("quiz-1")
	if _, err := repo.LoadQuiz(ctx, domain.Identity{}, "quiz-1"); err != nil {
		t.Fatalf("load after invalidate: %v", err)
	}
	if loader.quizCalls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, got %d", loader.quizCalls.Load())
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{StaticQuizLoader: NewStaticQuizLoader(SampleCatalog())}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.LoadQuiz(context.Background(), domain.Identity{}, "quiz-1"); err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.LoadQuiz(context.Background(), domain.Identity{}, "quiz-1"); err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	if loader.quizCalls.Load() != 2 {
		t.Fatalf("expected expired entry to reload, got %d calls", loader.quizCalls.Load())
	}
}

func TestQuizRepositoryDoesNotCacheErrors(t *testing.T) {
	loader := &countingLoader{StaticQuizLoader: NewStaticQuizLoader(nil)}
	repo := NewQuizRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := repo.LoadQuiz(context.Background(), domain.Identity{}, "missing")
		if !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	}
	if loader.quizCalls.Load() != 2 {
		t.Fatalf("errors must not be cached, got %d calls", loader.quizCalls.Load())
	}
}

func TestQuizRepositoryCoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{StaticQuizLoader: NewStaticQuizLoader(SampleCatalog()), gate: release}
	repo := NewQuizRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.LoadQuiz(context.Background(), domain.Identity{}, "quiz-1"); err != nil {
				t.Errorf("load quiz: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := loader.quizCalls.Load(); n != 1 {
		t.Fatalf("expected a single load, got %d", n)
	}
}

type countingLoader struct {
	*StaticQuizLoader
	gate          chan struct{}
	quizCalls     atomic.Int32
	questionCalls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, who domain.Identity, quizID string) (domain.Quiz, error) {
	l.quizCalls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	return l.StaticQuizLoader.LoadQuiz(ctx, who, quizID)
}

func (l *countingLoader) LoadQuestions(ctx context.Context, who domain.Identity, quizID string) ([]domain.Question, error) {
	l.questionCalls.Add(1)
	return l.StaticQuizLoader.LoadQuestions(ctx, who, quizID)
}
