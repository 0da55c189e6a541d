package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/session"
)

// QuizRepository caches quiz metadata and questions with TTL to avoid repeated
// loader hits. Concurrent misses for the same key share one load.
type QuizRepository struct {
	loader session.QuizSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	rndMu sync.Mutex
	cache map[string]cachedEntry
}

type cachedEntry struct {
	value     any
	expiresAt time.Time
}

func NewQuizRepository(loader session.QuizSource, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedEntry),
	}
}

func (r *QuizRepository) LoadQuiz(ctx context.Context, who domain.Identity, quizID string) (domain.Quiz, error) {
	v, err := r.cached("quiz:"+quizID, func() (any, error) {
		return r.loader.LoadQuiz(ctx, who, quizID)
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz), nil
}

func (r *QuizRepository) LoadQuestions(ctx context.Context, who domain.Identity, quizID string) ([]domain.Question, error) {
	v, err := r.cached("questions:"+quizID, func() (any, error) {
		return r.loader.LoadQuestions(ctx, who, quizID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Question), nil
}

// Invalidate drops both cached entries of a quiz.
func (r *QuizRepository) Invalidate(quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, "quiz:"+quizID)
	delete(r.cache, "questions:"+quizID)
}

func (r *QuizRepository) cached(key string, load func() (any, error)) (any, error) {
	if v, ok := r.lookup(key); ok {
		return v, nil
	}

	v, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// another caller may have filled it while we waited
		if v, ok := r.lookup(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[key] = cachedEntry{value: v, expiresAt: r.clock().Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return v, nil
	})
	return v, err
}

func (r *QuizRepository) lookup(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[key]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return nil, false
	}
	return entry.value, true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
