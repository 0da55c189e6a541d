package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/session"
)

// QuizRepository caches quiz metadata and questions in Redis as JSON and falls back
// to a loader on cache miss.
// Metadata is stored as:  SET quiz:{quizID}:meta      {json}
// Questions are stored as: SET quiz:{quizID}:questions {json array}
type QuizRepository struct {
	client *redis.Client
	loader session.QuizSource
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader session.QuizSource, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) LoadQuiz(ctx context.Context, who domain.Identity, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := r.cached(ctx, r.metaKey(quizID), &quiz, func() (any, error) {
		return r.loader.LoadQuiz(ctx, who, quizID)
	})
	return quiz, err
}

func (r *QuizRepository) LoadQuestions(ctx context.Context, who domain.Identity, quizID string) ([]domain.Question, error) {
	var questions []domain.Question
	err := r.cached(ctx, r.questionsKey(quizID), &questions, func() (any, error) {
		return r.loader.LoadQuestions(ctx, who, quizID)
	})
	return questions, err
}

// Invalidate removes the cached copies of a quiz.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, r.metaKey(quizID), r.questionsKey(quizID)).Err()
}

// cached decodes key into dst, loading and storing it on a miss. A Redis outage
// degrades to loading straight from the loader.
func (r *QuizRepository) cached(ctx context.Context, key string, dst any, load func() (any, error)) error {
	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		if json.Unmarshal(raw, dst) == nil {
			return nil
		}
	}

	raw, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			return raw, nil
		}

		v, err := load()
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dst)
}

func (r *QuizRepository) metaKey(quizID string) string {
	return "quiz:" + quizID + ":meta"
}

func (r *QuizRepository) questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
