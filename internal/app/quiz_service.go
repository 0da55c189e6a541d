package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/logger"
	"quizhub-service/internal/session"
)

// SessionRepository abstracts where live attempts are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(ctx context.Context, c *session.Controller) error
	Get(ctx context.Context, attemptID string) (*session.Controller, bool)
	Delete(ctx context.Context, attemptID string)
	All() []*session.Controller
	Checkpoint(ctx context.Context, snap session.Snapshot) error
}

// CheckpointReader is implemented by repositories that can return the last saved
// snapshot of an attempt no longer held in this process.
type CheckpointReader interface {
	LoadCheckpoint(ctx context.Context, attemptID string) (session.Snapshot, error)
}

// SubmissionRepository persists finished attempts and answers read queries over them.
type SubmissionRepository interface {
	session.Submitter
	GetSubmission(ctx context.Context, who domain.Identity, submissionID string) (domain.Submission, error)
	History(ctx context.Context, who domain.Identity, userID string) ([]domain.HistoryEntry, error)
	BestResult(ctx context.Context, who domain.Identity, userID, quizID string) (domain.HistoryEntry, error)
	Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error)
}

// QuizService contains the quiz attempt use cases.
type QuizService struct {
	sessions    SessionRepository
	quizzes     session.QuizSource
	submissions SubmissionRepository
	logger      *zap.Logger
	newTicker   session.TickerFactory
	now         func() time.Time
	newID       func() string
}

// Option customizes a QuizService.
type Option func(*QuizService)

func WithLogger(l *zap.Logger) Option {
	return func(s *QuizService) { s.logger = logger.OrNop(l) }
}

// WithTicker replaces the wall-clock ticker driving session timers.
func WithTicker(f session.TickerFactory) Option {
	return func(s *QuizService) { s.newTicker = f }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(store SessionRepository, quizzes session.QuizSource, submissions SubmissionRepository, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:    store,
		quizzes:     quizzes,
		submissions: submissions,
		logger:      zap.NewNop(),
		newTicker:   session.NewRealTicker,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quiz returns quiz metadata.
func (s *QuizService) Quiz(ctx context.Context, who domain.Identity, quizID string) (domain.Quiz, error) {
	return s.quizzes.LoadQuiz(ctx, who, quizID)
}

// Start loads a quiz and opens a new attempt for who. A failed load is reported
// with the Failed snapshot and nothing is registered.
func (s *QuizService) Start(ctx context.Context, who domain.Identity, quizID string) (session.Snapshot, error) {
	attemptID := s.newID()
	ctrl := session.NewController(attemptID, quizID, who, session.Options{
		Source:    s.quizzes,
		Submitter: s.submissions,
		NewTicker: s.newTicker,
		Logger:    s.logger,
		Now:       s.now,
	})
	if err := ctrl.Load(ctx); err != nil {
		snap := ctrl.Snapshot()
		ctrl.Close()
		return snap, err
	}
	if err := s.sessions.Put(ctx, ctrl); err != nil {
		ctrl.Close()
		return session.Snapshot{}, fmt.Errorf("register attempt: %w", err)
	}
	go s.checkpoint(ctrl)

	s.logger.Info("attempt started",
		zap.String("attempt_id", attemptID),
		zap.String("quiz_id", quizID),
		zap.String("user_id", who.UserID))
	return ctrl.Snapshot(), nil
}

// checkpoint saves a snapshot on every change except timer ticks, until the
// session is closed.
func (s *QuizService) checkpoint(ctrl *session.Controller) {
	events, cancel := ctrl.Subscribe()
	defer cancel()
	for ev := range events {
		if ev.Kind == session.EventTick {
			continue
		}
		ctx, done := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.sessions.Checkpoint(ctx, ev.Snapshot); err != nil {
			s.logger.Warn("checkpoint failed", zap.String("attempt_id", ctrl.AttemptID()), zap.Error(err))
		}
		done()
	}
}

func (s *QuizService) Select(ctx context.Context, who domain.Identity, attemptID, questionID, optionID string) (session.Snapshot, error) {
	ctrl, err := s.attempt(ctx, who, attemptID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return ctrl.Select(questionID, optionID)
}

func (s *QuizService) Next(ctx context.Context, who domain.Identity, attemptID string) (session.Snapshot, error) {
	ctrl, err := s.attempt(ctx, who, attemptID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return ctrl.Next()
}

func (s *QuizService) Previous(ctx context.Context, who domain.Identity, attemptID string) (session.Snapshot, error) {
	ctrl, err := s.attempt(ctx, who, attemptID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return ctrl.Previous()
}

func (s *QuizService) JumpTo(ctx context.Context, who domain.Identity, attemptID string, index int) (session.Snapshot, error) {
	ctrl, err := s.attempt(ctx, who, attemptID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return ctrl.JumpTo(index)
}

// Submit finalizes an attempt, or retries a failed submission.
func (s *QuizService) Submit(ctx context.Context, who domain.Identity, attemptID string) (session.Snapshot, error) {
	ctrl, err := s.attempt(ctx, who, attemptID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return ctrl.Submit(ctx)
}

// Snapshot returns the live state of an attempt, or its last checkpoint when the
// attempt is no longer held by this process.
func (s *QuizService) Snapshot(ctx context.Context, who domain.Identity, attemptID string) (session.Snapshot, error) {
	ctrl, err := s.attempt(ctx, who, attemptID)
	if err == nil {
		return ctrl.Snapshot(), nil
	}
	reader, ok := s.sessions.(CheckpointReader)
	if !ok || !errors.Is(err, domain.ErrSessionNotFound) {
		return session.Snapshot{}, err
	}
	snap, cerr := reader.LoadCheckpoint(ctx, attemptID)
	if cerr != nil {
		return session.Snapshot{}, err
	}
	if who.UserID != "" && snap.UserID != who.UserID {
		return session.Snapshot{}, domain.ErrSessionNotFound
	}
	return snap, nil
}

// Subscribe returns a channel of session events for an attempt.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, who domain.Identity, attemptID string) (<-chan session.Event, func(), error) {
	ctrl, err := s.attempt(ctx, who, attemptID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := ctrl.Subscribe()
	return ch, cancel, nil
}

// Discard stops an attempt's timer and forgets it.
func (s *QuizService) Discard(ctx context.Context, who domain.Identity, attemptID string) error {
	ctrl, err := s.attempt(ctx, who, attemptID)
	if err != nil {
		return err
	}
	s.drop(ctx, ctrl)
	return nil
}

func (s *QuizService) drop(ctx context.Context, ctrl *session.Controller) {
	ctrl.Close()
	s.sessions.Delete(ctx, ctrl.AttemptID())
}

// Review renders a stored submission read-only, positioned at index.
func (s *QuizService) Review(ctx context.Context, who domain.Identity, submissionID string, index int) (session.ReviewSnapshot, error) {
	sub, err := s.submissions.GetSubmission(ctx, who, submissionID)
	if err != nil {
		return session.ReviewSnapshot{}, err
	}
	quiz, err := s.quizzes.LoadQuiz(ctx, who, sub.QuizID)
	if err != nil {
		return session.ReviewSnapshot{}, fmt.Errorf("%w: %w", domain.ErrDataLoad, err)
	}
	questions, err := s.quizzes.LoadQuestions(ctx, who, sub.QuizID)
	if err != nil {
		return session.ReviewSnapshot{}, fmt.Errorf("%w: %w", domain.ErrDataLoad, err)
	}
	review, err := session.NewReview(quiz, questions, sub)
	if err != nil {
		return session.ReviewSnapshot{}, err
	}
	return review.JumpTo(index)
}

func (s *QuizService) History(ctx context.Context, who domain.Identity, userID string) ([]domain.HistoryEntry, error) {
	return s.submissions.History(ctx, who, userID)
}

func (s *QuizService) BestResult(ctx context.Context, who domain.Identity, userID, quizID string) (domain.HistoryEntry, error) {
	return s.submissions.BestResult(ctx, who, userID, quizID)
}

func (s *QuizService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	return s.submissions.Leaderboard(ctx, limit)
}

// Sweep discards attempts that have been terminal for longer than retention and
// returns how many were dropped.
func (s *QuizService) Sweep(ctx context.Context, retention time.Duration) int {
	now := s.now()
	dropped := 0
	for _, ctrl := range s.sessions.All() {
		if !ctrl.State().Terminal() || ctrl.IdleFor(now) < retention {
			continue
		}
		s.drop(ctx, ctrl)
		dropped++
	}
	return dropped
}

// attempt looks up a live attempt owned by who. An empty user id skips the owner check.
func (s *QuizService) attempt(ctx context.Context, who domain.Identity, attemptID string) (*session.Controller, error) {
	ctrl, ok := s.sessions.Get(ctx, attemptID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if who.UserID != "" && ctrl.UserID() != who.UserID {
		return nil, domain.ErrSessionNotFound
	}
	return ctrl, nil
}
