// Package session drives a single quiz attempt from load to scored result.
//
// A Controller owns the Timer, AnswerTracker and Navigator of one attempt and is the
// only thing that mutates them. Every handler runs under the controller lock, so a
// session has a single logical timeline even though the timer ticks on its own goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/scoring"
)

// QuizSource loads quiz content.
type QuizSource interface {
	LoadQuiz(ctx context.Context, who domain.Identity, quizID string) (domain.Quiz, error)
	LoadQuestions(ctx context.Context, who domain.Identity, quizID string) ([]domain.Question, error)
}

// Submitter persists a finalized attempt.
type Submitter interface {
	SubmitAttempt(ctx context.Context, who domain.Identity, attempt domain.Attempt) (domain.Receipt, error)
}

// Options configures a Controller.
type Options struct {
	Source    QuizSource
	Submitter Submitter
	NewTicker TickerFactory
	Logger    *zap.Logger
	Now       func() time.Time
}

// Controller is the state machine for one attempt.
type Controller struct {
	attemptID string
	quizID    string
	who       domain.Identity
	source    QuizSource
	submitter Submitter
	newTicker TickerFactory
	logger    *zap.Logger
	now       func() time.Time

	// ctx scopes work the controller starts on its own (timeout submission).
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	quiz        domain.Quiz
	questions   []domain.Question
	answers     *AnswerTracker
	nav         *Navigator
	timer       *Timer
	duration    int
	finalizing  bool
	expired     bool
	closed      bool
	result      *domain.Result
	receipt     *domain.Receipt
	lastErr     error
	updatedAt   time.Time
	subscribers map[chan Event]struct{}
}

func NewController(attemptID, quizID string, who domain.Identity, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		attemptID:   attemptID,
		quizID:      quizID,
		who:         who,
		source:      opts.Source,
		submitter:   opts.Submitter,
		newTicker:   opts.NewTicker,
		logger:      logger.With(zap.String("attempt_id", attemptID), zap.String("quiz_id", quizID)),
		now:         now,
		ctx:         ctx,
		cancel:      cancel,
		state:       StateLoading,
		updatedAt:   now(),
		subscribers: make(map[chan Event]struct{}),
	}
}

func (c *Controller) AttemptID() string { return c.attemptID }
func (c *Controller) QuizID() string    { return c.quizID }
func (c *Controller) UserID() string    { return c.who.UserID }

// Load fetches quiz metadata and questions concurrently. Both must succeed before
// the session enters InProgress; any failure moves it to Failed.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateLoading {
		c.mu.Unlock()
		return fmt.Errorf("%w: load called in state %s", domain.ErrInvalidState, c.state)
	}
	c.mu.Unlock()

	var (
		quiz      domain.Quiz
		questions []domain.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := c.source.LoadQuiz(gctx, c.who, c.quizID)
		if err != nil {
			return fmt.Errorf("load quiz: %w", err)
		}
		quiz = q
		return nil
	})
	g.Go(func() error {
		qs, err := c.source.LoadQuestions(gctx, c.who, c.quizID)
		if err != nil {
			return fmt.Errorf("load questions: %w", err)
		}
		questions = qs
		return nil
	})
	if err := g.Wait(); err != nil {
		c.logger.Warn("quiz load failed", zap.Error(err))
		return c.failLoad(fmt.Errorf("%w: %w", domain.ErrDataLoad, err))
	}

	if err := domain.ValidateQuiz(quiz, questions); err != nil {
		c.logger.Error("quiz content cannot run", zap.Error(err))
		return c.failLoad(err)
	}
	if quiz.QuestionCount != 0 && quiz.QuestionCount != len(questions) {
		c.logger.Warn("question count mismatch",
			zap.Int("declared", quiz.QuestionCount),
			zap.Int("loaded", len(questions)))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("%w: session discarded while loading", domain.ErrInvalidState)
	}
	c.quiz = quiz
	c.questions = questions
	c.answers = NewAnswerTracker(questions)
	c.nav = NewNavigator(len(questions))
	c.duration = quiz.TimeLimit * 60
	c.timer = NewTimer(c.newTicker, c.handleTick, c.handleExpiry)
	if err := c.timer.Start(c.duration); err != nil {
		c.state = StateFailed
		c.lastErr = err
		return err
	}
	c.state = StateInProgress
	c.touchLocked()
	c.logger.Debug("session started", zap.Int("questions", len(questions)), zap.Int("seconds", c.duration))
	c.broadcastLocked(EventLoaded)
	return nil
}

func (c *Controller) failLoad(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateFailed
	c.lastErr = err
	c.touchLocked()
	c.broadcastLocked(EventFailed)
	return err
}

// Select records an answer selection.
func (c *Controller) Select(questionID, optionID string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateInProgress {
		err := fmt.Errorf("%w: cannot change answers in state %s", domain.ErrInvalidState, c.state)
		if c.state == StateSubmitted || c.expired {
			c.logger.Error("answer mutation after finalize", zap.String("question_id", questionID), zap.Error(err))
		}
		return c.snapshotLocked(), err
	}
	if _, err := c.answers.Select(questionID, optionID); err != nil {
		return c.snapshotLocked(), err
	}
	c.touchLocked()
	c.broadcastLocked(EventAnswer)
	return c.snapshotLocked(), nil
}

// Next moves to the following question.
func (c *Controller) Next() (Snapshot, error) {
	return c.navigate(func(n *Navigator) error {
		n.Next()
		return nil
	})
}

// Previous moves to the preceding question.
func (c *Controller) Previous() (Snapshot, error) {
	return c.navigate(func(n *Navigator) error {
		n.Previous()
		return nil
	})
}

// JumpTo moves to the question at index.
func (c *Controller) JumpTo(index int) (Snapshot, error) {
	return c.navigate(func(n *Navigator) error {
		_, err := n.JumpTo(index)
		return err
	})
}

func (c *Controller) navigate(move func(*Navigator) error) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nav == nil {
		return c.snapshotLocked(), fmt.Errorf("%w: no questions loaded", domain.ErrInvalidState)
	}
	before := c.nav.Current()
	if err := move(c.nav); err != nil {
		return c.snapshotLocked(), err
	}
	if c.nav.Current() != before {
		c.touchLocked()
		c.broadcastLocked(EventNavigate)
	}
	return c.snapshotLocked(), nil
}

// Submit finalizes the attempt. From InProgress every question must be answered;
// otherwise the session stays InProgress, jumps to the first gap and a
// *domain.ValidationError is returned. From a failed submission it retries with the
// preserved answers.
func (c *Controller) Submit(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	switch c.state {
	case StateInProgress:
		if gaps := c.answers.Unanswered(); !c.finalizing && len(gaps) > 0 {
			verr := &domain.ValidationError{FirstIndex: gaps[0]}
			for _, i := range gaps {
				verr.Unanswered = append(verr.Unanswered, c.questions[i].ID)
			}
			_, _ = c.nav.JumpTo(gaps[0])
			c.touchLocked()
			c.broadcastLocked(EventValidation)
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap, verr
		}
	case StateSubmitting:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, domain.ErrSubmissionInFlight
	case StateFailed:
		if c.answers == nil {
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap, fmt.Errorf("%w: session failed to load", domain.ErrInvalidState)
		}
	default:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("%w: cannot submit in state %s", domain.ErrInvalidState, c.state)
	}

	attempt, err := c.beginSubmitLocked()
	c.mu.Unlock()
	if err != nil {
		return c.Snapshot(), err
	}
	return c.finish(ctx, attempt)
}

// beginSubmitLocked moves to Submitting and scores the answers before anything is sent.
func (c *Controller) beginSubmitLocked() (domain.Attempt, error) {
	c.timer.Stop()
	answers := c.answers.Answers()
	result, err := scoring.Score(c.questions, answers, c.quiz.PassPercentage)
	if err != nil {
		c.logger.Error("scoring failed", zap.Error(err))
		c.state = StateFailed
		c.lastErr = err
		c.broadcastLocked(EventFailed)
		return domain.Attempt{}, err
	}

	c.finalizing = true
	c.state = StateSubmitting
	c.result = &result
	c.lastErr = nil
	c.touchLocked()
	c.broadcastLocked(EventSubmitting)
	return domain.Attempt{
		AttemptID:        c.attemptID,
		QuizID:           c.quizID,
		UserID:           c.who.UserID,
		DisplayName:      c.who.DisplayName,
		TimeTakenSeconds: c.duration - c.timer.Remaining(),
		Answers:          answers,
	}, nil
}

func (c *Controller) finish(ctx context.Context, attempt domain.Attempt) (Snapshot, error) {
	receipt, err := c.submitter.SubmitAttempt(ctx, c.who, attempt)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateFailed
		c.lastErr = fmt.Errorf("%w: %w", domain.ErrSubmission, err)
		c.touchLocked()
		c.logger.Warn("submission failed, answers kept for retry", zap.Error(err))
		c.broadcastLocked(EventFailed)
		return c.snapshotLocked(), c.lastErr
	}

	c.state = StateSubmitted
	c.receipt = &receipt
	c.answers.Freeze()
	c.nav.Freeze()
	c.touchLocked()
	c.logger.Info("attempt submitted",
		zap.String("submission_id", receipt.SubmissionID),
		zap.Int("correct", c.result.CorrectCount),
		zap.Int("percentage", c.result.Percentage),
		zap.Bool("passed", c.result.Passed))
	c.broadcastLocked(EventSubmitted)
	return c.snapshotLocked(), nil
}

func (c *Controller) handleTick(remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress || remaining == 0 {
		return
	}
	c.broadcastLocked(EventTick)
}

// handleExpiry submits regardless of completeness. It runs on the timer goroutine.
func (c *Controller) handleExpiry() {
	c.mu.Lock()
	if c.state != StateInProgress || c.closed {
		c.mu.Unlock()
		return
	}
	c.expired = true
	c.nav.Freeze()
	c.broadcastLocked(EventExpired)
	attempt, err := c.beginSubmitLocked()
	c.mu.Unlock()
	if err != nil {
		return
	}

	c.logger.Info("time limit reached, submitting")
	_, _ = c.finish(c.ctx, attempt)
}

// Close stops the timer, cancels background work and releases subscribers.
// It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.cancel()
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that caused the last Failed transition, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Result returns the score attached once the session has been finalized.
func (c *Controller) Result() (domain.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil || c.state != StateSubmitted {
		return domain.Result{}, false
	}
	return *c.result, true
}

// IdleFor returns how long ago the session last changed.
func (c *Controller) IdleFor(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.updatedAt)
}

// Snapshot returns a read-only copy of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving an event for every change, starting with the
// current state. The caller must invoke the returned cancel function to avoid leaks.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	initial := Event{Kind: string(c.state), Snapshot: c.snapshotLocked()}
	c.mu.Unlock()

	ch <- initial

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) broadcastLocked(kind string) {
	if len(c.subscribers) == 0 {
		return
	}
	ev := Event{Kind: kind, Snapshot: c.snapshotLocked()}
	for ch := range c.subscribers {
		select {
		case ch <- ev:
		default:
			// slow subscriber: drop its oldest event
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (c *Controller) touchLocked() {
	c.updatedAt = c.now()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		AttemptID: c.attemptID,
		QuizID:    c.quizID,
		UserID:    c.who.UserID,
		State:     c.state,
		Expired:   c.expired,
		Answers:   []domain.Answer{},
		UpdatedAt: c.updatedAt,
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	if c.answers == nil {
		return snap
	}

	quiz := c.quiz
	snap.Quiz = &quiz
	snap.Questions = viewQuestions(c.questions, c.state == StateSubmitted)
	snap.CurrentIndex = c.nav.Current()
	snap.TimeLimitSeconds = c.duration
	snap.RemainingSeconds = c.timer.Remaining()
	snap.AnsweredCount = c.answers.AnsweredCount()
	snap.TotalQuestions = len(c.questions)
	snap.Answers = c.answers.Answers()
	for _, i := range c.answers.Unanswered() {
		snap.Unanswered = append(snap.Unanswered, c.questions[i].ID)
	}
	if c.state == StateSubmitted {
		result := *c.result
		snap.Result = &result
		snap.SubmissionID = c.receipt.SubmissionID
	}
	return snap
}

// IsRetryable reports whether err leaves the session able to submit again.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrSubmission) || errors.Is(err, domain.ErrValidation)
}
