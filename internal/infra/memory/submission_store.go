package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/scoring"
	"quizhub-service/internal/session"
)

// SubmissionStore persists submissions in memory and grades them against the
// catalog, never trusting a client-side score.
type SubmissionStore struct {
	quizzes session.QuizSource
	clock   func() time.Time

	mu          sync.RWMutex
	submissions map[string]domain.Submission
	byAttempt   map[string]string
	order       []string
}

func NewSubmissionStore(quizzes session.QuizSource) *SubmissionStore {
	return &SubmissionStore{
		quizzes:     quizzes,
		clock:       time.Now,
		submissions: make(map[string]domain.Submission),
		byAttempt:   make(map[string]string),
	}
}

// SubmitAttempt scores and stores an attempt. Resubmitting the same attempt id
// returns the original receipt.
func (s *SubmissionStore) SubmitAttempt(ctx context.Context, who domain.Identity, attempt domain.Attempt) (domain.Receipt, error) {
	if attempt.AttemptID != "" {
		s.mu.RLock()
		id, dup := s.byAttempt[attempt.AttemptID]
		existing := s.submissions[id]
		s.mu.RUnlock()
		if dup {
			return receiptFor(existing), nil
		}
	}

	quiz, err := s.quizzes.LoadQuiz(ctx, who, attempt.QuizID)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("load quiz %s: %w", attempt.QuizID, err)
	}
	questions, err := s.quizzes.LoadQuestions(ctx, who, attempt.QuizID)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("load questions %s: %w", attempt.QuizID, err)
	}
	result, err := scoring.Score(questions, attempt.Answers, quiz.PassPercentage)
	if err != nil {
		return domain.Receipt{}, err
	}

	sub := domain.Submission{
		ID:               uuid.NewString(),
		QuizID:           attempt.QuizID,
		UserID:           attempt.UserID,
		DisplayName:      attempt.DisplayName,
		TimeTakenSeconds: attempt.TimeTakenSeconds,
		Answers:          attempt.Answers,
		Result:           result,
		SubmittedAt:      s.clock(),
	}

	s.mu.Lock()
	s.submissions[sub.ID] = sub
	if attempt.AttemptID != "" {
		s.byAttempt[attempt.AttemptID] = sub.ID
	}
	s.order = append(s.order, sub.ID)
	s.mu.Unlock()
	return receiptFor(sub), nil
}

func receiptFor(sub domain.Submission) domain.Receipt {
	result := sub.Result
	return domain.Receipt{SubmissionID: sub.ID, SubmittedAt: sub.SubmittedAt, Result: &result}
}

func (s *SubmissionStore) GetSubmission(_ context.Context, _ domain.Identity, submissionID string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[submissionID]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

// History lists a user's submissions, newest first.
func (s *SubmissionStore) History(ctx context.Context, who domain.Identity, userID string) ([]domain.HistoryEntry, error) {
	subs := s.forUser(userID, "")
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].SubmittedAt.After(subs[j].SubmittedAt) })

	entries := make([]domain.HistoryEntry, 0, len(subs))
	for _, sub := range subs {
		quiz, err := s.quizzes.LoadQuiz(ctx, who, sub.QuizID)
		if err != nil {
			quiz = domain.Quiz{ID: sub.QuizID}
		}
		entries = append(entries, domain.NewHistoryEntry(sub, quiz))
	}
	return entries, nil
}

// BestResult returns the highest-scoring submission of a user for a quiz; the
// earliest wins a tie.
func (s *SubmissionStore) BestResult(ctx context.Context, who domain.Identity, userID, quizID string) (domain.HistoryEntry, error) {
	subs := s.forUser(userID, quizID)
	if len(subs) == 0 {
		return domain.HistoryEntry{}, domain.ErrSubmissionNotFound
	}
	best := subs[0]
	for _, sub := range subs[1:] {
		if sub.Result.Percentage > best.Result.Percentage ||
			(sub.Result.Percentage == best.Result.Percentage && sub.SubmittedAt.Before(best.SubmittedAt)) {
			best = sub
		}
	}
	quiz, err := s.quizzes.LoadQuiz(ctx, who, quizID)
	if err != nil {
		quiz = domain.Quiz{ID: quizID}
	}
	return domain.NewHistoryEntry(best, quiz), nil
}

func (s *SubmissionStore) Leaderboard(_ context.Context, limit int) (domain.Leaderboard, error) {
	s.mu.RLock()
	subs := make([]domain.Submission, 0, len(s.order))
	for _, id := range s.order {
		subs = append(subs, s.submissions[id])
	}
	s.mu.RUnlock()
	return scoring.Rank(subs, limit, s.clock()), nil
}

func (s *SubmissionStore) forUser(userID, quizID string) []domain.Submission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Submission
	for _, id := range s.order {
		sub := s.submissions[id]
		if sub.UserID != userID || (quizID != "" && sub.QuizID != quizID) {
			continue
		}
		out = append(out, sub)
	}
	return out
}
