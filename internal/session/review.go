package session

import (
	"fmt"
	"sync"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/scoring"
)

// Review is a read-only rendering of a past submission: navigation works,
// answers are frozen and there is no timer.
type Review struct {
	submission domain.Submission
	quiz       domain.Quiz
	questions  []domain.Question
	result     domain.Result

	mu      sync.Mutex
	answers *AnswerTracker
	nav     *Navigator
}

// ReviewSnapshot is what a review view renders.
type ReviewSnapshot struct {
	SubmissionID     string          `json:"submissionId"`
	QuizID           string          `json:"quizId"`
	Quiz             domain.Quiz     `json:"quiz"`
	Questions        []QuestionView  `json:"questions"`
	CurrentIndex     int             `json:"currentIndex"`
	TotalQuestions   int             `json:"totalQuestions"`
	TimeTakenSeconds int             `json:"timeTaken"`
	Answers          []domain.Answer `json:"answers"`
	Result           domain.Result   `json:"result"`
}

// NewReview rebuilds a submission against the quiz content and rescores it.
func NewReview(quiz domain.Quiz, questions []domain.Question, submission domain.Submission) (*Review, error) {
	if err := domain.ValidateContent(quiz, questions); err != nil {
		return nil, err
	}
	answers := NewAnswerTracker(questions)
	answers.Restore(submission.Answers)
	answers.Freeze()

	result, err := scoring.Score(questions, answers.Answers(), quiz.PassPercentage)
	if err != nil {
		return nil, fmt.Errorf("score submission %s: %w", submission.ID, err)
	}

	return &Review{
		submission: submission,
		quiz:       quiz,
		questions:  questions,
		result:     result,
		answers:    answers,
		nav:        NewNavigator(len(questions)),
	}, nil
}

func (r *Review) Next() ReviewSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nav.Next()
	return r.snapshotLocked()
}

func (r *Review) Previous() ReviewSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nav.Previous()
	return r.snapshotLocked()
}

func (r *Review) JumpTo(index int) (ReviewSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.nav.JumpTo(index)
	return r.snapshotLocked(), err
}

// Select always fails: reviewed answers cannot change.
func (r *Review) Select(questionID, optionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.answers.Select(questionID, optionID)
	return err
}

func (r *Review) Snapshot() ReviewSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Review) snapshotLocked() ReviewSnapshot {
	return ReviewSnapshot{
		SubmissionID:     r.submission.ID,
		QuizID:           r.quiz.ID,
		Quiz:             r.quiz,
		Questions:        viewQuestions(r.questions, true),
		CurrentIndex:     r.nav.Current(),
		TotalQuestions:   len(r.questions),
		TimeTakenSeconds: r.submission.TimeTakenSeconds,
		Answers:          r.answers.Answers(),
		Result:           r.result,
	}
}
