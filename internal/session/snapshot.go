package session

import (
	"time"

	"quizhub-service/internal/domain"
)

// State is a Controller lifecycle state.
type State string

const (
	StateLoading    State = "LOADING"
	StateInProgress State = "IN_PROGRESS"
	StateSubmitting State = "SUBMITTING"
	StateSubmitted  State = "SUBMITTED"
	StateFailed     State = "FAILED"
)

// Terminal reports whether no further transition is expected without user action.
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateFailed
}

// OptionView is an option as shown to the taker. Correct is nil until revealed.
type OptionView struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct *bool  `json:"correct,omitempty"`
}

// QuestionView is a question as shown to the taker.
type QuestionView struct {
	ID      string              `json:"id"`
	Content string              `json:"content"`
	Type    domain.QuestionType `json:"type"`
	Options []OptionView        `json:"options"`
}

// Snapshot is a read-only copy of a session.
type Snapshot struct {
	AttemptID        string          `json:"attemptId"`
	QuizID           string          `json:"quizId"`
	UserID           string          `json:"userId"`
	State            State           `json:"state"`
	Quiz             *domain.Quiz    `json:"quiz,omitempty"`
	Questions        []QuestionView  `json:"questions,omitempty"`
	CurrentIndex     int             `json:"currentIndex"`
	RemainingSeconds int             `json:"remainingSeconds"`
	TimeLimitSeconds int             `json:"timeLimitSeconds"`
	Expired          bool            `json:"expired"`
	AnsweredCount    int             `json:"answeredCount"`
	TotalQuestions   int             `json:"totalQuestions"`
	Answers          []domain.Answer `json:"answers"`
	Unanswered       []string        `json:"unanswered,omitempty"`
	Result           *domain.Result  `json:"result,omitempty"`
	SubmissionID     string          `json:"submissionId,omitempty"`
	Error            string          `json:"error,omitempty"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Event is published to subscribers whenever a session changes.
type Event struct {
	Kind     string   `json:"kind"`
	Snapshot Snapshot `json:"snapshot"`
}

const (
	EventLoaded     = "loaded"
	EventTick       = "tick"
	EventAnswer     = "answer"
	EventNavigate   = "navigate"
	EventValidation = "validation"
	EventExpired    = "expired"
	EventSubmitting = "submitting"
	EventSubmitted  = "submitted"
	EventFailed     = "failed"
)

func viewQuestions(questions []domain.Question, reveal bool) []QuestionView {
	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		opts := make([]OptionView, 0, len(q.Options))
		for _, o := range q.Options {
			view := OptionView{ID: o.ID, Text: o.Text}
			if reveal {
				correct := o.Correct
				view.Correct = &correct
			}
			opts = append(opts, view)
		}
		views = append(views, QuestionView{ID: q.ID, Content: q.Content, Type: q.Type, Options: opts})
	}
	return views
}
