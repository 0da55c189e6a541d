package domain

import "time"

// QuestionType constrains how many options may be selected at once.
type QuestionType string

const (
	// Single questions have exactly one correct option and accept at most one selection.
	Single QuestionType = "SINGLE"
	// Multiple questions have one or more correct options and accept any number of selections.
	Multiple QuestionType = "MULTIPLE"
)

// Difficulty of a quiz as shown in the catalog.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// QuizStatus controls whether a quiz can be started.
type QuizStatus string

const (
	StatusActive   QuizStatus = "ACTIVE"
	StatusInactive QuizStatus = "INACTIVE"
)

// Category groups quizzes in the catalog.
type Category struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// Quiz is the metadata of a quiz. It is immutable for the duration of a session.
type Quiz struct {
	ID             string     `json:"id" yaml:"id"`
	Title          string     `json:"title" yaml:"title"`
	Description    string     `json:"description" yaml:"description"`
	Category       Category   `json:"category" yaml:"category"`
	Difficulty     Difficulty `json:"difficulty,omitempty" yaml:"difficulty"`
	Status         QuizStatus `json:"status,omitempty" yaml:"status"`
	TimeLimit      int        `json:"timeLimit" yaml:"time_limit"` // minutes
	PassPercentage int        `json:"passPercentage" yaml:"pass_percentage"`
	QuestionCount  int        `json:"questionCount" yaml:"question_count"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id" yaml:"id"`
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"correct" yaml:"correct"`
}

// Question is an ordered list of options of a given type.
type Question struct {
	ID      string       `json:"id" yaml:"id"`
	Content string       `json:"content" yaml:"content"`
	Type    QuestionType `json:"type" yaml:"type"`
	Options []Option     `json:"options" yaml:"options"`
}

// CorrectOptionIDs returns the ids of the options flagged correct, in option order.
func (q Question) CorrectOptionIDs() []string {
	ids := make([]string, 0, 1)
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// HasOption reports whether optionID belongs to the question.
func (q Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Answer is the set of options selected for one question.
type Answer struct {
	QuestionID        string   `json:"questionId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

// Identity is the caller on whose behalf loads and submissions are issued.
// It is passed explicitly to collaborators instead of living in global state.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AccessToken string `json:"-"`
}

// Attempt is the payload handed to the submission collaborator when a session finalizes.
type Attempt struct {
	AttemptID        string   `json:"attemptId"`
	QuizID           string   `json:"quizId"`
	UserID           string   `json:"userId"`
	DisplayName      string   `json:"displayName,omitempty"`
	TimeTakenSeconds int      `json:"timeTakenSeconds"`
	Answers          []Answer `json:"answers"`
}

// Result is the Scorer output for a set of answers.
type Result struct {
	CorrectCount   int              `json:"correctCount"`
	TotalQuestions int              `json:"totalQuestions"`
	Percentage     int              `json:"percentage"`
	Passed         bool             `json:"passed"`
	Questions      []QuestionResult `json:"questions,omitempty"`
}

// QuestionResult tells whether a single question was answered correctly.
type QuestionResult struct {
	QuestionID        string   `json:"questionId"`
	Correct           bool     `json:"correct"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
	CorrectOptionIDs  []string `json:"correctOptionIds"`
}

// Receipt acknowledges a persisted submission.
type Receipt struct {
	SubmissionID string    `json:"submissionId"`
	SubmittedAt  time.Time `json:"submittedAt"`
	Result       *Result   `json:"result,omitempty"`
}

// Submission is a stored attempt as returned by the review/history source.
type Submission struct {
	ID               string    `json:"id"`
	QuizID           string    `json:"quizId"`
	UserID           string    `json:"userId"`
	DisplayName      string    `json:"displayName"`
	TimeTakenSeconds int       `json:"timeTaken"`
	Answers          []Answer  `json:"answers"`
	Result           Result    `json:"result"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// HistoryEntry is one past submission in a user's history.
type HistoryEntry struct {
	ID              string    `json:"id"`
	QuizID          string    `json:"quizId"`
	QuizTitle       string    `json:"quizTitle"`
	QuizCategory    string    `json:"quizCategory"`
	TotalQuestions  int       `json:"totalQuestions"`
	CorrectAnswers  int       `json:"correctAnswers"`
	ScorePercentage int       `json:"scorePercentage"`
	Passed          bool      `json:"passed"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

// LeaderboardEntry is a user's standing across all submissions.
type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	UserID           string `json:"userId"`
	DisplayName      string `json:"username"`
	Score            int    `json:"score"`
	QuizzesAttempted int    `json:"quizzesAttempted"`
}

// Leaderboard captures the ordered scoreboard.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// NewHistoryEntry summarizes a scored submission against its quiz.
func NewHistoryEntry(sub Submission, quiz Quiz) HistoryEntry {
	return HistoryEntry{
		ID:              sub.ID,
		QuizID:          sub.QuizID,
		QuizTitle:       quiz.Title,
		QuizCategory:    quiz.Category.Name,
		TotalQuestions:  sub.Result.TotalQuestions,
		CorrectAnswers:  sub.Result.CorrectCount,
		ScorePercentage: sub.Result.Percentage,
		Passed:          sub.Result.Passed,
		SubmittedAt:     sub.SubmittedAt,
	}
}
