package restapi

import (
	"bytes"
	"encoding/json"
	"time"

	"quizhub-service/internal/domain"
)

// flexID decodes ids the backend sends either as strings or as numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type wireCategory struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type wireQuiz struct {
	ID             flexID        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Category       *wireCategory `json:"category"`
	Difficulty     string        `json:"difficulty"`
	Status         string        `json:"status"`
	TimeLimit      int           `json:"timeLimit"`
	PassPercentage int           `json:"passPercentage"`
	Questions      int           `json:"questions"`
}

func (w wireQuiz) toDomain() domain.Quiz {
	quiz := domain.Quiz{
		ID:             string(w.ID),
		Title:          w.Title,
		Description:    w.Description,
		Difficulty:     domain.Difficulty(w.Difficulty),
		Status:         domain.QuizStatus(w.Status),
		TimeLimit:      w.TimeLimit,
		PassPercentage: w.PassPercentage,
		QuestionCount:  w.Questions,
	}
	if w.Category != nil {
		quiz.Category = domain.Category{ID: string(w.Category.ID), Name: w.Category.Name, Description: w.Category.Description}
	}
	return quiz
}

type wireOption struct {
	ID        flexID `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

type wireQuestion struct {
	ID      flexID       `json:"id"`
	Content string       `json:"content"`
	Type    string       `json:"type"`
	Options []wireOption `json:"options"`
}

func (w wireQuestion) toDomain() domain.Question {
	q := domain.Question{
		ID:      string(w.ID),
		Content: w.Content,
		Type:    domain.QuestionType(w.Type),
		Options: make([]domain.Option, 0, len(w.Options)),
	}
	correct := 0
	for _, o := range w.Options {
		q.Options = append(q.Options, domain.Option{ID: string(o.ID), Text: o.Text, Correct: o.IsCorrect})
		if o.IsCorrect {
			correct++
		}
	}
	if q.Type == "" {
		q.Type = domain.Single
		if correct > 1 {
			q.Type = domain.Multiple
		}
	}
	return q
}

type wireAnswer struct {
	QuestionID        string   `json:"questionId"`
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

type wireSubmitRequest struct {
	UserID    string       `json:"userId"`
	TimeTaken int          `json:"timeTaken"`
	Answers   []wireAnswer `json:"answers"`
}

type wireSubmitResponse struct {
	ID              flexID     `json:"id"`
	SubmissionID    flexID     `json:"submissionId"`
	CorrectAnswers  *int       `json:"correctAnswers"`
	TotalQuestions  int        `json:"totalQuestions"`
	ScorePercentage int        `json:"scorePercentage"`
	Passed          bool       `json:"passed"`
	SubmittedAt     *time.Time `json:"submittedAt"`
}

func (w wireSubmitResponse) toReceipt(now time.Time) domain.Receipt {
	receipt := domain.Receipt{SubmissionID: string(w.ID), SubmittedAt: now}
	if receipt.SubmissionID == "" {
		receipt.SubmissionID = string(w.SubmissionID)
	}
	if w.SubmittedAt != nil {
		receipt.SubmittedAt = w.SubmittedAt.UTC()
	}
	if w.CorrectAnswers != nil {
		receipt.Result = &domain.Result{
			CorrectCount:   *w.CorrectAnswers,
			TotalQuestions: w.TotalQuestions,
			Percentage:     w.ScorePercentage,
			Passed:         w.Passed,
		}
	}
	return receipt
}

type wireSubmission struct {
	ID              flexID       `json:"id"`
	QuizID          flexID       `json:"quizId"`
	UserID          flexID       `json:"userId"`
	TimeTaken       int          `json:"timeTaken"`
	CorrectAnswers  int          `json:"correctAnswers"`
	TotalQuestions  int          `json:"totalQuestions"`
	ScorePercentage int          `json:"scorePercentage"`
	Passed          bool         `json:"passed"`
	SubmittedAt     time.Time    `json:"submittedAt"`
	Answers         []wireAnswer `json:"answers"`
}

func (w wireSubmission) toDomain() domain.Submission {
	sub := domain.Submission{
		ID:               string(w.ID),
		QuizID:           string(w.QuizID),
		UserID:           string(w.UserID),
		TimeTakenSeconds: w.TimeTaken,
		Result: domain.Result{
			CorrectCount:   w.CorrectAnswers,
			TotalQuestions: w.TotalQuestions,
			Percentage:     w.ScorePercentage,
			Passed:         w.Passed,
		},
		SubmittedAt: w.SubmittedAt.UTC(),
	}
	for _, a := range w.Answers {
		sub.Answers = append(sub.Answers, domain.Answer{QuestionID: a.QuestionID, SelectedOptionIDs: a.SelectedOptionIDs})
	}
	return sub
}

type wireHistory struct {
	ID              flexID    `json:"id"`
	QuizID          flexID    `json:"quizId"`
	QuizTitle       string    `json:"quizTitle"`
	QuizCategory    string    `json:"quizCategory"`
	TotalQuestions  int       `json:"totalQuestions"`
	CorrectAnswers  int       `json:"correctAnswers"`
	ScorePercentage int       `json:"scorePercentage"`
	Passed          bool      `json:"passed"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

func (w wireHistory) toDomain() domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:              string(w.ID),
		QuizID:          string(w.QuizID),
		QuizTitle:       w.QuizTitle,
		QuizCategory:    w.QuizCategory,
		TotalQuestions:  w.TotalQuestions,
		CorrectAnswers:  w.CorrectAnswers,
		ScorePercentage: w.ScorePercentage,
		Passed:          w.Passed,
		SubmittedAt:     w.SubmittedAt.UTC(),
	}
}

type wireLeaderboardEntry struct {
	Rank             int    `json:"rank"`
	UserID           flexID `json:"userId"`
	Username         string `json:"username"`
	Score            int    `json:"score"`
	QuizzesAttempted int    `json:"quizzesAttempted"`
}

func (w wireLeaderboardEntry) toDomain() domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		Rank:             w.Rank,
		UserID:           string(w.UserID),
		DisplayName:      w.Username,
		Score:            w.Score,
		QuizzesAttempted: w.QuizzesAttempted,
	}
}
