package domain

import (
	"errors"
	"testing"
)

func TestValidateQuizAcceptsWellFormedQuiz(t *testing.T) {
	if err := ValidateQuiz(sampleQuiz(), sampleQuestions()); err != nil {
		t.Fatalf("expected valid quiz, got %v", err)
	}
}

func TestValidateQuizRejectsBadContent(t *testing.T) {
	cases := map[string]func(*Quiz, *[]Question){
		"no questions":      func(_ *Quiz, qs *[]Question) { *qs = nil },
		"no time limit":     func(q *Quiz, _ *[]Question) { q.TimeLimit = 0 },
		"pass above 100":    func(q *Quiz, _ *[]Question) { q.PassPercentage = 101 },
		"inactive":          func(q *Quiz, _ *[]Question) { q.Status = StatusInactive },
		"duplicate ids":     func(_ *Quiz, qs *[]Question) { (*qs)[1].ID = (*qs)[0].ID },
		"one option":        func(_ *Quiz, qs *[]Question) { (*qs)[0].Options = (*qs)[0].Options[:1] },
		"no correct option": func(_ *Quiz, qs *[]Question) { (*qs)[1].Options[0].Correct = false; (*qs)[1].Options[1].Correct = false },
		"single two correct": func(_ *Quiz, qs *[]Question) {
			(*qs)[0].Options[0].Correct = true
		},
		"unknown type": func(_ *Quiz, qs *[]Question) { (*qs)[0].Type = "ESSAY" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			quiz := sampleQuiz()
			questions := sampleQuestions()
			mutate(&quiz, &questions)
			err := ValidateQuiz(quiz, questions)
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestValidationErrorMatchesSentinel(t *testing.T) {
	var err error = &ValidationError{Unanswered: []string{"q2"}, FirstIndex: 1}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ValidationError to match ErrValidation")
	}
}

func sampleQuiz() Quiz {
	return Quiz{ID: "quiz-1", Title: "Basics", TimeLimit: 1, PassPercentage: 50, QuestionCount: 2}
}

func sampleQuestions() []Question {
	return []Question{
		{
			ID:   "q1",
			Type: Single,
			Options: []Option{
				{ID: "a", Text: "A"},
				{ID: "b", Text: "B", Correct: true},
			},
		},
		{
			ID:   "q2",
			Type: Multiple,
			Options: []Option{
				{ID: "x", Text: "X", Correct: true},
				{ID: "y", Text: "Y", Correct: true},
				{ID: "z", Text: "Z"},
			},
		},
	}
}
