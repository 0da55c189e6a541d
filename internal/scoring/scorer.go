// Package scoring grades a finished attempt. The same rules run on the live session
// for immediate feedback and in the submission stores when an attempt is persisted.
package scoring

import (
	"fmt"

	"quizhub-service/internal/domain"
)

// Score grades answers against questions with all-or-nothing credit per question.
// Questions without an answer count as wrong. Answers for unknown questions are ignored.
func Score(questions []domain.Question, answers []domain.Answer, passPercentage int) (domain.Result, error) {
	if len(questions) == 0 {
		return domain.Result{}, fmt.Errorf("%w: cannot score a quiz with no questions", domain.ErrConfiguration)
	}

	byQuestion := make(map[string][]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.SelectedOptionIDs
	}

	result := domain.Result{
		TotalQuestions: len(questions),
		Questions:      make([]domain.QuestionResult, 0, len(questions)),
	}
	for _, q := range questions {
		expected := q.CorrectOptionIDs()
		if len(expected) == 0 {
			return domain.Result{}, fmt.Errorf("%w: question %s has no correct option", domain.ErrConfiguration, q.ID)
		}
		selected := byQuestion[q.ID]
		correct := sameSet(selected, expected)
		if correct {
			result.CorrectCount++
		}
		result.Questions = append(result.Questions, domain.QuestionResult{
			QuestionID:        q.ID,
			Correct:           correct,
			SelectedOptionIDs: append([]string{}, selected...),
			CorrectOptionIDs:  expected,
		})
	}

	result.Percentage = Percentage(result.CorrectCount, result.TotalQuestions)
	result.Passed = result.Percentage >= passPercentage
	return result, nil
}

// Percentage is round(100*correct/total) with halves rounded up. total must be positive.
func Percentage(correct, total int) int {
	return (200*correct + total) / (2 * total)
}

func sameSet(a, b []string) bool {
	left := toSet(a)
	right := toSet(b)
	if len(left) != len(right) {
		return false
	}
	for id := range left {
		if _, ok := right[id]; !ok {
			return false
		}
	}
	return true
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
