package session

import (
	"fmt"

	"quizhub-service/internal/domain"
)

// AnswerTracker holds the selected options per question.
// It is not safe for concurrent use; the Controller serializes access.
type AnswerTracker struct {
	questions  []domain.Question
	byID       map[string]int
	selections map[string][]string
	frozen     bool
}

func NewAnswerTracker(questions []domain.Question) *AnswerTracker {
	byID := make(map[string]int, len(questions))
	for i, q := range questions {
		byID[q.ID] = i
	}
	return &AnswerTracker{
		questions:  questions,
		byID:       byID,
		selections: make(map[string][]string, len(questions)),
	}
}

// Select applies one selection event. SINGLE questions replace the selection,
// MULTIPLE questions toggle optionID in or out of the set.
func (t *AnswerTracker) Select(questionID, optionID string) ([]string, error) {
	if t.frozen {
		return nil, fmt.Errorf("%w: answers are frozen", domain.ErrInvalidState)
	}
	idx, ok := t.byID[questionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, questionID)
	}
	q := t.questions[idx]
	if !q.HasOption(optionID) {
		return nil, fmt.Errorf("%w: %s on question %s", domain.ErrOptionNotFound, optionID, questionID)
	}

	switch q.Type {
	case domain.Multiple:
		t.selections[questionID] = toggle(t.selections[questionID], optionID)
	default:
		t.selections[questionID] = []string{optionID}
	}
	return t.Selection(questionID), nil
}

// Selection returns a copy of the current selection, empty if none.
func (t *AnswerTracker) Selection(questionID string) []string {
	return append([]string{}, t.selections[questionID]...)
}

// Answered reports whether the question has a non-empty selection.
func (t *AnswerTracker) Answered(questionID string) bool {
	return len(t.selections[questionID]) > 0
}

// AnsweredCount returns how many questions have a non-empty selection.
func (t *AnswerTracker) AnsweredCount() int {
	n := 0
	for _, q := range t.questions {
		if t.Answered(q.ID) {
			n++
		}
	}
	return n
}

// Unanswered returns the indexes of questions without a selection, in question order.
func (t *AnswerTracker) Unanswered() []int {
	var gaps []int
	for i, q := range t.questions {
		if !t.Answered(q.ID) {
			gaps = append(gaps, i)
		}
	}
	return gaps
}

// Answers returns the non-empty selections in question order.
func (t *AnswerTracker) Answers() []domain.Answer {
	answers := make([]domain.Answer, 0, len(t.selections))
	for _, q := range t.questions {
		if !t.Answered(q.ID) {
			continue
		}
		answers = append(answers, domain.Answer{
			QuestionID:        q.ID,
			SelectedOptionIDs: t.Selection(q.ID),
		})
	}
	return answers
}

// Restore seeds selections from stored answers, skipping unknown questions and options.
func (t *AnswerTracker) Restore(answers []domain.Answer) {
	for _, a := range answers {
		idx, ok := t.byID[a.QuestionID]
		if !ok {
			continue
		}
		q := t.questions[idx]
		selected := make([]string, 0, len(a.SelectedOptionIDs))
		for _, id := range a.SelectedOptionIDs {
			if q.HasOption(id) {
				selected = append(selected, id)
			}
		}
		t.selections[a.QuestionID] = selected
	}
}

// Freeze rejects every later Select.
func (t *AnswerTracker) Freeze() {
	t.frozen = true
}

func (t *AnswerTracker) Frozen() bool {
	return t.frozen
}

func toggle(selected []string, optionID string) []string {
	for i, id := range selected {
		if id == optionID {
			return append(selected[:i:i], selected[i+1:]...)
		}
	}
	return append(selected, optionID)
}
