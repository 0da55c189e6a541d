package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"quizhub-service/internal/domain"
)

func TestScoreAllCorrect(t *testing.T) {
	res, err := Score(questions(), []domain.Answer{
		{QuestionID: "q1", SelectedOptionIDs: []string{"b"}},
		{QuestionID: "q2", SelectedOptionIDs: []string{"y", "x"}},
	}, 50)
	require.NoError(t, err)
	require.Equal(t, 2, res.CorrectCount)
	require.Equal(t, 2, res.TotalQuestions)
	require.Equal(t, 100, res.Percentage)
	require.True(t, res.Passed)
}

func TestScoreNoPartialCredit(t *testing.T) {
	res, err := Score(questions(), []domain.Answer{
		{QuestionID: "q1", SelectedOptionIDs: []string{"a"}},
		{QuestionID: "q2", SelectedOptionIDs: []string{"x"}},
	}, 50)
	require.NoError(t, err)
	require.Equal(t, 0, res.CorrectCount)
	require.Equal(t, 0, res.Percentage)
	require.False(t, res.Passed)
}

func TestScoreOverSelectionIsWrong(t *testing.T) {
	qs := []domain.Question{{
		ID:   "m",
		Type: domain.Multiple,
		Options: []domain.Option{
			{ID: "A", Correct: true},
			{ID: "B"},
		},
	}}
	res, err := Score(qs, []domain.Answer{{QuestionID: "m", SelectedOptionIDs: []string{"A", "B"}}}, 0)
	require.NoError(t, err)
	require.Equal(t, 0, res.CorrectCount)
}

func TestScoreUnansweredCountsAsWrong(t *testing.T) {
	res, err := Score(questions(), []domain.Answer{
		{QuestionID: "q1", SelectedOptionIDs: []string{"b"}},
	}, 50)
	require.NoError(t, err)
	require.Equal(t, 1, res.CorrectCount)
	require.Equal(t, 50, res.Percentage)
	require.True(t, res.Passed, "pass threshold is inclusive")
	require.False(t, res.Questions[1].Correct)
}

func TestScoreRejectsEmptyQuiz(t *testing.T) {
	_, err := Score(nil, nil, 50)
	require.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestScoreRejectsQuestionWithoutCorrectOption(t *testing.T) {
	qs := questions()
	qs[0].Options[1].Correct = false
	_, err := Score(qs, nil, 50)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestPercentageRounding(t *testing.T) {
	require.Equal(t, 33, Percentage(1, 3))
	require.Equal(t, 67, Percentage(2, 3))
	require.Equal(t, 50, Percentage(1, 2))
	require.Equal(t, 13, Percentage(1, 8)) // 12.5 rounds up
}

func questions() []domain.Question {
	return []domain.Question{
		{
			ID:   "q1",
			Type: domain.Single,
			Options: []domain.Option{
				{ID: "a", Text: "A"},
				{ID: "b", Text: "B", Correct: true},
			},
		},
		{
			ID:   "q2",
			Type: domain.Multiple,
			Options: []domain.Option{
				{ID: "x", Text: "X", Correct: true},
				{ID: "y", Text: "Y", Correct: true},
				{ID: "z", Text: "Z"},
			},
		},
	}
}
