package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quizhub-service/internal/domain"
)

func TestRankOrdersByBestThenTimeThenName(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	sub := func(user, name, quiz string, pct int, at time.Duration) domain.Submission {
		return domain.Submission{
			UserID:      user,
			DisplayName: name,
			QuizID:      quiz,
			Result:      domain.Result{Percentage: pct},
			SubmittedAt: base.Add(at),
		}
	}
	subs := []domain.Submission{
		sub("u1", "Carol", "quiz-1", 80, 3*time.Minute),
		sub("u1", "Carol", "quiz-2", 40, 4*time.Minute),
		sub("u2", "Bob", "quiz-1", 80, time.Minute),
		sub("u3", "Alice", "quiz-1", 100, 5*time.Minute),
		sub("u4", "Dave", "quiz-1", 80, time.Minute),
		sub("u2", "Bob", "quiz-1", 60, 0),
	}

	lb := Rank(subs, 0, base)
	require.Len(t, lb.Entries, 4)

	got := make([]string, 0, len(lb.Entries))
	for _, e := range lb.Entries {
		got = append(got, e.DisplayName)
	}
	require.Equal(t, []string{"Alice", "Bob", "Dave", "Carol"}, got)
	require.Equal(t, 1, lb.Entries[0].Rank)
	require.Equal(t, 4, lb.Entries[3].Rank)
	require.Equal(t, 2, lb.Entries[3].QuizzesAttempted)
	require.Equal(t, 1, lb.Entries[1].QuizzesAttempted)
	require.Equal(t, base, lb.UpdatedAt)
}

func TestRankLimit(t *testing.T) {
	subs := []domain.Submission{
		{UserID: "u1", Result: domain.Result{Percentage: 10}},
		{UserID: "u2", Result: domain.Result{Percentage: 20}},
		{UserID: "u3", Result: domain.Result{Percentage: 30}},
	}
	lb := Rank(subs, 2, time.Time{})
	require.Len(t, lb.Entries, 2)
	require.Equal(t, "u3", lb.Entries[0].UserID)
}
