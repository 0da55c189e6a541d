package scoring

import (
	"sort"
	"time"

	"quizhub-service/internal/domain"
)

// Standing is one user's aggregate before ranking.
type Standing struct {
	UserID      string
	DisplayName string
	Best        int
	ReachedAt   time.Time
	Quizzes     int
}

// Rank aggregates submissions per user and orders them.
func Rank(subs []domain.Submission, limit int, now time.Time) domain.Leaderboard {
	byUser := make(map[string]*Standing)
	quizzes := make(map[string]map[string]struct{})
	for _, sub := range subs {
		st, ok := byUser[sub.UserID]
		if !ok {
			st = &Standing{UserID: sub.UserID, Best: -1}
			byUser[sub.UserID] = st
			quizzes[sub.UserID] = make(map[string]struct{})
		}
		if sub.DisplayName != "" {
			st.DisplayName = sub.DisplayName
		}
		quizzes[sub.UserID][sub.QuizID] = struct{}{}

		score := sub.Result.Percentage
		if score > st.Best || (score == st.Best && sub.SubmittedAt.Before(st.ReachedAt)) {
			st.Best = score
			st.ReachedAt = sub.SubmittedAt
		}
	}

	standings := make([]Standing, 0, len(byUser))
	for id, st := range byUser {
		st.Quizzes = len(quizzes[id])
		standings = append(standings, *st)
	}
	return RankStandings(standings, limit, now)
}

// RankStandings orders by best score desc, then who reached it first, then name.
// Ranks are 1-based; a non-positive limit keeps every entry.
func RankStandings(standings []Standing, limit int, now time.Time) domain.Leaderboard {
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Best != standings[j].Best {
			return standings[i].Best > standings[j].Best
		}
		if !standings[i].ReachedAt.Equal(standings[j].ReachedAt) {
			return standings[i].ReachedAt.Before(standings[j].ReachedAt)
		}
		return standings[i].DisplayName < standings[j].DisplayName
	})
	if limit > 0 && len(standings) > limit {
		standings = standings[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(standings))
	for i, st := range standings {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:             i + 1,
			UserID:           st.UserID,
			DisplayName:      st.DisplayName,
			Score:            st.Best,
			QuizzesAttempted: st.Quizzes,
		})
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: now}
}
