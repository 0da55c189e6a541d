package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizhub-service/internal/domain"
	"quizhub-service/internal/scoring"
	"quizhub-service/internal/session"
)

// SubmissionStore persists scored submissions in Postgres. Scores are always
// recomputed from the catalog.
type SubmissionStore struct {
	pool    *pgxpool.Pool
	quizzes session.QuizSource
	clock   func() time.Time
}

func NewSubmissionStore(pool *pgxpool.Pool, quizzes session.QuizSource) *SubmissionStore {
	return &SubmissionStore{pool: pool, quizzes: quizzes, clock: time.Now}
}

const submissionColumns = `id, quiz_id, user_id, display_name, time_taken,
	correct_count, total_questions, percentage, passed, submitted_at`

// SubmitAttempt scores and stores an attempt. Resubmitting the same attempt id
// returns the original receipt.
func (s *SubmissionStore) SubmitAttempt(ctx context.Context, who domain.Identity, attempt domain.Attempt) (domain.Receipt, error) {
	if attempt.AttemptID != "" {
		row := s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE attempt_id = $1`, attempt.AttemptID)
		existing, err := scanSubmission(row)
		if err == nil {
			return receiptFor(existing), nil
		}
		if !errors.Is(err, domain.ErrSubmissionNotFound) {
			return domain.Receipt{}, err
		}
	}

	quiz, err := s.quizzes.LoadQuiz(ctx, who, attempt.QuizID)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("load quiz %s: %w", attempt.QuizID, err)
	}
	questions, err := s.quizzes.LoadQuestions(ctx, who, attempt.QuizID)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("load questions %s: %w", attempt.QuizID, err)
	}
	result, err := scoring.Score(questions, attempt.Answers, quiz.PassPercentage)
	if err != nil {
		return domain.Receipt{}, err
	}

	sub := domain.Submission{
		ID:               uuid.NewString(),
		QuizID:           attempt.QuizID,
		UserID:           attempt.UserID,
		DisplayName:      attempt.DisplayName,
		TimeTakenSeconds: attempt.TimeTakenSeconds,
		Answers:          attempt.Answers,
		Result:           result,
		SubmittedAt:      s.clock().UTC(),
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		var attemptID *string
		if attempt.AttemptID != "" {
			attemptID = &attempt.AttemptID
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO submissions (id, attempt_id, quiz_id, user_id, display_name, time_taken,
				correct_count, total_questions, percentage, passed, submitted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			sub.ID, attemptID, sub.QuizID, sub.UserID, sub.DisplayName, sub.TimeTakenSeconds,
			result.CorrectCount, result.TotalQuestions, result.Percentage, result.Passed, sub.SubmittedAt)
		if err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}

		batch := &pgx.Batch{}
		for i, qr := range result.Questions {
			selected, err := json.Marshal(nonNil(qr.SelectedOptionIDs))
			if err != nil {
				return err
			}
			batch.Queue(`
				INSERT INTO submission_answers (submission_id, question_id, position, selected_option_ids, correct)
				VALUES ($1, $2, $3, $4, $5)`, sub.ID, qr.QuestionID, i, string(selected), qr.Correct)
		}
		br := tx.SendBatch(ctx, batch)
		for range result.Questions {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert answer: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return domain.Receipt{}, err
	}
	return receiptFor(sub), nil
}

func receiptFor(sub domain.Submission) domain.Receipt {
	result := sub.Result
	return domain.Receipt{SubmissionID: sub.ID, SubmittedAt: sub.SubmittedAt, Result: &result}
}

func (s *SubmissionStore) GetSubmission(ctx context.Context, _ domain.Identity, submissionID string) (domain.Submission, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, submissionID)
	sub, err := scanSubmission(row)
	if err != nil {
		return domain.Submission{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT question_id, selected_option_ids, correct FROM submission_answers
		WHERE submission_id = $1 ORDER BY position`, submissionID)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			qr  domain.QuestionResult
			raw []byte
		)
		if err := rows.Scan(&qr.QuestionID, &raw, &qr.Correct); err != nil {
			return domain.Submission{}, fmt.Errorf("scan answer: %w", err)
		}
		if err := json.Unmarshal(raw, &qr.SelectedOptionIDs); err != nil {
			return domain.Submission{}, fmt.Errorf("unmarshal answer: %w", err)
		}
		sub.Result.Questions = append(sub.Result.Questions, qr)
		if len(qr.SelectedOptionIDs) > 0 {
			sub.Answers = append(sub.Answers, domain.Answer{QuestionID: qr.QuestionID, SelectedOptionIDs: qr.SelectedOptionIDs})
		}
	}
	return sub, rows.Err()
}

// History lists a user's submissions, newest first.
func (s *SubmissionStore) History(ctx context.Context, who domain.Identity, userID string) ([]domain.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+submissionColumns+` FROM submissions
		WHERE user_id = $1 ORDER BY submitted_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	titles := make(map[string]domain.Quiz)
	entries := make([]domain.HistoryEntry, 0, len(subs))
	for _, sub := range subs {
		quiz, ok := titles[sub.QuizID]
		if !ok {
			quiz = s.quizOrStub(ctx, who, sub.QuizID)
			titles[sub.QuizID] = quiz
		}
		entries = append(entries, domain.NewHistoryEntry(sub, quiz))
	}
	return entries, nil
}

// BestResult returns the highest-scoring submission of a user for a quiz; the
// earliest wins a tie.
func (s *SubmissionStore) BestResult(ctx context.Context, who domain.Identity, userID, quizID string) (domain.HistoryEntry, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions
		WHERE user_id = $1 AND quiz_id = $2
		ORDER BY percentage DESC, submitted_at ASC LIMIT 1`, userID, quizID)
	sub, err := scanSubmission(row)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	return domain.NewHistoryEntry(sub, s.quizOrStub(ctx, who, quizID)), nil
}

func (s *SubmissionStore) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	rows, err := s.pool.Query(ctx, `
		WITH best AS (
			SELECT DISTINCT ON (user_id) user_id, percentage, submitted_at
			FROM submissions
			ORDER BY user_id, percentage DESC, submitted_at ASC
		), totals AS (
			SELECT user_id, max(display_name) AS display_name, count(DISTINCT quiz_id) AS quizzes
			FROM submissions GROUP BY user_id
		)
		SELECT b.user_id, t.display_name, b.percentage, b.submitted_at, t.quizzes
		FROM best b JOIN totals t USING (user_id)`)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load leaderboard: %w", err)
	}
	defer rows.Close()

	var standings []scoring.Standing
	for rows.Next() {
		var st scoring.Standing
		if err := rows.Scan(&st.UserID, &st.DisplayName, &st.Best, &st.ReachedAt, &st.Quizzes); err != nil {
			return domain.Leaderboard{}, fmt.Errorf("scan standing: %w", err)
		}
		standings = append(standings, st)
	}
	if err := rows.Err(); err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load leaderboard: %w", err)
	}
	return scoring.RankStandings(standings, limit, s.clock()), nil
}

func (s *SubmissionStore) quizOrStub(ctx context.Context, who domain.Identity, quizID string) domain.Quiz {
	quiz, err := s.quizzes.LoadQuiz(ctx, who, quizID)
	if err != nil {
		return domain.Quiz{ID: quizID}
	}
	return quiz
}

func (s *SubmissionStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var sub domain.Submission
	err := row.Scan(&sub.ID, &sub.QuizID, &sub.UserID, &sub.DisplayName, &sub.TimeTakenSeconds,
		&sub.Result.CorrectCount, &sub.Result.TotalQuestions, &sub.Result.Percentage, &sub.Result.Passed,
		&sub.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("scan submission: %w", err)
	}
	return sub, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
