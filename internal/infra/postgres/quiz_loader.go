package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizhub-service/internal/domain"
)

// QuizLoader loads quizzes and their questions from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, _ domain.Identity, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	var difficulty, status string
	err := l.pool.QueryRow(ctx, `
		SELECT q.id, q.title, q.description, q.category_id, q.category_name, q.difficulty, q.status,
		       q.time_limit, q.pass_percentage,
		       (SELECT count(*) FROM questions WHERE quiz_id = q.id)
		FROM quizzes q WHERE q.id = $1`, quizID).Scan(
		&quiz.ID, &quiz.Title, &quiz.Description, &quiz.Category.ID, &quiz.Category.Name,
		&difficulty, &status, &quiz.TimeLimit, &quiz.PassPercentage, &quiz.QuestionCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.Difficulty = domain.Difficulty(difficulty)
	quiz.Status = domain.QuizStatus(status)
	return quiz, nil
}

func (l *QuizLoader) LoadQuestions(ctx context.Context, _ domain.Identity, quizID string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, content, type, options FROM questions
		WHERE quiz_id = $1 ORDER BY position, id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q       domain.Question
			qType   string
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.Content, &qType, &options); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = domain.QuestionType(qType)
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options of %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	if len(questions) == 0 {
		var exists bool
		if err := l.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id = $1)`, quizID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check quiz: %w", err)
		}
		if !exists {
			return nil, domain.ErrQuizNotFound
		}
	}
	return questions, nil
}
