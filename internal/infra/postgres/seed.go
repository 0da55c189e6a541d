package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"

	"quizhub-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID             string `bun:"id,pk"`
	Title          string `bun:"title"`
	Description    string `bun:"description"`
	CategoryID     string `bun:"category_id"`
	CategoryName   string `bun:"category_name"`
	Difficulty     string `bun:"difficulty"`
	Status         string `bun:"status"`
	TimeLimit      int    `bun:"time_limit"`
	PassPercentage int    `bun:"pass_percentage"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	QuizID   string          `bun:"quiz_id,pk"`
	ID       string          `bun:"id,pk"`
	Position int             `bun:"position"`
	Content  string          `bun:"content"`
	Type     string          `bun:"type"`
	Options  []domain.Option `bun:"options,type:jsonb"`
}

// SeedQuiz upserts a quiz and replaces its questions in one transaction.
func SeedQuiz(ctx context.Context, db *bun.DB, quiz domain.Quiz, questions []domain.Question) error {
	if err := domain.ValidateContent(quiz, questions); err != nil {
		return err
	}

	status := string(quiz.Status)
	if status == "" {
		status = string(domain.StatusActive)
	}
	row := &quizRow{
		ID:             quiz.ID,
		Title:          quiz.Title,
		Description:    quiz.Description,
		CategoryID:     quiz.Category.ID,
		CategoryName:   quiz.Category.Name,
		Difficulty:     string(quiz.Difficulty),
		Status:         status,
		TimeLimit:      quiz.TimeLimit,
		PassPercentage: quiz.PassPercentage,
	}
	qrows := make([]questionRow, 0, len(questions))
	for i, q := range questions {
		qrows = append(qrows, questionRow{
			QuizID:   quiz.ID,
			ID:       q.ID,
			Position: i,
			Content:  q.Content,
			Type:     string(q.Type),
			Options:  q.Options,
		})
	}

	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(row).
			On("CONFLICT (id) DO UPDATE").
			Set("title = EXCLUDED.title").
			Set("description = EXCLUDED.description").
			Set("category_id = EXCLUDED.category_id").
			Set("category_name = EXCLUDED.category_name").
			Set("difficulty = EXCLUDED.difficulty").
			Set("status = EXCLUDED.status").
			Set("time_limit = EXCLUDED.time_limit").
			Set("pass_percentage = EXCLUDED.pass_percentage").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert quiz %s: %w", quiz.ID, err)
		}
		if _, err := tx.NewDelete().Model((*questionRow)(nil)).Where("quiz_id = ?", quiz.ID).Exec(ctx); err != nil {
			return fmt.Errorf("clear questions of %s: %w", quiz.ID, err)
		}
		if _, err := tx.NewInsert().Model(&qrows).Exec(ctx); err != nil {
			return fmt.Errorf("insert questions of %s: %w", quiz.ID, err)
		}
		return nil
	})
}
