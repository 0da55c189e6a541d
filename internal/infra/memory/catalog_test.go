package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quizhub-service/internal/domain"
)

const catalogYAML = `
quizzes:
  - id: geo-1
    title: Capitals
    category:
      id: geo
      name: Geography
    difficulty: MEDIUM
    status: ACTIVE
    time_limit: 2
    pass_percentage: 60
    questions:
      - id: q1
        content: Capital of France?
        type: SINGLE
        options:
          - {id: a, text: Paris, correct: true}
          - {id: b, text: Lyon}
      - id: q2
        content: Which are in Europe?
        type: MULTIPLE
        options:
          - {id: a, text: Oslo, correct: true}
          - {id: b, text: Lima}
          - {id: c, text: Rome, correct: true}
`

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quizzes.yaml")
	if err := os.WriteFile(path, []byte(catalogYAML), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	quizzes, err := LoadCatalogFile(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	loader := NewStaticQuizLoader(quizzes)

	quiz, err := loader.LoadQuiz(context.Background(), domain.Identity{}, "geo-1")
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	if quiz.Title != "Capitals" || quiz.TimeLimit != 2 || quiz.PassPercentage != 60 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if quiz.Category.Name != "Geography" || quiz.Difficulty != domain.DifficultyMedium {
		t.Fatalf("unexpected metadata %+v", quiz)
	}
	if quiz.QuestionCount != 2 {
		t.Fatalf("question count should default to len(questions), got %d", quiz.QuestionCount)
	}

	qs, err := loader.LoadQuestions(context.Background(), domain.Identity{}, "geo-1")
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if qs[1].Type != domain.Multiple || len(qs[1].CorrectOptionIDs()) != 2 {
		t.Fatalf("unexpected second question %+v", qs[1])
	}
}

func TestParseCatalogRejectsBrokenQuiz(t *testing.T) {
	raw := `
quizzes:
  - id: bad
    time_limit: 1
    questions:
      - id: q1
        type: SINGLE
        options:
          - {id: a, correct: true}
          - {id: b, correct: true}
`
	if _, err := ParseCatalog([]byte(raw)); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestStaticLoaderUnknownQuiz(t *testing.T) {
	loader := NewStaticQuizLoader(SampleCatalog())
	if _, err := loader.LoadQuestions(context.Background(), domain.Identity{}, "nope"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := len(loader.Quizzes()); got != 1 {
		t.Fatalf("expected 1 quiz, got %d", got)
	}
}
