package memory

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"quizhub-service/internal/domain"
)

// CatalogQuiz is a quiz together with its ordered questions.
type CatalogQuiz struct {
	Quiz      domain.Quiz       `yaml:",inline"`
	Questions []domain.Question `yaml:"questions"`
}

type catalogFile struct {
	Quizzes []CatalogQuiz `yaml:"quizzes"`
}

// ParseCatalog decodes a YAML catalog and checks every quiz can be run.
func ParseCatalog(data []byte) ([]CatalogQuiz, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Quizzes))
	for i := range file.Quizzes {
		cq := &file.Quizzes[i]
		if cq.Quiz.ID == "" {
			return nil, fmt.Errorf("%w: catalog entry %d has no id", domain.ErrConfiguration, i)
		}
		if _, dup := seen[cq.Quiz.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate quiz id %s", domain.ErrConfiguration, cq.Quiz.ID)
		}
		seen[cq.Quiz.ID] = struct{}{}
		if cq.Quiz.QuestionCount == 0 {
			cq.Quiz.QuestionCount = len(cq.Questions)
		}
		if err := domain.ValidateContent(cq.Quiz, cq.Questions); err != nil {
			return nil, err
		}
	}
	return file.Quizzes, nil
}

// LoadCatalogFile reads a YAML catalog from disk.
func LoadCatalogFile(path string) ([]CatalogQuiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// StaticQuizLoader is a loader backed by an in-memory catalog (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]CatalogQuiz
}

func NewStaticQuizLoader(quizzes []CatalogQuiz) *StaticQuizLoader {
	byID := make(map[string]CatalogQuiz, len(quizzes))
	for _, q := range quizzes {
		byID[q.Quiz.ID] = q
	}
	return &StaticQuizLoader{quizzes: byID}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, _ domain.Identity, quizID string) (domain.Quiz, error) {
	if cq, ok := l.quizzes[quizID]; ok {
		return cq.Quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (l *StaticQuizLoader) LoadQuestions(_ context.Context, _ domain.Identity, quizID string) ([]domain.Question, error) {
	cq, ok := l.quizzes[quizID]
	if !ok {
		return nil, domain.ErrQuizNotFound
	}
	out := make([]domain.Question, len(cq.Questions))
	copy(out, cq.Questions)
	return out, nil
}

// Quizzes lists the catalog ordered by id.
func (l *StaticQuizLoader) Quizzes() []CatalogQuiz {
	out := make([]CatalogQuiz, 0, len(l.quizzes))
	for _, q := range l.quizzes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quiz.ID < out[j].Quiz.ID })
	return out
}

// SampleCatalog is the demo content served when no catalog file is configured.
func SampleCatalog() []CatalogQuiz {
	return []CatalogQuiz{
		{
			Quiz: domain.Quiz{
				ID:             "quiz-1",
				Title:          "Arithmetic warm-up",
				Description:    "Two quick questions",
				Category:       domain.Category{ID: "math", Name: "Math"},
				Difficulty:     domain.DifficultyEasy,
				Status:         domain.StatusActive,
				TimeLimit:      5,
				PassPercentage: 50,
				QuestionCount:  2,
			},
			Questions: []domain.Question{
				{
					ID:      "q1",
					Content: "What is 2 + 2?",
					Type:    domain.Single,
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
				},
				{
					ID:      "q2",
					Content: "Which numbers are even?",
					Type:    domain.Multiple,
					Options: []domain.Option{
						{ID: "o1", Text: "2", Correct: true},
						{ID: "o2", Text: "3"},
						{ID: "o3", Text: "4", Correct: true},
					},
				},
			},
		},
	}
}
