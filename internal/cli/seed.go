package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizhub-service/internal/config"
	"quizhub-service/internal/infra/memory"
	"quizhub-service/internal/infra/postgres"
	"quizhub-service/internal/logger"
)

// NewSeedCmd loads a YAML quiz catalog into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert quizzes from a YAML catalog into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Env)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if file == "" {
				file = cfg.Quiz.CatalogFile
			}
			catalog := memory.SampleCatalog()
			if file != "" {
				if catalog, err = memory.LoadCatalogFile(file); err != nil {
					return err
				}
			}

			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			for _, entry := range catalog {
				if err := postgres.SeedQuiz(cmd.Context(), db, entry.Quiz, entry.Questions); err != nil {
					return fmt.Errorf("seed %s: %w", entry.Quiz.ID, err)
				}
				log.Info("quiz seeded", zap.String("quiz_id", entry.Quiz.ID), zap.Int("questions", len(entry.Questions)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog file (defaults to quiz.catalog_file, then the built-in sample)")
	return cmd
}
