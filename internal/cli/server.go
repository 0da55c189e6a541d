package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quizhub-service/internal/app"
	"quizhub-service/internal/config"
	"quizhub-service/internal/infra/memory"
	pgstore "quizhub-service/internal/infra/postgres"
	redisstore "quizhub-service/internal/infra/redis"
	"quizhub-service/internal/infra/restapi"
	"quizhub-service/internal/logger"
	"quizhub-service/internal/session"
	transport "quizhub-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" && cfg.Backend.URL == "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	service, cleanup, err := buildService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		retention := config.TTLDuration(cfg.Session.Retention, 30*time.Minute)
		if err := service.RunSweeper(sweepCtx, cfg.SweepSchedule(), retention); err != nil {
			log.Error("session sweeper failed", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewHandler(service, log).Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	stopSweeper()
	<-sweeperDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildService picks the quiz source, session store and submission store from cfg.
// A remote backend wins over Postgres, which wins over the YAML catalog.
func buildService(ctx context.Context, cfg config.Config, log *zap.Logger) (*app.QuizService, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = redisClient.Close() })
	}

	var (
		loader  session.QuizSource
		remote  *restapi.Client
		pool    *pgxpool.Pool
		catalog []memory.CatalogQuiz
		err     error
	)
	switch {
	case cfg.Backend.URL != "":
		remote, err = restapi.New(cfg.Backend.URL, config.TTLDuration(cfg.Backend.Timeout, 10*time.Second), log)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		loader = remote
		log.Info("using remote quiz backend", zap.String("url", cfg.Backend.URL))
	case cfg.Postgres.URL != "":
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		loader = pgstore.NewQuizLoader(pool)
	default:
		catalog = memory.SampleCatalog()
		if cfg.Quiz.CatalogFile != "" {
			if catalog, err = memory.LoadCatalogFile(cfg.Quiz.CatalogFile); err != nil {
				cleanup()
				return nil, nil, err
			}
		}
		loader = memory.NewStaticQuizLoader(catalog)
		log.Info("using static quiz catalog", zap.Int("quizzes", len(catalog)))
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizzes session.QuizSource
	if redisClient != nil {
		quizzes = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}

	var submissions app.SubmissionRepository
	switch {
	case remote != nil:
		submissions = remote
	case pool != nil:
		submissions = pgstore.NewSubmissionStore(pool, quizzes)
	default:
		submissions = memory.NewSubmissionStore(quizzes)
	}

	return app.NewQuizService(store, quizzes, submissions, app.WithLogger(log)), cleanup, nil
}
