package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RunSweeper discards stale attempts on the given cron schedule until ctx is done.
func (s *QuizService) RunSweeper(ctx context.Context, schedule string, retention time.Duration) error {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(schedule, func() {
		if n := s.Sweep(ctx, retention); n > 0 {
			s.logger.Info("swept attempts", zap.Int("dropped", n))
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	s.logger.Info("session sweeper started", zap.String("schedule", schedule), zap.Duration("retention", retention))

	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("session sweeper stopped")
	return nil
}
