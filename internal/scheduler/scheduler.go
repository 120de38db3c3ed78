package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"go-ledger/internal/config"
	"go-ledger/internal/features/staging"
)

// Scheduler runs the recurring maintenance work: purging staged sessions
// that were never committed or discarded.
type Scheduler struct {
	cron    *cron.Cron
	cfg     *config.Config
	staging staging.StagingService
	logger  *zap.Logger
}

func NewScheduler(cfg *config.Config, stagingService staging.StagingService, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		cfg:     cfg,
		staging: stagingService,
		logger:  logger,
	}
}

// Start registers the cleanup job and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.cfg.CleanupCron, func() {
		removed, err := s.staging.CleanupStale(context.Background())
		if err != nil {
			s.logger.Error("stale staging cleanup failed", zap.Error(err))
			return
		}
		if removed > 0 {
			s.logger.Info("purged stale staging sessions", zap.Int("count", removed))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cleanup scheduler started", zap.String("schedule", s.cfg.CleanupCron))
	return nil
}

// Stop halts the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}
