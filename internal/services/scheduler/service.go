// Package scheduler runs report fetches on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tenka/internal/common"
	"github.com/ternarybob/tenka/internal/models"
	"github.com/ternarybob/tenka/internal/services/jobs"
	"github.com/ternarybob/tenka/internal/services/orchestrator"
)

// Service triggers scheduled fetch runs. Each run is tracked as a job so its
// progress is visible through the same status endpoint as API-triggered runs.
type Service struct {
	cron           *cron.Cron
	orchestrator   *orchestrator.Service
	tracker        *jobs.Tracker
	logger         arbor.ILogger
	config         common.SchedulerConfig
	defaultTickers []string
}

// NewService creates a scheduler over the given orchestrator and tracker.
// defaultTickers is used when the schedule has no explicit ticker list.
func NewService(orch *orchestrator.Service, tracker *jobs.Tracker, config common.SchedulerConfig, defaultTickers []string, logger arbor.ILogger) *Service {
	return &Service{
		cron:           cron.New(),
		orchestrator:   orch,
		tracker:        tracker,
		logger:         logger,
		config:         config,
		defaultTickers: defaultTickers,
	}
}

// Start registers the cron entry and begins scheduling. No-op when the
// scheduler is disabled.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Debug().Msg("Scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, s.runOnce); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.config.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Int("tickers", len(s.config.Tickers)).
		Msg("Scheduler started")
	return nil
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

func (s *Service) runOnce() {
	tickers := common.NormalizeTickers(s.config.Tickers)
	if len(tickers) == 0 {
		tickers = common.NormalizeTickers(s.defaultTickers)
	}
	if len(tickers) == 0 {
		s.logger.Warn().Msg("Scheduled run skipped: no tickers configured")
		return
	}

	if err := orchestrator.EnsureOutputDir(s.config.OutputDir); err != nil {
		s.logger.Error().Err(err).Msg("Scheduled run skipped: output directory unavailable")
		return
	}

	job := s.tracker.Create(tickers)
	s.logger.Info().Str("job_id", job.ID).Msg("Scheduled fetch run starting")

	s.tracker.MarkRunning(job.ID)
	s.orchestrator.RunWithCallback(context.Background(), tickers, s.config.OutputDir, func(result models.FetchResult) {
		s.tracker.AppendResult(job.ID, result)
	})
	s.tracker.Complete(job.ID)

	final, err := s.tracker.Get(job.ID)
	if err != nil {
		return
	}
	s.logger.Info().
		Str("job_id", final.ID).
		Str("status", string(final.Status)).
		Int("successful", final.Successful).
		Int("failed", final.Failed).
		Msg("Scheduled fetch run finished")
}
