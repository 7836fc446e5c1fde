package usecase

import (
	"context"
	"log/slog"
	"time"

	"ProblemScout/internal/ports"
)

// Scheduler wires the ticker driver with ingestion and the cluster digest.
type Scheduler struct {
	driver    ports.Scheduler
	ingestion *Ingestion
	insights  *Insights
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, ingestion *Ingestion, insights *Insights, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, ingestion: ingestion, insights: insights, logger: logger.With("component", "scheduler")}
}

// Start registers the ingestion run with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.ingestion == nil {
		return nil
	}

	return s.driver.Start(ctx, func(trigger time.Time) { s.RunOnce(ctx, trigger) })
}

// RunOnce ingests feeds and publishes a digest when new problems arrived.
func (s *Scheduler) RunOnce(ctx context.Context, trigger time.Time) {
	report, err := s.ingestion.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled ingestion failed", "trigger", trigger, "err", err)
		return
	}
	if report.Created == 0 || s.insights == nil {
		return
	}
	if err := s.insights.PublishDigest(ctx); err != nil {
		s.logger.Warn("digest delivery failed", "err", err)
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
