package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsFlow/internal/ports"
)

// RunScheduler wires the recurring-trigger driver with the orchestrator.
type RunScheduler struct {
	driver       ports.Scheduler
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewRunScheduler returns a helper to start/stop recurring runs.
func NewRunScheduler(driver ports.Scheduler, orchestrator *Orchestrator, logger *slog.Logger) *RunScheduler {
	return &RunScheduler{driver: driver, orchestrator: orchestrator, logger: logger}
}

// Start registers the orchestrator run with the provided scheduler.
func (s *RunScheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.orchestrator == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.orchestrator.Run(ctx); err != nil && s.logger != nil {
			s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *RunScheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
