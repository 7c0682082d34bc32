// Package scheduler is the implementation of the trigger component for daemon mode.
// It fires the pipeline on a fixed cron schedule. Runs never overlap: a firing is
// skipped while a previous run is still in flight, and a failed run is not retried,
// the next firing starts from scratch.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zuehlke/orgdata-sync/internal/constants"
	"github.com/zuehlke/orgdata-sync/internal/pipeline"
)

// Runner is the pipeline entry point invoked on every trigger.
type Runner func(ctx context.Context, trigger pipeline.TriggerEvent) error

// Config represents the scheduler specific data needed to run the daemon.
type Config struct {
	Schedule   string
	RunOnStart bool
}

// Sanitize sets defaults and checks that the Config is properly configured.
func (c *Config) Sanitize(l *slog.Logger) error {
	if c.Schedule == "" {
		c.Schedule = constants.DefaultSchedule
		l.Info("No schedule provided, defaulting to", "schedule", c.Schedule)
	}

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %v", c.Schedule, err)
	}
	return nil
}

// Scheduler fires a Runner on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	runOnStart bool
	runner     Runner

	running atomic.Bool

	log *slog.Logger
}

// New returns a new Scheduler invoking runner per the configured schedule.
func New(l *slog.Logger, c Config, runner Runner) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if err := c.Sanitize(l); err != nil {
		return nil, err
	}

	return &Scheduler{
		cron:       cron.New(),
		schedule:   c.Schedule,
		runOnStart: c.RunOnStart,
		runner:     runner,
		log:        l,
	}, nil
}

// Run blocks, firing the runner per the schedule, until ctx is cancelled.
// A run still in flight at cancellation is waited for.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.fire(ctx, pipeline.NewTrigger(pipeline.OriginScheduled, time.Now().UTC()))
	}); err != nil {
		return fmt.Errorf("failed to register schedule %q: %v", s.schedule, err)
	}

	if s.runOnStart {
		s.fire(ctx, pipeline.NewTrigger(pipeline.OriginManual, time.Time{}))
	}

	s.log.Info("Scheduler started", "schedule", s.schedule)
	s.cron.Start()
	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	s.log.Info("Scheduler stopped")
	return nil
}

// fire runs the pipeline once, skipping the firing when a run is still in flight.
// Run errors are logged, not fatal: the next firing is the retry.
func (s *Scheduler) fire(ctx context.Context, trigger pipeline.TriggerEvent) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("Previous run still in flight, skipping trigger", "run", trigger.ID, "origin", trigger.Origin)
		return
	}
	defer s.running.Store(false)

	if err := s.runner(ctx, trigger); err != nil {
		s.log.Error("Scheduled run failed", "run", trigger.ID, "error", err)
	}
}
