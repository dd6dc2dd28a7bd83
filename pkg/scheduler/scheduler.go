// Package scheduler fires a job at a fixed interval.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Job is the unit of work fired on every tick.
type Job func(ctx context.Context) error

// Config controls a Scheduler.
type Config struct {
	Enabled    bool
	Interval   time.Duration
	RunOnStart bool
}

// Scheduler invokes a Job every Interval. Firings never wait for earlier ones to
// finish, so two runs may overlap when a job outlasts the interval. A failing job is
// logged and the schedule continues.
type Scheduler struct {
	cfg    Config
	job    Job
	clock  clockwork.Clock
	logger *slog.Logger

	wg sync.WaitGroup
}

// New creates a Scheduler.
func New(cfg Config, job Job, clk clockwork.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		job:    job,
		clock:  clk,
		logger: logger,
	}
}

// Start runs the schedule until ctx is cancelled, then waits for in-flight jobs. It
// returns immediately when the schedule is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled || s.cfg.Interval <= 0 {
		s.logger.Info("alert schedule disabled")
		return nil
	}

	s.logger.Info("alert schedule started", "interval", s.cfg.Interval.String(), "run_on_start", s.cfg.RunOnStart)
	defer s.wg.Wait()

	if s.cfg.RunOnStart {
		s.fire(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("alert schedule stopped")
			return nil
		case <-s.clock.After(s.cfg.Interval):
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		started := s.clock.Now()
		if err := s.job(ctx); err != nil {
			s.logger.Error("scheduled job failed", "error", err)
			return
		}
		s.logger.Debug("scheduled job finished", "duration", s.clock.Now().Sub(started).String())
	}()
}
