// Package cron schedules the batch engines. Every job runs per tenant:
// a panic or error in one tenant is contained there and the loop moves on.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron with named jobs, timing logs and panic
// recovery, so a misbehaving job cannot take the scheduler down.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
	jobs   map[string]func(ctx context.Context)
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
		jobs:   map[string]func(ctx context.Context){},
	}
}

// AddJob registers fn under a standard 5-field cron spec.
func (s *Scheduler) AddJob(name, spec string, fn func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.run(context.Background(), name, fn)
	})
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}
	s.jobs[name] = fn
	return nil
}

// RunOnce triggers a registered job outside its schedule.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	fn, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %s", name)
	}
	s.run(ctx, name, fn)
	return nil
}

func (s *Scheduler) run(ctx context.Context, name string, fn func(ctx context.Context)) {
	started := time.Now()
	s.logger.Info("job started", slog.String("job", name))

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked",
				slog.String("job", name),
				slog.Any("panic", r),
			)
			return
		}
		s.logger.Info("job finished",
			slog.String("job", name),
			slog.Duration("elapsed", time.Since(started)),
		)
	}()

	fn(ctx)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts scheduling and waits for running jobs to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
