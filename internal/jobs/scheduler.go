package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/farm-ledger/internal/logger"
	"github.com/robfig/cron/v3"
)

// TaskFunc is a scheduled task.
type TaskFunc func(ctx context.Context) error

// Scheduler runs named tasks on cron schedules in a fixed location.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	timeout time.Duration
}

// NewScheduler creates a scheduler whose specs are read in loc. Each run gets a
// context derived from ctx bounded by timeout.
func NewScheduler(ctx context.Context, loc *time.Location, timeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		ctx:     ctx,
		timeout: timeout,
	}
}

// Add schedules task under name.
func (s *Scheduler) Add(name, spec string, task TaskFunc) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runTask(name, task)
	})
	if err != nil {
		return fmt.Errorf("Add: unable to schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

func (s *Scheduler) runTask(name string, task TaskFunc) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	log := logger.FromContext(ctx).With().Str("task", name).Logger()
	start := time.Now()
	if err := task(logger.WithContext(ctx, log)); err != nil {
		log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Scheduled task failed")
		return
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("Scheduled task finished")
}

// Len returns the number of scheduled tasks.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log := logger.FromContext(s.ctx)
	log.Info().Int("tasks", s.Len()).Msg("Scheduler started")
}

// Stop stops scheduling and waits for running tasks until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
