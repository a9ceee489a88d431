// Package scheduler triggers a job once an hour at a fixed minute and second.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ytrends/internal/logger"
)

// ErrInvalidSchedule is returned for offsets outside 0..59.
var ErrInvalidSchedule = errors.New("invalid hourly schedule")

// Job is invoked on every tick.
type Job func(ctx context.Context) error

// Hourly fires at Minute:Second past every hour, like the cron expression
// "Second Minute * * * *".
type Hourly struct {
	Minute int
	Second int
}

// Validate checks that both offsets are in range.
func (h Hourly) Validate() error {
	if h.Minute < 0 || h.Minute > 59 || h.Second < 0 || h.Second > 59 {
		return fmt.Errorf("%w: minute=%d second=%d", ErrInvalidSchedule, h.Minute, h.Second)
	}

	return nil
}

// Next returns the first firing time strictly after t, in t's location.
func (h Hourly) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), h.Minute, h.Second, 0, t.Location())
	if !next.After(t) {
		next = next.Add(time.Hour)
	}

	return next
}

// String renders the schedule as a six-field cron expression.
func (h Hourly) String() string {
	return fmt.Sprintf("%d %d * * * *", h.Second, h.Minute)
}

// Options tunes the scheduler.
type Options struct {
	// PastDue is how late a tick may fire before it is logged as past due.
	PastDue    time.Duration
	RunOnStart bool
}

// Scheduler runs a job on an Hourly schedule until its context ends.
type Scheduler struct {
	logger   *logger.Logger
	now      func() time.Time
	after    func(time.Duration) <-chan time.Time
	schedule Hourly
	opts     Options
}

// New creates a scheduler.
func New(schedule Hourly, opts Options, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}

	return &Scheduler{
		logger:   log,
		now:      time.Now,
		after:    time.After,
		schedule: schedule,
		opts:     opts,
	}
}

// Run blocks until ctx is done, invoking job on every tick. Job errors are
// logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	if err := s.schedule.Validate(); err != nil {
		return err
	}

	s.logger.Info("scheduler started", "schedule", s.schedule.String(), "run_on_startup", s.opts.RunOnStart)

	if s.opts.RunOnStart {
		s.invoke(ctx, job, "startup")
	}

	for {
		next := s.schedule.Next(s.now())
		s.logger.Debug("next tick scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case fired := <-s.after(next.Sub(s.now())):
			if late := fired.Sub(next); s.opts.PastDue > 0 && late > s.opts.PastDue {
				s.logger.Warn("the timer is past due", "scheduled", next.Format(time.RFC3339), "late", late.String())
			}

			s.invoke(ctx, job, "timer")
		}
	}
}

func (s *Scheduler) invoke(ctx context.Context, job Job, trigger string) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	s.logger.Info("job triggered", "trigger", trigger)

	if err := job(ctx); err != nil {
		s.logger.Error("job failed", "trigger", trigger, "error", err)
		return
	}

	s.logger.Info("job finished", "trigger", trigger, "duration", time.Since(start).String())
}
