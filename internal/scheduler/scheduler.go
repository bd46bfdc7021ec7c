package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc is invoked once per scheduled evaluation day.
type TickFunc func(ctx context.Context, day time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	RunAt        string // daily wall-clock time, "HH:MM"
	StartupDelay time.Duration
}

// Scheduler drives the daily evaluation run at a fixed wall-clock time.
type Scheduler struct {
	hour   int
	minute int
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	at, err := time.Parse("15:04", opts.RunAt)
	if err != nil {
		panic("scheduler run_at must be HH:MM")
	}
	return &Scheduler{
		hour:   at.Hour(),
		minute: at.Minute(),
		opts:   opts,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run blocks, invoking the tick function once per day until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	for {
		next := s.NextRun(time.Now())
		timer := time.NewTimer(time.Until(next))
		s.logger.Debug().Time("next_run", next).Msg("waiting for next evaluation run")

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			timer.Stop()
		}

		day := next.Truncate(24 * time.Hour)
		s.logger.Info().Time("day", day).Msg("executing daily evaluation")

		if err := tick(ctx, day); err != nil {
			s.logger.Error().Err(err).Time("day", day).Msg("daily evaluation failed")
		}
	}
}

// NextRun computes the next wall-clock run strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
