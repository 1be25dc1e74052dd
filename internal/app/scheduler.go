package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StatusRefresher is what the scheduler drives once per period.
type StatusRefresher interface {
	RefreshStatuses(ctx context.Context) error
}

// Scheduler runs the activity status sweep on a fixed period. It is safe to
// interleave with reservations: the sweep takes no locks and every transition
// it writes is idempotent.
type Scheduler struct {
	refresher StatusRefresher
	period    time.Duration
	logger    zerolog.Logger
}

func NewScheduler(refresher StatusRefresher, period time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{refresher: refresher, period: period, logger: logger}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	if err := s.refresher.RefreshStatuses(ctx); err != nil {
		s.logger.Error().Err(err).Msg("activity status sweep failed")
	}
}
