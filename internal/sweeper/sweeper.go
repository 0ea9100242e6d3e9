package sweeper

import (
	"context"
	"log"
	"time"

	"chair-reservation-backend/config"
	"chair-reservation-backend/internal/clock"
)

// Pruner drops expired reservations from the in-memory set.
type Pruner interface {
	PruneExpired(now time.Time) int
}

// Purger deletes stored reservations that ended before cutoff.
type Purger interface {
	PurgeReservationsEndedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service periodically clears out reservations that have ended.
type Service struct {
	cfg    config.SweeperConfig
	pruner Pruner
	purger Purger
	clock  clock.Clock
}

func NewService(cfg config.SweeperConfig, pruner Pruner, purger Purger, c clock.Clock) *Service {
	return &Service{cfg: cfg, pruner: pruner, purger: purger, clock: c}
}

// Run sweeps once, then every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Sweeper is disabled. Not starting.")
		return
	}
	log.Println("Starting sweeper...")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sweeper shutting down.")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SweepOnce prunes expired reservations from memory and deletes stored rows
// older than the retention window. Stored rows inside the window are kept as
// history.
func (s *Service) SweepOnce(ctx context.Context) (pruned int, purged int64) {
	now := s.clock.Now()
	pruned = s.pruner.PruneExpired(now)

	if s.cfg.Retention > 0 {
		var err error
		purged, err = s.purger.PurgeReservationsEndedBefore(ctx, now.Add(-s.cfg.Retention))
		if err != nil {
			log.Printf("Error purging old reservations: %v", err)
		}
	}

	if pruned > 0 || purged > 0 {
		log.Printf("Sweep finished: %d expired, %d purged", pruned, purged)
	}
	return pruned, purged
}
