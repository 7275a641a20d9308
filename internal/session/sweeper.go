package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/wanel/kyxgate/internal/metrics"
)

// DefaultSweepInterval matches the reference service's cleanup schedule.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper periodically evicts expired sessions from the store.
type Sweeper struct {
	store    Store
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
}

// NewSweeper creates a sweeper over the given store. A non-positive
// interval falls back to the default.
func NewSweeper(store Store, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one eviction pass and returns the number of sessions removed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	removed, err := s.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return 0
	}
	if removed > 0 {
		metrics.SessionsSweptTotal.Add(float64(removed))
		s.logger.Info("swept expired sessions", "removed", removed)
	}
	return removed
}

// Stop signals the sweeper to stop.
func (s *Sweeper) Stop() {
	select {
	case s.stop <- struct{}{}:
	default:
	}
}
