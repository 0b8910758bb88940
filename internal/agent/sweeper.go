package agent

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically removes idle sessions from a store.
type Sweeper struct {
	store    *SessionStore
	maxIdle  time.Duration
	interval time.Duration
}

// NewSweeper creates a sweeper. A non-positive interval defaults to a
// quarter of maxIdle, with a one second floor.
func NewSweeper(store *SessionStore, maxIdle, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = max(maxIdle/4, time.Second)
	}
	return &Sweeper{
		store:    store,
		maxIdle:  maxIdle,
		interval: interval,
	}
}

// Start runs the sweep loop in a goroutine until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Sweeper) run(ctx context.Context) {
	slog.Info("session sweeper started", "interval", s.interval, "max_idle", s.maxIdle)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce removes idle sessions now and returns how many were removed.
func (s *Sweeper) SweepOnce() int {
	removed := s.store.Sweep(s.maxIdle)
	if len(removed) > 0 {
		slog.Info("idle sessions removed", "count", len(removed), "remaining", s.store.Len())
	}
	return len(removed)
}
