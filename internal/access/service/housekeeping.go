package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/botforge/botforge/internal/access/store"
)

// HousekeepingService periodically sweeps sessions whose expiry has passed,
// transitioning them to expired in bulk. The sweep is idempotent and safe to
// run from multiple instances at once.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 5 minutes.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker. Blocks until any
// in-progress sweep has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep expires every active session past its expiry in one bulk statement.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	n, err := s.Store.Sessions().ExpireSessionsBefore(ctx, time.Now().UTC())
	if err != nil {
		s.Logger.Error("session expiry sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.Logger.Info("session expiry sweep completed", "expired", n)
	}
}
