package nonce

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically removes expired and long-consumed nonce records
// so the store's memory stays bounded.
type Sweeper struct {
	store    Store
	logger   *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(store Store, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("nonce sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("nonce sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	removed, err := s.store.Sweep(sweepCtx)
	if err != nil {
		s.logger.Error("nonce sweep failed", zap.Error(err))
		return
	}
	if removed > 0 {
		s.logger.Info("nonce sweep completed", zap.Int("removed", removed))
	}
}

// Stop signals the sweeper to stop.
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
