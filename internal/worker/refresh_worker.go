// Package worker contains the background refresh loop that keeps the cached
// movement view warm so dashboard requests rarely pay for a full rebuild.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/movement-scanner/internal/logging"
	"github.com/movement-scanner/internal/ratelimit"
	"github.com/movement-scanner/internal/types"
)

// Refresher rebuilds the cached view for a chain selection
type Refresher interface {
	Refresh(ctx context.Context, chains []types.ChainID) error
}

// RefreshWorker periodically refreshes the aggregated movement view
type RefreshWorker struct {
	refresher Refresher
	chains    []types.ChainID
	interval  time.Duration
	logger    *logging.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefreshWorker creates a refresh worker
func NewRefreshWorker(refresher Refresher, chains []types.ChainID, interval time.Duration, logger *logging.Logger) (*RefreshWorker, error) {
	if refresher == nil {
		return nil, fmt.Errorf("refresher cannot be nil")
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("at least one chain is required")
	}
	if interval < 10*time.Second {
		return nil, fmt.Errorf("refresh interval must be at least 10 seconds, got %v", interval)
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &RefreshWorker{
		refresher: refresher,
		chains:    chains,
		interval:  interval,
		logger:    logger,
	}, nil
}

// Start begins the refresh loop. It refreshes once immediately so the cache
// is warm before the first request, then ticks on the interval.
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("refresh worker already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.WithFields(map[string]interface{}{
		"interval": w.interval.String(),
		"chains":   len(w.chains),
	}).Info("Starting refresh worker")

	go w.run(ctx)
	return nil
}

// Stop signals the loop to exit and waits for it to finish
func (w *RefreshWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.logger.Info("Refresh worker stopped")
}

// IsRunning reports whether the loop is active
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *RefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.refreshOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.refreshOnce(ctx)
		}
	}
}

// refreshOnce runs one refresh cycle. A failed cycle is logged and the loop
// keeps going; the next tick gets another chance.
func (w *RefreshWorker) refreshOnce(ctx context.Context) {
	// Background fetches draw from the shared credit pool so interactive
	// requests keep their reserve
	cycleCtx, cancel := context.WithTimeout(ratelimit.WithPriority(ctx, ratelimit.PriorityBackground), w.interval)
	defer cancel()

	start := time.Now()
	if err := w.refresher.Refresh(cycleCtx, w.chains); err != nil {
		w.logger.WithError(err).Warn("Refresh cycle failed")
		return
	}

	w.logger.WithField("duration", time.Since(start).String()).Debug("Refresh cycle complete")
}
