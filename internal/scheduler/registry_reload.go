package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/TremiDkhar/sitelink/internal/logger"
	"github.com/TremiDkhar/sitelink/internal/registry"
)

// Rebuilder is the registry operation the reloader drives.
type Rebuilder interface {
	Rebuild(ctx context.Context) (*registry.Snapshot, error)
}

// RegistryReloader rebuilds the registry periodically and on manual trigger,
// picking up records edited by other processes sharing the store.
type RegistryReloader struct {
	registry      Rebuilder
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	done          chan struct{}
	manualTrigger chan struct{}
}

// NewRegistryReloader creates a new registry reloader
func NewRegistryReloader(
	reg Rebuilder,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *RegistryReloader {
	return &RegistryReloader{
		registry:      reg,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		done:          make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start rebuilds once synchronously, then keeps rebuilding in the background.
func (rr *RegistryReloader) Start(ctx context.Context) error {
	if _, err := rr.registry.Rebuild(ctx); err != nil {
		return fmt.Errorf("initial registry rebuild failed: %w", err)
	}

	ticker := time.NewTicker(rr.interval)
	go func() {
		defer close(rr.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rr.reload(ctx)
			case <-rr.manualTrigger:
				rr.logger.Info("manual registry reload triggered")
				rr.reload(ctx)
			case <-rr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader and waits for the loop to exit.
func (rr *RegistryReloader) Stop() {
	close(rr.stopCh)
	<-rr.done
}

func (rr *RegistryReloader) reload(ctx context.Context) {
	if _, err := rr.registry.Rebuild(ctx); err != nil {
		// Keep serving the previous snapshot.
		rr.logger.Error("failed to rebuild registry", logger.Error(err))
	}
}
