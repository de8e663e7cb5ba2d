package video

import (
	"context"
	"time"

	"clipshare/internal/pkg/logger"
)

// ShareCleaner periodically removes expired share links. Expired links
// already fail to resolve; this only keeps the table small.
type ShareCleaner struct {
	shares *ShareService
	log    logger.Logger
}

func NewShareCleaner(shares *ShareService, l logger.Logger) *ShareCleaner {
	if l == nil {
		l = logger.NewNop()
	}
	return &ShareCleaner{shares: shares, log: l}
}

// RunOnce sweeps once and logs the result.
func (c *ShareCleaner) RunOnce(ctx context.Context) (int64, error) {
	startTime := time.Now()

	deleted, err := c.shares.Sweep(ctx)
	if err != nil {
		c.log.Error("share link cleanup failed", "error", err)
		return 0, err
	}

	c.log.Info("share link cleanup completed", "deleted", deleted, "duration", time.Since(startTime))
	return deleted, nil
}

// Schedule starts a background sweep every interval. It stops when ctx is
// done or the returned channel is closed.
func (c *ShareCleaner) Schedule(ctx context.Context, interval time.Duration) chan struct{} {
	stopCh := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, _ = c.RunOnce(ctx)
			case <-stopCh:
				c.log.Info("share link cleanup stopped")
				return
			case <-ctx.Done():
				c.log.Info("share link cleanup stopped", "reason", ctx.Err())
				return
			}
		}
	}()

	c.log.Info("share link cleanup scheduled", "interval", interval)
	return stopCh
}
