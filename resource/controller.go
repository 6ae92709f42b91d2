// Package resource throttles the background work an index performs:
// concurrent snapshot transfers and their IO throughput.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits. Zero values mean unlimited, except for
// MaxConcurrentSnapshots which defaults to 1.
type Config struct {
	// MaxConcurrentSnapshots caps concurrent snapshot save/load jobs.
	MaxConcurrentSnapshots int64

	// IOLimitBytesPerSec caps snapshot transfer throughput.
	IOLimitBytesPerSec int64
}

// Controller enforces the configured limits. A nil Controller is valid
// and enforces nothing.
type Controller struct {
	snapSem   *semaphore.Weighted
	ioLimiter *rate.Limiter
}

// NewController creates a controller for the given limits.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentSnapshots <= 0 {
		cfg.MaxConcurrentSnapshots = 1
	}

	c := &Controller{
		snapSem: semaphore.NewWeighted(cfg.MaxConcurrentSnapshots),
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireSnapshot reserves a snapshot job slot, blocking until one is
// free or ctx is canceled.
func (c *Controller) AcquireSnapshot(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.snapSem.Acquire(ctx, 1)
}

// ReleaseSnapshot returns a snapshot job slot.
func (c *Controller) ReleaseSnapshot() {
	if c == nil {
		return
	}
	c.snapSem.Release(1)
}

// AcquireIO waits until the IO limit admits the given number of bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	// WaitN cannot exceed the burst; split large transfers.
	burst := c.ioLimiter.Burst()
	for bytes > 0 {
		n := bytes
		if n > burst {
			n = burst
		}
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
