// Package resource bounds the cost of eager population.
//
// Filling a huge-page region is an up-front copy proportional to file size.
// The controller caps how many populations run at once and, optionally, the
// read throughput they consume, so a burst of large mappings cannot starve
// the rest of the process.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds population limits. Zero values disable the corresponding limit.
type Config struct {
	// MaxConcurrentLoads is the maximum number of populations in flight.
	MaxConcurrentLoads int64

	// IOLimitBytesPerSec caps the aggregate read throughput of populations.
	IOLimitBytesPerSec int64
}

// Controller manages population admission. A nil Controller disables all
// limits; every method is nil-receiver safe.
type Controller struct {
	loadSem   *semaphore.Weighted // nil if unlimited
	ioLimiter *rate.Limiter       // nil if unlimited
}

// NewController creates a controller for the given limits. Returns nil when
// no limit is configured.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentLoads <= 0 && cfg.IOLimitBytesPerSec <= 0 {
		return nil
	}
	c := &Controller{}
	if cfg.MaxConcurrentLoads > 0 {
		c.loadSem = semaphore.NewWeighted(cfg.MaxConcurrentLoads)
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// AcquireLoad blocks until a population slot is available.
func (c *Controller) AcquireLoad(ctx context.Context) error {
	if c == nil || c.loadSem == nil {
		return nil
	}
	return c.loadSem.Acquire(ctx, 1)
}

// ReleaseLoad returns a population slot.
func (c *Controller) ReleaseLoad() {
	if c == nil || c.loadSem == nil {
		return
	}
	c.loadSem.Release(1)
}

// WaitIO blocks until n bytes of read budget are available. Requests larger
// than the limiter burst are consumed in burst-sized pieces.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.ioLimiter == nil || n <= 0 {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for n > 0 {
		take := n
		if take > burst {
			take = burst
		}
		if err := c.ioLimiter.WaitN(ctx, take); err != nil {
			return err
		}
		n -= take
	}
	return nil
}
