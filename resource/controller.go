// Package resource bounds the concurrency and IO appetite of query
// evaluation, so that batch post-processing jobs sharing a node stay
// within their slice.
package resource

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxWorkers is the maximum number of concurrent query workers
	// (e.g. momentum points evaluated in parallel). If 0, defaults to
	// GOMAXPROCS.
	MaxWorkers int64

	// IOLimitBytesPerSec caps container read throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages worker slots and IO budget.
// A nil *Controller is valid and enforces nothing.
type Controller struct {
	workers   *semaphore.Weighted
	max       int64
	ioLimiter *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = int64(runtime.GOMAXPROCS(0))
	}

	c := &Controller{
		workers: semaphore.NewWeighted(cfg.MaxWorkers),
		max:     cfg.MaxWorkers,
	}
	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}
	return c
}

// MaxWorkers returns the configured worker bound.
func (c *Controller) MaxWorkers() int {
	if c == nil {
		return runtime.GOMAXPROCS(0)
	}
	return int(c.max)
}

// AcquireWorker reserves a worker slot, blocking until one is free or ctx
// is canceled.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.workers.Acquire(ctx, 1)
}

// ReleaseWorker releases a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// AcquireIO waits until the IO budget allows reading the given number of
// bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	// WaitN cannot exceed the burst; split large reads.
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
