// Package monitor implements the periodic progress and health samplers that
// run alongside the worker pool. Both observe shared state without ever
// blocking a worker.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/batchworks/regrade/internal/batch"
)

// Progress samples the shared processed counter on a fixed interval and
// reports throughput since the previous sample.
type Progress struct {
	processed *atomic.Int64
	total     int
	interval  time.Duration
	reporter  batch.Reporter
	clock     batch.Clock

	mu       sync.Mutex
	baseline int64
	lastAt   time.Time
}

// NewProgress builds a progress sampler. The baseline starts at zero so the
// first tick reports everything processed since the run began.
func NewProgress(processed *atomic.Int64, total int, interval time.Duration, reporter batch.Reporter, clk batch.Clock) *Progress {
	return &Progress{
		processed: processed,
		total:     total,
		interval:  interval,
		reporter:  reporter,
		clock:     clk,
		lastAt:    clk.Now(),
	}
}

// Run samples on every tick until the context ends.
func (p *Progress) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sample()
		}
	}
}

// Sample reports progress since the previous sample and advances the
// baseline. The engine also calls it once, synchronously, after the pool
// drains so the last partial interval is never lost.
func (p *Progress) Sample() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	count := p.processed.Load()
	delta := count - p.baseline
	rate := float64(delta)
	if elapsed := now.Sub(p.lastAt).Seconds(); elapsed > 0 {
		rate = float64(delta) / elapsed
	}
	p.baseline = count
	p.lastAt = now

	p.reporter.Output(fmt.Sprintf("Processed %d / %d (%.0f/sec)", count, p.total, rate))
}
