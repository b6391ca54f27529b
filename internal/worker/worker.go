// Package worker implements the claim loop and the fixed-size pool that
// drains the shared queue.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/batchworks/regrade/internal/batch"
	"github.com/batchworks/regrade/internal/metrics"
	"github.com/batchworks/regrade/internal/queue"
)

// Worker repeatedly claims one identifier from the shared queue and runs the
// processor on it. A failing item is reported and skipped; the loop only
// stops when the queue is empty or the context ends. Each worker owns one
// resource handle for its whole lifetime.
type Worker struct {
	index     int
	queue     *queue.Queue
	slots     *SlotTable
	processed *atomic.Int64
	processor batch.Processor
	resources batch.ResourceProvider
	reporter  batch.Reporter
	notify    bool
	logger    *zap.Logger
}

// Run drains the queue. It returns nil once the queue is empty, the context
// error if the run was cancelled, or the acquire error if the worker never
// obtained its resource handle.
func (w *Worker) Run(ctx context.Context) error {
	res, err := w.resources.Acquire(ctx)
	if err != nil {
		w.reporter.Error(fmt.Sprintf("worker %d: acquire resource: %v", w.index, err))
		return fmt.Errorf("worker %d acquire resource: %w", w.index, err)
	}
	defer res.Release()

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		id, ok := w.queue.TryClaim()
		if !ok {
			return nil
		}
		w.slots.Set(w.index, id)
		w.processOne(ctx, id, res)
		w.slots.Clear(w.index)
	}
}

// processOne attempts a single claimed identifier. ProcessedCount is bumped
// exactly once per claim no matter how the attempt ends.
func (w *Worker) processOne(ctx context.Context, id batch.Identifier, res batch.Resource) {
	defer w.processed.Add(1)

	start := time.Now()
	if err := w.invoke(ctx, id, res); err != nil {
		metrics.ObserveItem("failed", time.Since(start))
		w.reporter.Error(fmt.Sprintf("item %d: %v", id, err))
		w.logger.Warn("item failed", zap.Int64("id", int64(id)), zap.Error(err))
		return
	}
	metrics.ObserveItem("ok", time.Since(start))
	w.reporter.Verbose(fmt.Sprintf("item %d done", id))
}

// invoke runs Process plus the optional Notify, converting panics to errors
// so a misbehaving processor cannot take the worker down with it.
func (w *Worker) invoke(ctx context.Context, id batch.Identifier, res batch.Resource) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()

	if err := w.processor.Process(ctx, id, res); err != nil {
		return err
	}
	if w.notify {
		if err := w.processor.Notify(ctx, id, res); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}
	return nil
}
