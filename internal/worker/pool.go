package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/batchworks/regrade/internal/batch"
	"github.com/batchworks/regrade/internal/queue"
)

// Deps bundles the shared collaborators every worker in a pool uses.
type Deps struct {
	Queue     *queue.Queue
	Slots     *SlotTable
	Processed *atomic.Int64
	Processor batch.Processor
	Resources batch.ResourceProvider
	Reporter  batch.Reporter
	Notify    bool
	Logger    *zap.Logger
}

// Pool owns a fixed set of workers over one shared queue.
type Pool struct {
	workers []*Worker
	logger  *zap.Logger
}

// NewPool builds a pool of exactly concurrency workers. Construction fails
// before any worker exists when concurrency is below one.
func NewPool(concurrency int, deps Deps) (*Pool, error) {
	if concurrency < 1 {
		return nil, fmt.Errorf("%w, got %d", batch.ErrInvalidConcurrency, concurrency)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := make([]*Worker, concurrency)
	for i := range workers {
		workers[i] = &Worker{
			index:     i,
			queue:     deps.Queue,
			slots:     deps.Slots,
			processed: deps.Processed,
			processor: deps.Processor,
			resources: deps.Resources,
			reporter:  deps.Reporter,
			notify:    deps.Notify,
			logger:    logger.With(zap.Int("worker", i)),
		}
	}
	return &Pool{workers: workers, logger: logger}, nil
}

// Size reports the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Run starts every worker concurrently and blocks until all of them have
// observed an empty queue (or the context ended).
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range p.workers {
		wg.Add(1)
		go func(wk *Worker) {
			defer wg.Done()
			if err := wk.Run(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("worker exited early", zap.Int("worker", wk.index), zap.Error(err))
			}
		}(w)
	}
	wg.Wait()
}
