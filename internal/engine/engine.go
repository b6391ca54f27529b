package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/batchworks/regrade/internal/batch"
	"github.com/batchworks/regrade/internal/clock/system"
	iduuid "github.com/batchworks/regrade/internal/id/uuid"
	"github.com/batchworks/regrade/internal/metrics"
	"github.com/batchworks/regrade/internal/monitor"
	"github.com/batchworks/regrade/internal/queue"
	"github.com/batchworks/regrade/internal/worker"
)

// State names one phase of a run's lifecycle.
type State string

// Run lifecycle states. Aborted and Cancelled are terminal alternatives to
// Completed: Aborted means the run never started processing, Cancelled means
// the context ended mid-run.
const (
	StateIdle      State = "idle"
	StateFetching  State = "fetching"
	StateRunning   State = "running"
	StateDraining  State = "draining"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
	StateCancelled State = "cancelled"
)

const (
	defaultProgressInterval = time.Second
	defaultHealthInterval   = 5 * time.Second
)

// Config controls one run.
type Config struct {
	Concurrency      int
	ProgressInterval time.Duration
	HealthInterval   time.Duration
	Flags            batch.RunFlags
}

// Engine composes the queue, pool, and monitors for a single run.
type Engine struct {
	cfg       Config
	source    batch.Source
	processor batch.Processor
	resources batch.ResourceProvider
	reporter  batch.Reporter
	clock     batch.Clock
	logger    *zap.Logger

	runID     string
	state     atomic.Value
	processed atomic.Int64
	total     atomic.Int64
	started   atomic.Bool
}

// Snapshot is a point-in-time view of a run, served by the status API.
type Snapshot struct {
	RunID     string `json:"run_id"`
	State     State  `json:"state"`
	Processed int64  `json:"processed"`
	Total     int64  `json:"total"`
}

// New validates the configuration and builds an Engine. Concurrency below
// one is rejected here, before the identifier source is ever consulted.
func New(
	cfg Config,
	source batch.Source,
	processor batch.Processor,
	resources batch.ResourceProvider,
	reporter batch.Reporter,
	logger *zap.Logger,
) (*Engine, error) {
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("%w, got %d", batch.ErrInvalidConcurrency, cfg.Concurrency)
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = defaultProgressInterval
	}
	if cfg.HealthInterval <= 0 {
		cfg.HealthInterval = defaultHealthInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	runID, err := iduuid.NewGenerator().NewID()
	if err != nil {
		return nil, fmt.Errorf("assign run id: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		source:    source,
		processor: processor,
		resources: resources,
		reporter:  reporter,
		clock:     system.New(),
		logger:    logger.With(zap.String("run_id", runID)),
		runID:     runID,
	}
	e.state.Store(StateIdle)
	return e, nil
}

// RunID returns the identifier assigned to this run.
func (e *Engine) RunID() string {
	return e.runID
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return e.state.Load().(State)
}

// Snapshot returns the current run counters and state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		RunID:     e.runID,
		State:     e.State(),
		Processed: e.processed.Load(),
		Total:     e.total.Load(),
	}
}

func (e *Engine) setState(s State) {
	e.state.Store(s)
	e.logger.Debug("state transition", zap.String("state", string(s)))
}

// Run executes the batch to completion. It blocks until every worker has
// exhausted the queue, then takes the final progress sample. Engines are
// single-use; a second call fails.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return errors.New("engine already run")
	}

	e.setState(StateFetching)
	ids, err := e.source.Fetch(ctx)
	if err != nil {
		e.setState(StateAborted)
		metrics.ObserveRun(string(StateAborted))
		srcErr := &batch.SourceError{Err: err}
		e.reporter.Error(srcErr.Error())
		return srcErr
	}

	e.total.Store(int64(len(ids)))
	e.reporter.Output(fmt.Sprintf("Processing %d items.", len(ids)))
	e.logger.Info("identifiers fetched",
		zap.Int("count", len(ids)),
		zap.Int("concurrency", e.cfg.Concurrency),
	)

	q := queue.New(ids)
	slots := worker.NewSlotTable(e.cfg.Concurrency)
	pool, err := worker.NewPool(e.cfg.Concurrency, worker.Deps{
		Queue:     q,
		Slots:     slots,
		Processed: &e.processed,
		Processor: e.processor,
		Resources: e.resources,
		Reporter:  e.reporter,
		Notify:    e.cfg.Flags.Notify,
		Logger:    e.logger,
	})
	if err != nil {
		e.setState(StateAborted)
		return err
	}

	progress := monitor.NewProgress(&e.processed, len(ids), e.cfg.ProgressInterval, e.reporter, e.clock)
	health := monitor.NewHealth(slots, e.cfg.HealthInterval, e.reporter)

	monCtx, stopMonitors := context.WithCancel(ctx)
	defer stopMonitors()

	var monWG sync.WaitGroup
	monWG.Add(2)
	go func() {
		defer monWG.Done()
		progress.Run(monCtx)
	}()
	go func() {
		defer monWG.Done()
		health.Run(monCtx)
	}()

	e.setState(StateRunning)
	pool.Run(ctx)
	e.setState(StateDraining)

	stopMonitors()
	monWG.Wait()

	if ctx.Err() != nil {
		e.setState(StateCancelled)
		metrics.ObserveRun(string(StateCancelled))
		e.reporter.Warn(fmt.Sprintf("Cancelled after %d / %d items.", e.processed.Load(), len(ids)))
		return fmt.Errorf("run cancelled: %w", ctx.Err())
	}

	// Final synchronous sample so the last partial interval is reported even
	// when completion falls between ticks.
	progress.Sample()

	e.setState(StateCompleted)
	metrics.ObserveRun(string(StateCompleted))
	e.reporter.Output(fmt.Sprintf("Completed %d items.", e.processed.Load()))
	e.logger.Info("run complete", zap.Int64("processed", e.processed.Load()))
	return nil
}
