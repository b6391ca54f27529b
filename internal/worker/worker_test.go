package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/batchworks/regrade/internal/batch"
	"github.com/batchworks/regrade/internal/queue"
	"github.com/batchworks/regrade/internal/report"
)

type fakeResource struct {
	released atomic.Int64
}

func (r *fakeResource) Release() {
	r.released.Add(1)
}

type fakeProvider struct {
	mu         sync.Mutex
	acquired   []*fakeResource
	acquireErr error
}

func (p *fakeProvider) Acquire(context.Context) (batch.Resource, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	res := &fakeResource{}
	p.acquired = append(p.acquired, res)
	return res, nil
}

type fakeProcessor struct {
	mu        sync.Mutex
	processed []batch.Identifier
	notified  []batch.Identifier
	failOn    map[batch.Identifier]error
	panicOn   batch.Identifier
	notifyErr error
}

func (p *fakeProcessor) Process(_ context.Context, id batch.Identifier, _ batch.Resource) error {
	if id == p.panicOn && id != 0 {
		panic("bad item")
	}
	p.mu.Lock()
	p.processed = append(p.processed, id)
	p.mu.Unlock()
	if err, ok := p.failOn[id]; ok {
		return err
	}
	return nil
}

func (p *fakeProcessor) Notify(_ context.Context, id batch.Identifier, _ batch.Resource) error {
	if p.notifyErr != nil {
		return p.notifyErr
	}
	p.mu.Lock()
	p.notified = append(p.notified, id)
	p.mu.Unlock()
	return nil
}

func (p *fakeProcessor) processedIDs() []batch.Identifier {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]batch.Identifier(nil), p.processed...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type recordingReporter struct {
	mu     sync.Mutex
	errors []string
}

func (r *recordingReporter) Output(string)  {}
func (r *recordingReporter) Warn(string)    {}
func (r *recordingReporter) Verbose(string) {}

func (r *recordingReporter) Error(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, line)
}

func (r *recordingReporter) errorLines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func ids(n int) []batch.Identifier {
	out := make([]batch.Identifier, n)
	for i := range out {
		out[i] = batch.Identifier(i + 1)
	}
	return out
}

func newDeps(q *queue.Queue, proc *fakeProcessor, prov *fakeProvider, rep batch.Reporter, n int, notify bool) (Deps, *atomic.Int64) {
	var processed atomic.Int64
	return Deps{
		Queue:     q,
		Slots:     NewSlotTable(n),
		Processed: &processed,
		Processor: proc,
		Resources: prov,
		Reporter:  rep,
		Notify:    notify,
		Logger:    zap.NewNop(),
	}, &processed
}

func TestPoolRejectsInvalidConcurrency(t *testing.T) {
	t.Parallel()

	for _, c := range []int{0, -3} {
		_, err := NewPool(c, Deps{})
		require.ErrorIs(t, err, batch.ErrInvalidConcurrency)
	}
}

func TestPoolProcessesEveryIdentifierExactlyOnce(t *testing.T) {
	t.Parallel()

	const total = 500
	const concurrency = 8

	proc := &fakeProcessor{}
	prov := &fakeProvider{}
	q := queue.New(ids(total))
	deps, processed := newDeps(q, proc, prov, report.Nop{}, concurrency, false)

	pool, err := NewPool(concurrency, deps)
	require.NoError(t, err)
	pool.Run(context.Background())

	require.Equal(t, int64(total), processed.Load())
	require.Equal(t, ids(total), proc.processedIDs())
	require.Equal(t, 0, q.Remaining())
}

func TestWorkerIsolatesFailingItem(t *testing.T) {
	t.Parallel()

	const total = 50
	failing := batch.Identifier(17)

	proc := &fakeProcessor{failOn: map[batch.Identifier]error{failing: errors.New("unsolvable")}}
	prov := &fakeProvider{}
	rep := &recordingReporter{}
	q := queue.New(ids(total))
	deps, processed := newDeps(q, proc, prov, rep, 4, false)

	pool, err := NewPool(4, deps)
	require.NoError(t, err)
	pool.Run(context.Background())

	require.Equal(t, int64(total), processed.Load())
	require.Equal(t, ids(total), proc.processedIDs())

	lines := rep.errorLines()
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], fmt.Sprintf("item %d", failing))
	require.Contains(t, lines[0], "unsolvable")
}

func TestWorkerCountsEveryItemWhenAllFail(t *testing.T) {
	t.Parallel()

	const total = 20
	failOn := make(map[batch.Identifier]error, total)
	for _, id := range ids(total) {
		failOn[id] = errors.New("nope")
	}

	proc := &fakeProcessor{failOn: failOn}
	prov := &fakeProvider{}
	rep := &recordingReporter{}
	q := queue.New(ids(total))
	deps, processed := newDeps(q, proc, prov, rep, 3, false)

	pool, err := NewPool(3, deps)
	require.NoError(t, err)
	pool.Run(context.Background())

	require.Equal(t, int64(total), processed.Load())
	require.Len(t, rep.errorLines(), total)
}

func TestWorkerRecoversProcessorPanic(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{panicOn: 2}
	prov := &fakeProvider{}
	rep := &recordingReporter{}
	q := queue.New(ids(3))
	deps, processed := newDeps(q, proc, prov, rep, 1, false)

	pool, err := NewPool(1, deps)
	require.NoError(t, err)
	pool.Run(context.Background())

	require.Equal(t, int64(3), processed.Load())
	lines := rep.errorLines()
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "panic")
}

func TestWorkerNotifiesOnlyOnSuccess(t *testing.T) {
	t.Parallel()

	failing := batch.Identifier(2)
	proc := &fakeProcessor{failOn: map[batch.Identifier]error{failing: errors.New("bad")}}
	prov := &fakeProvider{}
	q := queue.New(ids(3))
	deps, processed := newDeps(q, proc, prov, report.Nop{}, 1, true)

	pool, err := NewPool(1, deps)
	require.NoError(t, err)
	pool.Run(context.Background())

	require.Equal(t, int64(3), processed.Load())
	require.ElementsMatch(t, []batch.Identifier{1, 3}, proc.notified)
}

func TestWorkerNotifyFailureStillCountsItem(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{notifyErr: errors.New("topic gone")}
	prov := &fakeProvider{}
	rep := &recordingReporter{}
	q := queue.New(ids(2))
	deps, processed := newDeps(q, proc, prov, rep, 1, true)

	pool, err := NewPool(1, deps)
	require.NoError(t, err)
	pool.Run(context.Background())

	require.Equal(t, int64(2), processed.Load())
	require.Len(t, rep.errorLines(), 2)
	for _, line := range rep.errorLines() {
		require.Contains(t, line, "notify")
	}
}

func TestWorkerAcquiresAndReleasesOneResource(t *testing.T) {
	t.Parallel()

	const concurrency = 4
	proc := &fakeProcessor{}
	prov := &fakeProvider{}
	q := queue.New(ids(40))
	deps, _ := newDeps(q, proc, prov, report.Nop{}, concurrency, false)

	pool, err := NewPool(concurrency, deps)
	require.NoError(t, err)
	pool.Run(context.Background())

	require.Len(t, prov.acquired, concurrency)
	for _, res := range prov.acquired {
		require.Equal(t, int64(1), res.released.Load())
	}
}

func TestWorkerReportsAcquireFailure(t *testing.T) {
	t.Parallel()

	proc := &fakeProcessor{}
	prov := &fakeProvider{acquireErr: errors.New("pool exhausted")}
	rep := &recordingReporter{}
	q := queue.New(ids(2))
	deps, processed := newDeps(q, proc, prov, rep, 1, false)

	pool, err := NewPool(1, deps)
	require.NoError(t, err)
	pool.Run(context.Background())

	require.Zero(t, processed.Load())
	require.Len(t, rep.errorLines(), 1)
	require.Contains(t, rep.errorLines()[0], "acquire resource")
}

func TestWorkerStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := &fakeProcessor{}
	prov := &fakeProvider{}
	q := queue.New(ids(10))
	deps, processed := newDeps(q, proc, prov, report.Nop{}, 2, false)

	pool, err := NewPool(2, deps)
	require.NoError(t, err)
	pool.Run(ctx)

	require.Zero(t, processed.Load())
	require.Equal(t, 10, q.Remaining())
}
