package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/batchworks/regrade/internal/batch"
	"github.com/batchworks/regrade/internal/worker"
)

// Health periodically enumerates which identifier each worker is processing.
// It reads the slot table without synchronizing with the workers; a slightly
// stale view is acceptable, the line is diagnostic only.
type Health struct {
	slots    *worker.SlotTable
	interval time.Duration
	reporter batch.Reporter
}

// NewHealth builds a health sampler over the pool's slot table.
func NewHealth(slots *worker.SlotTable, interval time.Duration, reporter batch.Reporter) *Health {
	return &Health{slots: slots, interval: interval, reporter: reporter}
}

// Run samples on every tick until the context ends.
func (h *Health) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sample()
		}
	}
}

// Sample reports one line mapping worker index to its current identifier.
func (h *Health) Sample() {
	snap := h.slots.Snapshot()
	parts := make([]string, len(snap))
	for i, id := range snap {
		if id == worker.IdleSlot {
			parts[i] = fmt.Sprintf("%d=idle", i)
		} else {
			parts[i] = fmt.Sprintf("%d=%d", i, id)
		}
	}
	h.reporter.Output("Workers: " + strings.Join(parts, " "))
}
