package worker

import (
	"sync/atomic"

	"github.com/batchworks/regrade/internal/batch"
)

// IdleSlot marks a worker that is between items.
const IdleSlot batch.Identifier = 0

// SlotTable records which identifier each worker is currently processing.
// Each slot has a single writer (its worker); the health monitor reads
// concurrently without locking. Stale reads are fine, the values are
// diagnostic only, but the stores are atomic so a read is never torn.
type SlotTable struct {
	slots []atomic.Int64
}

// NewSlotTable creates a table with one idle slot per worker.
func NewSlotTable(n int) *SlotTable {
	return &SlotTable{slots: make([]atomic.Int64, n)}
}

// Set records the identifier worker i is about to process.
func (t *SlotTable) Set(i int, id batch.Identifier) {
	t.slots[i].Store(int64(id))
}

// Clear marks worker i idle.
func (t *SlotTable) Clear(i int) {
	t.slots[i].Store(int64(IdleSlot))
}

// Snapshot returns a point-in-time copy of every slot.
func (t *SlotTable) Snapshot() []batch.Identifier {
	out := make([]batch.Identifier, len(t.slots))
	for i := range t.slots {
		out[i] = batch.Identifier(t.slots[i].Load())
	}
	return out
}

// Len reports the number of slots.
func (t *SlotTable) Len() int {
	return len(t.slots)
}
