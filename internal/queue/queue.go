// Package queue implements the shared claim queue workers drain during a run.
package queue

import (
	"sync"

	"github.com/batchworks/regrade/internal/batch"
)

// Queue is a thread-safe, drain-only container of pending identifiers. It is
// populated exactly once at construction; each identifier is returned by
// exactly one successful TryClaim across the queue's lifetime. Claim order
// across concurrent callers is unspecified.
type Queue struct {
	mu    sync.Mutex
	items []batch.Identifier
	next  int
}

// New builds a Queue over the provided identifiers. The slice is copied so
// callers cannot mutate the pending set after construction.
func New(ids []batch.Identifier) *Queue {
	items := make([]batch.Identifier, len(ids))
	copy(items, ids)
	return &Queue{items: items}
}

// TryClaim removes and returns one pending identifier. It returns false once
// and for all callers when every identifier has been claimed.
func (q *Queue) TryClaim() (batch.Identifier, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next >= len(q.items) {
		return 0, false
	}
	id := q.items[q.next]
	q.next++
	return id, true
}

// Remaining reports how many identifiers have not been claimed yet.
func (q *Queue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.next
}
