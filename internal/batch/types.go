package batch

import "time"

// Identifier names one unit of batch work. Identifiers are positive; zero is
// reserved as the idle sentinel in worker slot tables.
type Identifier int64

// RunFlags carries the pass-through switches for one run. The engine forwards
// them without interpreting their semantics: DryRun is consumed by the item
// processor, Notify gates the post-success notification call.
type RunFlags struct {
	DryRun bool
	Notify bool
}

// Clock abstracts time for monitors and stores so tests can pin it.
type Clock interface {
	Now() time.Time
}
