package batch

import "context"

// Source enumerates the identifiers for one run. It is called exactly once,
// before any worker starts.
type Source interface {
	Fetch(ctx context.Context) ([]Identifier, error)
}

// Resource is a per-worker handle (typically a database connection) acquired
// once before a worker's claim loop and released once after it exits.
type Resource interface {
	Release()
}

// ResourceProvider hands out one Resource per worker. Handles are never
// shared between workers.
type ResourceProvider interface {
	Acquire(ctx context.Context) (Resource, error)
}

// Processor performs the domain work for a single identifier. Process and
// Notify receive the worker's own resource handle; Notify is invoked only
// when Process succeeded and notification is enabled for the run.
type Processor interface {
	Process(ctx context.Context, id Identifier, res Resource) error
	Notify(ctx context.Context, id Identifier, res Resource) error
}

// Reporter is the sink for human-readable run output. Implementations must
// tolerate concurrent calls from workers and monitors; interleaved lines are
// fine, torn lines are not. Verbose lines are dropped unless the reporter
// was built with verbosity enabled.
type Reporter interface {
	Output(line string)
	Warn(line string)
	Error(line string)
	Verbose(line string)
}
