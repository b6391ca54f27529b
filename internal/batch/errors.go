package batch

import (
	"errors"
	"fmt"
)

// ErrInvalidConcurrency rejects run configurations with fewer than one
// worker. It is detected before the identifier source is consulted, so an
// invalid run performs zero processing.
var ErrInvalidConcurrency = errors.New("concurrency must be at least 1")

// SourceError wraps a failure to enumerate the identifier set. It aborts the
// run before any queue or worker exists.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("fetch identifiers: %v", e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
