// Package static provides a fixed-list identifier source for explicit-ID
// runs and tests.
package static

import (
	"context"

	"github.com/batchworks/regrade/internal/batch"
)

// Source returns a predetermined identifier list.
type Source struct {
	ids []batch.Identifier
}

// New builds a Source over the given identifiers.
func New(ids []batch.Identifier) *Source {
	items := make([]batch.Identifier, len(ids))
	copy(items, ids)
	return &Source{ids: items}
}

// Fetch returns a copy of the configured identifiers.
func (s *Source) Fetch(context.Context) ([]batch.Identifier, error) {
	out := make([]batch.Identifier, len(s.ids))
	copy(out, s.ids)
	return out, nil
}
