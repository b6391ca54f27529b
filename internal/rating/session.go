package rating

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batchworks/regrade/internal/batch"
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Session is the per-worker resource handle: one pooled connection held for
// the worker's whole claim loop.
type Session struct {
	q       querier
	release func()
}

// Release returns the connection to the pool.
func (s *Session) Release() {
	if s.release != nil {
		s.release()
	}
}

// NewSessionWithQuerier constructs a Session over an arbitrary querier
// (primarily for testing against pgxmock).
func NewSessionWithQuerier(q querier) *Session {
	return &Session{q: q}
}

// Provider hands out one Session per worker from a shared pgx pool.
type Provider struct {
	pool *pgxpool.Pool
}

// NewProvider wraps an existing pool. The pool should allow at least one
// connection per worker plus one for the identifier source.
func NewProvider(pool *pgxpool.Pool) *Provider {
	return &Provider{pool: pool}
}

// Acquire checks out a dedicated connection for one worker.
func (p *Provider) Acquire(ctx context.Context) (batch.Resource, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Session{q: conn, release: conn.Release}, nil
}
