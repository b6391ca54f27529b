// Package postgres provides the Postgres-backed identifier source.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/batchworks/regrade/internal/batch"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SourceConfig controls the Postgres connection pool used to select pending
// puzzle identifiers.
type SourceConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type queryPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Source selects the identifiers of puzzles still awaiting a difficulty
// rating. Fetch is called once per run, before any worker starts.
type Source struct {
	pool  queryPool
	table string
}

// NewSource creates a Postgres-backed Source using the provided config.
func NewSource(ctx context.Context, cfg SourceConfig) (*Source, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "puzzles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Source{pool: pool, table: table}, nil
}

// NewSourceWithPool constructs a Source from an existing pool. The caller
// keeps ownership of the pool's lifetime.
func NewSourceWithPool(pool queryPool, table string) (*Source, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "puzzles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Source{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Source) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Fetch returns the identifiers of every puzzle without a difficulty rating.
func (s *Source) Fetch(ctx context.Context) ([]batch.Identifier, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE difficulty IS NULL ORDER BY id`, s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select pending puzzles: %w", err)
	}
	defer rows.Close()

	var ids []batch.Identifier
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan puzzle id: %w", err)
		}
		ids = append(ids, batch.Identifier(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate puzzle ids: %w", err)
	}
	return ids, nil
}
