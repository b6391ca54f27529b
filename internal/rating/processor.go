package rating

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/batchworks/regrade/internal/batch"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Publisher pushes rating-complete events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Config controls Processor behavior.
type Config struct {
	Table      string
	StatsTable string
	Topic      string
	DryRun     bool
}

// Processor computes and persists difficulty scores. It expects the worker's
// resource handle to be a *Session.
type Processor struct {
	cfg       Config
	publisher Publisher
	clock     batch.Clock
	logger    *zap.Logger
}

// NewProcessor builds a Processor. Table names default to "puzzles" and
// "puzzle_stats" and must be plain identifiers.
func NewProcessor(cfg Config, publisher Publisher, clk batch.Clock, logger *zap.Logger) (*Processor, error) {
	if cfg.Table == "" {
		cfg.Table = "puzzles"
	}
	if cfg.StatsTable == "" {
		cfg.StatsTable = "puzzle_stats"
	}
	for _, table := range []string{cfg.Table, cfg.StatsTable} {
		if !validTableName.MatchString(table) {
			return nil, fmt.Errorf("invalid table name %q", table)
		}
	}
	if clk == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		cfg:       cfg,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}, nil
}

// Process loads the puzzle's solve statistics, computes the difficulty
// score, and writes it back. On a dry run the write is skipped.
func (p *Processor) Process(ctx context.Context, id batch.Identifier, res batch.Resource) error {
	session, err := sessionFrom(res)
	if err != nil {
		return err
	}

	var stats SolveStats
	query := fmt.Sprintf(
		`SELECT attempts, solves, total_solve_seconds, hints_used FROM %s WHERE puzzle_id = $1`,
		p.cfg.StatsTable,
	)
	row := session.q.QueryRow(ctx, query, int64(id))
	if err := row.Scan(&stats.Attempts, &stats.Solves, &stats.TotalSolveSeconds, &stats.HintsUsed); err != nil {
		return fmt.Errorf("load stats for puzzle %d: %w", id, err)
	}

	score := Score(stats)
	if p.cfg.DryRun {
		p.logger.Info("dry run, skipping persist",
			zap.Int64("puzzle_id", int64(id)),
			zap.Float64("difficulty", score),
		)
		return nil
	}

	update := fmt.Sprintf(`UPDATE %s SET difficulty = $2, rated_at = $3 WHERE id = $1`, p.cfg.Table)
	tag, err := session.q.Exec(ctx, update, int64(id), score, p.clock.Now())
	if err != nil {
		return fmt.Errorf("persist difficulty for puzzle %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("puzzle %d not found", id)
	}
	return nil
}

// Notify publishes a rating-complete message for a successfully processed
// puzzle. It is a no-op when no publisher is configured.
func (p *Processor) Notify(ctx context.Context, id batch.Identifier, _ batch.Resource) error {
	if p.publisher == nil {
		return nil
	}
	payload := map[string]any{
		"puzzle_id": int64(id),
		"rated_at":  p.clock.Now().Format(time.RFC3339),
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.Topic, payload); err != nil {
		return fmt.Errorf("publish rating for puzzle %d: %w", id, err)
	}
	return nil
}

func sessionFrom(res batch.Resource) (*Session, error) {
	session, ok := res.(*Session)
	if !ok {
		return nil, fmt.Errorf("unexpected resource type %T", res)
	}
	return session, nil
}
