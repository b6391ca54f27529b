package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/batchworks/regrade/internal/api"
	"github.com/batchworks/regrade/internal/batch"
	"github.com/batchworks/regrade/internal/clock/system"
	"github.com/batchworks/regrade/internal/config"
	"github.com/batchworks/regrade/internal/engine"
	"github.com/batchworks/regrade/internal/logging"
	"github.com/batchworks/regrade/internal/metrics"
	"github.com/batchworks/regrade/internal/publisher/pubsub"
	"github.com/batchworks/regrade/internal/rating"
	"github.com/batchworks/regrade/internal/report"
	pgsource "github.com/batchworks/regrade/internal/source/postgres"
	"github.com/batchworks/regrade/internal/source/static"
)

// newRunCmd creates and configures the 'run' subcommand.
func newRunCmd() *cobra.Command {
	var (
		concurrency int
		dryRun      bool
		notify      bool
		verbose     bool
		ids         []int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one regrade batch over the pending puzzles",
		Long: `Selects every puzzle without a difficulty rating (or the explicit
--ids list), recomputes each rating over a fixed worker pool, and reports
progress until the batch drains.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Engine.Concurrency = concurrency
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.Engine.DryRun = dryRun
			}
			if cmd.Flags().Changed("notify") {
				cfg.Engine.Notify = notify
			}
			if cmd.Flags().Changed("verbose") {
				cfg.Engine.Verbose = verbose
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runBatch(cmd.Context(), cfg, ids)
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "number of workers (overrides config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute ratings without persisting them")
	cmd.Flags().BoolVar(&notify, "notify", false, "publish a message for each rated puzzle")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "report every processed item")
	cmd.Flags().Int64SliceVar(&ids, "ids", nil, "regrade these puzzle IDs instead of querying for pending ones")

	return cmd
}

func runBatch(ctx context.Context, cfg config.Config, explicitIDs []int64) error {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	metrics.Init()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	src, err := buildSource(pool, cfg, explicitIDs)
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}

	var pub rating.Publisher
	if cfg.Engine.Notify {
		p, err := pubsub.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicID)
		if err != nil {
			return fmt.Errorf("init pubsub: %w", err)
		}
		defer func() {
			if cerr := p.Close(); cerr != nil {
				logger.Warn("close pubsub publisher", zap.Error(cerr))
			}
		}()
		pub = p
	}

	processor, err := rating.NewProcessor(rating.Config{
		Table:      cfg.DB.PuzzlesTable,
		StatsTable: cfg.DB.StatsTable,
		Topic:      cfg.PubSub.TopicID,
		DryRun:     cfg.Engine.DryRun,
	}, pub, system.New(), logger)
	if err != nil {
		return fmt.Errorf("init processor: %w", err)
	}

	reporter := report.NewConsole(os.Stdout, cfg.Engine.Verbose)

	eng, err := engine.New(engine.Config{
		Concurrency:      cfg.Engine.Concurrency,
		ProgressInterval: cfg.ProgressInterval(),
		HealthInterval:   cfg.HealthInterval(),
		Flags: batch.RunFlags{
			DryRun: cfg.Engine.DryRun,
			Notify: cfg.Engine.Notify,
		},
	}, src, processor, rating.NewProvider(pool), reporter, logger)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	if cfg.Server.Enabled {
		shutdown := startServer(cfg.Server.Port, eng, logger)
		defer shutdown()
	}

	logger.Info("starting regrade batch",
		zap.String("run_id", eng.RunID()),
		zap.Int("concurrency", cfg.Engine.Concurrency),
		zap.Bool("dry_run", cfg.Engine.DryRun),
		zap.Bool("notify", cfg.Engine.Notify),
	)
	return eng.Run(ctx)
}

func openPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	// One connection per worker plus one for the identifier query.
	minNeeded := int32(cfg.Engine.Concurrency + 1)
	poolCfg.MaxConns = cfg.DB.MaxConns
	if poolCfg.MaxConns < minNeeded {
		poolCfg.MaxConns = minNeeded
	}
	if cfg.DB.MinConns > 0 {
		poolCfg.MinConns = cfg.DB.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

func buildSource(pool *pgxpool.Pool, cfg config.Config, explicitIDs []int64) (batch.Source, error) {
	if len(explicitIDs) > 0 {
		ids := make([]batch.Identifier, len(explicitIDs))
		for i, id := range explicitIDs {
			ids[i] = batch.Identifier(id)
		}
		return static.New(ids), nil
	}
	return pgsource.NewSourceWithPool(pool, cfg.DB.PuzzlesTable)
}

func startServer(port int, eng *engine.Engine, logger *zap.Logger) func() {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           api.NewServer(eng, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("status server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("status server failed", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown", zap.Error(err))
		}
	}
}
