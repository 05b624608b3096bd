package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitchside/harvester/internal/clock"
	"github.com/pitchside/harvester/internal/config"
	"github.com/pitchside/harvester/internal/extractor"
	"github.com/pitchside/harvester/internal/fetcher"
	"github.com/pitchside/harvester/internal/harvest"
	"github.com/pitchside/harvester/internal/limiter"
	"github.com/pitchside/harvester/internal/metrics"
	"github.com/pitchside/harvester/internal/sink"
	"github.com/pitchside/harvester/internal/storage/memory"
	"github.com/pitchside/harvester/internal/storage/postgres"
)

// newRunCmd creates the 'run' subcommand: one harvest pass over the
// configured sources, or a periodic loop with --watch.
func newRunCmd() *cobra.Command {
	var (
		watch       bool
		concurrency int
		extraURLs   []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Harvest every configured source once (or periodically with --watch)",
		Long: `Fetches all configured sources through the shared concurrency limiter,
extracts each page with its registered extractor, and persists the run
report as a timestamped JSON snapshot. With --watch the harvest repeats
at the configured interval until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHarvest(cmd.Context(), watch, concurrency, extraURLs)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep harvesting at harvest.interval_minutes until interrupted")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "override harvest.concurrency for this invocation")
	cmd.Flags().StringArrayVar(&extraURLs, "url", nil, "ad hoc URL to harvest with the baseline extractor (repeatable)")

	return cmd
}

func runHarvest(parent context.Context, watch bool, concurrency int, extraURLs []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	fileSink, err := sink.New(cfg.Results.Dir, store, clock.System{}, logger)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	sources := configuredSources(cfg)
	if err := registry.Validate(sources); err != nil {
		return err
	}

	f := fetcher.New(fetcher.Config{
		Timeout:    cfg.FetchTimeout(),
		MaxRetries: cfg.Fetch.MaxRetries,
		Backoff:    cfg.FetchBackoff(),
		UserAgents: cfg.Fetch.UserAgents,
	}, logger)
	defer f.Close()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Port, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	factory := func(cap int) harvest.Limiter {
		return limiter.New(cap, cfg.DispatchDelay())
	}
	runner := harvest.NewRunner(f, registry, fileSink, clock.System{}, factory, logger)

	if concurrency <= 0 {
		concurrency = cfg.Harvest.Concurrency
	}
	extras := append(append([]string{}, cfg.Harvest.ExtraURLs...), extraURLs...)

	pass := func() error {
		report, err := runner.Run(ctx, sources, extras, concurrency)
		if err != nil {
			return fmt.Errorf("harvest: %w", err)
		}
		logger.Info("harvest pass complete",
			zap.String("run_id", report.RunID),
			zap.Int("succeeded", report.Succeeded()),
			zap.Int("total", len(report.Entries)),
			zap.Bool("incomplete", report.Incomplete),
		)
		return nil
	}

	if !watch {
		return pass()
	}

	logger.Info("watch mode", zap.Duration("interval", cfg.Interval()))
	ticker := time.NewTicker(cfg.Interval())
	defer ticker.Stop()
	for {
		if err := pass(); err != nil {
			return err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.Info("watch mode stopped")
			return nil
		}
	}
}

// buildRegistry maps configured sources onto extractors. A source naming an
// unknown extractor is a configuration error; an empty extractor name means
// the baseline.
func buildRegistry(cfg config.Config) (*extractor.Registry, error) {
	registry := extractor.NewRegistry()
	for id, src := range cfg.Sources {
		if src.Extractor == "" {
			registry.RegisterBaseline(id)
			continue
		}
		ex, ok := registry.Lookup(src.Extractor)
		if !ok {
			return nil, &harvest.ConfigurationError{
				SourceID: id,
				Reason:   fmt.Sprintf("unknown extractor %q", src.Extractor),
			}
		}
		if src.Extractor != id {
			registry.Register(id, ex)
		}
	}
	return registry, nil
}

// buildStore picks Postgres when a DSN is configured, in-memory otherwise.
func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (harvest.PlayerStore, error) {
	if cfg.DB.DSN == "" {
		logger.Info("no database configured, player rows kept in memory")
		return memory.NewPlayerStore(), nil
	}
	store, err := postgres.NewPlayerStore(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxOpenConns,
		MinConns: cfg.DB.MinOpenConns,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return store, nil
}
