// Package cmd defines the CLI commands for the harvester executable.
package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitchside/harvester/internal/config"
	"github.com/pitchside/harvester/internal/harvest"
	"github.com/pitchside/harvester/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "A bounded-concurrency harvester for football news and transfer data.",
		Long: `harvester fetches a configured set of football sites concurrently,
extracts per-site headlines and player rows, and writes each run's
results to a timestamped JSON snapshot. Validated player rows are
forwarded to the relational store when one is configured.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is built-in defaults plus HARVESTER_* env)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStatsCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// configuredSources turns the config's source map into a stable worklist.
func configuredSources(cfg config.Config) []harvest.Source {
	ids := make([]string, 0, len(cfg.Sources))
	for id := range cfg.Sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sources := make([]harvest.Source, 0, len(ids))
	for _, id := range ids {
		src := cfg.Sources[id]
		sources = append(sources, harvest.Source{
			ID:        id,
			URL:       src.URL,
			Extractor: src.Extractor,
		})
	}
	return sources
}
