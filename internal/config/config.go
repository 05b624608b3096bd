// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Harvest HarvestConfig           `mapstructure:"harvest"`
	Fetch   FetchConfig             `mapstructure:"fetch"`
	Results ResultsConfig           `mapstructure:"results"`
	DB      DBConfig                `mapstructure:"db"`
	Metrics MetricsConfig           `mapstructure:"metrics"`
	Logging LoggingConfig           `mapstructure:"logging"`
	Sources map[string]SourceConfig `mapstructure:"sources"`
}

// HarvestConfig governs run fan-out behavior.
type HarvestConfig struct {
	Concurrency     int    `mapstructure:"concurrency"`
	DispatchDelayMs int    `mapstructure:"dispatch_delay_ms"`
	IntervalMinutes int    `mapstructure:"interval_minutes"`
	ExtraURLs       []string `mapstructure:"extra_urls"`
}

// FetchConfig configures HTTP retry behavior.
type FetchConfig struct {
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	MaxRetries     int      `mapstructure:"max_retries"`
	BackoffMs      int      `mapstructure:"backoff_ms"`
	UserAgents     []string `mapstructure:"user_agents"`
}

// ResultsConfig sets where snapshots are written.
type ResultsConfig struct {
	Dir string `mapstructure:"dir"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int32  `mapstructure:"max_open_conns"`
	MinOpenConns int32  `mapstructure:"min_open_conns"`
}

// MetricsConfig toggles the Prometheus listener.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// SourceConfig declares one harvest target.
type SourceConfig struct {
	URL       string `mapstructure:"url"`
	Extractor string `mapstructure:"extractor"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("harvest.concurrency", 5)
	v.SetDefault("harvest.dispatch_delay_ms", 100)
	v.SetDefault("harvest.interval_minutes", 30)
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.backoff_ms", 1000)
	v.SetDefault("results.dir", "data/results")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("logging.development", true)
	v.SetDefault("sources", defaultSources())
}

func defaultSources() map[string]map[string]string {
	return map[string]map[string]string{
		"bbc_sport":     {"url": "https://www.bbc.com/sport/football", "extractor": "bbc_sport"},
		"sky_sports":    {"url": "https://www.skysports.com/football", "extractor": "sky_sports"},
		"espn":          {"url": "https://www.espn.com/soccer/", "extractor": "espn"},
		"goal":          {"url": "https://www.goal.com/en", "extractor": "goal"},
		"transfermarkt": {"url": "https://www.transfermarkt.com", "extractor": "transfermarkt"},
	}
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Harvest.Concurrency <= 0 {
		return fmt.Errorf("harvest.concurrency must be > 0")
	}
	if c.Harvest.DispatchDelayMs < 0 {
		return fmt.Errorf("harvest.dispatch_delay_ms must be >= 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.MaxRetries <= 0 {
		return fmt.Errorf("fetch.max_retries must be > 0")
	}
	if c.Results.Dir == "" {
		return fmt.Errorf("results.dir must be set")
	}
	if c.Metrics.Enabled && c.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be > 0 when metrics are enabled")
	}
	for id, src := range c.Sources {
		if src.URL == "" {
			return fmt.Errorf("sources.%s.url must be set", id)
		}
	}
	return nil
}

// FetchTimeout converts the per-attempt timeout config into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// FetchBackoff converts the backoff base config into a duration.
func (c Config) FetchBackoff() time.Duration {
	return time.Duration(c.Fetch.BackoffMs) * time.Millisecond
}

// DispatchDelay converts the inter-dispatch delay config into a duration.
func (c Config) DispatchDelay() time.Duration {
	return time.Duration(c.Harvest.DispatchDelayMs) * time.Millisecond
}

// Interval converts the continuous-mode period into a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.Harvest.IntervalMinutes) * time.Minute
}
