package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 5, cfg.Harvest.Concurrency)
	require.Equal(t, 3, cfg.Fetch.MaxRetries)
	require.Equal(t, 30*time.Second, cfg.FetchTimeout())
	require.Equal(t, time.Second, cfg.FetchBackoff())
	require.Equal(t, 100*time.Millisecond, cfg.DispatchDelay())
	require.Equal(t, "data/results", cfg.Results.Dir)
	require.False(t, cfg.Metrics.Enabled)

	require.Contains(t, cfg.Sources, "bbc_sport")
	require.Equal(t, "https://www.bbc.com/sport/football", cfg.Sources["bbc_sport"].URL)
	require.Len(t, cfg.Sources, 5)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
harvest:
  concurrency: 2
  dispatch_delay_ms: 0
fetch:
  timeout_seconds: 5
  max_retries: 1
results:
  dir: out
sources:
  local_news:
    url: http://localhost:8080/news
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Harvest.Concurrency)
	require.Equal(t, 5*time.Second, cfg.FetchTimeout())
	require.Equal(t, "out", cfg.Results.Dir)
	require.Contains(t, cfg.Sources, "local_news")
}

func TestValidateRejectsBrokenConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	bad := cfg
	bad.Harvest.Concurrency = 0
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Fetch.TimeoutSeconds = -1
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Sources = map[string]SourceConfig{"nowhere": {}}
	require.Error(t, bad.Validate())
}
