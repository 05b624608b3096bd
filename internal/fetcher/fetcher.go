// Package fetcher implements the HTTP fetch stage using gocolly.
package fetcher

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/pitchside/harvester/internal/harvest"
	"github.com/pitchside/harvester/internal/metrics"
)

// Defaults applied when Config leaves a knob unset.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultBackoff    = time.Second
)

// defaultUserAgents is the identity pool rotated per attempt to reduce
// fingerprint-based blocking.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:89.0) Gecko/20100101 Firefox/89.0",
}

// Config controls fetch behavior.
type Config struct {
	// Timeout bounds each individual attempt.
	Timeout time.Duration
	// MaxRetries is the total attempt budget per URL.
	MaxRetries int
	// Backoff is the base unit of the exponential backoff between attempts;
	// attempt i waits Backoff << i before attempt i+1.
	Backoff time.Duration
	// UserAgents overrides the built-in identity pool.
	UserAgents []string
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Backoff <= 0 {
		c.Backoff = DefaultBackoff
	}
	if len(c.UserAgents) == 0 {
		c.UserAgents = defaultUserAgents
	}
	return c
}

// Fetcher implements harvest.Fetcher with a shared colly collector. The
// collector's transport (and its connection pool) is shared read-only across
// concurrent fetches; per-attempt state lives on clones.
type Fetcher struct {
	cfg       Config
	base      *colly.Collector
	transport *http.Transport
	logger    *zap.Logger
}

// New builds a Fetcher. Close releases the shared transport; callers own the
// open/close pair around a run.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	cfg = cfg.withDefaults()

	transport := newHTTPTransport()
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(transport)

	return &Fetcher{
		cfg:       cfg,
		base:      c,
		transport: transport,
		logger:    logger,
	}
}

// Close shuts down idle connections held by the shared transport.
func (f *Fetcher) Close() {
	f.transport.CloseIdleConnections()
}

// Fetch retrieves url with the configured retry budget. Success is strictly
// HTTP 200; transport errors, timeouts, and any other status are attempt
// failures retried with exponential backoff. Every failure path comes back
// as data in the FetchOutcome.
func (f *Fetcher) Fetch(ctx context.Context, url string) harvest.FetchOutcome {
	metrics.IncInFlight()
	defer metrics.DecInFlight()

	start := time.Now()
	attempts := f.cfg.MaxRetries

	for attempt := 0; attempt < attempts; attempt++ {
		status, body, err := f.attempt(ctx, url)
		metrics.ObserveAttempt(url, status)

		if err == nil && status == http.StatusOK {
			elapsed := time.Since(start)
			f.logger.Debug("fetch succeeded",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Duration("elapsed", elapsed),
			)
			metrics.ObservePage(url, "success", elapsed)
			return harvest.SuccessOutcome(url, body, status, elapsed)
		}

		if ctx.Err() != nil {
			metrics.ObservePage(url, "canceled", time.Since(start))
			return harvest.FailureOutcome(url, fmt.Sprintf("fetch canceled: %v", ctx.Err()), status, time.Since(start))
		}

		f.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Int("status", status),
			zap.Error(err),
		)

		if attempt < attempts-1 {
			metrics.ObserveRetry(url)
			if err := sleep(ctx, f.cfg.Backoff<<attempt); err != nil {
				metrics.ObservePage(url, "canceled", time.Since(start))
				return harvest.FailureOutcome(url, fmt.Sprintf("fetch canceled: %v", err), status, time.Since(start))
			}
		}
	}

	elapsed := time.Since(start)
	metrics.ObservePage(url, "failure", elapsed)
	return harvest.FailureOutcome(url, fmt.Sprintf("failed after %d attempts", attempts), 0, elapsed)
}

// attempt runs one GET on a collector clone with a freshly rotated identity.
func (f *Fetcher) attempt(ctx context.Context, url string) (int, []byte, error) {
	c := f.base.Clone()
	c.UserAgent = f.cfg.UserAgents[rand.Intn(len(f.cfg.UserAgents))]
	c.SetRequestTimeout(f.cfg.Timeout)
	c.WithTransport(f.transport)

	var (
		status   int
		body     []byte
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return status, nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return status, nil, fetchErr
		}
		if err != nil {
			return status, nil, fmt.Errorf("visit %s: %w", url, err)
		}
	}

	if status != http.StatusOK {
		return status, nil, fmt.Errorf("unexpected status %d", status)
	}
	return status, body, nil
}

// sleep waits for d or until the context finishes.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
