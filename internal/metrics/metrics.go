// Package metrics exposes Prometheus collectors for the harvester.
package metrics

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	harvestPagesTotal        *prometheus.CounterVec
	fetchAttemptsTotal       *prometheus.CounterVec
	fetchRetriesTotal        *prometheus.CounterVec
	fetchInFlight            prometheus.Gauge
	fetchDurationSeconds     *prometheus.HistogramVec
	dispatchDelaySeconds     prometheus.Histogram
	recordsPersistedTotal    prometheus.Counter
	recordsDroppedTotal      *prometheus.CounterVec
	harvestRunsTotal         *prometheus.CounterVec
	harvestReportEntriesLast prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		harvestPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_total",
				Help: "Total pages harvested, labeled by site and outcome status.",
			},
			[]string{"site", "status"},
		)

		fetchAttemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_attempts_total",
				Help: "Total fetch attempts, labeled by site and HTTP code.",
			},
			[]string{"site", "code"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_fetch_retries_total",
				Help: "Total retried fetch attempts, labeled by site.",
			},
			[]string{"site"},
		)

		fetchInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_fetches_in_flight",
				Help: "Number of fetches currently in flight.",
			},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvester_fetch_duration_seconds",
				Help:    "Histogram of full fetch latencies (all attempts), labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"site"},
		)

		dispatchDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "harvester_dispatch_delay_seconds",
				Help:    "Histogram of time spent waiting on the concurrency limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
		)

		recordsPersistedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_records_persisted_total",
				Help: "Total player rows forwarded to the persistence collaborator.",
			},
		)

		recordsDroppedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_records_dropped_total",
				Help: "Total player rows dropped, labeled by reason.",
			},
			[]string{"reason"},
		)

		harvestRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_runs_total",
				Help: "Total harvest runs, labeled by result.",
			},
			[]string{"result"},
		)

		harvestReportEntriesLast = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "harvester_report_entries_last",
				Help: "Entry count of the most recent harvest report.",
			},
		)
	})
}

// SanitizeSite extracts a lowercase hostname from a URL, or "unknown".
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObservePage records one finished page outcome.
func ObservePage(site string, status string, duration time.Duration) {
	Init()
	s := SanitizeSite(site)
	harvestPagesTotal.WithLabelValues(s, status).Inc()
	fetchDurationSeconds.WithLabelValues(s).Observe(duration.Seconds())
}

// ObserveAttempt records a single HTTP attempt.
func ObserveAttempt(site string, code int) {
	Init()
	fetchAttemptsTotal.WithLabelValues(SanitizeSite(site), strconv.Itoa(code)).Inc()
}

// ObserveRetry records a retried attempt.
func ObserveRetry(site string) {
	Init()
	fetchRetriesTotal.WithLabelValues(SanitizeSite(site)).Inc()
}

// IncInFlight increments the in-flight fetch gauge.
func IncInFlight() {
	Init()
	fetchInFlight.Inc()
}

// DecInFlight decrements the in-flight fetch gauge.
func DecInFlight() {
	Init()
	fetchInFlight.Dec()
}

// ObserveDispatchDelay records time spent waiting for a limiter slot.
func ObserveDispatchDelay(d time.Duration) {
	Init()
	dispatchDelaySeconds.Observe(d.Seconds())
}

// ObservePersisted counts rows handed to the player store.
func ObservePersisted(n int) {
	Init()
	recordsPersistedTotal.Add(float64(n))
}

// ObserveDropped counts rows dropped before persistence.
func ObserveDropped(reason string) {
	Init()
	recordsDroppedTotal.WithLabelValues(reason).Inc()
}

// ObserveRun records a completed run and its report size.
func ObserveRun(result string, entries int) {
	Init()
	harvestRunsTotal.WithLabelValues(result).Inc()
	harvestReportEntriesLast.Set(float64(entries))
}
