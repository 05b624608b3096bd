package harvest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pitchside/harvester/internal/metrics"
)

// RunState is the lifecycle state of a harvest run.
type RunState int32

// Run lifecycle states, in order.
const (
	StateIdle RunState = iota
	StateDispatching
	StateAwaiting
	StateAggregating
	StateDone
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDispatching:
		return "dispatching"
	case StateAwaiting:
		return "awaiting"
	case StateAggregating:
		return "aggregating"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// LimiterFactory builds a Limiter for a run's concurrency cap.
type LimiterFactory func(cap int) Limiter

// Runner drives a harvest run end to end: worklist build, fan-out through
// the limiter, extraction, aggregation, and hand-off to the sink.
type Runner struct {
	fetcher    Fetcher
	registry   Registry
	sink       Sink
	clock      Clock
	newLimiter LimiterFactory
	logger     *zap.Logger

	state atomic.Int32
}

// NewRunner constructs a Runner. The sink may be nil when the caller only
// wants the in-memory report.
func NewRunner(
	fetcher Fetcher,
	registry Registry,
	sink Sink,
	clk Clock,
	newLimiter LimiterFactory,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		fetcher:    fetcher,
		registry:   registry,
		sink:       sink,
		clock:      clk,
		newLimiter: newLimiter,
		logger:     logger,
	}
}

// State reports the current run state.
func (r *Runner) State() RunState {
	return RunState(r.state.Load())
}

func (r *Runner) setState(s RunState) {
	r.state.Store(int32(s))
	r.logger.Debug("run state changed", zap.Stringer("state", s))
}

type workItem struct {
	src Source
	ex  Extractor
}

type sourceOutcome struct {
	id      string
	outcome FetchOutcome
}

// Run harvests every source plus any ad hoc URLs. Concurrency defaults when
// non-positive. The returned report has exactly one entry per worklist item;
// only a ConfigurationError (or an unusable worklist) returns an error
// instead of a report.
func (r *Runner) Run(ctx context.Context, sources []Source, extraURLs []string, concurrency int) (*Report, error) {
	work, err := r.buildWorklist(sources, extraURLs)
	if err != nil {
		r.setState(StateDone)
		return nil, err
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: r.clock.Now(),
		Entries:   make(map[string]Entry, len(work)),
	}
	r.logger.Info("harvest run starting",
		zap.String("run_id", report.RunID),
		zap.Int("sources", len(work)),
		zap.Int("concurrency", concurrency),
	)

	outcomes, canceled := r.fanOut(ctx, work, concurrency)

	r.setState(StateAggregating)
	for _, item := range work {
		report.Entries[item.src.ID] = r.entryFor(item, outcomes, canceled)
	}
	report.Incomplete = canceled
	report.FinishedAt = r.clock.Now()
	r.setState(StateDone)

	result := "complete"
	if canceled {
		result = "canceled"
	}
	metrics.ObserveRun(result, len(report.Entries))
	r.logger.Info("harvest run finished",
		zap.String("run_id", report.RunID),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("entries", len(report.Entries)),
		zap.Bool("incomplete", report.Incomplete),
	)

	r.persist(ctx, report)
	return report, nil
}

// fanOut dispatches every work item in worklist order and collects outcomes
// until all have reported or the context is canceled. Completion order is
// unconstrained; outcomes are matched back by source id.
func (r *Runner) fanOut(ctx context.Context, work []workItem, concurrency int) (map[string]FetchOutcome, bool) {
	r.setState(StateDispatching)
	lim := r.newLimiter(concurrency)
	results := make(chan sourceOutcome, len(work))

	go func() {
		for _, item := range work {
			if err := lim.Acquire(ctx); err != nil {
				results <- sourceOutcome{
					id:      item.src.ID,
					outcome: FailureOutcome(item.src.URL, "canceled before dispatch", 0, 0),
				}
				continue
			}
			go r.fetchOne(ctx, lim, item.src, results)
		}
	}()

	r.setState(StateAwaiting)
	outcomes := make(map[string]FetchOutcome, len(work))
	for range work {
		select {
		case res := <-results:
			outcomes[res.id] = res.outcome
		case <-ctx.Done():
			r.logger.Warn("harvest canceled while awaiting outcomes",
				zap.Int("received", len(outcomes)),
				zap.Int("expected", len(work)),
			)
			return outcomes, true
		}
	}
	return outcomes, ctx.Err() != nil
}

// fetchOne owns its outcome until it is handed back on results. A panic in
// the fetch path is converted to a failure outcome so the join point always
// sees one result per dispatched item.
func (r *Runner) fetchOne(ctx context.Context, lim Limiter, src Source, results chan<- sourceOutcome) {
	defer func() {
		if p := recover(); p != nil {
			results <- sourceOutcome{
				id:      src.ID,
				outcome: FailureOutcome(src.URL, fmt.Sprintf("fetch worker panic: %v", p), 0, 0),
			}
		}
	}()
	defer lim.Release()
	results <- sourceOutcome{id: src.ID, outcome: r.fetcher.Fetch(ctx, src.URL)}
}

// entryFor maps one work item to its report entry.
func (r *Runner) entryFor(item workItem, outcomes map[string]FetchOutcome, canceled bool) Entry {
	outcome, ok := outcomes[item.src.ID]
	if !ok {
		return Entry{Failure: "run canceled before completion", Incomplete: true}
	}
	if !outcome.Success {
		incomplete := canceled && strings.Contains(outcome.FailureReason, "canceled")
		return Entry{Failure: outcome.FailureReason, Incomplete: incomplete}
	}

	prov := Provenance{
		StatusCode: outcome.StatusCode,
		LatencyMs:  outcome.Elapsed.Milliseconds(),
		CapturedAt: r.clock.Now(),
	}
	rec, err := safeExtract(item.ex, outcome.Body, prov)
	if err != nil {
		r.logger.Warn("extraction failed",
			zap.String("source", item.src.ID),
			zap.Error(err),
		)
		return Entry{Failure: fmt.Sprintf("extraction failed: %v", err)}
	}
	if rec.Site == "" {
		rec.Site = item.src.ID
	}
	return Entry{Record: &rec}
}

// persist hands the finished report to the sink. Sink failures are logged,
// never fatal, and a canceled run context does not block the snapshot.
func (r *Runner) persist(ctx context.Context, report *Report) {
	if r.sink == nil {
		return
	}
	path, err := r.sink.Persist(context.WithoutCancel(ctx), report)
	if err != nil {
		r.logger.Error("persist report failed", zap.Error(err))
		return
	}
	r.logger.Info("report persisted", zap.String("path", path))
}

// buildWorklist merges configured sources with ad hoc URLs, deduplicated by
// URL, and resolves each to its extractor. Configured sources must be
// registered; ad hoc URLs fall back to the baseline extractor.
func (r *Runner) buildWorklist(sources []Source, extraURLs []string) ([]workItem, error) {
	seenURL := make(map[string]struct{}, len(sources)+len(extraURLs))
	seenID := make(map[string]struct{}, len(sources)+len(extraURLs))
	work := make([]workItem, 0, len(sources)+len(extraURLs))

	for _, src := range sources {
		if src.URL == "" {
			return nil, &ConfigurationError{SourceID: src.ID, Reason: "source has no URL"}
		}
		if _, dup := seenURL[src.URL]; dup {
			continue
		}
		ex, ok := r.registry.Lookup(src.ID)
		if !ok {
			return nil, &ConfigurationError{SourceID: src.ID, Reason: "no extractor registered"}
		}
		seenURL[src.URL] = struct{}{}
		seenID[src.ID] = struct{}{}
		work = append(work, workItem{src: src, ex: ex})
	}

	for _, raw := range extraURLs {
		if _, dup := seenURL[raw]; dup {
			continue
		}
		id, err := syntheticID(raw, seenID)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("ad hoc url %q: %v", raw, err)}
		}
		seenURL[raw] = struct{}{}
		seenID[id] = struct{}{}
		work = append(work, workItem{
			src: Source{ID: id, URL: raw},
			ex:  r.registry.Fallback(),
		})
	}

	if len(work) == 0 {
		return nil, &ConfigurationError{Reason: "worklist is empty"}
	}
	return work, nil
}

// syntheticID derives a readable source id from an ad hoc URL's hostname,
// suffixing on collision.
func syntheticID(raw string, taken map[string]struct{}) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("not a valid absolute URL")
	}
	base := strings.ReplaceAll(strings.ToLower(u.Hostname()), ".", "_")
	id := base
	for n := 2; ; n++ {
		if _, exists := taken[id]; !exists {
			return id, nil
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

// safeExtract guards the extractor boundary: panics become errors so one
// malformed page cannot abort the run.
func safeExtract(ex Extractor, payload []byte, prov Provenance) (rec Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("extractor panic: %v", p)
		}
	}()
	return ex.Extract(payload, prov)
}
