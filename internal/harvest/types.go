// Package harvest defines core types shared across subsystems.
package harvest

import (
	"fmt"
	"strings"
	"time"
)

// Source is one configured harvest target. Sources are read-only once the
// worklist for a run has been built.
type Source struct {
	ID  string `json:"id"`
	URL string `json:"url"`
	// Extractor names the registered extractor for this source. Empty means
	// the baseline heading extractor.
	Extractor string `json:"extractor,omitempty"`
}

// FetchOutcome is the result of one attempt sequence against a Source URL.
// Exactly one of Body/FailureReason is set, depending on Success.
type FetchOutcome struct {
	URL           string
	Success       bool
	Body          []byte
	FailureReason string
	Elapsed       time.Duration
	StatusCode    int
}

// SuccessOutcome builds a successful FetchOutcome.
func SuccessOutcome(url string, body []byte, statusCode int, elapsed time.Duration) FetchOutcome {
	return FetchOutcome{
		URL:        url,
		Success:    true,
		Body:       body,
		StatusCode: statusCode,
		Elapsed:    elapsed,
	}
}

// FailureOutcome builds a failed FetchOutcome carrying a human-readable reason.
func FailureOutcome(url string, reason string, statusCode int, elapsed time.Duration) FetchOutcome {
	return FetchOutcome{
		URL:           url,
		Success:       false,
		FailureReason: reason,
		StatusCode:    statusCode,
		Elapsed:       elapsed,
	}
}

// Provenance records how a page was captured.
type Provenance struct {
	StatusCode int       `json:"status_code"`
	LatencyMs  int64     `json:"latency_ms"`
	CapturedAt time.Time `json:"captured_at"`
}

// PlayerRow is the record tuple forwarded to the persistence collaborator.
type PlayerRow struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
	Club string `json:"club"`
}

// Validate enforces the collaborator's required-field contract.
func (p PlayerRow) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("player name is required")
	}
	if p.Age <= 0 {
		return fmt.Errorf("player age must be positive, got %d", p.Age)
	}
	if strings.TrimSpace(p.Club) == "" {
		return fmt.Errorf("player club is required")
	}
	return nil
}

// Record is the normalized output of one extractor over one fetched page.
type Record struct {
	Site  string `json:"site"`
	Title string `json:"title"`
	// Sections holds labeled text collections, e.g. "articles", "headlines".
	Sections   map[string][]string `json:"sections"`
	Players    []PlayerRow         `json:"players,omitempty"`
	Provenance Provenance          `json:"provenance"`
}

// Entry is one per-source slot in a Report. Exactly one of Record/Failure is
// set; Incomplete marks sources the run never finished.
type Entry struct {
	Record     *Record `json:"record,omitempty"`
	Failure    string  `json:"failure,omitempty"`
	Incomplete bool    `json:"incomplete,omitempty"`
}

// Report is the complete, one-entry-per-source result of a run. It is built
// by the runner and immutable after FinishedAt is set.
type Report struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Incomplete bool             `json:"incomplete,omitempty"`
	Entries    map[string]Entry `json:"entries"`
}

// Succeeded counts entries carrying a record.
func (r *Report) Succeeded() int {
	n := 0
	for _, e := range r.Entries {
		if e.Record != nil {
			n++
		}
	}
	return n
}

// Records returns every record in the report, keyed order unspecified.
func (r *Report) Records() []*Record {
	out := make([]*Record, 0, len(r.Entries))
	for _, e := range r.Entries {
		if e.Record != nil {
			out = append(out, e.Record)
		}
	}
	return out
}
