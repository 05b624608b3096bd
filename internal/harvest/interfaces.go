package harvest

import (
	"context"
	"time"
)

// Fetcher retrieves a single URL. All failure paths are represented in the
// returned FetchOutcome; Fetch never returns an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchOutcome
}

// Extractor turns a raw payload into a normalized record. Implementations
// return an error on malformed input instead of panicking; the runner still
// guards the call site against panics.
type Extractor interface {
	Extract(payload []byte, prov Provenance) (Record, error)
}

// Registry resolves source identifiers to extractors. Lookup is exact-match
// and case-sensitive; Fallback serves ad hoc URLs with no registration.
type Registry interface {
	Lookup(sourceID string) (Extractor, bool)
	Fallback() Extractor
}

// Limiter bounds concurrent fetches and paces dispatch.
type Limiter interface {
	Acquire(ctx context.Context) error
	Release()
}

// Sink persists a finished report. Returns the snapshot path.
type Sink interface {
	Persist(ctx context.Context, report *Report) (string, error)
}

// PlayerStore is the persistence collaborator for player rows.
type PlayerStore interface {
	BulkInsert(ctx context.Context, rows []PlayerRow) error
	TableStats(ctx context.Context) (map[string]int64, error)
	Close()
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
