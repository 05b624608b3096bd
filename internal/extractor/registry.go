// Package extractor turns raw page payloads into normalized records. Each
// source gets exactly one extractor, resolved through a Registry built at
// startup.
package extractor

import (
	"github.com/pitchside/harvester/internal/harvest"
)

// Registry maps source identifiers to extractors. It is assembled before a
// run starts and read-only afterwards; lookups are exact-match and
// case-sensitive.
type Registry struct {
	extractors map[string]harvest.Extractor
	fallback   harvest.Extractor
}

// NewRegistry builds a Registry preloaded with the built-in site extractors.
func NewRegistry() *Registry {
	r := &Registry{
		extractors: make(map[string]harvest.Extractor),
		fallback:   NewHeadings("", DefaultHeadingLimit),
	}
	r.Register("bbc_sport", NewBBCSport())
	r.Register("sky_sports", NewSkySports())
	r.Register("espn", NewESPN())
	r.Register("goal", NewGoal())
	r.Register("transfermarkt", NewTransfermarkt())
	return r
}

// Register binds an extractor to a source id, replacing any prior binding.
func (r *Registry) Register(sourceID string, ex harvest.Extractor) {
	r.extractors[sourceID] = ex
}

// RegisterBaseline binds the baseline heading extractor to a source id using
// the id as the site tag.
func (r *Registry) RegisterBaseline(sourceID string) {
	r.Register(sourceID, NewHeadings(sourceID, DefaultHeadingLimit))
}

// Lookup resolves a source id.
func (r *Registry) Lookup(sourceID string) (harvest.Extractor, bool) {
	ex, ok := r.extractors[sourceID]
	return ex, ok
}

// Fallback returns the baseline extractor used for ad hoc URLs.
func (r *Registry) Fallback() harvest.Extractor {
	return r.fallback
}

// Validate confirms every configured source resolves to an extractor. It
// runs before any dispatch so a misconfigured source fails the run up front.
func (r *Registry) Validate(sources []harvest.Source) error {
	for _, src := range sources {
		if _, ok := r.Lookup(src.ID); !ok {
			return &harvest.ConfigurationError{
				SourceID: src.ID,
				Reason:   "no extractor registered",
			}
		}
	}
	return nil
}
