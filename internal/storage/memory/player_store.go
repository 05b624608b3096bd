// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"sync"

	"github.com/pitchside/harvester/internal/harvest"
)

// PlayerStore keeps inserted rows in memory.
type PlayerStore struct {
	mu   sync.RWMutex
	rows []harvest.PlayerRow
}

// NewPlayerStore constructs an empty PlayerStore.
func NewPlayerStore() *PlayerStore {
	return &PlayerStore{}
}

// BulkInsert appends the rows.
func (s *PlayerStore) BulkInsert(_ context.Context, rows []harvest.PlayerRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

// TableStats reports the players count; the other tables are always empty in
// the in-memory store.
func (s *PlayerStore) TableStats(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int64{
		"countries":    0,
		"competitions": 0,
		"clubs":        0,
		"players":      int64(len(s.rows)),
		"matches":      0,
	}, nil
}

// Close is a no-op.
func (s *PlayerStore) Close() {}

// Rows returns a copy of everything inserted so far.
func (s *PlayerStore) Rows() []harvest.PlayerRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]harvest.PlayerRow, len(s.rows))
	copy(out, s.rows)
	return out
}
