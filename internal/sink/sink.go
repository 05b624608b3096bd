// Package sink persists finished harvest reports: a durable JSON snapshot on
// disk plus forwarding of well-formed player rows to the persistence
// collaborator.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pitchside/harvester/internal/harvest"
	"github.com/pitchside/harvester/internal/metrics"
)

// FileSink writes one timestamped snapshot per run and forwards validated
// player rows. The player store is an explicit collaborator owned by the
// caller; a nil store skips forwarding.
type FileSink struct {
	dir    string
	store  harvest.PlayerStore
	clock  harvest.Clock
	logger *zap.Logger
}

// New returns a sink rooted at dir, creating it if needed.
func New(dir string, store harvest.PlayerStore, clk harvest.Clock, logger *zap.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create results dir %s: %w", dir, err)
	}
	return &FileSink{
		dir:    dir,
		store:  store,
		clock:  clk,
		logger: logger,
	}, nil
}

// Persist writes the snapshot under a timestamped name and forwards player
// rows. Insert failures are logged, never fatal; only a snapshot write
// failure is returned.
func (s *FileSink) Persist(ctx context.Context, report *harvest.Report) (string, error) {
	name := fmt.Sprintf("harvest_%d_%s.json", s.clock.Now().Unix(), shortID(report.RunID))
	return s.PersistTo(ctx, report, name)
}

// PersistTo is Persist with a caller-supplied snapshot filename.
func (s *FileSink) PersistTo(ctx context.Context, report *harvest.Report, filename string) (string, error) {
	path, err := s.writeSnapshot(report, filename)
	if err != nil {
		return "", err
	}
	s.logger.Info("snapshot written",
		zap.String("path", path),
		zap.Int("entries", len(report.Entries)),
	)
	s.forwardPlayers(ctx, report)
	return path, nil
}

// writeSnapshot marshals the report with two-space indentation and refuses
// to overwrite an existing file.
func (s *FileSink) writeSnapshot(report *harvest.Report, filename string) (string, error) {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(s.dir, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("snapshot %s already exists: %w", path, err)
		}
		return "", fmt.Errorf("create snapshot %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // write error captured below

	if _, err := f.Write(payload); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return path, nil
}

// forwardPlayers validates and bulk-inserts player rows from every record.
// Rows failing the collaborator's required-field contract are dropped with a
// logged reason.
func (s *FileSink) forwardPlayers(ctx context.Context, report *harvest.Report) {
	if s.store == nil {
		return
	}
	valid := []harvest.PlayerRow{}
	for id, entry := range report.Entries {
		if entry.Record == nil {
			continue
		}
		for _, row := range entry.Record.Players {
			if err := row.Validate(); err != nil {
				metrics.ObserveDropped("invalid")
				s.logger.Warn("dropping player row",
					zap.String("source", id),
					zap.String("name", row.Name),
					zap.Error(err),
				)
				continue
			}
			valid = append(valid, row)
		}
	}
	if len(valid) == 0 {
		return
	}
	if err := s.store.BulkInsert(ctx, valid); err != nil {
		s.logger.Error("bulk insert failed", zap.Int("rows", len(valid)), zap.Error(err))
		return
	}
	metrics.ObservePersisted(len(valid))
	s.logger.Info("player rows persisted", zap.Int("rows", len(valid)))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
