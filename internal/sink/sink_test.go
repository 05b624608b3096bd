package sink

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pitchside/harvester/internal/harvest"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakeStore struct {
	rows []harvest.PlayerRow
	err  error
}

func (s *fakeStore) BulkInsert(_ context.Context, rows []harvest.PlayerRow) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, rows...)
	return nil
}

func (s *fakeStore) TableStats(context.Context) (map[string]int64, error) {
	return map[string]int64{"players": int64(len(s.rows))}, nil
}

func (s *fakeStore) Close() {}

func sampleReport() *harvest.Report {
	return &harvest.Report{
		RunID:      "0f2c7a9e-run",
		StartedAt:  time.Unix(1700000000, 0).UTC(),
		FinishedAt: time.Unix(1700000060, 0).UTC(),
		Entries: map[string]harvest.Entry{
			"bbc_sport": {
				Record: &harvest.Record{
					Site:     "BBC Sport",
					Title:    "BBC Sport - Football",
					Sections: map[string][]string{"articles": {"Goal!"}},
					Players: []harvest.PlayerRow{
						{Name: "Erling Haaland", Age: 23, Club: "Manchester City"},
						{Name: "", Age: 17, Club: "Nowhere FC"},
						{Name: "Too Young", Age: 0, Club: "Academy"},
					},
					Provenance: harvest.Provenance{StatusCode: 200, LatencyMs: 10, CapturedAt: time.Unix(1700000001, 0).UTC()},
				},
			},
			"sky_sports": {Failure: "failed after 3 attempts"},
		},
	}
}

func TestPersist_SnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	s, err := New(t.TempDir(), store, fakeClock{now: time.Unix(1700000123, 0)}, zap.NewNop())
	require.NoError(t, err)

	report := sampleReport()
	path, err := s.Persist(context.Background(), report)
	require.NoError(t, err)
	require.FileExists(t, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var back harvest.Report
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, report.RunID, back.RunID)
	require.Len(t, back.Entries, len(report.Entries))
	for id, entry := range report.Entries {
		got, ok := back.Entries[id]
		require.True(t, ok, "missing entry %s", id)
		require.Equal(t, entry.Record == nil, got.Record == nil)
		require.Equal(t, entry.Failure, got.Failure)
	}
}

func TestPersist_ForwardsOnlyValidPlayers(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	s, err := New(t.TempDir(), store, fakeClock{now: time.Unix(1700000123, 0)}, zap.NewNop())
	require.NoError(t, err)

	_, err = s.Persist(context.Background(), sampleReport())
	require.NoError(t, err)

	require.Len(t, store.rows, 1)
	require.Equal(t, "Erling Haaland", store.rows[0].Name)
}

func TestPersist_InsertFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	store := &fakeStore{err: context.DeadlineExceeded}
	s, err := New(t.TempDir(), store, fakeClock{now: time.Unix(1700000123, 0)}, zap.NewNop())
	require.NoError(t, err)

	path, err := s.Persist(context.Background(), sampleReport())
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestPersistTo_NeverOverwrites(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir(), nil, fakeClock{now: time.Unix(1700000123, 0)}, zap.NewNop())
	require.NoError(t, err)

	report := sampleReport()
	_, err = s.PersistTo(context.Background(), report, "run.json")
	require.NoError(t, err)

	_, err = s.PersistTo(context.Background(), report, "run.json")
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}

func TestPersist_TimestampedNamesAreDistinctPerRun(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir(), nil, fakeClock{now: time.Unix(1700000123, 0)}, zap.NewNop())
	require.NoError(t, err)

	a := sampleReport()
	b := sampleReport()
	b.RunID = "b51d03aa-run"

	pathA, err := s.Persist(context.Background(), a)
	require.NoError(t, err)
	pathB, err := s.Persist(context.Background(), b)
	require.NoError(t, err)
	require.NotEqual(t, pathA, pathB)
}
