package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pitchside/harvester/internal/harvest"
)

func TestBulkInsertInsertsEachRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPlayerStoreWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	rows := []harvest.PlayerRow{
		{Name: "Erling Haaland", Age: 23, Club: "Manchester City"},
		{Name: "Jude Bellingham", Age: 21, Club: "Real Madrid"},
	}
	for _, row := range rows {
		mock.ExpectExec("INSERT INTO players").
			WithArgs(row.Name, row.Age, row.Club).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, store.BulkInsert(context.Background(), rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertSkipsFailedRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPlayerStoreWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO players").
		WithArgs("Bad Row", 30, "Somewhere FC").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectExec("INSERT INTO players").
		WithArgs("Good Row", 25, "Elsewhere FC").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.BulkInsert(context.Background(), []harvest.PlayerRow{
		{Name: "Bad Row", Age: 30, Club: "Somewhere FC"},
		{Name: "Good Row", Age: 25, Club: "Elsewhere FC"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertAllRowsFailed(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPlayerStoreWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO players").
		WithArgs("Only Row", 30, "Somewhere FC").
		WillReturnError(errors.New("connection reset"))

	err = store.BulkInsert(context.Background(), []harvest.PlayerRow{
		{Name: "Only Row", Age: 30, Club: "Somewhere FC"},
	})
	require.Error(t, err)
}

func TestBulkInsertEmptyIsNoop(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPlayerStoreWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.BulkInsert(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableStatsCountsEveryTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPlayerStoreWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	counts := map[string]int64{
		"countries":    3,
		"competitions": 5,
		"clubs":        20,
		"players":      400,
		"matches":      120,
	}
	for _, table := range statTables {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ` + table).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(counts[table]))
	}

	stats, err := store.TableStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, counts, stats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableStatsErroredTableReportsZero(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewPlayerStoreWithPool(mock, zap.NewNop())
	require.NoError(t, err)

	for _, table := range statTables {
		q := mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ` + table)
		if table == "matches" {
			q.WillReturnError(errors.New("relation does not exist"))
			continue
		}
		q.WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	}

	stats, err := store.TableStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(0), stats["matches"])
	require.Equal(t, int64(1), stats["players"])
}
