package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pitchside/harvester/internal/harvest"
)

func TestPlayerStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewPlayerStore()
	require.NoError(t, s.BulkInsert(context.Background(), []harvest.PlayerRow{
		{Name: "A", Age: 20, Club: "X"},
		{Name: "B", Age: 30, Club: "Y"},
	}))

	rows := s.Rows()
	require.Len(t, rows, 2)

	stats, err := s.TableStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), stats["players"])
}
