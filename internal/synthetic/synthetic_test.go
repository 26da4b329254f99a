package synthetic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dollartracker/internal/provider"
	"dollartracker/internal/stats"
)

func TestPlaceholder(t *testing.T) {
	t.Parallel()

	q := Placeholder(time.Unix(0, 0))
	require.Equal(t, provider.Binance, q.Exchange)
	require.Equal(t, "Binance", q.Name)
	require.Equal(t, 6.95, q.Bid)
	require.Equal(t, 6.98, q.Ask)
	require.Equal(t, 6.97, q.Last)
	require.Equal(t, 0.01, q.Change24h)
	require.NotNil(t, q.Volume24h)
	require.Equal(t, 1_200_000.0, *q.Volume24h)
}

func TestPointsShape(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := New(7, func() time.Time { return now })

	cases := []struct {
		w    stats.Window
		n    int
		step time.Duration
	}{
		{stats.Hour, 60, time.Minute},
		{stats.Day, 24, time.Hour},
		{stats.Week, 168, time.Hour},
		{stats.Month, 30, 24 * time.Hour},
		{stats.Year, 30, 24 * time.Hour},
	}
	for _, tc := range cases {
		pts, err := p.Points(t.Context(), tc.w, "all")
		require.NoError(t, err)
		require.Len(t, pts, tc.n, tc.w.Name)
		require.Equal(t, now.Add(-tc.step*time.Duration(tc.n)), pts[0].Timestamp, tc.w.Name)
		require.Equal(t, now.Add(-tc.step), pts[len(pts)-1].Timestamp, tc.w.Name)
		for _, pt := range pts {
			require.GreaterOrEqual(t, pt.High, max(pt.Open, pt.Close)-1e-4)
			require.LessOrEqual(t, pt.Low, min(pt.Open, pt.Close)+1e-4)
			require.NotNil(t, pt.Volume)
			require.GreaterOrEqual(t, *pt.Volume, 10_000.0)
			require.LessOrEqual(t, *pt.Volume, 100_000.0)
		}
	}
}

func TestPointsDeterministicForSeed(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	a, _ := New(42, clock).Points(t.Context(), stats.Day, "")
	b, _ := New(42, clock).Points(t.Context(), stats.Day, "")
	require.Equal(t, a, b)
}
