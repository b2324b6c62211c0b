package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLatestAndNotFound(t *testing.T) {
	s := NewMemoryStore(0, 0)

	_, err := s.Latest("nws")
	require.ErrorIs(t, err, ErrNotFound)

	s.Record("nws", ProbeResult{OK: false, Error: "timeout"})
	s.Record("nws", ProbeResult{OK: true, Latency: 80 * time.Millisecond})

	got, err := s.Latest("nws")
	require.NoError(t, err)
	require.True(t, got.OK)
	require.False(t, got.At.IsZero())
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(3, 0)
	for i := 0; i < 5; i++ {
		s.Record("openmeteo_forecast", ProbeResult{OK: i >= 3})
	}

	ratio, n, err := s.SuccessRatio("openmeteo_forecast")
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.InDelta(t, 2.0/3.0, ratio, 1e-9)
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, time.Hour)
	s.now = func() time.Time { return now }

	s.Record("rainviewer", ProbeResult{At: now.Add(-3 * time.Hour), OK: false})
	s.Record("rainviewer", ProbeResult{At: now.Add(-2 * time.Hour), OK: false})
	s.Record("rainviewer", ProbeResult{At: now.Add(-10 * time.Minute), OK: true})

	ratio, n, err := s.SuccessRatio("rainviewer")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1.0, ratio)

	// The newest result survives even when it is older than maxAge.
	s.Record("nws", ProbeResult{At: now.Add(-5 * time.Hour), OK: true})
	_, err = s.Latest("nws")
	require.NoError(t, err)
}

func TestMemoryStoreRange(t *testing.T) {
	base := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0, 0)
	for i := 0; i < 4; i++ {
		s.Record("nws", ProbeResult{At: base.Add(time.Duration(i) * time.Minute), OK: true})
	}

	got, err := s.Range("nws", base.Add(time.Minute), base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)

	_, err = s.Range("nws", base.Add(time.Hour), base.Add(2*time.Hour))
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Range("missing", base, base)
	require.ErrorIs(t, err, ErrNotFound)
}
