package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-gateway/internal/tools"
	"github.com/i474232898/weather-gateway/internal/upstream"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"ENABLED_TOOLS", "PORT", "UPSTREAM_TIMEOUT", "CACHE_MAX_ENTRIES", "STATUS_PROBE_INTERVAL", "STATUS_HISTORY_MAX_AGE", "STATUS_WINDOW"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, tools.TierBasic, cfg.Tier)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, upstream.DefaultTimeout, cfg.UpstreamTimeout)
	require.Equal(t, 1024, cfg.CacheMaxEntries)
	require.Equal(t, 5*time.Minute, cfg.StatusProbeInterval)
	require.Equal(t, 24*time.Hour, cfg.StatusHistoryMaxAge)
	require.Equal(t, time.Hour, cfg.StatusWindow)
	require.Equal(t, 1.0, cfg.CacheTTLScale)
	require.Equal(t, upstream.DefaultOpenMeteoURLs(), cfg.OpenMeteo)
	require.Equal(t, upstream.DefaultNWSBaseURL, cfg.NWSBaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENABLED_TOOLS", "Full")
	t.Setenv("PORT", "9090")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("CACHE_MAX_ENTRIES", "50")
	t.Setenv("CACHE_TTL_SCALE", "0.5")
	t.Setenv("STATUS_PROBE_INTERVAL", "0s")
	t.Setenv("STATUS_HISTORY_MAX_AGE", "6h")
	t.Setenv("STATUS_WINDOW", "0")
	t.Setenv("OPENMETEO_FORECAST_URL", "http://localhost:9999")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, tools.TierFull, cfg.Tier)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, 50, cfg.CacheMaxEntries)
	require.Equal(t, 0.5, cfg.CacheTTLScale)
	require.Zero(t, cfg.StatusProbeInterval)
	require.Equal(t, 6*time.Hour, cfg.StatusHistoryMaxAge)
	require.Zero(t, cfg.StatusWindow)
	require.Equal(t, "http://localhost:9999", cfg.OpenMeteo.Forecast)
	require.Equal(t, 3*time.Second, cfg.UpstreamOptions().Timeout)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	cases := map[string]string{
		"ENABLED_TOOLS":     "premium",
		"UPSTREAM_TIMEOUT":  "soon",
		"CACHE_MAX_ENTRIES": "0",
		"CACHE_TTL_SCALE":   "-1",
		"STATUS_HISTORY":    "many",
		"STATUS_WINDOW":     "-1h",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			require.ErrorContains(t, err, "invalid "+key)
		})
	}
}
