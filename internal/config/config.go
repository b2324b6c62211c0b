package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/weather-gateway/internal/tools"
	"github.com/i474232898/weather-gateway/internal/upstream"
)

type AppConfig struct {
	// Tier is parsed from ENABLED_TOOLS.
	Tier tools.Tier

	Port     string
	LogLevel string

	UpstreamTimeout      time.Duration
	UpstreamRetryBackoff time.Duration
	NWSUserAgent         string

	CacheMaxEntries int
	CacheTTLScale   float64

	// StatusProbeInterval controls how often upstreams are probed (0 = never).
	StatusProbeInterval time.Duration
	StatusHistory       int // probe results kept per upstream
	// StatusHistoryMaxAge drops probe results older than this (0 = keep by count only).
	StatusHistoryMaxAge time.Duration
	// StatusWindow is the span the reported success ratio covers (0 = all retained).
	StatusWindow time.Duration

	GoogleGeocoderAPIKey string

	OpenMeteo     upstream.OpenMeteoURLs
	NWSBaseURL    string
	RainViewerURL string
}

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ENABLED_TOOLS", "basic")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("UPSTREAM_TIMEOUT", upstream.DefaultTimeout.String())
	v.SetDefault("UPSTREAM_RETRY_BACKOFF", upstream.DefaultRetryBackoff.String())
	v.SetDefault("NWS_USER_AGENT", upstream.DefaultUserAgent)
	v.SetDefault("CACHE_MAX_ENTRIES", 1024)
	v.SetDefault("CACHE_TTL_SCALE", 1.0)
	v.SetDefault("STATUS_PROBE_INTERVAL", "5m")
	v.SetDefault("STATUS_HISTORY", 20)
	v.SetDefault("STATUS_HISTORY_MAX_AGE", "24h")
	v.SetDefault("STATUS_WINDOW", "1h")
	v.SetDefault("GOOGLE_GEOCODER_API_KEY", "")

	urls := upstream.DefaultOpenMeteoURLs()
	v.SetDefault("OPENMETEO_GEOCODING_URL", urls.Geocoding)
	v.SetDefault("OPENMETEO_FORECAST_URL", urls.Forecast)
	v.SetDefault("OPENMETEO_ARCHIVE_URL", urls.Archive)
	v.SetDefault("OPENMETEO_AIR_QUALITY_URL", urls.AirQuality)
	v.SetDefault("OPENMETEO_MARINE_URL", urls.Marine)
	v.SetDefault("OPENMETEO_FLOOD_URL", urls.Flood)
	v.SetDefault("NWS_BASE_URL", upstream.DefaultNWSBaseURL)
	v.SetDefault("RAINVIEWER_BASE_URL", upstream.DefaultRainViewerBaseURL)
	return v
}

// FromViper builds the config from v. Exposed so tests can inject values.
func FromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{}

	tier, err := tools.ParseTier(v.GetString("ENABLED_TOOLS"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENABLED_TOOLS: %w", err)
	}
	cfg.Tier = tier

	cfg.Port = v.GetString("PORT")
	cfg.LogLevel = strings.ToLower(v.GetString("LOG_LEVEL"))
	cfg.NWSUserAgent = v.GetString("NWS_USER_AGENT")
	cfg.GoogleGeocoderAPIKey = v.GetString("GOOGLE_GEOCODER_API_KEY")

	if cfg.UpstreamTimeout, err = duration(v, "UPSTREAM_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.UpstreamRetryBackoff, err = duration(v, "UPSTREAM_RETRY_BACKOFF"); err != nil {
		return nil, err
	}
	if cfg.StatusProbeInterval, err = duration(v, "STATUS_PROBE_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.StatusHistoryMaxAge, err = duration(v, "STATUS_HISTORY_MAX_AGE"); err != nil {
		return nil, err
	}
	if cfg.StatusWindow, err = duration(v, "STATUS_WINDOW"); err != nil {
		return nil, err
	}

	if cfg.CacheMaxEntries, err = positiveInt(v, "CACHE_MAX_ENTRIES"); err != nil {
		return nil, err
	}
	if cfg.StatusHistory, err = positiveInt(v, "STATUS_HISTORY"); err != nil {
		return nil, err
	}

	cfg.CacheTTLScale, err = parseFloat(v, "CACHE_TTL_SCALE")
	if err != nil {
		return nil, err
	}
	if cfg.CacheTTLScale <= 0 {
		return nil, fmt.Errorf("invalid CACHE_TTL_SCALE: must be > 0, got %v", cfg.CacheTTLScale)
	}

	cfg.OpenMeteo = upstream.OpenMeteoURLs{
		Geocoding:  v.GetString("OPENMETEO_GEOCODING_URL"),
		Forecast:   v.GetString("OPENMETEO_FORECAST_URL"),
		Archive:    v.GetString("OPENMETEO_ARCHIVE_URL"),
		AirQuality: v.GetString("OPENMETEO_AIR_QUALITY_URL"),
		Marine:     v.GetString("OPENMETEO_MARINE_URL"),
		Flood:      v.GetString("OPENMETEO_FLOOD_URL"),
	}
	cfg.NWSBaseURL = v.GetString("NWS_BASE_URL")
	cfg.RainViewerURL = v.GetString("RAINVIEWER_BASE_URL")

	return cfg, nil
}

// UpstreamOptions returns the client options shared by every upstream.
func (c *AppConfig) UpstreamOptions() upstream.Options {
	return upstream.Options{
		Timeout:      c.UpstreamTimeout,
		RetryBackoff: c.UpstreamRetryBackoff,
		UserAgent:    c.NWSUserAgent,
	}
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func positiveInt(v *viper.Viper, key string) (int, error) {
	var n int
	if _, err := fmt.Sscan(v.GetString(key), &n); err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be > 0, got %d", key, n)
	}
	return n, nil
}

func parseFloat(v *viper.Viper, key string) (float64, error) {
	var f float64
	if _, err := fmt.Sscan(v.GetString(key), &f); err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
