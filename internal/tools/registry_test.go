package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-gateway/internal/cache"
	"github.com/i474232898/weather-gateway/internal/upstream"
	"github.com/i474232898/weather-gateway/internal/weather"
)

type fakeGlobal struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (f *fakeGlobal) wait() {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
}

func (f *fakeGlobal) Search(_ context.Context, q string) (weather.LocationResult, error) {
	f.wait()
	if f.err != nil {
		return weather.LocationResult{}, f.err
	}
	return weather.LocationResult{Query: q, Place: weather.Place{Name: q, Source: "fake"}}, nil
}

func (f *fakeGlobal) Forecast(_ context.Context, c weather.Coordinate, days int) (weather.Forecast, error) {
	f.wait()
	if f.err != nil {
		return weather.Forecast{}, f.err
	}
	out := weather.Forecast{Coordinate: c, Source: "fake"}
	for i := 0; i < days; i++ {
		out.Days = append(out.Days, weather.ForecastDay{Date: fmt.Sprintf("2026-03-%02d", i+1)})
	}
	return out, nil
}

func (f *fakeGlobal) Historical(_ context.Context, c weather.Coordinate, _, _ string) (weather.HistoricalWeather, error) {
	f.wait()
	return weather.HistoricalWeather{}, f.err
}

func (f *fakeGlobal) AirQuality(_ context.Context, c weather.Coordinate) (weather.AirQuality, error) {
	f.wait()
	return weather.AirQuality{Coordinate: c}, f.err
}

func (f *fakeGlobal) Marine(_ context.Context, c weather.Coordinate) (weather.MarineConditions, error) {
	f.wait()
	return weather.MarineConditions{}, f.err
}

func (f *fakeGlobal) Lightning(_ context.Context, c weather.Coordinate) (weather.LightningActivity, error) {
	f.wait()
	return weather.LightningActivity{}, f.err
}

func (f *fakeGlobal) FireWeather(_ context.Context, c weather.Coordinate) (weather.WildfireInfo, error) {
	f.wait()
	return weather.WildfireInfo{}, f.err
}

func (f *fakeGlobal) River(_ context.Context, c weather.Coordinate) (weather.RiverConditions, error) {
	f.wait()
	return weather.RiverConditions{}, f.err
}

type fakeUS struct {
	calls atomic.Int32
}

func (f *fakeUS) CurrentConditions(_ context.Context, c weather.Coordinate) (weather.CurrentConditions, error) {
	f.calls.Add(1)
	return weather.CurrentConditions{Coordinate: c, Station: "KSEA"}, nil
}

func (f *fakeUS) Alerts(_ context.Context, c weather.Coordinate) (weather.Alerts, error) {
	f.calls.Add(1)
	return weather.Alerts{Coordinate: c, Alerts: []weather.Alert{}}, nil
}

type fakeRadar struct{}

func (fakeRadar) Imagery(_ context.Context, c weather.Coordinate) (weather.Imagery, error) {
	return weather.Imagery{}, nil
}

type fakeGeocoder struct {
	calls atomic.Int32
}

func (f *fakeGeocoder) Enabled() bool { return true }

func (f *fakeGeocoder) Search(_ context.Context, q string) (weather.LocationResult, error) {
	f.calls.Add(1)
	return weather.LocationResult{Query: q, Place: weather.Place{Name: q, Latitude: 1, Longitude: 2, Source: "google"}}, nil
}

func newTestRegistry(t *testing.T, tier Tier, b Backends) *Registry {
	t.Helper()
	if b.Global == nil {
		b.Global = &fakeGlobal{}
	}
	if b.US == nil {
		b.US = &fakeUS{}
	}
	if b.Radar == nil {
		b.Radar = fakeRadar{}
	}
	c, err := cache.New(64)
	require.NoError(t, err)
	r, err := NewRegistry(tier, b, c, WithClock(fixedNow))
	require.NoError(t, err)
	return r
}

var seattle = map[string]any{"latitude": 47.6062, "longitude": -122.3321}

func TestDispatchTierGating(t *testing.T) {
	basic := newTestRegistry(t, TierBasic, Backends{})
	_, err := basic.Dispatch(context.Background(), ToolAirQuality, seattle)
	require.ErrorIs(t, err, weather.ErrToolDisabled)
	require.Contains(t, err.Error(), "standard")

	all := newTestRegistry(t, TierAll, Backends{})
	out, err := all.Dispatch(context.Background(), ToolAirQuality, seattle)
	require.NoError(t, err)
	require.True(t, json.Valid(out))

	require.Len(t, basic.Tools(), 5)
	require.Len(t, all.Tools(), 12)
}

func TestDispatchUnknownTool(t *testing.T) {
	r := newTestRegistry(t, TierAll, Backends{})
	for _, name := range []string{"get_weather", "GET_FORECAST", ""} {
		_, err := r.Dispatch(context.Background(), name, seattle)
		require.ErrorIs(t, err, weather.ErrUnknownTool, name)
	}
}

func TestDispatchValidationSkipsUpstream(t *testing.T) {
	g := &fakeGlobal{}
	r := newTestRegistry(t, TierAll, Backends{Global: g})

	_, err := r.Dispatch(context.Background(), ToolForecast, map[string]any{"latitude": 91.0, "longitude": 0.0})
	require.ErrorIs(t, err, weather.ErrInvalidCoordinate)
	_, err = r.Dispatch(context.Background(), ToolForecast, map[string]any{"latitude": 1.0, "longitude": 1.0, "days": 30})
	require.ErrorIs(t, err, weather.ErrInvalidRange)
	require.Zero(t, g.calls.Load())
}

func TestDispatchUSToolOutsideCoverage(t *testing.T) {
	us := &fakeUS{}
	r := newTestRegistry(t, TierBasic, Backends{US: us})

	_, err := r.Dispatch(context.Background(), ToolCurrentConditions, map[string]any{"latitude": 48.8566, "longitude": 2.3522})
	require.ErrorIs(t, err, weather.ErrNoDataForRegion)
	require.Zero(t, us.calls.Load())
}

func TestDispatchCoalescesConcurrentCalls(t *testing.T) {
	g := &fakeGlobal{release: make(chan struct{})}
	r := newTestRegistry(t, TierBasic, Backends{Global: g})

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan json.RawMessage, callers)
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Dispatch(context.Background(), ToolForecast, seattle)
			if err != nil {
				errs <- err
				return
			}
			results <- out
		}()
	}

	require.Eventually(t, func() bool { return g.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(g.release)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	var first json.RawMessage
	n := 0
	for out := range results {
		if first == nil {
			first = out
		}
		require.Equal(t, string(first), string(out))
		n++
	}
	require.Equal(t, callers, n)
	require.EqualValues(t, 1, g.calls.Load())
}

func TestDispatchServesCachedBytesWithinTTL(t *testing.T) {
	g := &fakeGlobal{}
	r := newTestRegistry(t, TierBasic, Backends{Global: g})

	first, err := r.Dispatch(context.Background(), ToolForecast, seattle)
	require.NoError(t, err)
	second, err := r.Dispatch(context.Background(), ToolForecast, map[string]any{"latitude": "47.60620", "longitude": -122.33211, "days": 7})
	require.NoError(t, err)

	require.Equal(t, string(first), string(second))
	require.EqualValues(t, 1, g.calls.Load())

	_, err = r.Dispatch(context.Background(), ToolForecast, map[string]any{"latitude": 47.6062, "longitude": -122.3321, "days": 3})
	require.NoError(t, err)
	require.EqualValues(t, 2, g.calls.Load(), "different days is a different key")
}

func TestDispatchDoesNotCacheStatus(t *testing.T) {
	var calls atomic.Int32
	r := newTestRegistry(t, TierBasic, Backends{Status: func(context.Context) any {
		n := calls.Add(1)
		return map[string]any{"call": n}
	}})

	a, err := r.Dispatch(context.Background(), ToolCheckServiceStatus, nil)
	require.NoError(t, err)
	b, err := r.Dispatch(context.Background(), ToolCheckServiceStatus, map[string]any{})
	require.NoError(t, err)

	require.EqualValues(t, 2, calls.Load())
	require.NotEqual(t, string(a), string(b))
}

func TestDispatchDoesNotCacheFailures(t *testing.T) {
	g := &fakeGlobal{err: weather.E(weather.KindUpstreamUnavailable, "get_forecast", "down")}
	r := newTestRegistry(t, TierBasic, Backends{Global: g})

	for i := 0; i < 2; i++ {
		_, err := r.Dispatch(context.Background(), ToolForecast, seattle)
		require.ErrorIs(t, err, weather.ErrUpstreamUnavailable)
	}
	require.EqualValues(t, 2, g.calls.Load())
}

func TestSearchFallsBackToGeocoder(t *testing.T) {
	g := &fakeGlobal{err: weather.E(weather.KindNoDataForRegion, "search_location", "no match")}
	geo := &fakeGeocoder{}
	r := newTestRegistry(t, TierBasic, Backends{Global: g, Geocoder: geo})

	out, err := r.Dispatch(context.Background(), ToolSearchLocation, map[string]any{"query": "Smallville, KS"})
	require.NoError(t, err)
	require.EqualValues(t, 1, geo.calls.Load())

	var res weather.LocationResult
	require.NoError(t, json.Unmarshal(out, &res))
	require.Equal(t, "google", res.Source)

	unavailable := &fakeGlobal{err: weather.E(weather.KindUpstreamUnavailable, "search_location", "down")}
	r = newTestRegistry(t, TierBasic, Backends{Global: unavailable, Geocoder: geo})
	_, err = r.Dispatch(context.Background(), ToolSearchLocation, map[string]any{"query": "Smallville"})
	require.ErrorIs(t, err, weather.ErrUpstreamUnavailable)
	require.EqualValues(t, 1, geo.calls.Load(), "only empty results fall back")
}

func TestDispatchCancelledContext(t *testing.T) {
	g := &fakeGlobal{release: make(chan struct{})}
	defer close(g.release)
	r := newTestRegistry(t, TierBasic, Backends{Global: g})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Dispatch(ctx, ToolForecast, seattle)
	require.ErrorIs(t, err, weather.ErrUpstreamUnavailable)
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	require.Equal(t, "abc", RequestID(ctx))
	require.Empty(t, RequestID(context.Background()))
}

// Search for a qualified city, then request a week of forecast for the
// returned coordinates, through the real Open-Meteo adapter.
func TestSearchThenForecast(t *testing.T) {
	var forecastDays atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[
			{"name":"Seattle","latitude":47.60621,"longitude":-122.33207,"country":"United States","country_code":"US","admin1":"Washington","timezone":"America/Los_Angeles"},
			{"name":"Seattle","latitude":-26.1,"longitude":28.0,"country":"South Africa","country_code":"ZA","admin1":"Gauteng"}
		]}`))
	})
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.Atoi(r.URL.Query().Get("forecast_days"))
		forecastDays.Store(n)
		days := make([]string, n)
		codes := make([]int, n)
		for i := range days {
			days[i] = fmt.Sprintf("2026-03-%02d", i+15)
			codes[i] = 3
		}
		body, _ := json.Marshal(map[string]any{
			"timezone": "America/Los_Angeles",
			"daily": map[string]any{
				"time":         days,
				"weather_code": codes,
			},
		})
		_, _ = w.Write(body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	om := upstream.NewOpenMeteo(upstream.OpenMeteoURLs{
		Geocoding: srv.URL,
		Forecast:  srv.URL,
	}, upstream.Options{Timeout: time.Second, RetryBackoff: time.Millisecond})
	r := newTestRegistry(t, TierBasic, Backends{Global: om})

	out, err := r.Dispatch(context.Background(), ToolSearchLocation, map[string]any{"query": "Seattle, WA"})
	require.NoError(t, err)
	var loc weather.LocationResult
	require.NoError(t, json.Unmarshal(out, &loc))
	require.InDelta(t, 47.6062, loc.Latitude, 0.01)
	require.InDelta(t, -122.3321, loc.Longitude, 0.01)

	out, err = r.Dispatch(context.Background(), ToolForecast, map[string]any{
		"latitude":  loc.Latitude,
		"longitude": loc.Longitude,
		"days":      7,
	})
	require.NoError(t, err)
	var fc weather.Forecast
	require.NoError(t, json.Unmarshal(out, &fc))
	require.Len(t, fc.Days, 7)
	require.Equal(t, 7, forecastDays.Load())
	require.Equal(t, weather.ConditionCloudy, fc.Days[0].Condition)
}
