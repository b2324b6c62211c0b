package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-gateway/internal/weather"
)

func newOpenMeteoServer(t *testing.T, mux *http.ServeMux) *OpenMeteo {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewOpenMeteo(OpenMeteoURLs{
		Geocoding:  srv.URL,
		Forecast:   srv.URL,
		Archive:    srv.URL,
		AirQuality: srv.URL,
		Marine:     srv.URL,
		Flood:      srv.URL,
	}, testOptions())
}

const portlandResults = `{"results":[
	{"name":"Portland","latitude":45.52345,"longitude":-122.67621,"country":"United States","country_code":"US","admin1":"Oregon","timezone":"America/Los_Angeles","population":632309},
	{"name":"Portland","latitude":43.65737,"longitude":-70.2589,"country":"United States","country_code":"US","admin1":"Maine","timezone":"America/New_York","population":66881},
	{"name":"Portland","latitude":-38.34174,"longitude":141.60336,"country":"Australia","country_code":"AU","admin1":"Victoria","timezone":"Australia/Melbourne","population":9712}
]}`

func TestSearchUsesQualifierToPickMatch(t *testing.T) {
	var gotName string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("name")
		_, _ = w.Write([]byte(portlandResults))
	})
	om := newOpenMeteoServer(t, mux)

	got, err := om.Search(context.Background(), "Portland, ME")
	require.NoError(t, err)
	require.Equal(t, "Portland", gotName)
	require.Equal(t, "Maine", got.Admin1)
	require.InDelta(t, 43.657, got.Latitude, 0.001)
	require.Equal(t, "Portland, ME, United States", got.FullName)
	require.Len(t, got.Alternatives, 2)

	got, err = om.Search(context.Background(), "Portland, Australia")
	require.NoError(t, err)
	require.Equal(t, "AU", got.CountryCode)

	got, err = om.Search(context.Background(), "Portland")
	require.NoError(t, err)
	require.Equal(t, "Oregon", got.Admin1)
}

func TestSearchNoResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"generationtime_ms":0.5}`))
	})
	om := newOpenMeteoServer(t, mux)

	_, err := om.Search(context.Background(), "Nowhereville")
	require.ErrorIs(t, err, weather.ErrNoDataForRegion)
}

func TestForecastNormalizesDailySeries(t *testing.T) {
	var q url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		q = r.URL.Query()
		_, _ = w.Write([]byte(`{
			"timezone":"America/Los_Angeles",
			"daily":{
				"time":["2026-03-01","2026-03-02"],
				"weather_code":[61,0],
				"temperature_2m_max":[10.24,12.0],
				"temperature_2m_min":[4.0,null],
				"precipitation_sum":[5.5,0],
				"precipitation_probability_max":[80,5],
				"wind_speed_10m_max":[6.1,3.2],
				"sunrise":["2026-03-01T06:52","2026-03-02T06:50"]
			}
		}`))
	})
	om := newOpenMeteoServer(t, mux)

	f, err := om.Forecast(context.Background(), weather.Coordinate{Latitude: 47.6062, Longitude: -122.3321}, 2)
	require.NoError(t, err)
	require.Equal(t, "ms", q.Get("wind_speed_unit"))
	require.Equal(t, "2", q.Get("forecast_days"))
	require.Equal(t, "47.6062", q.Get("latitude"))
	require.Len(t, f.Days, 2)
	require.Equal(t, "America/Los_Angeles", f.Timezone)
	require.Equal(t, weather.ConditionRain, f.Days[0].Condition)
	require.Equal(t, 10.2, *f.Days[0].TempMaxC)
	require.Equal(t, 80, *f.Days[0].PrecipitationProbability)
	require.Nil(t, f.Days[0].UVIndexMax)
	require.Equal(t, weather.ConditionClear, f.Days[1].Condition)
	require.Nil(t, f.Days[1].TempMinC)
	require.Empty(t, f.Days[1].Sunset)
}

func TestForecastUpstreamRejection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":true,"reason":"Parameter forecast_days must be between 0 and 16"}`))
	})
	om := newOpenMeteoServer(t, mux)

	_, err := om.Forecast(context.Background(), weather.Coordinate{}, 7)
	require.ErrorIs(t, err, weather.ErrUpstreamError)
	require.Contains(t, err.Error(), "forecast_days")
}

func TestHistoricalSummarizes(t *testing.T) {
	var start string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/archive", func(w http.ResponseWriter, r *http.Request) {
		start = r.URL.Query().Get("start_date")
		_, _ = w.Write([]byte(`{"timezone":"GMT","daily":{
			"time":["2024-01-01","2024-01-02"],
			"weather_code":[3,63],
			"temperature_2m_max":[8,10],
			"temperature_2m_min":[2,4],
			"precipitation_sum":[0,12.5],
			"sunshine_duration":[7200,0]
		}}`))
	})
	om := newOpenMeteoServer(t, mux)

	h, err := om.Historical(context.Background(), weather.Coordinate{Latitude: 51.5, Longitude: -0.12}, "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	require.Equal(t, "2024-01-01", start)
	require.Len(t, h.Days, 2)
	require.Equal(t, 2.0, *h.Days[0].SunshineHours)
	require.Equal(t, 9.0, *h.Summary.AvgTempMaxC)
	require.Equal(t, "2024-01-02", h.Summary.WettestDate)
	require.Equal(t, 12.5, *h.Summary.TotalPrecipitation)
}

func TestHistoricalKeepsUnreportedDaysEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/archive", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"timezone":"GMT","daily":{
			"time":["2026-10-13","2026-10-14","2026-10-15"],
			"weather_code":[1,null,null],
			"temperature_2m_max":[20,null,null],
			"temperature_2m_min":[11,null,null],
			"precipitation_sum":[0.4,null,null]
		}}`))
	})
	om := newOpenMeteoServer(t, mux)

	h, err := om.Historical(context.Background(), weather.Coordinate{Latitude: 51.5, Longitude: -0.12}, "2026-10-13", "2026-10-15")
	require.NoError(t, err)
	require.Len(t, h.Days, 3)

	day := h.Days[1]
	require.Equal(t, weather.ConditionUnknown, day.Condition)
	require.Nil(t, day.WeatherCode)
	require.Nil(t, day.TempMaxC)
	require.Nil(t, day.TempMinC)
	require.Nil(t, day.SunshineHours)

	require.Equal(t, 1, h.Summary.ReportedDays)
	require.Equal(t, 20.0, *h.Summary.AvgTempMaxC)
	require.Equal(t, 11.0, *h.Summary.MinTempC)
}

func TestAllNullSeriesHasNoData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/archive", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"daily":{
			"time":["2026-10-14","2026-10-15"],
			"temperature_2m_max":[null,null],
			"temperature_2m_min":[null,null]
		}}`))
	})
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("hourly") != "" {
			_, _ = w.Write([]byte(`{"hourly":{"time":["2026-08-01T13:00"],"temperature_2m":[null],"relative_humidity_2m":[null],"lightning_potential":[null],"cape":[null]}}`))
			return
		}
		_, _ = w.Write([]byte(`{"daily":{"time":["2026-03-01"],"weather_code":[null],"temperature_2m_max":[null]}}`))
	})
	om := newOpenMeteoServer(t, mux)
	c := weather.Coordinate{Latitude: 10, Longitude: 10}

	_, err := om.Historical(context.Background(), c, "2026-10-14", "2026-10-15")
	require.ErrorIs(t, err, weather.ErrNoDataForRegion)
	_, err = om.Forecast(context.Background(), c, 1)
	require.ErrorIs(t, err, weather.ErrNoDataForRegion)
	_, err = om.FireWeather(context.Background(), c)
	require.ErrorIs(t, err, weather.ErrNoDataForRegion)
	_, err = om.Lightning(context.Background(), c)
	require.ErrorIs(t, err, weather.ErrNoDataForRegion)
}

func TestFireWeatherMissingHumidity(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hourly":{
			"time":["2026-08-01T13:00","2026-08-01T14:00"],
			"temperature_2m":[12,12],
			"relative_humidity_2m":[null,null],
			"wind_speed_10m":[13,13]
		}}`))
	})
	om := newOpenMeteoServer(t, mux)

	wf, err := om.FireWeather(context.Background(), weather.Coordinate{Latitude: 40, Longitude: -120})
	require.NoError(t, err)
	require.Len(t, wf.Days, 1)
	require.Nil(t, wf.Days[0].MinHumidity)
	require.Equal(t, weather.RiskModerate, wf.Risk)
}

func TestAirQualityCategory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/air-quality", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"time":"2026-03-01T12:00","us_aqi":72,"pm2_5":21.456,"pm10":30}}`))
	})
	om := newOpenMeteoServer(t, mux)

	aq, err := om.AirQuality(context.Background(), weather.Coordinate{Latitude: 34.05, Longitude: -118.24})
	require.NoError(t, err)
	require.Equal(t, "moderate", aq.USCategory)
	require.Equal(t, 21.46, *aq.PM25)
	require.Nil(t, aq.Ozone)
}

func TestMarineOnLandHasNoData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/marine", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"time":"2026-03-01T12:00","wave_height":null,"swell_wave_height":null}}`))
	})
	om := newOpenMeteoServer(t, mux)

	_, err := om.Marine(context.Background(), weather.Coordinate{Latitude: 39.74, Longitude: -104.99})
	require.ErrorIs(t, err, weather.ErrNoDataForRegion)
}

func TestRiverTrend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/flood", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"daily":{
			"time":["2026-03-01","2026-03-02","2026-03-03"],
			"river_discharge":[100,130,160],
			"river_discharge_mean":[90,90,90],
			"river_discharge_max":[200,200,200]
		}}`))
	})
	om := newOpenMeteoServer(t, mux)

	rc, err := om.River(context.Background(), weather.Coordinate{Latitude: 38.6, Longitude: -90.2})
	require.NoError(t, err)
	require.Equal(t, "rising", rc.Trend)
	require.Len(t, rc.Days, 3)
}

func TestLightningRisk(t *testing.T) {
	var hourly string
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		hourly = r.URL.Query().Get("hourly")
		_, _ = w.Write([]byte(`{"hourly":{
			"time":["2026-06-01T14:00","2026-06-01T15:00","2026-06-02T14:00"],
			"lightning_potential":[0,1200,0],
			"cape":[500,2500,100],
			"weather_code":[2,95,1]
		}}`))
	})
	om := newOpenMeteoServer(t, mux)

	la, err := om.Lightning(context.Background(), weather.Coordinate{Latitude: 35.47, Longitude: -97.52})
	require.NoError(t, err)
	require.Equal(t, "lightning_potential,cape,weather_code", hourly)
	require.Len(t, la.Days, 2)
	require.Equal(t, 1, la.Days[0].ThunderstormHours)
	require.NotEqual(t, weather.RiskLow, la.Risk)
}
