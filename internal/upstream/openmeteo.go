package upstream

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/weather-gateway/internal/common"
	"github.com/i474232898/weather-gateway/internal/weather"
)

const openMeteoSource = "open-meteo.com"

// OpenMeteoURLs are the base URLs of the Open-Meteo hosts. Each API lives on
// its own host.
type OpenMeteoURLs struct {
	Geocoding  string
	Forecast   string
	Archive    string
	AirQuality string
	Marine     string
	Flood      string
}

func DefaultOpenMeteoURLs() OpenMeteoURLs {
	return OpenMeteoURLs{
		Geocoding:  "https://geocoding-api.open-meteo.com",
		Forecast:   "https://api.open-meteo.com",
		Archive:    "https://archive-api.open-meteo.com",
		AirQuality: "https://air-quality-api.open-meteo.com",
		Marine:     "https://marine-api.open-meteo.com",
		Flood:      "https://flood-api.open-meteo.com",
	}
}

// OpenMeteo adapts the keyless Open-Meteo APIs.
type OpenMeteo struct {
	geocoding  *Client
	forecast   *Client
	archive    *Client
	airQuality *Client
	marine     *Client
	flood      *Client
}

func NewOpenMeteo(urls OpenMeteoURLs, opts Options) *OpenMeteo {
	defaults := DefaultOpenMeteoURLs()
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return &OpenMeteo{
		geocoding: NewClient("openmeteo_geocoding", pick(urls.Geocoding, defaults.Geocoding),
			"/v1/search?name=London&count=1", nil, opts),
		forecast: NewClient("openmeteo_forecast", pick(urls.Forecast, defaults.Forecast),
			"/v1/forecast?latitude=0&longitude=0&current=temperature_2m", nil, opts),
		archive: NewClient("openmeteo_archive", pick(urls.Archive, defaults.Archive),
			"/v1/archive?latitude=0&longitude=0&start_date=2020-01-01&end_date=2020-01-01&daily=temperature_2m_max", nil, opts),
		airQuality: NewClient("openmeteo_air_quality", pick(urls.AirQuality, defaults.AirQuality),
			"/v1/air-quality?latitude=0&longitude=0&current=us_aqi", nil, opts),
		marine: NewClient("openmeteo_marine", pick(urls.Marine, defaults.Marine),
			"/v1/marine?latitude=0&longitude=0&current=wave_height", nil, opts),
		flood: NewClient("openmeteo_flood", pick(urls.Flood, defaults.Flood),
			"/v1/flood?latitude=0&longitude=0&daily=river_discharge&forecast_days=1", nil, opts),
	}
}

// Clients lists the per-host clients, for health reporting and probes.
func (o *OpenMeteo) Clients() []*Client {
	return []*Client{o.geocoding, o.forecast, o.archive, o.airQuality, o.marine, o.flood}
}

func coordParams(c weather.Coordinate) url.Values {
	v := url.Values{}
	v.Set("latitude", formatCoord(c.Latitude))
	v.Set("longitude", formatCoord(c.Longitude))
	return v
}

type geocodeResult struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Elevation   float64 `json:"elevation"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1"`
	Admin2      string  `json:"admin2"`
	Timezone    string  `json:"timezone"`
	Population  int     `json:"population"`
}

func (r geocodeResult) place() weather.Place {
	parts := []string{r.Name}
	if r.Admin1 != "" && r.Admin1 != r.Name {
		parts = append(parts, r.Admin1)
	}
	if r.Country != "" {
		parts = append(parts, r.Country)
	}
	return weather.Place{
		Name:        r.Name,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Country:     r.Country,
		CountryCode: r.CountryCode,
		Admin1:      r.Admin1,
		Admin2:      r.Admin2,
		Timezone:    r.Timezone,
		Population:  r.Population,
		Elevation:   r.Elevation,
		FullName:    strings.Join(parts, ", "),
		Source:      openMeteoSource,
	}
}

// locationQuery is a free-text query split into a place name and an optional
// qualifier, e.g. "Portland, OR" or "Paris, France".
type locationQuery struct {
	Name      string
	Qualifier string
}

func parseLocationQuery(q string) locationQuery {
	parts := strings.Split(q, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	lq := locationQuery{Name: parts[0]}
	if len(parts) > 1 {
		lq.Qualifier = strings.Join(parts[1:], ", ")
	}
	return lq
}

// bestMatch picks the result that agrees with the qualifier: US state codes
// first, then admin1, country name or country code. Without a usable
// qualifier the first result wins, which Open-Meteo orders by relevance and
// population.
func bestMatch(results []geocodeResult, q locationQuery) int {
	if q.Qualifier == "" || len(results) < 2 {
		return 0
	}
	qual := strings.ToLower(strings.TrimSpace(strings.Split(q.Qualifier, ",")[0]))
	if qual == "" {
		return 0
	}

	if state, ok := stateName(qual); ok {
		for i, r := range results {
			if strings.EqualFold(r.CountryCode, "US") && strings.EqualFold(r.Admin1, state) {
				return i
			}
		}
	}
	for i, r := range results {
		if strings.EqualFold(r.Admin1, qual) || strings.EqualFold(r.Country, qual) || strings.EqualFold(r.CountryCode, qual) {
			return i
		}
	}
	for i, r := range results {
		if common.HasAny(r.Admin1, qual) || common.HasAny(r.Country, qual) {
			return i
		}
	}
	return 0
}

// Search resolves free text to a place. A query with a qualifier is looked up
// by its name part and the qualifier is used to choose among the results.
func (o *OpenMeteo) Search(ctx context.Context, query string) (weather.LocationResult, error) {
	const op = "search_location"
	lq := parseLocationQuery(query)

	params := url.Values{}
	params.Set("name", lq.Name)
	params.Set("count", "20")
	params.Set("language", "en")
	params.Set("format", "json")

	body, err := o.geocoding.Fetch(ctx, "/v1/search", params)
	if err != nil {
		return weather.LocationResult{}, err
	}
	var resp struct {
		Results []geocodeResult `json:"results"`
	}
	if err := decode(op, body, &resp); err != nil {
		return weather.LocationResult{}, err
	}
	if len(resp.Results) == 0 {
		return weather.LocationResult{}, weather.E(weather.KindNoDataForRegion, op, "no location matches %q", query)
	}

	best := bestMatch(resp.Results, lq)
	result := weather.LocationResult{Query: query, Place: resp.Results[best].place()}
	for i, r := range resp.Results {
		if i == best {
			continue
		}
		if len(result.Alternatives) == 4 {
			break
		}
		result.Alternatives = append(result.Alternatives, r.place())
	}
	if code := stateCode(result.Admin1); code != "" && strings.EqualFold(result.CountryCode, "US") {
		result.FullName = fmt.Sprintf("%s, %s, %s", result.Name, code, result.Country)
	}
	return result, nil
}

// at reads sample i of a series rounded to one decimal. Open-Meteo reports
// missing samples as null, which stay nil.
func at(vals []*float64, i int) *float64 {
	if i >= len(vals) || vals[i] == nil {
		return nil
	}
	v := common.Round(*vals[i], 1)
	return &v
}

func atInt(vals []*float64, i int) *int {
	if i >= len(vals) || vals[i] == nil {
		return nil
	}
	v := int(math.Round(*vals[i]))
	return &v
}

func conditionOf(code *int) weather.Condition {
	if code == nil {
		return weather.ConditionUnknown
	}
	return weather.ConditionFromCode(*code)
}

// reported tells whether any series has a non-null sample.
func reported(series ...[]*float64) bool {
	for _, vals := range series {
		for _, v := range vals {
			if v != nil {
				return true
			}
		}
	}
	return false
}

func atPtr(vals []*float64, i int) *float64 {
	if i >= len(vals) || vals[i] == nil {
		return nil
	}
	v := common.Round(*vals[i], 2)
	return &v
}

func atString(vals []string, i int) string {
	if i >= len(vals) {
		return ""
	}
	return vals[i]
}

func round(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := common.Round(*v, 2)
	return &r
}

// Forecast returns a daily forecast for days days starting today in the
// point's local timezone.
func (o *OpenMeteo) Forecast(ctx context.Context, c weather.Coordinate, days int) (weather.Forecast, error) {
	const op = "get_forecast"
	params := coordParams(c)
	params.Set("daily", strings.Join([]string{
		"weather_code", "temperature_2m_max", "temperature_2m_min",
		"apparent_temperature_max", "apparent_temperature_min",
		"precipitation_sum", "precipitation_probability_max",
		"wind_speed_10m_max", "wind_gusts_10m_max", "wind_direction_10m_dominant",
		"uv_index_max", "sunrise", "sunset",
	}, ","))
	params.Set("forecast_days", strconv.Itoa(days))
	params.Set("timezone", "auto")
	params.Set("wind_speed_unit", "ms")

	body, err := o.forecast.Fetch(ctx, "/v1/forecast", params)
	if err != nil {
		return weather.Forecast{}, err
	}

	var resp struct {
		Timezone string `json:"timezone"`
		Daily    struct {
			Time          []string   `json:"time"`
			WeatherCode   []*float64 `json:"weather_code"`
			TempMax       []*float64 `json:"temperature_2m_max"`
			TempMin       []*float64 `json:"temperature_2m_min"`
			FeelsMax      []*float64 `json:"apparent_temperature_max"`
			FeelsMin      []*float64 `json:"apparent_temperature_min"`
			Precipitation []*float64 `json:"precipitation_sum"`
			PrecipProb    []*float64 `json:"precipitation_probability_max"`
			WindMax       []*float64 `json:"wind_speed_10m_max"`
			GustMax       []*float64 `json:"wind_gusts_10m_max"`
			WindDir       []*float64 `json:"wind_direction_10m_dominant"`
			UVMax         []*float64 `json:"uv_index_max"`
			Sunrise       []string   `json:"sunrise"`
			Sunset        []string   `json:"sunset"`
		} `json:"daily"`
	}
	if err := decode(op, body, &resp); err != nil {
		return weather.Forecast{}, err
	}
	if len(resp.Daily.Time) == 0 {
		return weather.Forecast{}, weather.E(weather.KindMalformedResponse, op, "response has no daily series")
	}

	d := resp.Daily
	if !reported(d.WeatherCode, d.TempMax, d.TempMin, d.Precipitation, d.WindMax) {
		return weather.Forecast{}, weather.E(weather.KindNoDataForRegion, op, "no forecast data at %s", c.Key())
	}
	out := weather.Forecast{Coordinate: c, Timezone: resp.Timezone, Source: openMeteoSource}
	for i, date := range d.Time {
		if i == days {
			break
		}
		code := atInt(d.WeatherCode, i)
		out.Days = append(out.Days, weather.ForecastDay{
			Date:                     date,
			Condition:                conditionOf(code),
			WeatherCode:              code,
			TempMaxC:                 at(d.TempMax, i),
			TempMinC:                 at(d.TempMin, i),
			FeelsLikeMaxC:            at(d.FeelsMax, i),
			FeelsLikeMinC:            at(d.FeelsMin, i),
			PrecipitationMm:          at(d.Precipitation, i),
			PrecipitationProbability: atInt(d.PrecipProb, i),
			WindSpeedMaxMS:           at(d.WindMax, i),
			WindGustsMaxMS:           at(d.GustMax, i),
			WindDirectionDeg:         atInt(d.WindDir, i),
			UVIndexMax:               at(d.UVMax, i),
			Sunrise:                  atString(d.Sunrise, i),
			Sunset:                   atString(d.Sunset, i),
		})
	}
	return out, nil
}

// Historical returns archived daily observations for [start, end].
func (o *OpenMeteo) Historical(ctx context.Context, c weather.Coordinate, start, end string) (weather.HistoricalWeather, error) {
	const op = "get_historical_weather"
	params := coordParams(c)
	params.Set("start_date", start)
	params.Set("end_date", end)
	params.Set("daily", strings.Join([]string{
		"weather_code", "temperature_2m_max", "temperature_2m_min", "temperature_2m_mean",
		"precipitation_sum", "rain_sum", "snowfall_sum",
		"wind_speed_10m_max", "wind_gusts_10m_max", "sunshine_duration",
	}, ","))
	params.Set("timezone", "auto")
	params.Set("wind_speed_unit", "ms")

	body, err := o.archive.Fetch(ctx, "/v1/archive", params)
	if err != nil {
		return weather.HistoricalWeather{}, err
	}

	var resp struct {
		Timezone string `json:"timezone"`
		Daily    struct {
			Time          []string   `json:"time"`
			WeatherCode   []*float64 `json:"weather_code"`
			TempMax       []*float64 `json:"temperature_2m_max"`
			TempMin       []*float64 `json:"temperature_2m_min"`
			TempMean      []*float64 `json:"temperature_2m_mean"`
			Precipitation []*float64 `json:"precipitation_sum"`
			Rain          []*float64 `json:"rain_sum"`
			Snowfall      []*float64 `json:"snowfall_sum"`
			WindMax       []*float64 `json:"wind_speed_10m_max"`
			GustMax       []*float64 `json:"wind_gusts_10m_max"`
			Sunshine      []*float64 `json:"sunshine_duration"`
		} `json:"daily"`
	}
	if err := decode(op, body, &resp); err != nil {
		return weather.HistoricalWeather{}, err
	}

	d := resp.Daily
	if !reported(d.TempMax, d.TempMin, d.TempMean, d.Precipitation) {
		return weather.HistoricalWeather{}, weather.E(weather.KindNoDataForRegion, op, "no archived observations at %s for %s to %s", c.Key(), start, end)
	}
	out := weather.HistoricalWeather{
		Coordinate: c,
		StartDate:  start,
		EndDate:    end,
		Timezone:   resp.Timezone,
		Days:       make([]weather.HistoricalDay, 0, len(d.Time)),
		Source:     openMeteoSource,
	}
	for i, date := range d.Time {
		code := atInt(d.WeatherCode, i)
		var sunshine *float64
		if secs := at(d.Sunshine, i); secs != nil {
			h := common.Round(*secs/3600, 1)
			sunshine = &h
		}
		out.Days = append(out.Days, weather.HistoricalDay{
			Date:            date,
			Condition:       conditionOf(code),
			WeatherCode:     code,
			TempMaxC:        at(d.TempMax, i),
			TempMinC:        at(d.TempMin, i),
			TempMeanC:       at(d.TempMean, i),
			PrecipitationMm: at(d.Precipitation, i),
			RainMm:          at(d.Rain, i),
			SnowfallCm:      at(d.Snowfall, i),
			WindSpeedMaxMS:  at(d.WindMax, i),
			WindGustsMaxMS:  at(d.GustMax, i),
			SunshineHours:   sunshine,
		})
	}
	out.Summary = weather.SummarizeHistorical(out.Days)
	return out, nil
}

// AirQuality returns current pollutant concentrations and AQI values.
func (o *OpenMeteo) AirQuality(ctx context.Context, c weather.Coordinate) (weather.AirQuality, error) {
	const op = "get_air_quality"
	params := coordParams(c)
	params.Set("current", "us_aqi,european_aqi,pm10,pm2_5,carbon_monoxide,nitrogen_dioxide,sulphur_dioxide,ozone,uv_index")
	params.Set("timezone", "auto")

	body, err := o.airQuality.Fetch(ctx, "/v1/air-quality", params)
	if err != nil {
		return weather.AirQuality{}, err
	}

	var resp struct {
		Current struct {
			Time            string   `json:"time"`
			USAQI           *float64 `json:"us_aqi"`
			EuropeanAQI     *float64 `json:"european_aqi"`
			PM10            *float64 `json:"pm10"`
			PM25            *float64 `json:"pm2_5"`
			CarbonMonoxide  *float64 `json:"carbon_monoxide"`
			NitrogenDioxide *float64 `json:"nitrogen_dioxide"`
			SulphurDioxide  *float64 `json:"sulphur_dioxide"`
			Ozone           *float64 `json:"ozone"`
			UVIndex         *float64 `json:"uv_index"`
		} `json:"current"`
	}
	if err := decode(op, body, &resp); err != nil {
		return weather.AirQuality{}, err
	}

	cur := resp.Current
	if cur.USAQI == nil && cur.EuropeanAQI == nil && cur.PM25 == nil && cur.PM10 == nil {
		return weather.AirQuality{}, weather.E(weather.KindNoDataForRegion, op, "no air quality data at %s", c.Key())
	}
	return weather.AirQuality{
		Coordinate:      c,
		Time:            cur.Time,
		USAQI:           round(cur.USAQI),
		USCategory:      weather.USAQICategory(cur.USAQI),
		EuropeanAQI:     round(cur.EuropeanAQI),
		PM10:            round(cur.PM10),
		PM25:            round(cur.PM25),
		CarbonMonoxide:  round(cur.CarbonMonoxide),
		NitrogenDioxide: round(cur.NitrogenDioxide),
		SulphurDioxide:  round(cur.SulphurDioxide),
		Ozone:           round(cur.Ozone),
		UVIndex:         round(cur.UVIndex),
		Source:          openMeteoSource,
	}, nil
}

// Marine returns the current sea state. Points on land have no marine model
// data and fail with NoDataForRegion.
func (o *OpenMeteo) Marine(ctx context.Context, c weather.Coordinate) (weather.MarineConditions, error) {
	const op = "get_marine_conditions"
	params := coordParams(c)
	params.Set("current", strings.Join([]string{
		"wave_height", "wave_direction", "wave_period",
		"wind_wave_height", "swell_wave_height", "swell_wave_direction", "swell_wave_period",
		"sea_surface_temperature",
	}, ","))
	params.Set("timezone", "auto")

	body, err := o.marine.Fetch(ctx, "/v1/marine", params)
	if err != nil {
		if StatusCode(err) == 400 {
			return weather.MarineConditions{}, &weather.Error{Kind: weather.KindNoDataForRegion, Op: op, Message: "no marine data at this point", Cause: err}
		}
		return weather.MarineConditions{}, err
	}

	var resp struct {
		Current struct {
			Time               string   `json:"time"`
			WaveHeight         *float64 `json:"wave_height"`
			WaveDirection      *float64 `json:"wave_direction"`
			WavePeriod         *float64 `json:"wave_period"`
			WindWaveHeight     *float64 `json:"wind_wave_height"`
			SwellWaveHeight    *float64 `json:"swell_wave_height"`
			SwellWaveDirection *float64 `json:"swell_wave_direction"`
			SwellWavePeriod    *float64 `json:"swell_wave_period"`
			SeaSurfaceTemp     *float64 `json:"sea_surface_temperature"`
		} `json:"current"`
	}
	if err := decode(op, body, &resp); err != nil {
		return weather.MarineConditions{}, err
	}

	cur := resp.Current
	if cur.WaveHeight == nil && cur.SwellWaveHeight == nil && cur.SeaSurfaceTemp == nil {
		return weather.MarineConditions{}, weather.E(weather.KindNoDataForRegion, op, "no marine data at %s", c.Key())
	}
	return weather.MarineConditions{
		Coordinate:            c,
		Time:                  cur.Time,
		WaveHeightM:           round(cur.WaveHeight),
		WaveDirectionDeg:      round(cur.WaveDirection),
		WavePeriodS:           round(cur.WavePeriod),
		WindWaveHeightM:       round(cur.WindWaveHeight),
		SwellWaveHeightM:      round(cur.SwellWaveHeight),
		SwellWaveDirectionDeg: round(cur.SwellWaveDirection),
		SwellWavePeriodS:      round(cur.SwellWavePeriod),
		SeaSurfaceTempC:       round(cur.SeaSurfaceTemp),
		Source:                openMeteoSource,
	}, nil
}

// Lightning summarizes modelled lightning potential and CAPE for the next
// three days.
func (o *OpenMeteo) Lightning(ctx context.Context, c weather.Coordinate) (weather.LightningActivity, error) {
	const op = "get_lightning_activity"
	params := coordParams(c)
	params.Set("hourly", "lightning_potential,cape,weather_code")
	params.Set("forecast_days", "3")
	params.Set("timezone", "auto")

	body, err := o.forecast.Fetch(ctx, "/v1/forecast", params)
	if err != nil {
		return weather.LightningActivity{}, err
	}

	var resp struct {
		Hourly struct {
			Time               []string   `json:"time"`
			LightningPotential []*float64 `json:"lightning_potential"`
			CAPE               []*float64 `json:"cape"`
			WeatherCode        []*float64 `json:"weather_code"`
		} `json:"hourly"`
	}
	if err := decode(op, body, &resp); err != nil {
		return weather.LightningActivity{}, err
	}

	h := resp.Hourly
	if !reported(h.LightningPotential, h.CAPE, h.WeatherCode) {
		return weather.LightningActivity{}, weather.E(weather.KindNoDataForRegion, op, "no convective model data at %s", c.Key())
	}
	hours := make([]weather.LightningHour, 0, len(h.Time))
	for i, ts := range h.Time {
		hours = append(hours, weather.LightningHour{
			Time:               ts,
			LightningPotential: at(h.LightningPotential, i),
			CAPE:               at(h.CAPE, i),
			WeatherCode:        atInt(h.WeatherCode, i),
		})
	}
	days, risk := weather.SummarizeLightning(hours)
	return weather.LightningActivity{Coordinate: c, Risk: risk, Days: days, Source: openMeteoSource}, nil
}

// FireWeather derives a fire-weather risk from hourly temperature, humidity,
// wind, vapour pressure deficit and precipitation for the next three days.
func (o *OpenMeteo) FireWeather(ctx context.Context, c weather.Coordinate) (weather.WildfireInfo, error) {
	const op = "get_wildfire_info"
	params := coordParams(c)
	params.Set("hourly", "temperature_2m,relative_humidity_2m,wind_speed_10m,vapour_pressure_deficit,precipitation")
	params.Set("forecast_days", "3")
	params.Set("timezone", "auto")
	params.Set("wind_speed_unit", "ms")

	body, err := o.forecast.Fetch(ctx, "/v1/forecast", params)
	if err != nil {
		return weather.WildfireInfo{}, err
	}

	var resp struct {
		Hourly struct {
			Time          []string   `json:"time"`
			Temperature   []*float64 `json:"temperature_2m"`
			Humidity      []*float64 `json:"relative_humidity_2m"`
			WindSpeed     []*float64 `json:"wind_speed_10m"`
			VPD           []*float64 `json:"vapour_pressure_deficit"`
			Precipitation []*float64 `json:"precipitation"`
		} `json:"hourly"`
	}
	if err := decode(op, body, &resp); err != nil {
		return weather.WildfireInfo{}, err
	}

	h := resp.Hourly
	if !reported(h.Temperature, h.Humidity, h.WindSpeed, h.VPD) {
		return weather.WildfireInfo{}, weather.E(weather.KindNoDataForRegion, op, "no fire-weather inputs at %s", c.Key())
	}
	hours := make([]weather.FireWeatherHour, 0, len(h.Time))
	for i, ts := range h.Time {
		hours = append(hours, weather.FireWeatherHour{
			Time:            ts,
			TemperatureC:    at(h.Temperature, i),
			HumidityPct:     at(h.Humidity, i),
			WindSpeedMS:     at(h.WindSpeed, i),
			VPDKPa:          at(h.VPD, i),
			PrecipitationMm: at(h.Precipitation, i),
		})
	}
	days, risk := weather.SummarizeFireWeather(hours)
	return weather.WildfireInfo{Coordinate: c, Risk: risk, Days: days, Source: openMeteoSource}, nil
}

// River returns modelled daily river discharge for the past week and the
// next two weeks from the GloFAS flood model.
func (o *OpenMeteo) River(ctx context.Context, c weather.Coordinate) (weather.RiverConditions, error) {
	const op = "get_river_conditions"
	params := coordParams(c)
	params.Set("daily", "river_discharge,river_discharge_mean,river_discharge_max")
	params.Set("past_days", "7")
	params.Set("forecast_days", "14")

	body, err := o.flood.Fetch(ctx, "/v1/flood", params)
	if err != nil {
		return weather.RiverConditions{}, err
	}

	var resp struct {
		Daily struct {
			Time      []string   `json:"time"`
			Discharge []*float64 `json:"river_discharge"`
			Mean      []*float64 `json:"river_discharge_mean"`
			Max       []*float64 `json:"river_discharge_max"`
		} `json:"daily"`
	}
	if err := decode(op, body, &resp); err != nil {
		return weather.RiverConditions{}, err
	}

	d := resp.Daily
	out := weather.RiverConditions{Coordinate: c, Source: "open-meteo.com (GloFAS)"}
	reported := false
	for i, date := range d.Time {
		day := weather.RiverDay{
			Date:         date,
			DischargeM3S: atPtr(d.Discharge, i),
			MeanM3S:      atPtr(d.Mean, i),
			MaxM3S:       atPtr(d.Max, i),
		}
		if day.DischargeM3S != nil {
			reported = true
		}
		out.Days = append(out.Days, day)
	}
	if !reported {
		return weather.RiverConditions{}, weather.E(weather.KindNoDataForRegion, op, "no river discharge modelled near %s", c.Key())
	}
	out.Trend = weather.DischargeTrend(out.Days)
	return out, nil
}
