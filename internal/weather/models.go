package weather

import (
	"fmt"
	"time"
)

// Condition represents a normalized high-level weather condition.
type Condition string

const (
	ConditionUnknown Condition = "unknown"
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionFog     Condition = "fog"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
)

// Coordinate is a point on the globe in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Key returns a canonical string key for the coordinate, rounded to four
// decimal places (~11m), which is finer than any upstream grid.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Place is a resolved location.
type Place struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Country     string  `json:"country,omitempty"`
	CountryCode string  `json:"country_code,omitempty"`
	Admin1      string  `json:"admin1,omitempty"`
	Admin2      string  `json:"admin2,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Population  int     `json:"population,omitempty"`
	Elevation   float64 `json:"elevation_m,omitempty"`
	FullName    string  `json:"full_name"`
	Source      string  `json:"source"`
}

// LocationResult answers search_location. The best match is flattened into
// the top level so callers can feed latitude/longitude straight back in.
type LocationResult struct {
	Query string `json:"query"`
	Place
	Alternatives []Place `json:"alternatives,omitempty"`
}

// ForecastDay is one day of a daily forecast in metric units. Pointer fields
// are nil when the model has no value for that day.
type ForecastDay struct {
	Date                     string    `json:"date"`
	Condition                Condition `json:"condition"`
	WeatherCode              *int      `json:"weather_code"`
	TempMaxC                 *float64  `json:"temp_max_c"`
	TempMinC                 *float64  `json:"temp_min_c"`
	FeelsLikeMaxC            *float64  `json:"feels_like_max_c"`
	FeelsLikeMinC            *float64  `json:"feels_like_min_c"`
	PrecipitationMm          *float64  `json:"precipitation_mm"`
	PrecipitationProbability *int      `json:"precipitation_probability_pct"`
	WindSpeedMaxMS           *float64  `json:"wind_speed_max_ms"`
	WindGustsMaxMS           *float64  `json:"wind_gusts_max_ms"`
	WindDirectionDeg         *int      `json:"wind_direction_deg"`
	UVIndexMax               *float64  `json:"uv_index_max"`
	Sunrise                  string    `json:"sunrise,omitempty"`
	Sunset                   string    `json:"sunset,omitempty"`
}

// Forecast is a multi-day forecast ordered by date ascending.
type Forecast struct {
	Coordinate
	Timezone string        `json:"timezone"`
	Days     []ForecastDay `json:"days"`
	Source   string        `json:"source"`
}

// CurrentConditions is the latest station observation in metric units.
// Pointer fields are nil when the station did not report the quantity.
type CurrentConditions struct {
	Coordinate
	Station          string    `json:"station"`
	StationName      string    `json:"station_name,omitempty"`
	ObservedAt       time.Time `json:"observed_at"`
	Description      string    `json:"description"`
	Condition        Condition `json:"condition"`
	TemperatureC     *float64  `json:"temperature_c"`
	DewpointC        *float64  `json:"dewpoint_c"`
	HumidityPct      *float64  `json:"humidity_pct"`
	WindSpeedMS      *float64  `json:"wind_speed_ms"`
	WindGustMS       *float64  `json:"wind_gust_ms"`
	WindDirectionDeg *float64  `json:"wind_direction_deg"`
	PressureHpa      *float64  `json:"pressure_hpa"`
	VisibilityKm     *float64  `json:"visibility_km"`
	HeatIndexC       *float64  `json:"heat_index_c,omitempty"`
	WindChillC       *float64  `json:"wind_chill_c,omitempty"`
	Source           string    `json:"source"`
}

// Alert is an active weather alert.
type Alert struct {
	ID          string `json:"id"`
	Event       string `json:"event"`
	Headline    string `json:"headline"`
	Severity    string `json:"severity"`
	Urgency     string `json:"urgency"`
	Certainty   string `json:"certainty"`
	AreaDesc    string `json:"area"`
	Effective   string `json:"effective"`
	Expires     string `json:"expires"`
	SenderName  string `json:"sender"`
	Description string `json:"description"`
	Instruction string `json:"instruction,omitempty"`
}

// Alerts lists the alerts active at a point. An empty list is a valid answer.
type Alerts struct {
	Coordinate
	Count  int     `json:"count"`
	Alerts []Alert `json:"alerts"`
	Source string  `json:"source"`
}

// HistoricalDay is one day of archived observations.
type HistoricalDay struct {
	Date            string    `json:"date"`
	Condition       Condition `json:"condition"`
	WeatherCode     *int      `json:"weather_code"`
	TempMaxC        *float64  `json:"temp_max_c"`
	TempMinC        *float64  `json:"temp_min_c"`
	TempMeanC       *float64  `json:"temp_mean_c"`
	PrecipitationMm *float64  `json:"precipitation_mm"`
	RainMm          *float64  `json:"rain_mm"`
	SnowfallCm      *float64  `json:"snowfall_cm"`
	WindSpeedMaxMS  *float64  `json:"wind_speed_max_ms"`
	WindGustsMaxMS  *float64  `json:"wind_gusts_max_ms"`
	SunshineHours   *float64  `json:"sunshine_hours"`
}

// HistoricalSummary aggregates a historical range. Days without a value are
// left out of each statistic; ReportedDays counts days with any temperature.
type HistoricalSummary struct {
	Days               int      `json:"days"`
	ReportedDays       int      `json:"reported_days"`
	AvgTempMaxC        *float64 `json:"avg_temp_max_c"`
	AvgTempMinC        *float64 `json:"avg_temp_min_c"`
	MaxTempC           *float64 `json:"max_temp_c"`
	MinTempC           *float64 `json:"min_temp_c"`
	TotalPrecipitation *float64 `json:"total_precipitation_mm"`
	WettestDate        string   `json:"wettest_date,omitempty"`
}

// HistoricalWeather answers get_historical_weather.
type HistoricalWeather struct {
	Coordinate
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	Timezone  string            `json:"timezone"`
	Days      []HistoricalDay   `json:"days"`
	Summary   HistoricalSummary `json:"summary"`
	Source    string            `json:"source"`
}

// AirQuality is the current air quality at a point.
type AirQuality struct {
	Coordinate
	Time            string   `json:"time"`
	USAQI           *float64 `json:"us_aqi"`
	USCategory      string   `json:"us_category"`
	EuropeanAQI     *float64 `json:"european_aqi"`
	PM10            *float64 `json:"pm10_ugm3"`
	PM25            *float64 `json:"pm2_5_ugm3"`
	CarbonMonoxide  *float64 `json:"carbon_monoxide_ugm3"`
	NitrogenDioxide *float64 `json:"nitrogen_dioxide_ugm3"`
	SulphurDioxide  *float64 `json:"sulphur_dioxide_ugm3"`
	Ozone           *float64 `json:"ozone_ugm3"`
	UVIndex         *float64 `json:"uv_index"`
	Source          string   `json:"source"`
}

// MarineConditions is the current sea state at a point.
type MarineConditions struct {
	Coordinate
	Time                  string   `json:"time"`
	WaveHeightM           *float64 `json:"wave_height_m"`
	WaveDirectionDeg      *float64 `json:"wave_direction_deg"`
	WavePeriodS           *float64 `json:"wave_period_s"`
	WindWaveHeightM       *float64 `json:"wind_wave_height_m"`
	SwellWaveHeightM      *float64 `json:"swell_wave_height_m"`
	SwellWaveDirectionDeg *float64 `json:"swell_wave_direction_deg"`
	SwellWavePeriodS      *float64 `json:"swell_wave_period_s"`
	SeaSurfaceTempC       *float64 `json:"sea_surface_temperature_c"`
	Source                string   `json:"source"`
}

// RadarFrame is a single radar mosaic frame.
type RadarFrame struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	TileURL string    `json:"tile_url"`
}

// Imagery answers get_weather_imagery with radar tiles centred on the point.
type Imagery struct {
	Coordinate
	Zoom      int          `json:"zoom"`
	TileX     int          `json:"tile_x"`
	TileY     int          `json:"tile_y"`
	Generated time.Time    `json:"generated"`
	Frames    []RadarFrame `json:"frames"`
	Source    string       `json:"source"`
}

// LightningDay summarizes convective activity for one day.
type LightningDay struct {
	Date                  string   `json:"date"`
	MaxLightningPotential *float64 `json:"max_lightning_potential_jkg"`
	MaxCAPE               *float64 `json:"max_cape_jkg"`
	ThunderstormHours     int      `json:"thunderstorm_hours"`
	Risk                  Risk     `json:"risk"`
}

// LightningActivity answers get_lightning_activity.
type LightningActivity struct {
	Coordinate
	Risk   Risk           `json:"risk"`
	Days   []LightningDay `json:"days"`
	Source string         `json:"source"`
}

// RiverDay is one day of modelled river discharge.
type RiverDay struct {
	Date         string   `json:"date"`
	DischargeM3S *float64 `json:"river_discharge_m3s"`
	MeanM3S      *float64 `json:"river_discharge_mean_m3s"`
	MaxM3S       *float64 `json:"river_discharge_max_m3s"`
}

// RiverConditions answers get_river_conditions.
type RiverConditions struct {
	Coordinate
	Trend  string     `json:"trend"`
	Days   []RiverDay `json:"days"`
	Source string     `json:"source"`
}

// FireWeatherDay summarizes fire-weather inputs for one day.
type FireWeatherDay struct {
	Date            string   `json:"date"`
	MaxTempC        *float64 `json:"max_temp_c"`
	MinHumidity     *float64 `json:"min_humidity_pct"`
	MaxWindMS       *float64 `json:"max_wind_ms"`
	MaxVPDKPa       *float64 `json:"max_vapour_pressure_deficit_kpa"`
	PrecipitationMm *float64 `json:"precipitation_mm"`
	Risk            Risk     `json:"risk"`
}

// WildfireInfo answers get_wildfire_info.
type WildfireInfo struct {
	Coordinate
	Risk   Risk             `json:"risk"`
	Days   []FireWeatherDay `json:"days"`
	Source string           `json:"source"`
}

// Risk is a coarse four-level hazard rating.
type Risk string

const (
	RiskLow      Risk = "low"
	RiskModerate Risk = "moderate"
	RiskHigh     Risk = "high"
	RiskExtreme  Risk = "extreme"
)

func (r Risk) rank() int {
	switch r {
	case RiskModerate:
		return 1
	case RiskHigh:
		return 2
	case RiskExtreme:
		return 3
	default:
		return 0
	}
}

// MaxRisk returns the more severe of a and b.
func MaxRisk(a, b Risk) Risk {
	if b.rank() > a.rank() {
		return b
	}
	if a == "" {
		return RiskLow
	}
	return a
}
