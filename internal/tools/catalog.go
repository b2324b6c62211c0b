package tools

import (
	"time"
)

// Parameter names accepted by the tools.
const (
	ParamLatitude  = "latitude"
	ParamLongitude = "longitude"
	ParamDays      = "days"
	ParamQuery     = "query"
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
)

// Tool names.
const (
	ToolForecast           = "get_forecast"
	ToolCurrentConditions  = "get_current_conditions"
	ToolSearchLocation     = "search_location"
	ToolAlerts             = "get_alerts"
	ToolHistoricalWeather  = "get_historical_weather"
	ToolAirQuality         = "get_air_quality"
	ToolMarineConditions   = "get_marine_conditions"
	ToolWeatherImagery     = "get_weather_imagery"
	ToolLightningActivity  = "get_lightning_activity"
	ToolRiverConditions    = "get_river_conditions"
	ToolWildfireInfo       = "get_wildfire_info"
	ToolCheckServiceStatus = "check_service_status"
)

// DefaultDays is the forecast length when days is omitted.
const DefaultDays = 7

// ParamSpec describes a single tool parameter.
type ParamSpec struct {
	Name        string
	Type        string // "number", "integer" or "string"
	Description string
	Minimum     *float64
	Maximum     *float64
	Format      string
}

func bound(v float64) *float64 { return &v }

var paramSpecs = map[string]ParamSpec{
	ParamLatitude: {
		Name:        ParamLatitude,
		Type:        "number",
		Description: "Latitude in decimal degrees, -90 to 90",
		Minimum:     bound(-90),
		Maximum:     bound(90),
	},
	ParamLongitude: {
		Name:        ParamLongitude,
		Type:        "number",
		Description: "Longitude in decimal degrees, -180 to 180",
		Minimum:     bound(-180),
		Maximum:     bound(180),
	},
	ParamDays: {
		Name:        ParamDays,
		Type:        "integer",
		Description: "Number of forecast days, 1 to 16",
		Minimum:     bound(1),
		Maximum:     bound(16),
	},
	ParamQuery: {
		Name:        ParamQuery,
		Type:        "string",
		Description: `Place name, optionally qualified by state or country, e.g. "Seattle, WA" or "Paris, France"`,
	},
	ParamStartDate: {
		Name:        ParamStartDate,
		Type:        "string",
		Format:      "date",
		Description: "First day of the range, YYYY-MM-DD, no earlier than 1940-01-01",
	},
	ParamEndDate: {
		Name:        ParamEndDate,
		Type:        "string",
		Format:      "date",
		Description: "Last day of the range, YYYY-MM-DD, no later than yesterday (UTC)",
	},
}

// Descriptor is the static definition of a tool.
type Descriptor struct {
	Name        string
	Description string
	Required    []string
	Optional    map[string]any // name -> default
	Tier        Tier
	Region      Region
	TTL         time.Duration // zero disables caching
}

// Params returns the parameter specs, required first, in a stable order.
func (d Descriptor) Params() []ParamSpec {
	out := make([]ParamSpec, 0, len(d.Required)+len(d.Optional))
	for _, name := range d.Required {
		out = append(out, paramSpecs[name])
	}
	for _, name := range []string{ParamDays} {
		if _, ok := d.Optional[name]; ok {
			out = append(out, paramSpecs[name])
		}
	}
	return out
}

func (d Descriptor) accepts(name string) bool {
	for _, r := range d.Required {
		if r == name {
			return true
		}
	}
	_, ok := d.Optional[name]
	return ok
}

var coordinates = []string{ParamLatitude, ParamLongitude}

var catalog = []Descriptor{
	{
		Name:        ToolForecast,
		Description: "Daily weather forecast for a point: temperatures, precipitation, wind, UV and sunrise/sunset in metric units.",
		Required:    coordinates,
		Optional:    map[string]any{ParamDays: DefaultDays},
		Tier:        TierBasic,
		TTL:         30 * time.Minute,
	},
	{
		Name:        ToolCurrentConditions,
		Description: "Latest observation from the nearest US weather station (NOAA/NWS). US locations only.",
		Required:    coordinates,
		Tier:        TierBasic,
		Region:      RegionUS,
		TTL:         5 * time.Minute,
	},
	{
		Name:        ToolSearchLocation,
		Description: "Resolve a place name to coordinates that can be passed to the other tools.",
		Required:    []string{ParamQuery},
		Tier:        TierBasic,
		TTL:         24 * time.Hour,
	},
	{
		Name:        ToolAlerts,
		Description: "Active NWS weather alerts (warnings, watches, advisories) for a point. US locations only.",
		Required:    coordinates,
		Tier:        TierBasic,
		Region:      RegionUS,
		TTL:         2 * time.Minute,
	},
	{
		Name:        ToolCheckServiceStatus,
		Description: "Health of the upstream weather providers and the response cache.",
		Tier:        TierBasic,
	},
	{
		Name:        ToolHistoricalWeather,
		Description: "Archived daily weather for a date range (from 1940 up to yesterday) with a summary.",
		Required:    []string{ParamLatitude, ParamLongitude, ParamStartDate, ParamEndDate},
		Tier:        TierStandard,
		TTL:         6 * time.Hour,
	},
	{
		Name:        ToolAirQuality,
		Description: "Current air quality: US and European AQI, particulate matter and gas concentrations.",
		Required:    coordinates,
		Tier:        TierStandard,
		TTL:         15 * time.Minute,
	},
	{
		Name:        ToolMarineConditions,
		Description: "Current sea state: wave and swell height, direction and period, sea surface temperature.",
		Required:    coordinates,
		Tier:        TierFull,
		TTL:         30 * time.Minute,
	},
	{
		Name:        ToolWeatherImagery,
		Description: "Recent and nowcast weather radar tile URLs for the area around a point.",
		Required:    coordinates,
		Tier:        TierFull,
		TTL:         5 * time.Minute,
	},
	{
		Name:        ToolLightningActivity,
		Description: "Thunderstorm and lightning risk for the next three days from modelled lightning potential and CAPE.",
		Required:    coordinates,
		Tier:        TierFull,
		TTL:         10 * time.Minute,
	},
	{
		Name:        ToolRiverConditions,
		Description: "Modelled river discharge for the nearest river over the past week and next two weeks, with trend.",
		Required:    coordinates,
		Tier:        TierAll,
		TTL:         time.Hour,
	},
	{
		Name:        ToolWildfireInfo,
		Description: "Fire-weather risk for the next three days from temperature, humidity, wind and vapour pressure deficit.",
		Required:    coordinates,
		Tier:        TierAll,
		TTL:         30 * time.Minute,
	},
}

// Catalog returns every tool descriptor regardless of tier.
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// Enabled returns the descriptors dispatchable under tier.
func Enabled(tier Tier) []Descriptor {
	var out []Descriptor
	for _, d := range catalog {
		if tier.Includes(d.Tier) {
			out = append(out, d)
		}
	}
	return out
}

// EnabledNames returns the names of the tools dispatchable under tier.
func EnabledNames(tier Tier) []string {
	enabled := Enabled(tier)
	names := make([]string, len(enabled))
	for i, d := range enabled {
		names[i] = d.Name
	}
	return names
}

func lookup(name string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
