package tools

import "github.com/i474232898/weather-gateway/internal/weather"

type box struct {
	name           string
	minLat, maxLat float64
	minLon, maxLon float64
}

// usRegions approximates NWS coverage with generous bounding boxes. Points in
// a box but outside coverage (open ocean, Canada near the border) still reach
// the upstream, which answers 404 and maps to NoDataForRegion.
var usRegions = []box{
	{name: "conus", minLat: 24.0, maxLat: 49.5, minLon: -125.0, maxLon: -66.5},
	{name: "alaska", minLat: 51.0, maxLat: 71.6, minLon: -180.0, maxLon: -129.9},
	{name: "aleutians_west", minLat: 51.0, maxLat: 55.5, minLon: 172.0, maxLon: 180.0},
	{name: "hawaii", minLat: 18.5, maxLat: 22.5, minLon: -161.0, maxLon: -154.5},
	{name: "puerto_rico_usvi", minLat: 17.5, maxLat: 18.8, minLon: -68.0, maxLon: -64.5},
	{name: "guam_mariana", minLat: 13.0, maxLat: 20.8, minLon: 144.5, maxLon: 146.2},
}

// InUSRegion reports whether c falls inside one of the US coverage boxes.
func InUSRegion(c weather.Coordinate) bool {
	for _, b := range usRegions {
		if c.Latitude >= b.minLat && c.Latitude <= b.maxLat &&
			c.Longitude >= b.minLon && c.Longitude <= b.maxLon {
			return true
		}
	}
	return false
}
