package weather

import (
	"strings"

	"github.com/i474232898/weather-gateway/internal/common"
)

// Quantity is a measured value with a WMO unit code, as returned by the NWS
// API, e.g. {"unitCode": "wmoUnit:degF", "value": 51.1}.
type Quantity struct {
	UnitCode string   `json:"unitCode"`
	Value    *float64 `json:"value"`
}

func (q Quantity) unit() string {
	u := q.UnitCode
	if i := strings.LastIndex(u, ":"); i >= 0 {
		u = u[i+1:]
	}
	return u
}

// Celsius returns the quantity as degrees Celsius, or nil if absent.
func (q Quantity) Celsius() *float64 {
	if q.Value == nil {
		return nil
	}
	v := *q.Value
	switch q.unit() {
	case "degF":
		v = FahrenheitToCelsius(v)
	case "K":
		v -= 273.15
	}
	return ptr(common.Round(v, 1))
}

// MetersPerSecond returns a speed as m/s, or nil if absent.
func (q Quantity) MetersPerSecond() *float64 {
	if q.Value == nil {
		return nil
	}
	v := *q.Value
	switch q.unit() {
	case "km_h-1":
		v = KphToMS(v)
	case "kt":
		v *= 0.514444
	case "mi_h-1", "[mi_i]/h":
		v *= 0.44704
	}
	return ptr(common.Round(v, 1))
}

// Hectopascals returns a pressure as hPa, or nil if absent.
func (q Quantity) Hectopascals() *float64 {
	if q.Value == nil {
		return nil
	}
	v := *q.Value
	switch q.unit() {
	case "Pa":
		v /= 100
	case "kPa":
		v *= 10
	}
	return ptr(common.Round(v, 1))
}

// Kilometers returns a distance as km, or nil if absent.
func (q Quantity) Kilometers() *float64 {
	if q.Value == nil {
		return nil
	}
	v := *q.Value
	switch q.unit() {
	case "m":
		v /= 1000
	case "mi", "[mi_i]":
		v *= 1.609344
	}
	return ptr(common.Round(v, 1))
}

// Plain returns the raw value rounded to one decimal, for unitless or
// already-normalized quantities such as percentages and degrees of arc.
func (q Quantity) Plain() *float64 {
	if q.Value == nil {
		return nil
	}
	return ptr(common.Round(*q.Value, 1))
}

func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// KphToMS converts km/h to m/s.
func KphToMS(kph float64) float64 {
	return kph / 3.6
}

func ptr(v float64) *float64 {
	return &v
}
