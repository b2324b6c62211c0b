package weather

import (
	"math"
	"sort"

	"github.com/i474232898/weather-gateway/internal/common"
)

// LightningHour is one hourly sample of convective indicators. Nil fields
// were not reported for that hour.
type LightningHour struct {
	Time               string
	LightningPotential *float64
	CAPE               *float64
	WeatherCode        *int
}

// FireWeatherHour is one hourly sample of fire-weather inputs.
type FireWeatherHour struct {
	Time            string
	TemperatureC    *float64
	HumidityPct     *float64
	WindSpeedMS     *float64
	VPDKPa          *float64
	PrecipitationMm *float64
}

func maxOf(cur, v *float64) *float64 {
	if v == nil || (cur != nil && *cur >= *v) {
		return cur
	}
	x := *v
	return &x
}

func minOf(cur, v *float64) *float64 {
	if v == nil || (cur != nil && *cur <= *v) {
		return cur
	}
	x := *v
	return &x
}

func addTo(sum, v *float64) *float64 {
	if v == nil {
		return sum
	}
	x := *v
	if sum != nil {
		x += *sum
	}
	return &x
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := common.Round(*v, places)
	return &r
}

// valueOr reads v, treating a missing value as def.
func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// groupByDay buckets hourly timestamps ("2006-01-02T15:04") by calendar day
// and returns the day keys in ascending order with their sample indices.
func groupByDay(times []string) ([]string, map[string][]int) {
	buckets := make(map[string][]int)
	for i, ts := range times {
		if len(ts) < 10 {
			continue
		}
		day := ts[:10]
		buckets[day] = append(buckets[day], i)
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, buckets
}

// SummarizeLightning folds hourly convective samples into per-day summaries
// and returns them with the worst risk across the period.
func SummarizeLightning(hours []LightningHour) ([]LightningDay, Risk) {
	times := make([]string, len(hours))
	for i, h := range hours {
		times[i] = h.Time
	}
	keys, buckets := groupByDay(times)

	overall := RiskLow
	days := make([]LightningDay, 0, len(keys))
	for _, k := range keys {
		d := LightningDay{Date: k}
		for _, i := range buckets[k] {
			h := hours[i]
			d.MaxLightningPotential = maxOf(d.MaxLightningPotential, h.LightningPotential)
			d.MaxCAPE = maxOf(d.MaxCAPE, h.CAPE)
			if h.WeatherCode != nil && IsThunderstormCode(*h.WeatherCode) {
				d.ThunderstormHours++
			}
		}
		d.MaxLightningPotential = roundPtr(d.MaxLightningPotential, 1)
		d.MaxCAPE = roundPtr(d.MaxCAPE, 1)
		d.Risk = lightningRisk(d)
		overall = MaxRisk(overall, d.Risk)
		days = append(days, d)
	}
	return days, overall
}

// lightningRisk rates a day on the indicators it has; missing ones add nothing.
func lightningRisk(d LightningDay) Risk {
	potential := valueOr(d.MaxLightningPotential, 0)
	cape := valueOr(d.MaxCAPE, 0)
	switch {
	case d.ThunderstormHours >= 4 || potential >= 1000 || cape >= 3000:
		return RiskExtreme
	case d.ThunderstormHours >= 1 || potential >= 500 || cape >= 1500:
		return RiskHigh
	case potential >= 100 || cape >= 500:
		return RiskModerate
	default:
		return RiskLow
	}
}

// SummarizeFireWeather folds hourly fire-weather samples into per-day
// summaries and returns them with the worst risk across the period.
func SummarizeFireWeather(hours []FireWeatherHour) ([]FireWeatherDay, Risk) {
	times := make([]string, len(hours))
	for i, h := range hours {
		times[i] = h.Time
	}
	keys, buckets := groupByDay(times)

	overall := RiskLow
	days := make([]FireWeatherDay, 0, len(keys))
	for _, k := range keys {
		d := FireWeatherDay{Date: k}
		for _, i := range buckets[k] {
			h := hours[i]
			d.MaxTempC = maxOf(d.MaxTempC, h.TemperatureC)
			d.MinHumidity = minOf(d.MinHumidity, h.HumidityPct)
			d.MaxWindMS = maxOf(d.MaxWindMS, h.WindSpeedMS)
			d.MaxVPDKPa = maxOf(d.MaxVPDKPa, h.VPDKPa)
			d.PrecipitationMm = addTo(d.PrecipitationMm, h.PrecipitationMm)
		}
		d.MaxTempC = roundPtr(d.MaxTempC, 1)
		d.MinHumidity = roundPtr(d.MinHumidity, 1)
		d.MaxWindMS = roundPtr(d.MaxWindMS, 1)
		d.MaxVPDKPa = roundPtr(d.MaxVPDKPa, 2)
		d.PrecipitationMm = roundPtr(d.PrecipitationMm, 1)
		d.Risk = fireRisk(d)
		overall = MaxRisk(overall, d.Risk)
		days = append(days, d)
	}
	return days, overall
}

// fireRisk scores hot, dry and windy conditions; a wet day caps the rating.
// An input the model did not report adds nothing to the score.
func fireRisk(d FireWeatherDay) Risk {
	humidity := valueOr(d.MinHumidity, 100)
	wind := valueOr(d.MaxWindMS, 0)
	temp := valueOr(d.MaxTempC, math.Inf(-1))

	score := 0
	switch {
	case humidity <= 15:
		score += 3
	case humidity <= 25:
		score += 2
	case humidity <= 35:
		score++
	}
	switch {
	case wind >= 12:
		score += 3
	case wind >= 8:
		score += 2
	case wind >= 5:
		score++
	}
	switch {
	case temp >= 35:
		score += 2
	case temp >= 27:
		score++
	}
	if valueOr(d.MaxVPDKPa, 0) >= 3 {
		score++
	}
	if valueOr(d.PrecipitationMm, 0) >= 5 {
		score -= 3
	}

	switch {
	case score >= 8:
		return RiskExtreme
	case score >= 6:
		return RiskHigh
	case score >= 3:
		return RiskModerate
	default:
		return RiskLow
	}
}

// SummarizeHistorical computes averages and extremes over archived days,
// skipping days that did not report a value.
func SummarizeHistorical(days []HistoricalDay) HistoricalSummary {
	s := HistoricalSummary{Days: len(days)}
	var (
		sumMax, sumMin float64
		nMax, nMin     int
		wettest        float64
	)
	for _, d := range days {
		if d.TempMaxC != nil || d.TempMinC != nil {
			s.ReportedDays++
		}
		if d.TempMaxC != nil {
			sumMax += *d.TempMaxC
			nMax++
		}
		if d.TempMinC != nil {
			sumMin += *d.TempMinC
			nMin++
		}
		s.MaxTempC = maxOf(s.MaxTempC, d.TempMaxC)
		s.MinTempC = minOf(s.MinTempC, d.TempMinC)
		s.TotalPrecipitation = addTo(s.TotalPrecipitation, d.PrecipitationMm)
		if d.PrecipitationMm != nil && *d.PrecipitationMm > wettest {
			wettest = *d.PrecipitationMm
			s.WettestDate = d.Date
		}
	}

	if nMax > 0 {
		avg := common.Round(sumMax/float64(nMax), 1)
		s.AvgTempMaxC = &avg
	}
	if nMin > 0 {
		avg := common.Round(sumMin/float64(nMin), 1)
		s.AvgTempMinC = &avg
	}
	s.TotalPrecipitation = roundPtr(s.TotalPrecipitation, 1)
	return s
}

// USAQICategory names the EPA category for a US AQI value.
func USAQICategory(aqi *float64) string {
	if aqi == nil {
		return "unknown"
	}
	switch v := *aqi; {
	case v <= 50:
		return "good"
	case v <= 100:
		return "moderate"
	case v <= 150:
		return "unhealthy for sensitive groups"
	case v <= 200:
		return "unhealthy"
	case v <= 300:
		return "very unhealthy"
	default:
		return "hazardous"
	}
}

// DischargeTrend compares the last and first reported discharge values.
func DischargeTrend(days []RiverDay) string {
	var first, last *float64
	for _, d := range days {
		if d.DischargeM3S == nil {
			continue
		}
		if first == nil {
			first = d.DischargeM3S
		}
		last = d.DischargeM3S
	}
	if first == nil || last == nil || *first == 0 {
		return "unknown"
	}
	change := (*last - *first) / *first
	switch {
	case change > 0.1:
		return "rising"
	case change < -0.1:
		return "falling"
	default:
		return "steady"
	}
}
