package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-gateway/internal/common"
	"github.com/i474232898/weather-gateway/internal/weather"
)

const dateLayout = "2006-01-02"

// ArchiveStart is the first day of the historical reanalysis archive.
var ArchiveStart = time.Date(1940, time.January, 1, 0, 0, 0, 0, time.UTC)

// Params are the validated, normalized arguments of one invocation.
type Params struct {
	Coordinate weather.Coordinate
	Days       int
	Query      string
	StartDate  string
	EndDate    string
}

type coordinateInput struct {
	Latitude  float64 `validate:"gte=-90,lte=90"`
	Longitude float64 `validate:"gte=-180,lte=180"`
}

type daysInput struct {
	Days int `validate:"gte=1,lte=16"`
}

type queryInput struct {
	Query string `validate:"required,max=200"`
}

type dateRangeInput struct {
	Start time.Time `validate:"required,ltefield=End"`
	End   time.Time `validate:"required"`
}

// Validator checks invocation arguments against a tool descriptor.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewValidator returns a validator. now is used for the "no later than
// yesterday" date rule; nil means time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{validate: validator.New(), now: now}
}

// Validate checks raw against d and returns the normalized parameters along
// with the canonical key values used for caching.
func (v *Validator) Validate(d Descriptor, raw map[string]any) (Params, map[string]any, error) {
	var p Params
	key := make(map[string]any)

	if unknown := unknownParams(d, raw); len(unknown) > 0 {
		return p, nil, weather.E(weather.KindInvalidParameter, d.Name, "unknown parameter(s) %s", strings.Join(unknown, ", "))
	}

	if d.accepts(ParamLatitude) {
		c, err := v.coordinate(d.Name, raw)
		if err != nil {
			return p, nil, err
		}
		p.Coordinate = c
		key[ParamLatitude] = strconv.FormatFloat(c.Latitude, 'f', 4, 64)
		key[ParamLongitude] = strconv.FormatFloat(c.Longitude, 'f', 4, 64)

		if d.Region == RegionUS && !InUSRegion(c) {
			return p, nil, weather.E(weather.KindNoDataForRegion, d.Name, "%s is only available for US locations; %s is outside US coverage", d.Name, c.Key())
		}
	}

	if def, ok := d.Optional[ParamDays]; ok {
		days, err := v.days(d.Name, raw, def)
		if err != nil {
			return p, nil, err
		}
		p.Days = days
		key[ParamDays] = days
	}

	if d.accepts(ParamQuery) {
		q, err := v.query(d.Name, raw)
		if err != nil {
			return p, nil, err
		}
		p.Query = q
		key[ParamQuery] = strings.ToLower(q)
	}

	if d.accepts(ParamStartDate) {
		start, end, err := v.dateRange(d.Name, raw)
		if err != nil {
			return p, nil, err
		}
		p.StartDate, p.EndDate = start, end
		key[ParamStartDate] = start
		key[ParamEndDate] = end
	}

	return p, key, nil
}

func unknownParams(d Descriptor, raw map[string]any) []string {
	var unknown []string
	for name := range raw {
		if !d.accepts(name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

func (v *Validator) coordinate(op string, raw map[string]any) (weather.Coordinate, error) {
	lat, err := number(raw, ParamLatitude)
	if err != nil {
		return weather.Coordinate{}, weather.E(weather.KindInvalidCoordinate, op, "%v", err)
	}
	lon, err := number(raw, ParamLongitude)
	if err != nil {
		return weather.Coordinate{}, weather.E(weather.KindInvalidCoordinate, op, "%v", err)
	}
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return weather.Coordinate{}, weather.E(weather.KindInvalidCoordinate, op, "coordinates must be finite numbers")
	}

	in := coordinateInput{Latitude: lat, Longitude: lon}
	if err := v.validate.Struct(in); err != nil {
		return weather.Coordinate{}, weather.E(weather.KindInvalidCoordinate, op, "%s", describe(err))
	}
	return weather.Coordinate{
		Latitude:  roundCoord(lat),
		Longitude: roundCoord(lon),
	}, nil
}

// roundCoord rounds to four decimals (about 11 m) and folds -0 into 0 so both
// signs of a zero share one cache key.
func roundCoord(v float64) float64 {
	r := common.Round(v, 4)
	if r == 0 {
		return 0
	}
	return r
}

func (v *Validator) days(op string, raw map[string]any, def any) (int, error) {
	days, _ := def.(int)
	if val, present := raw[ParamDays]; present && val != nil {
		n, err := number(raw, ParamDays)
		if err != nil {
			return 0, weather.E(weather.KindInvalidRange, op, "%v", err)
		}
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, weather.E(weather.KindInvalidRange, op, "days must be a whole number, got %v", n)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, weather.E(weather.KindInvalidRange, op, "days must be between 1 and 16, got %v", n)
		}
		days = int(n)
	}
	if err := v.validate.Struct(daysInput{Days: days}); err != nil {
		return 0, weather.E(weather.KindInvalidRange, op, "days must be between 1 and 16, got %d", days)
	}
	return days, nil
}

func (v *Validator) query(op string, raw map[string]any) (string, error) {
	s, _ := raw[ParamQuery].(string)
	s = strings.Join(strings.Fields(s), " ")
	if err := v.validate.Struct(queryInput{Query: s}); err != nil {
		return "", weather.E(weather.KindInvalidParameter, op, "query must be a non-empty place name of at most 200 characters")
	}
	return s, nil
}

func (v *Validator) dateRange(op string, raw map[string]any) (string, string, error) {
	start, err := date(raw, ParamStartDate)
	if err != nil {
		return "", "", weather.E(weather.KindInvalidDateRange, op, "%v", err)
	}
	end, err := date(raw, ParamEndDate)
	if err != nil {
		return "", "", weather.E(weather.KindInvalidDateRange, op, "%v", err)
	}

	if err := v.validate.Struct(dateRangeInput{Start: start, End: end}); err != nil {
		return "", "", weather.E(weather.KindInvalidDateRange, op, "start_date %s is after end_date %s", start.Format(dateLayout), end.Format(dateLayout))
	}
	if start.Before(ArchiveStart) {
		return "", "", weather.E(weather.KindInvalidDateRange, op, "start_date must be on or after %s", ArchiveStart.Format(dateLayout))
	}
	now := v.now().UTC()
	yesterday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	if end.After(yesterday) {
		return "", "", weather.E(weather.KindInvalidDateRange, op, "end_date must be on or before %s", yesterday.Format(dateLayout))
	}
	return start.Format(dateLayout), end.Format(dateLayout), nil
}

// number reads a numeric parameter. JSON numbers, Go numeric types and
// numeric strings are accepted.
func number(raw map[string]any, name string) (float64, error) {
	val, ok := raw[name]
	if !ok || val == nil {
		return 0, fmt.Errorf("%s is required", name)
	}
	switch n := val.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%s must be a number, got %q", name, n.String())
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number, got %q", name, n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", name, val)
	}
}

func date(raw map[string]any, name string) (time.Time, error) {
	s, ok := raw[name].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return time.Time{}, fmt.Errorf("%s is required (YYYY-MM-DD)", name)
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date in YYYY-MM-DD format, got %q", name, s)
	}
	return t, nil
}

// describe turns validator errors into a short message naming the fields.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "gte":
			parts = append(parts, fmt.Sprintf("%s must be >= %s, got %v", name, fe.Param(), fe.Value()))
		case "lte":
			parts = append(parts, fmt.Sprintf("%s must be <= %s, got %v", name, fe.Param(), fe.Value()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", name, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
