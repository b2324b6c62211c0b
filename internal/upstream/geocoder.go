package upstream

import (
	"context"
	"strings"
	"time"

	"github.com/kelvins/geocoder"
	"go.uber.org/zap"

	"github.com/i474232898/weather-gateway/internal/common"
	"github.com/i474232898/weather-gateway/internal/weather"
)

// GeocodeFunc resolves a structured address. geocoder.Geocoding satisfies it.
type GeocodeFunc func(geocoder.Address) (geocoder.Location, error)

// GoogleGeocoder is an optional fallback resolver for queries Open-Meteo's
// place-name index cannot answer, such as street addresses.
type GoogleGeocoder struct {
	geocode GeocodeFunc
	timeout time.Duration
	logger  *zap.Logger
}

// NewGoogleGeocoder returns nil when apiKey is empty; a nil *GoogleGeocoder
// is disabled.
func NewGoogleGeocoder(apiKey string, opts Options) *GoogleGeocoder {
	if apiKey == "" {
		return nil
	}
	geocoder.ApiKey = apiKey
	return newGoogleGeocoder(geocoder.Geocoding, opts)
}

func newGoogleGeocoder(fn GeocodeFunc, opts Options) *GoogleGeocoder {
	opts = opts.withDefaults()
	return &GoogleGeocoder{geocode: fn, timeout: opts.Timeout, logger: opts.Logger.Named("google_geocoder")}
}

func (g *GoogleGeocoder) Enabled() bool {
	return g != nil && g.geocode != nil
}

// Search geocodes query. The geocoder library has no context support, so the
// call runs in its own goroutine and is abandoned when ctx or the timeout
// ends first.
func (g *GoogleGeocoder) Search(ctx context.Context, query string) (weather.LocationResult, error) {
	const op = "search_location"
	if !g.Enabled() {
		return weather.LocationResult{}, weather.E(weather.KindUpstreamUnavailable, op, "google geocoder is not configured")
	}

	addr := addressFromQuery(query)

	type result struct {
		loc geocoder.Location
		err error
	}
	done := make(chan result, 1)
	go func() {
		loc, err := g.geocode(addr)
		done <- result{loc, err}
	}()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return weather.LocationResult{}, weather.Wrap(weather.KindUpstreamUnavailable, op, ctx.Err())
	case res := <-done:
		if res.err != nil {
			g.logger.Debug("geocoding failed", zap.String("query", query), zap.Error(res.err))
			return weather.LocationResult{}, &weather.Error{Kind: weather.KindNoDataForRegion, Op: op, Message: "no location matches " + query, Cause: res.err}
		}
		if res.loc.Latitude == 0 && res.loc.Longitude == 0 {
			return weather.LocationResult{}, weather.E(weather.KindNoDataForRegion, op, "no location matches %q", query)
		}
		return weather.LocationResult{
			Query: query,
			Place: weather.Place{
				Name:      addr.City,
				Latitude:  common.Round(res.loc.Latitude, 4),
				Longitude: common.Round(res.loc.Longitude, 4),
				Admin1:    addr.State,
				Country:   addr.Country,
				FullName:  query,
				Source:    "maps.googleapis.com",
			},
		}, nil
	}
}

func addressFromQuery(query string) geocoder.Address {
	lq := parseLocationQuery(query)
	addr := geocoder.Address{City: lq.Name}
	if lq.Qualifier == "" {
		return addr
	}
	parts := strings.Split(lq.Qualifier, ",")
	first := strings.TrimSpace(parts[0])
	if state, ok := stateName(first); ok {
		addr.State = state
		addr.Country = "United States"
		return addr
	}
	if len(parts) > 1 {
		addr.State = first
		addr.Country = strings.TrimSpace(parts[len(parts)-1])
		return addr
	}
	addr.Country = first
	return addr
}
