// Package tools defines the gateway's weather tools and dispatches
// invocations: tier gating, argument validation, response caching and the
// call into the upstream adapters.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-gateway/internal/cache"
	"github.com/i474232898/weather-gateway/internal/metrics"
	"github.com/i474232898/weather-gateway/internal/weather"
)

// GlobalWeather is served by the Open-Meteo adapter.
type GlobalWeather interface {
	Search(ctx context.Context, query string) (weather.LocationResult, error)
	Forecast(ctx context.Context, c weather.Coordinate, days int) (weather.Forecast, error)
	Historical(ctx context.Context, c weather.Coordinate, start, end string) (weather.HistoricalWeather, error)
	AirQuality(ctx context.Context, c weather.Coordinate) (weather.AirQuality, error)
	Marine(ctx context.Context, c weather.Coordinate) (weather.MarineConditions, error)
	Lightning(ctx context.Context, c weather.Coordinate) (weather.LightningActivity, error)
	FireWeather(ctx context.Context, c weather.Coordinate) (weather.WildfireInfo, error)
	River(ctx context.Context, c weather.Coordinate) (weather.RiverConditions, error)
}

// USWeather is served by the NWS adapter.
type USWeather interface {
	CurrentConditions(ctx context.Context, c weather.Coordinate) (weather.CurrentConditions, error)
	Alerts(ctx context.Context, c weather.Coordinate) (weather.Alerts, error)
}

// Imagery is served by the radar adapter.
type Imagery interface {
	Imagery(ctx context.Context, c weather.Coordinate) (weather.Imagery, error)
}

// Geocoder is an optional fallback for search_location.
type Geocoder interface {
	Enabled() bool
	Search(ctx context.Context, query string) (weather.LocationResult, error)
}

// StatusFunc produces the check_service_status payload.
type StatusFunc func(ctx context.Context) any

// Backends are the data sources the tools read from.
type Backends struct {
	Global   GlobalWeather
	US       USWeather
	Radar    Imagery
	Geocoder Geocoder
	Status   StatusFunc
}

type handler func(ctx context.Context, p Params) (any, error)

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger.Named("tools")
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithClock sets the time source used by date validation.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.validator = NewValidator(now)
	}
}

// WithTTLScale multiplies every cache TTL by scale. Values <= 0 are ignored.
func WithTTLScale(scale float64) Option {
	return func(r *Registry) {
		if scale > 0 {
			r.ttlScale = scale
		}
	}
}

// Registry dispatches tool invocations. It is safe for concurrent use.
type Registry struct {
	tier      Tier
	enabled   []Descriptor
	handlers  map[string]handler
	validator *Validator
	cache     *cache.Cache
	ttlScale  float64
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewRegistry builds the registry for tier. The cache is owned by the caller.
func NewRegistry(tier Tier, backends Backends, c *cache.Cache, opts ...Option) (*Registry, error) {
	if c == nil {
		return nil, errors.New("tools: cache is required")
	}
	if backends.Global == nil || backends.US == nil || backends.Radar == nil {
		return nil, errors.New("tools: global, US and radar backends are required")
	}

	r := &Registry{
		tier:      tier,
		enabled:   Enabled(tier),
		validator: NewValidator(nil),
		cache:     c,
		ttlScale:  1,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.handlers = r.bind(backends)
	return r, nil
}

func (r *Registry) bind(b Backends) map[string]handler {
	g, us, radar := b.Global, b.US, b.Radar
	return map[string]handler{
		ToolForecast: func(ctx context.Context, p Params) (any, error) {
			return g.Forecast(ctx, p.Coordinate, p.Days)
		},
		ToolCurrentConditions: func(ctx context.Context, p Params) (any, error) {
			return us.CurrentConditions(ctx, p.Coordinate)
		},
		ToolSearchLocation: func(ctx context.Context, p Params) (any, error) {
			res, err := g.Search(ctx, p.Query)
			if err == nil || b.Geocoder == nil || !b.Geocoder.Enabled() || !errors.Is(err, weather.ErrNoDataForRegion) {
				return res, err
			}
			r.logger.Debug("falling back to google geocoder", zap.String("query", p.Query))
			fallback, ferr := b.Geocoder.Search(ctx, p.Query)
			if ferr != nil {
				return nil, err
			}
			return fallback, nil
		},
		ToolAlerts: func(ctx context.Context, p Params) (any, error) {
			return us.Alerts(ctx, p.Coordinate)
		},
		ToolHistoricalWeather: func(ctx context.Context, p Params) (any, error) {
			return g.Historical(ctx, p.Coordinate, p.StartDate, p.EndDate)
		},
		ToolAirQuality: func(ctx context.Context, p Params) (any, error) {
			return g.AirQuality(ctx, p.Coordinate)
		},
		ToolMarineConditions: func(ctx context.Context, p Params) (any, error) {
			return g.Marine(ctx, p.Coordinate)
		},
		ToolWeatherImagery: func(ctx context.Context, p Params) (any, error) {
			return radar.Imagery(ctx, p.Coordinate)
		},
		ToolLightningActivity: func(ctx context.Context, p Params) (any, error) {
			return g.Lightning(ctx, p.Coordinate)
		},
		ToolRiverConditions: func(ctx context.Context, p Params) (any, error) {
			return g.River(ctx, p.Coordinate)
		},
		ToolWildfireInfo: func(ctx context.Context, p Params) (any, error) {
			return g.FireWeather(ctx, p.Coordinate)
		},
		ToolCheckServiceStatus: func(ctx context.Context, p Params) (any, error) {
			if b.Status == nil {
				return map[string]string{"status": "unknown"}, nil
			}
			return b.Status(ctx), nil
		},
	}
}

// Tier returns the configured tier.
func (r *Registry) Tier() Tier {
	return r.tier
}

// Tools returns the enabled descriptors in catalog order.
func (r *Registry) Tools() []Descriptor {
	out := make([]Descriptor, len(r.enabled))
	copy(out, r.enabled)
	return out
}

type requestIDKey struct{}

// WithRequestID attaches a request ID to ctx for Dispatch to log.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Dispatch runs tool name with params and returns its JSON payload.
func (r *Registry) Dispatch(ctx context.Context, name string, params map[string]any) (json.RawMessage, error) {
	start := time.Now()
	id := RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}

	payload, err := r.dispatch(ctx, name, params)

	elapsed := time.Since(start)
	outcome := "ok"
	label := name
	if err != nil {
		outcome = string(weather.KindOf(err))
		if outcome == "" {
			outcome = "error"
		}
		if weather.KindOf(err) == weather.KindUnknownTool {
			label = "unknown"
		}
	}
	r.metrics.ObserveTool(label, outcome, elapsed.Seconds())

	fields := []zap.Field{
		zap.String("request_id", id),
		zap.String("tool", name),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		r.logger.Info("tool call failed", append(fields, zap.String("kind", outcome), zap.Error(err))...)
		return nil, err
	}
	r.logger.Debug("tool call", append(fields, zap.Int("bytes", len(payload)))...)
	return payload, nil
}

func (r *Registry) dispatch(ctx context.Context, name string, raw map[string]any) (json.RawMessage, error) {
	d, ok := lookup(name)
	if !ok {
		return nil, weather.E(weather.KindUnknownTool, name, "no tool named %q", name)
	}
	if !r.tier.Includes(d.Tier) {
		return nil, weather.E(weather.KindToolDisabled, name,
			"%s requires ENABLED_TOOLS=%s or higher (configured: %s)", name, d.Tier, r.tier)
	}

	p, key, err := r.validator.Validate(d, raw)
	if err != nil {
		return nil, err
	}

	h := r.handlers[name]
	fill := func(ctx context.Context) (json.RawMessage, error) {
		v, err := h(ctx, p)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%s: encode result: %w", name, err)
		}
		return payload, nil
	}

	if d.TTL <= 0 {
		return fill(ctx)
	}
	ttl := time.Duration(float64(d.TTL) * r.ttlScale)
	payload, err := r.cache.Fetch(ctx, cache.Key(name, key), ttl, fill)
	if err != nil && weather.KindOf(err) == "" && ctx.Err() != nil {
		return nil, &weather.Error{Kind: weather.KindUpstreamUnavailable, Op: name, Message: "request ended before the upstream answered", Cause: err}
	}
	return payload, err
}
