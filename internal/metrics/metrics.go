// Package metrics holds the prometheus collectors shared by the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the gateway collectors. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	toolCalls        *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	cacheEvictions   prometheus.Counter
	cacheEntries     prometheus.Gauge
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	breakerState     *prometheus.GaugeVec
}

// New registers the gateway collectors with registerer, falling back to the
// default registerer when nil.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &Metrics{
		toolCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_gateway_tool_calls_total",
				Help: "Tool invocations by tool and outcome kind",
			},
			[]string{"tool", "outcome"},
		),
		toolDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weather_gateway_tool_duration_seconds",
				Help:    "Tool invocation duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"tool"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_gateway_cache_lookups_total",
				Help: "Response cache lookups by result (hit, miss, coalesced)",
			},
			[]string{"result"},
		),
		cacheEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "weather_gateway_cache_evictions_total",
				Help: "Entries evicted from the response cache by capacity pressure",
			},
		),
		cacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "weather_gateway_cache_entries",
				Help: "Entries currently held in the response cache",
			},
		),
		upstreamRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weather_gateway_upstream_requests_total",
				Help: "Upstream HTTP attempts by upstream and status class",
			},
			[]string{"upstream", "status"},
		),
		upstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "weather_gateway_upstream_duration_seconds",
				Help:    "Upstream HTTP attempt duration in seconds",
				Buckets: []float64{.025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"upstream"},
		),
		breakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "weather_gateway_upstream_breaker_state",
				Help: "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open)",
			},
			[]string{"upstream"},
		),
	}
}

func (m *Metrics) ObserveTool(tool, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(seconds)
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheEviction() {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
}

func (m *Metrics) CacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

func (m *Metrics) ObserveUpstream(upstream, status string, seconds float64) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(upstream, status).Inc()
	m.upstreamDuration.WithLabelValues(upstream).Observe(seconds)
}

func (m *Metrics) BreakerState(upstream string, state int) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(upstream).Set(float64(state))
}
