// Package status builds the check_service_status snapshot.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/weather-gateway/internal/cache"
	"github.com/i474232898/weather-gateway/internal/store"
	"github.com/i474232898/weather-gateway/internal/upstream"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// HealthSource reports live health for one upstream.
type HealthSource interface {
	Health() upstream.Health
}

// History is the probe history kept by the prober.
type History interface {
	Latest(upstream string) (store.ProbeResult, error)
	Range(upstream string, from, to time.Time) ([]store.ProbeResult, error)
	SuccessRatio(upstream string) (float64, int, error)
}

// CacheStats reports response cache counters.
type CacheStats interface {
	Stats() cache.Stats
}

// Upstream is the reported state of one upstream host.
type Upstream struct {
	upstream.Health
	RecentSuccessRatio *float64           `json:"recent_success_ratio,omitempty"`
	RecentProbes       int                `json:"recent_probes"`
	LastProbe          *store.ProbeResult `json:"last_probe,omitempty"`
}

// Snapshot is the check_service_status payload.
type Snapshot struct {
	Status       string      `json:"status"`
	CheckedAt    time.Time   `json:"checked_at"`
	Tier         string      `json:"tier"`
	EnabledTools []string    `json:"enabled_tools"`
	Upstreams    []Upstream  `json:"upstreams"`
	Cache        cache.Stats `json:"cache"`
}

// Reporter assembles snapshots from live client health, probe history and
// cache statistics. It never calls an upstream.
type Reporter struct {
	sources []HealthSource
	history History
	cache   CacheStats
	tier    string
	tools   []string
	window  time.Duration
	now     func() time.Time
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithWindow limits the reported success ratio to probes from the last d.
// Zero uses every retained probe.
func WithWindow(d time.Duration) Option {
	return func(r *Reporter) { r.window = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// NewReporter returns a reporter. history and cache may be nil.
func NewReporter(sources []HealthSource, history History, c CacheStats, tier string, tools []string, opts ...Option) *Reporter {
	r := &Reporter{
		sources: sources,
		history: history,
		cache:   c,
		tier:    tier,
		tools:   append([]string(nil), tools...),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// successRatio is the share of passing probes for name within the window.
func (r *Reporter) successRatio(name string, now time.Time) (float64, int, error) {
	if r.window <= 0 {
		return r.history.SuccessRatio(name)
	}
	results, err := r.history.Range(name, now.Add(-r.window), now)
	if err != nil {
		return 0, 0, err
	}
	passed := 0
	for _, res := range results {
		if res.OK {
			passed++
		}
	}
	return float64(passed) / float64(len(results)), len(results), nil
}

// Snapshot returns the current status. Any unhealthy upstream, or one whose
// latest probe failed, marks the gateway degraded.
func (r *Reporter) Snapshot(_ context.Context) Snapshot {
	now := r.now()
	snap := Snapshot{
		Status:       StatusOK,
		CheckedAt:    now.UTC(),
		Tier:         r.tier,
		EnabledTools: r.tools,
		Upstreams:    make([]Upstream, 0, len(r.sources)),
	}
	if r.cache != nil {
		snap.Cache = r.cache.Stats()
	}

	for _, src := range r.sources {
		u := Upstream{Health: src.Health()}
		healthy := u.Healthy
		if r.history != nil {
			if ratio, n, err := r.successRatio(u.Name, now); err == nil {
				u.RecentSuccessRatio = &ratio
				u.RecentProbes = n
			}
			last, err := r.history.Latest(u.Name)
			switch {
			case err == nil:
				u.LastProbe = &last
				healthy = healthy && last.OK
			case !errors.Is(err, store.ErrNotFound):
				healthy = false
			}
		}
		if !healthy {
			snap.Status = StatusDegraded
		}
		snap.Upstreams = append(snap.Upstreams, u)
	}
	return snap
}
