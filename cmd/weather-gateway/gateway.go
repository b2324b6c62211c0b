package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/i474232898/weather-gateway/internal/cache"
	"github.com/i474232898/weather-gateway/internal/config"
	"github.com/i474232898/weather-gateway/internal/metrics"
	"github.com/i474232898/weather-gateway/internal/scheduler"
	"github.com/i474232898/weather-gateway/internal/status"
	"github.com/i474232898/weather-gateway/internal/store"
	"github.com/i474232898/weather-gateway/internal/tools"
	"github.com/i474232898/weather-gateway/internal/upstream"
)

// gateway holds the wired components shared by every command.
type gateway struct {
	registry *tools.Registry
	cache    *cache.Cache
	prober   *scheduler.Scheduler
	gatherer prometheus.Gatherer
}

func buildGateway(cfg *config.AppConfig, logger *zap.Logger) (*gateway, error) {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promReg)

	opts := cfg.UpstreamOptions()
	opts.Logger = logger
	opts.Metrics = m

	openMeteo := upstream.NewOpenMeteo(cfg.OpenMeteo, opts)
	nws := upstream.NewNWS(cfg.NWSBaseURL, opts)
	radar := upstream.NewRainViewer(cfg.RainViewerURL, opts)
	geo := upstream.NewGoogleGeocoder(cfg.GoogleGeocoderAPIKey, opts)

	clients := append(openMeteo.Clients(), nws.Client(), radar.Client())

	responses, err := cache.New(cfg.CacheMaxEntries, cache.WithLogger(logger), cache.WithMetrics(m))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	history := store.NewMemoryStore(cfg.StatusHistory, cfg.StatusHistoryMaxAge)
	sources := make([]status.HealthSource, 0, len(clients))
	targets := make([]scheduler.Target, 0, len(clients))
	for _, c := range clients {
		sources = append(sources, c)
		targets = append(targets, c)
	}
	reporter := status.NewReporter(sources, history, responses, cfg.Tier.String(), tools.EnabledNames(cfg.Tier),
		status.WithWindow(cfg.StatusWindow))

	registry, err := tools.NewRegistry(cfg.Tier, tools.Backends{
		Global:   openMeteo,
		US:       nws,
		Radar:    radar,
		Geocoder: geo,
		Status: func(ctx context.Context) any {
			return reporter.Snapshot(ctx)
		},
	}, responses,
		tools.WithLogger(logger),
		tools.WithMetrics(m),
		tools.WithTTLScale(cfg.CacheTTLScale),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("gateway configured",
		zap.String("tier", cfg.Tier.String()),
		zap.Int("tools", len(registry.Tools())),
		zap.Int("upstreams", len(clients)),
		zap.Bool("google_geocoder", geo.Enabled()),
	)

	return &gateway{
		registry: registry,
		cache:    responses,
		prober:   scheduler.New(targets, history, cfg.StatusProbeInterval, logger),
		gatherer: promReg,
	}, nil
}

func (g *gateway) close() {
	g.prober.Stop()
	g.cache.Purge()
}
