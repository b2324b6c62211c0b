// Package scheduler runs periodic health probes against the upstreams and
// records the outcomes for the status reporter.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/i474232898/weather-gateway/internal/store"
)

// DefaultProbeTimeout bounds a single probe.
const DefaultProbeTimeout = 15 * time.Second

// Target is an upstream that can be probed.
type Target interface {
	Name() string
	Probe(ctx context.Context) error
}

// Recorder stores probe outcomes.
type Recorder interface {
	Record(upstream string, result store.ProbeResult)
}

// Scheduler periodically probes every target.
type Scheduler struct {
	scheduler *gocron.Scheduler
	targets   []Target
	recorder  Recorder
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates a new Scheduler. An interval <= 0 disables periodic probing;
// RunOnce still works.
func New(targets []Target, recorder Recorder, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		targets:   targets,
		recorder:  recorder,
		interval:  interval,
		timeout:   DefaultProbeTimeout,
		logger:    logger.Named("prober"),
	}
}

// Start schedules the probe job and starts the underlying scheduler. The
// first run happens immediately.
func (s *Scheduler) Start() error {
	if len(s.targets) == 0 || s.interval <= 0 {
		s.logger.Info("probes disabled", zap.Int("targets", len(s.targets)), zap.Duration("interval", s.interval))
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("probes scheduled", zap.Int("targets", len(s.targets)), zap.Duration("interval", s.interval))
	return nil
}

// RunOnce probes every target concurrently and waits for all of them.
func (s *Scheduler) RunOnce(ctx context.Context) {
	var wg sync.WaitGroup
	for _, t := range s.targets {
		wg.Add(1)
		go func() {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			start := time.Now()
			err := t.Probe(probeCtx)
			result := store.ProbeResult{At: start, OK: err == nil, Latency: time.Since(start)}
			if err != nil {
				result.Error = err.Error()
				s.logger.Warn("probe failed", zap.String("upstream", t.Name()), zap.Error(err))
			}
			if s.recorder != nil {
				s.recorder.Record(t.Name(), result)
			}
		}()
	}
	wg.Wait()
	s.logger.Debug("probe round complete", zap.Int("targets", len(s.targets)))
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
