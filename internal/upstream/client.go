// Package upstream holds the HTTP adapters for the public weather providers
// behind the gateway: Open-Meteo, the US National Weather Service and
// RainViewer.
//
// Every adapter goes through Client, which applies a per-attempt timeout, a
// single retry on transient failures and a per-host circuit breaker, and maps
// failures onto the gateway error kinds.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-gateway/internal/metrics"
	"github.com/i474232898/weather-gateway/internal/weather"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultRetryBackoff = 250 * time.Millisecond
	DefaultUserAgent    = "weather-gateway/1.0 (https://github.com/i474232898/weather-gateway)"

	maxBodyBytes = 8 << 20
)

// Options are shared by every upstream client.
type Options struct {
	HTTPClient   *http.Client
	Timeout      time.Duration
	RetryBackoff time.Duration
	UserAgent    string
	Logger       *zap.Logger
	Metrics      *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = DefaultRetryBackoff
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// StatusError carries a non-2xx upstream response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Health is a snapshot of one upstream host's recent behaviour.
type Health struct {
	Name                string        `json:"name"`
	BaseURL             string        `json:"base_url"`
	Healthy             bool          `json:"healthy"`
	BreakerState        string        `json:"breaker_state"`
	LastSuccess         *time.Time    `json:"last_success,omitempty"`
	LastFailure         *time.Time    `json:"last_failure,omitempty"`
	LastError           string        `json:"last_error,omitempty"`
	LastLatency         time.Duration `json:"-"`
	LastLatencyMs       int64         `json:"last_latency_ms"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	Requests            uint64        `json:"requests"`
	Failures            uint64        `json:"failures"`
}

// Client performs GET requests against a single upstream host.
type Client struct {
	name      string
	baseURL   string
	headers   http.Header
	probePath string
	opts      Options
	logger    *zap.Logger
	circuit   *gobreaker.CircuitBreaker

	mu     sync.Mutex
	health Health
}

// NewClient creates a client for baseURL. probePath is requested by Probe and
// should be a cheap endpoint that answers 2xx when the host is up.
func NewClient(name, baseURL, probePath string, headers http.Header, opts Options) *Client {
	opts = opts.withDefaults()
	c := &Client{
		name:      name,
		baseURL:   strings.TrimRight(baseURL, "/"),
		headers:   headers.Clone(),
		probePath: probePath,
		opts:      opts,
		logger:    opts.Logger.Named(name),
	}
	if c.headers == nil {
		c.headers = http.Header{}
	}
	c.headers.Set("User-Agent", opts.UserAgent)
	if c.headers.Get("Accept") == "" {
		c.headers.Set("Accept", "application/json")
	}

	c.circuit = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			opts.Metrics.BreakerState(name, int(to))
		},
	})
	c.health = Health{Name: name, BaseURL: c.baseURL, Healthy: true, BreakerState: gobreaker.StateClosed.String()}
	return c
}

func (c *Client) Name() string {
	return c.name
}

// Fetch GETs endpoint with params and returns the raw JSON body.
//
// endpoint is either a path relative to the base URL or an absolute URL
// returned by the upstream itself; only the path of an absolute URL is used so
// requests never leave the configured host.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	op := c.name + " " + endpointPath(endpoint)
	target := c.buildURL(endpoint, params)

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(c.opts.RetryBackoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, c.fail(op, weather.Wrap(weather.KindUpstreamUnavailable, op, ctx.Err()))
			case <-timer.C:
			}
		}

		body, err := c.do(ctx, target)
		if err == nil {
			if !json.Valid(body) {
				return nil, c.fail(op, weather.E(weather.KindMalformedResponse, op, "response is not valid JSON"))
			}
			c.succeed()
			return body, nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, c.fail(op, &weather.Error{Kind: weather.KindUpstreamUnavailable, Op: op, Message: "circuit breaker open", Cause: err})
		}
		if ctx.Err() != nil {
			return nil, c.fail(op, weather.Wrap(weather.KindUpstreamUnavailable, op, err))
		}

		status := StatusCode(err)
		if status != 0 && !retryable(status) {
			// The host answered; a client error says nothing about its health.
			c.succeed()
			return nil, &weather.Error{Kind: weather.KindUpstreamError, Op: op, Cause: err}
		}
		c.logger.Debug("transient upstream failure",
			zap.String("url", target),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return nil, c.fail(op, weather.Wrap(weather.KindUpstreamUnavailable, op, lastErr))
}

// Probe requests the client's probe endpoint once and reports the outcome in
// its health.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.Fetch(ctx, c.probePath, nil)
	return err
}

// Health returns a copy of the client's health.
func (c *Client) Health() Health {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.health
	state := c.circuit.State()
	h.BreakerState = state.String()
	h.Healthy = h.ConsecutiveFailures == 0 && state != gobreaker.StateOpen
	h.LastLatencyMs = h.LastLatency.Milliseconds()
	return h
}

// do runs a single attempt through the breaker. 5xx and 429 count as breaker
// failures; other non-2xx statuses are returned as *StatusError outside the
// breaker's failure accounting.
func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	start := time.Now()
	statusClass := "error"
	defer func() {
		elapsed := time.Since(start)
		c.opts.Metrics.ObserveUpstream(c.name, statusClass, elapsed.Seconds())
		c.mu.Lock()
		c.health.LastLatency = elapsed
		c.health.Requests++
		c.mu.Unlock()
	}()

	var clientErr error
	result, err := c.circuit.Execute(func() (interface{}, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header = c.headers.Clone()

		resp, err := c.opts.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		statusClass = fmt.Sprintf("%dxx", resp.StatusCode/100)

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, &StatusError{Status: resp.StatusCode, Body: snippet(body)}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			clientErr = &StatusError{Status: resp.StatusCode, Body: snippet(body)}
			return nil, nil
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	if clientErr != nil {
		return nil, clientErr
	}
	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

func (c *Client) succeed() {
	now := time.Now()
	c.mu.Lock()
	c.health.LastSuccess = &now
	c.health.ConsecutiveFailures = 0
	c.mu.Unlock()
}

func (c *Client) fail(op string, err error) error {
	now := time.Now()
	c.mu.Lock()
	c.health.LastFailure = &now
	c.health.LastError = err.Error()
	c.health.ConsecutiveFailures++
	c.health.Failures++
	c.mu.Unlock()

	c.logger.Warn("upstream request failed", zap.String("op", op), zap.Error(err))
	return err
}

func (c *Client) buildURL(endpoint string, params url.Values) string {
	u := c.baseURL + endpointPath(endpoint)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func endpointPath(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		if u, err := url.Parse(endpoint); err == nil {
			return u.EscapedPath()
		}
	}
	if endpoint != "" && !strings.HasPrefix(endpoint, "/") {
		return "/" + endpoint
	}
	return endpoint
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// decode unmarshals an upstream body, mapping failures to MalformedResponse.
func decode(op string, body json.RawMessage, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return &weather.Error{Kind: weather.KindMalformedResponse, Op: op, Message: "decode response", Cause: err}
	}
	return nil
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
