package store

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no probe has been recorded for an upstream.
	ErrNotFound = errors.New("no probe history for upstream")
)

// ProbeResult is the outcome of one health probe against an upstream.
type ProbeResult struct {
	At      time.Time     `json:"at"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency"`
	Error   string        `json:"error,omitempty"`
}

// ProbeHistory holds a time-ordered list of probe results for an upstream.
type ProbeHistory struct {
	Results []ProbeResult
}

// MemoryStore is a concurrency-safe in-memory store of upstream probe history.
type MemoryStore struct {
	mu sync.RWMutex

	// key: upstream name, value: history
	data map[string]*ProbeHistory

	// retention configuration
	maxHistory int           // max number of results per upstream
	maxAge     time.Duration // optional max age for results

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]*ProbeHistory),
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Record appends a probe result for upstream and enforces retention.
func (s *MemoryStore) Record(upstream string, result ProbeResult) {
	if result.At.IsZero() {
		result.At = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.data[upstream]
	if !ok {
		history = &ProbeHistory{}
		s.data[upstream] = history
	}

	history.Results = append(history.Results, result)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(history.Results) > s.maxHistory {
		over := len(history.Results) - s.maxHistory
		history.Results = append([]ProbeResult(nil), history.Results[over:]...)
	}

	// Enforce retention by age. The newest result is always kept.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(history.Results)-1; i++ {
			if !history.Results[i].At.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			history.Results = history.Results[i:]
		}
	}
}

// Latest returns the most recent probe result for upstream.
func (s *MemoryStore) Latest(upstream string) (ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[upstream]
	if !ok || len(history.Results) == 0 {
		return ProbeResult{}, ErrNotFound
	}
	return history.Results[len(history.Results)-1], nil
}

// Range returns all results for upstream between from and to (inclusive).
func (s *MemoryStore) Range(upstream string, from, to time.Time) ([]ProbeResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[upstream]
	if !ok || len(history.Results) == 0 {
		return nil, ErrNotFound
	}

	var result []ProbeResult
	for _, r := range history.Results {
		if !r.At.Before(from) && !r.At.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}

// SuccessRatio returns the share of retained probes for upstream that
// succeeded, and how many probes that share is computed over.
func (s *MemoryStore) SuccessRatio(upstream string) (float64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, ok := s.data[upstream]
	if !ok || len(history.Results) == 0 {
		return 0, 0, ErrNotFound
	}
	passed := 0
	for _, r := range history.Results {
		if r.OK {
			passed++
		}
	}
	n := len(history.Results)
	return float64(passed) / float64(n), n, nil
}
