package tracker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tracker tracks request statistics per provider (normalized host).
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// ProviderStats holds metrics for a specific provider.
// Counters are accessed atomically.
type ProviderStats struct {
	APISuccess  int64     `json:"api_success"`
	APIFailures int64     `json:"api_failures"`
	BadStatus   int64     `json:"bad_status"` // answered, but not with 200
	Retries     int64     `json:"retries"`
	LastSeen    time.Time `json:"last_seen"`

	lastSeenNano int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

func (t *Tracker) touch(s *ProviderStats) {
	atomic.StoreInt64(&s.lastSeenNano, time.Now().UnixNano())
}

// TrackAPISuccess counts a request answered with 200.
func (t *Tracker) TrackAPISuccess(provider string) {
	s := t.getStats(provider)
	atomic.AddInt64(&s.APISuccess, 1)
	t.touch(s)
}

// TrackAPIFailure counts a request that never got a usable answer.
func (t *Tracker) TrackAPIFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

// TrackBadStatus counts a request answered with a non-200 status.
func (t *Tracker) TrackBadStatus(provider string) {
	s := t.getStats(provider)
	atomic.AddInt64(&s.BadStatus, 1)
	t.touch(s)
}

func (t *Tracker) TrackRetry(provider string) {
	atomic.AddInt64(&t.getStats(provider).Retries, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats)
	for k, v := range t.stats {
		snap := ProviderStats{
			APISuccess:  atomic.LoadInt64(&v.APISuccess),
			APIFailures: atomic.LoadInt64(&v.APIFailures),
			BadStatus:   atomic.LoadInt64(&v.BadStatus),
			Retries:     atomic.LoadInt64(&v.Retries),
		}
		if ns := atomic.LoadInt64(&v.lastSeenNano); ns != 0 {
			snap.LastSeen = time.Unix(0, ns)
		}
		result[k] = snap
	}
	return result
}
