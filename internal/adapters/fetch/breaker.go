package fetch

import (
	"sync"
	"time"
)

// BreakerPolicy configures per-host failure handling.
type BreakerPolicy struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// DefaultBreakerPolicy matches the service defaults: three terminal
// failures open a host for fifteen seconds.
func DefaultBreakerPolicy() BreakerPolicy {
	return BreakerPolicy{
		FailureThreshold: 3,
		Cooldown:         15 * time.Second,
	}
}

// breaker is the per-host cell. Each cell has its own lock so hosts
// stay independent under fan-out contention.
type breaker struct {
	mu       sync.Mutex
	failures int
	openedAt time.Time
}

// isOpen reports whether calls to the host must be rejected. Once
// openedAt is set the answer is monotone until the cooldown elapses.
func (b *breaker) isOpen(now time.Time, cooldown time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openedAt.IsZero() {
		return false
	}
	return now.Sub(b.openedAt) < cooldown
}

// recordFailure counts a terminal failure and opens the breaker once
// the threshold is reached. A failure after the cooldown re-opens it.
func (b *breaker) recordFailure(now time.Time, threshold int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= threshold {
		b.openedAt = now
	}
}

// recordSuccess resets the cell to closed.
func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.openedAt = time.Time{}
}

// BreakerMap holds one breaker per hostname. Cells are created lazily
// on first use and never evicted; the host set is small and bounded.
type BreakerMap struct {
	mu    sync.RWMutex
	hosts map[string]*breaker
}

// NewBreakerMap creates an empty per-host breaker map.
func NewBreakerMap() *BreakerMap {
	return &BreakerMap{hosts: make(map[string]*breaker)}
}

// get returns the cell for host, creating it when absent.
func (m *BreakerMap) get(host string) *breaker {
	m.mu.RLock()
	b, ok := m.hosts[host]
	m.mu.RUnlock()
	if ok {
		return b
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok = m.hosts[host]; ok {
		return b
	}
	b = &breaker{}
	m.hosts[host] = b
	return b
}

// Failures returns the current failure count for host; zero when the
// host has no cell yet.
func (m *BreakerMap) Failures(host string) int {
	m.mu.RLock()
	b, ok := m.hosts[host]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// OpenCount returns how many hosts are currently open.
func (m *BreakerMap) OpenCount(now time.Time, cooldown time.Duration) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	open := 0
	for _, b := range m.hosts {
		if b.isOpen(now, cooldown) {
			open++
		}
	}
	return open
}
