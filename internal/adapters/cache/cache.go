// Package cache stores recent resolutions keyed by normalized query
// text so identical questions inside the TTL skip the provider fan-out.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mkhalili/arbiter/internal/domain/model"
)

// Store is the resolution cache contract.
type Store interface {
	Get(ctx context.Context, key string) (*model.ResolutionResult, bool)
	Set(ctx context.Context, key string, result *model.ResolutionResult)
}

// Key normalizes raw query text into a cache key.
func Key(raw string) string {
	return "arbiter:resolution:" + strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// entry is a single cached resolution in the in-memory store.
type entry struct {
	key       string
	result    model.ResolutionResult
	storedAt  time.Time
	next      *entry
}

func (e *entry) reset() {
	e.key = ""
	e.result = model.ResolutionResult{}
	e.storedAt = time.Time{}
	e.next = nil
}

// Option applies a configuration option to the Memory store.
type Option func(*Memory)

// WithMaxSize bounds the number of cached resolutions.
func WithMaxSize(size int) Option {
	return func(m *Memory) {
		if size > 0 {
			m.maxSize = size
		}
	}
}

// WithTTL sets how long a cached resolution stays valid.
func WithTTL(ttl time.Duration) Option {
	return func(m *Memory) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

const (
	defaultMaxSize = 10_000
	defaultTTL     = 10 * time.Minute
)

// Memory is a bounded in-memory store. Entries live in a map plus a
// linked list; when full, the oldest tail entry is evicted and its
// node recycled through a pool.
type Memory struct {
	mu        sync.Mutex
	entries   map[string]*entry
	head      *entry
	maxSize   int
	ttl       time.Duration
	now       func() time.Time
	entryPool sync.Pool
}

// NewMemory creates an in-memory store with configuration options.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		maxSize: defaultMaxSize,
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.entries = make(map[string]*entry)
	m.entryPool = sync.Pool{
		New: func() interface{} {
			return &entry{}
		},
	}
	return m
}

// Get returns the cached resolution when present and fresh.
func (m *Memory) Get(_ context.Context, key string) (*model.ResolutionResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.now().Sub(e.storedAt) > m.ttl {
		m.remove(e)
		return nil, false
	}
	result := e.result
	return &result, true
}

// Set stores a resolution, evicting the oldest entry when full.
func (m *Memory) Set(_ context.Context, key string, result *model.ResolutionResult) {
	if result == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.entries[key]; ok {
		existing.result = *result
		existing.storedAt = m.now()
		return
	}

	if len(m.entries) >= m.maxSize {
		m.evictTail()
	}

	e := m.entryPool.Get().(*entry)
	e.key = key
	e.result = *result
	e.storedAt = m.now()
	e.next = m.head
	m.head = e
	m.entries[key] = e
}

// remove unlinks an entry; caller holds the lock.
func (m *Memory) remove(target *entry) {
	delete(m.entries, target.key)
	if m.head == target {
		m.head = target.next
	} else {
		current := m.head
		for current != nil && current.next != target {
			current = current.next
		}
		if current != nil {
			current.next = target.next
		}
	}
	target.reset()
	m.entryPool.Put(target)
}

// evictTail drops the oldest entry; caller holds the lock.
func (m *Memory) evictTail() {
	if m.head == nil {
		return
	}
	if m.head.next == nil {
		m.remove(m.head)
		return
	}
	current := m.head
	for current.next.next != nil {
		current = current.next
	}
	m.remove(current.next)
}

// Len returns the number of cached resolutions.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
