package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// EvictReason says why an entry left the map.
type EvictReason int

const (
	EvictExpired EvictReason = iota
	EvictDeleted
	EvictReplaced
)

func (r EvictReason) String() string {
	switch r {
	case EvictExpired:
		return "expired"
	case EvictDeleted:
		return "deleted"
	default:
		return "replaced"
	}
}

// EvictFunc observes evictions. It runs outside the map lock.
type EvictFunc[V any] func(key string, value V, reason EvictReason)

// TTLMap is a concurrent in-memory cache with per-key TTL.
// - Safe for concurrent use.
// - The default TTL applies when Set is called with ttl <= 0.
// - A background loop purges expired entries every cleanupInterval.
type TTLMap[V any] struct {
	mu              sync.RWMutex
	data            map[string]ttlEntry[V]
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	lastCleanup     time.Time
	onEvict         EvictFunc[V]
	now             func() time.Time

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}

	name string
}

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
	hasExpiry bool
}

type evicted[V any] struct {
	key   string
	value V
}

func (e ttlEntry[V]) expired(now time.Time) bool {
	return e.hasExpiry && !now.Before(e.expiresAt)
}

// Option configures a TTLMap.
type Option[V any] func(*TTLMap[V])

// WithEvictFunc registers an eviction observer.
func WithEvictFunc[V any](fn EvictFunc[V]) Option[V] {
	return func(m *TTLMap[V]) { m.onEvict = fn }
}

// WithClock replaces time.Now, for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(m *TTLMap[V]) { m.now = now }
}

// NewTTLMap creates a TTLMap. A zero cleanupInterval disables the background
// loop; expired entries are then only dropped lazily.
func NewTTLMap[V any](name string, defaultTTL, cleanupInterval time.Duration, opts ...Option[V]) *TTLMap[V] {
	m := &TTLMap[V]{
		data:            make(map[string]ttlEntry[V]),
		defaultTTL:      defaultTTL,
		cleanupInterval: cleanupInterval,
		now:             time.Now,
		stopCh:          make(chan struct{}),
		name:            name,
	}
	for _, opt := range opts {
		opt(m)
	}

	if cleanupInterval > 0 {
		go m.cleanupLoop()
	}
	return m
}

// Close stops the background cleanup goroutine, if any.
func (m *TTLMap[V]) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// Get returns the value for key if present and not expired.
func (m *TTLMap[V]) Get(key string) (V, bool) {
	now := m.now()

	m.mu.RLock()
	entry, ok := m.data[key]
	m.mu.RUnlock()

	if ok && !entry.expired(now) {
		m.hits.Add(1)
		return entry.value, true
	}
	m.misses.Add(1)

	if ok {
		m.dropIfExpired(key, now)
	}
	var zero V
	return zero, false
}

// Set stores value under key. ttl <= 0 applies the default TTL; with no
// default the entry never expires.
func (m *TTLMap[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	entry := ttlEntry[V]{value: value}
	if ttl > 0 {
		entry.hasExpiry = true
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	prev, existed := m.data[key]
	m.data[key] = entry
	m.mu.Unlock()

	if existed {
		m.notify(key, prev.value, EvictReplaced)
	}
}

// Delete removes key. Missing keys are ignored.
func (m *TTLMap[V]) Delete(key string) {
	m.mu.Lock()
	prev, existed := m.data[key]
	delete(m.data, key)
	m.mu.Unlock()

	if existed {
		m.notify(key, prev.value, EvictDeleted)
	}
}

// Has reports whether key is present and not expired. It does not touch stats.
func (m *TTLMap[V]) Has(key string) bool {
	now := m.now()

	m.mu.RLock()
	entry, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return false
	}
	if entry.expired(now) {
		m.dropIfExpired(key, now)
		return false
	}
	return true
}

// GetTTL returns the remaining lifetime of key.
func (m *TTLMap[V]) GetTTL(key string) (time.Duration, bool) {
	now := m.now()

	m.mu.RLock()
	entry, ok := m.data[key]
	m.mu.RUnlock()

	if !ok || !entry.hasExpiry || entry.expired(now) {
		return 0, false
	}
	return entry.expiresAt.Sub(now), true
}

// Size returns the number of live entries.
func (m *TTLMap[V]) Size() int {
	return len(m.Keys())
}

// Keys returns the live keys at the time of calling.
func (m *TTLMap[V]) Keys() []string {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k, v := range m.data {
		if !v.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Cleanup drops expired entries immediately.
func (m *TTLMap[V]) Cleanup() {
	now := m.now()

	m.mu.Lock()
	var dropped []evicted[V]
	for k, v := range m.data {
		if v.expired(now) {
			delete(m.data, k)
			dropped = append(dropped, evicted[V]{k, v.value})
		}
	}
	m.lastCleanup = now
	m.mu.Unlock()

	for _, d := range dropped {
		m.notify(d.key, d.value, EvictExpired)
	}
}

// Clear removes all entries without notifying.
func (m *TTLMap[V]) Clear() {
	m.mu.Lock()
	m.data = make(map[string]ttlEntry[V])
	m.mu.Unlock()
}

// Stats returns a snapshot of cache statistics.
func (m *TTLMap[V]) Stats() Stats {
	hits, misses := m.hits.Load(), m.misses.Load()

	m.mu.RLock()
	lastCleanup := m.lastCleanup
	m.mu.RUnlock()

	s := Stats{
		Name:        m.name,
		Entries:     m.Size(),
		Hits:        hits,
		Misses:      misses,
		Evictions:   m.evictions.Load(),
		DefaultTTL:  m.defaultTTL,
		LastCleanup: lastCleanup,
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

func (m *TTLMap[V]) dropIfExpired(key string, now time.Time) {
	m.mu.Lock()
	cur, exists := m.data[key]
	expired := exists && cur.expired(now)
	if expired {
		delete(m.data, key)
	}
	m.mu.Unlock()

	if expired {
		m.notify(key, cur.value, EvictExpired)
	}
}

func (m *TTLMap[V]) notify(key string, value V, reason EvictReason) {
	if reason == EvictExpired {
		m.evictions.Add(1)
	}
	if m.onEvict != nil {
		m.onEvict(key, value, reason)
	}
}

func (m *TTLMap[V]) cleanupLoop() {
	t := time.NewTicker(m.cleanupInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			m.Cleanup()
		case <-m.stopCh:
			return
		}
	}
}
