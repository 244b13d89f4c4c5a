package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a Memory store when no size is configured.
const DefaultMaxEntries = 1000

type memoryItem struct {
	data     []byte
	expireAt time.Time // zero means no expiry
}

func (i *memoryItem) expired(now time.Time) bool {
	return !i.expireAt.IsZero() && !now.Before(i.expireAt)
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMaxEntries sets the number of entries kept before eviction.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// WithTTL sets the expiration used when Set is called without one. Zero
// keeps entries until they are evicted.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) {
		m.ttl = ttl
	}
}

// WithPolicy replaces the default LRU eviction policy.
func WithPolicy(p Policy) MemoryOption {
	return func(m *Memory) {
		if p != nil {
			m.policy = p
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithCleanupInterval starts a background sweep of expired entries. Without
// it expired entries are dropped lazily on read or eviction.
func WithCleanupInterval(interval time.Duration) MemoryOption {
	return func(m *Memory) {
		m.cleanupInterval = interval
	}
}

// Memory implements Store in process with bounded size and expiry.
type Memory struct {
	mu         sync.Mutex
	data       map[string]*memoryItem
	policy     Policy
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	cleanupInterval time.Duration
	stop            chan struct{}
	closeOnce       sync.Once
}

// NewMemory creates an in-memory store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		data:       make(map[string]*memoryItem),
		policy:     NewLRU(),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.cleanupInterval > 0 {
		go m.cleanupExpired(m.cleanupInterval)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	item, ok := m.data[key]
	if ok && item.expired(m.now()) {
		m.removeLocked(key)
		ok = false
	}
	if !ok {
		m.mu.Unlock()
		return ErrCacheMiss
	}
	m.policy.Accessed(key)
	data := item.data
	m.mu.Unlock()

	return json.Unmarshal(data, dest)
}

// Set stores value, replacing any previous entry under key.
func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	item := &memoryItem{data: data}
	if ttl > 0 {
		item.expireAt = now.Add(ttl)
	}

	if _, exists := m.data[key]; !exists {
		for len(m.data) >= m.maxEntries {
			if !m.evictLocked(now) {
				break
			}
		}
	}

	m.data[key] = item
	m.policy.Added(key)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		m.removeLocked(key)
	}
	return nil
}

// Len returns the number of entries, including expired ones not yet swept.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Close stops the cleanup sweep.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	return nil
}

// evictLocked drops an expired entry if there is one, else the policy's
// victim. It reports whether anything was removed.
func (m *Memory) evictLocked(now time.Time) bool {
	for key, item := range m.data {
		if item.expired(now) {
			m.removeLocked(key)
			return true
		}
	}

	key, ok := m.policy.Victim()
	if !ok {
		return false
	}
	m.removeLocked(key)
	return true
}

func (m *Memory) removeLocked(key string) {
	delete(m.data, key)
	m.policy.Removed(key)
}

func (m *Memory) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for key, item := range m.data {
				if item.expired(now) {
					m.removeLocked(key)
				}
			}
			m.mu.Unlock()
		}
	}
}
