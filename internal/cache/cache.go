// Package cache wraps go-cache with the read-through helpers used by the
// facets listing and the dashboard presets.
package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// NoExpiration keeps an entry until it is deleted or flushed.
const NoExpiration = cache.NoExpiration

type Manager struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func NewManager(defaultTTL time.Duration) *Manager {
	return &Manager{
		cache: cache.New(defaultTTL, 10*time.Minute),
	}
}

func (m *Manager) Get(key string) (any, bool) {
	return m.cache.Get(key)
}

// Set stores value under key. A zero ttl uses the manager default.
func (m *Manager) Set(key string, value any, ttl time.Duration) {
	if ttl == 0 {
		ttl = cache.DefaultExpiration
	}
	m.cache.Set(key, value, ttl)
}

func (m *Manager) Delete(key string) {
	m.cache.Delete(key)
}

// DeletePrefix removes every key starting with prefix.
func (m *Manager) DeletePrefix(prefix string) {
	for key := range m.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			m.cache.Delete(key)
		}
	}
}

func (m *Manager) Flush() {
	m.cache.Flush()
}

func (m *Manager) ItemCount() int {
	return m.cache.ItemCount()
}

// Remember returns the cached value for key, or calls load, caches its result
// for ttl and returns it. Concurrent misses on one manager are serialized so
// load runs once per expiry. Errors are returned and not cached.
func Remember[T any](m *Manager, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if v, ok := m.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.cache.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	value, err := load()
	if err != nil {
		var zero T
		return zero, err
	}
	m.Set(key, value, ttl)
	return value, nil
}
