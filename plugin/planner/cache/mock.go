package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockCacheService is a mock implementation of CacheService for testing.
type MockCacheService struct {
	mu     sync.RWMutex
	store  map[string]*cacheEntry
	hits   uint64
	misses uint64
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMockCacheService creates a new MockCacheService.
func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		store: make(map[string]*cacheEntry),
	}
}

// Get retrieves a value from cache.
func (m *MockCacheService) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.store[key]
	if !ok {
		m.misses++
		return nil, false
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.store, key)
		m.misses++
		return nil, false
	}

	m.hits++
	return entry.value, true
}

// Set stores a value in cache.
func (m *MockCacheService) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	m.store[key] = &cacheEntry{
		value:     value,
		expiresAt: expiresAt,
	}

	return nil
}

// Invalidate invalidates cache entries.
func (m *MockCacheService) Invalidate(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.Contains(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		for key := range m.store {
			if strings.HasPrefix(key, prefix) {
				delete(m.store, key)
			}
		}
	} else {
		delete(m.store, pattern)
	}

	return nil
}

// Stats returns cache statistics.
func (m *MockCacheService) Stats(_ context.Context) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Hits: m.hits, Misses: m.misses, Size: len(m.store)}
}

// Clear removes all items from the cache (for testing).
func (m *MockCacheService) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]*cacheEntry)
}

// Ensure MockCacheService implements CacheService
var _ CacheService = (*MockCacheService)(nil)
