package cache

import (
	"context"
	"time"

	"finanzapp/internal/log"
)

// Cache is the context-aware cache used by services. Failures are absorbed:
// a broken backend behaves like a permanent miss.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, data T)
	DeletePrefix(ctx context.Context, prefix string) int
}

// Memory adapts an LRUCache to Cache.
type Memory[T any] struct {
	*LRUCache[T]
}

// NewMemory returns an in-process Cache.
func NewMemory[T any](maxSize int, ttl time.Duration) Memory[T] {
	return Memory[T]{LRUCache: NewLRUCache[T](maxSize, ttl)}
}

func (m Memory[T]) Get(_ context.Context, key string) (T, bool) { return m.LRUCache.Get(key) }

func (m Memory[T]) Set(_ context.Context, key string, data T) { m.LRUCache.Set(key, data) }

func (m Memory[T]) DeletePrefix(_ context.Context, prefix string) int {
	return m.LRUCache.DeletePrefix(prefix)
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically purges expired entries from registered caches.
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager(logger *log.Logger) *Manager {
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.CleanNow(); n > 0 {
				m.logger.Debug("Expired cache entries removed", "count", n)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// CleanNow purges every registered cache once.
func (m *Manager) CleanNow() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup goroutine and waits for it to exit.
func (m *Manager) Stop() {
	if !m.started {
		return
	}
	close(m.stopCleanup)
	<-m.cleanupDone
	m.started = false
}
