package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/copyscape-bot/internal/cache"
)

const cleanupInterval = 5 * time.Minute

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache - in-memory хранилище с TTL, держит последние ответы по пользователю
type Cache[K comparable, V any] struct {
	mu       sync.RWMutex
	items    map[K]item[V]
	stopChan chan struct{}
	stopped  bool
	now      func() time.Time
}

var _ cache.Store[int64, string] = (*Cache[int64, string])(nil)

func New[K comparable, V any]() *Cache[K, V] {
	return NewWithContext[K, V](context.Background())
}

func NewWithContext[K comparable, V any](ctx context.Context) *Cache[K, V] {
	c := &Cache[K, V]{
		items:    make(map[K]item[V]),
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
	go c.cleanup(ctx)
	return c
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[key]
	if !ok || c.now().After(it.expiresAt) {
		var zero V
		return zero, false
	}
	return it.value, true
}

func (c *Cache[K, V]) Set(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = item[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Len считает и просроченные, но еще не вычищенные записи.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[K, V]) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
	}
	c.mu.Unlock()
}

func (c *Cache[K, V]) cleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache[K, V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, k)
		}
	}
}
