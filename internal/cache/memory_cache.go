package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"passbook/backend/internal/domain"
)

// MemoryLedgerCache is a process-local LedgerCache for single-instance
// deployments. Expired snapshots are dropped lazily and when capacity is
// reached.
type MemoryLedgerCache struct {
	mu       sync.Mutex
	items    map[string]memoryItem
	capacity int
	now      func() time.Time
}

type memoryItem struct {
	entries   []domain.LedgerEntry
	expiresAt time.Time
}

func NewMemoryLedgerCache(capacity int) *MemoryLedgerCache {
	if capacity < 1 {
		capacity = 256
	}
	return &MemoryLedgerCache{
		items:    make(map[string]memoryItem),
		capacity: capacity,
		now:      time.Now,
	}
}

func (c *MemoryLedgerCache) Get(_ context.Context, key string) ([]domain.LedgerEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		return nil, false, nil
	}
	return slices.Clone(item.entries), true, nil
}

func (c *MemoryLedgerCache) Set(_ context.Context, key string, entries []domain.LedgerEntry, ttl time.Duration) error {
	if entries == nil || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.items[key]; !exists && len(c.items) >= c.capacity {
		c.evict(now)
	}
	c.items[key] = memoryItem{entries: slices.Clone(entries), expiresAt: now.Add(ttl)}
	return nil
}

func (c *MemoryLedgerCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.items, key)
	}
	return nil
}

// evict drops expired items, or the item closest to expiry when none are.
func (c *MemoryLedgerCache) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
			continue
		}
		if oldestKey == "" || item.expiresAt.Before(oldest) {
			oldestKey, oldest = key, item.expiresAt
		}
	}
	if len(c.items) >= c.capacity && oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
