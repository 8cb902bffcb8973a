package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBucket is an in-process Bucket with per-entry expiry, used in local
// mode and in tests. Expired entries are dropped lazily on access.
type MemoryBucket struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]memoryEntry
	now   func() time.Time
}

func NewMemoryBucket(ttl time.Duration) *MemoryBucket {
	return &MemoryBucket{ttl: ttl, items: make(map[string]memoryEntry), now: time.Now}
}

func (b *MemoryBucket) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	entry, ok := b.items[key]
	b.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if b.ttl > 0 && !b.now().Before(entry.expiresAt) {
		b.mu.Lock()
		delete(b.items, key)
		b.mu.Unlock()
		return nil, ErrMiss
	}
	return entry.value, nil
}

func (b *MemoryBucket) Put(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[key] = memoryEntry{value: value, expiresAt: b.now().Add(b.ttl)}
	return nil
}

func (b *MemoryBucket) DeletePrefix(_ context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key := range b.items {
		if strings.HasPrefix(key, prefix) {
			delete(b.items, key)
		}
	}
	return nil
}

func (b *MemoryBucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
