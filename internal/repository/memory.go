package repository

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryPayloadCache is a process-local payload cache.
type MemoryPayloadCache struct {
	entries sync.Map
	now     func() time.Time
}

func NewMemoryPayloadCache() *MemoryPayloadCache {
	return &MemoryPayloadCache{now: time.Now}
}

func (r *MemoryPayloadCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, ok := r.entries.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := val.(*memoryEntry)
	if !entry.expiresAt.IsZero() && r.now().After(entry.expiresAt) {
		r.entries.CompareAndDelete(key, val)
		return nil, false, nil
	}
	return entry.payload, true, nil
}

func (r *MemoryPayloadCache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	entry := &memoryEntry{payload: append([]byte(nil), payload...)}
	if ttl > 0 {
		entry.expiresAt = r.now().Add(ttl)
	}
	r.entries.Store(key, entry)
	return nil
}

func (r *MemoryPayloadCache) Delete(ctx context.Context, key string) error {
	r.entries.Delete(key)
	return nil
}
