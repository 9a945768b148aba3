package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const noExpiry = 7 * 24 * time.Hour

type memoryItem struct {
	data     []byte
	expireAt time.Time
}

// MemoryCache is a process-local Service. Expired keys are dropped lazily.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]memoryItem
	maxSize int
	now     func() time.Time
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{MaxSize: 1000, Now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	return &MemoryCache{
		data:    make(map[string]memoryItem),
		maxSize: cfg.MaxSize,
		now:     cfg.Now,
	}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, ok := mc.data[key]; !ok && len(mc.data) >= mc.maxSize {
		mc.evictLocked()
	}
	mc.data[key] = memoryItem{data: data, expireAt: mc.expiry(ttl)}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest any) error {
	mc.mu.Lock()
	item, ok := mc.liveLocked(key)
	mc.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}
	return json.Unmarshal(item.data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		delete(mc.data, k)
	}
	return nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if _, held := mc.liveLocked(key); held {
		return false, nil
	}
	mc.data[key] = memoryItem{data: []byte(`"locked"`), expireAt: mc.expiry(ttl)}
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

func (mc *MemoryCache) Close() error { return nil }

func (mc *MemoryCache) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = noExpiry
	}
	return mc.now().Add(ttl)
}

func (mc *MemoryCache) liveLocked(key string) (memoryItem, bool) {
	item, ok := mc.data[key]
	if !ok {
		return item, false
	}
	if !mc.now().Before(item.expireAt) {
		delete(mc.data, key)
		return item, false
	}
	return item, true
}

// evictLocked drops expired keys, or the one closest to expiry when none have expired.
func (mc *MemoryCache) evictLocked() {
	now := mc.now()
	var victim string
	var soonest time.Time
	for k, item := range mc.data {
		if !now.Before(item.expireAt) {
			delete(mc.data, k)
			continue
		}
		if victim == "" || item.expireAt.Before(soonest) {
			victim, soonest = k, item.expireAt
		}
	}
	if len(mc.data) >= mc.maxSize && victim != "" {
		delete(mc.data, victim)
	}
}
