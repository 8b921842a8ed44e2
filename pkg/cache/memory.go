package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements Service in process on top of go-cache. Values are
// kept JSON encoded so callers see the same copy semantics as Redis.
type MemoryCache struct {
	items   *gocache.Cache
	maxSize int
	mu      sync.Mutex
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:           1000,
		DefaultExpiration: gocache.NoExpiration,
		CleanupInterval:   5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.DefaultExpiration == 0 {
		cfg.DefaultExpiration = gocache.NoExpiration
	}

	return &MemoryCache{
		items:   gocache.New(cfg.DefaultExpiration, cfg.CleanupInterval),
		maxSize: cfg.MaxSize,
	}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = gocache.DefaultExpiration
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.maxSize > 0 {
		if _, found := mc.items.Get(key); !found && mc.items.ItemCount() >= mc.maxSize {
			mc.items.DeleteExpired()
			if mc.items.ItemCount() >= mc.maxSize {
				return ErrCacheFull
			}
		}
	}
	mc.items.Set(key, data, expiration)
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	v, found := mc.items.Get(key)
	if !found {
		return ErrCacheMiss
	}
	return decode(v.([]byte), dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		mc.items.Delete(key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	for _, key := range keys {
		if _, found := mc.items.Get(key); found {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) Keys(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	for key := range mc.items.Items() {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len counts unexpired and not yet cleaned up items.
func (mc *MemoryCache) Len() int {
	return mc.items.ItemCount()
}

func (mc *MemoryCache) Close() error {
	mc.items.Flush()
	return nil
}
