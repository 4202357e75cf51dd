package authz

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores resolved permission sets per principal.
// Implementations treat backend failures as misses.
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) (PermissionSet, bool)
	Set(ctx context.Context, userID uuid.UUID, perms PermissionSet)
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// NopCache never stores anything
type NopCache struct{}

func (NopCache) Get(context.Context, uuid.UUID) (PermissionSet, bool) { return nil, false }
func (NopCache) Set(context.Context, uuid.UUID, PermissionSet)        {}
func (NopCache) Invalidate(context.Context, uuid.UUID)                {}

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	userID     uuid.UUID
	perms      PermissionSet
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// MemoryCache is an in-process LRU cache with TTL
type MemoryCache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

// NewMemoryCache creates a MemoryCache with specified max size and TTL
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &MemoryCache{
		entries: make(map[uuid.UUID]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a permission set; expired entries count as misses
func (c *MemoryCache) Get(_ context.Context, userID uuid.UUID) (PermissionSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[userID]
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			c.removeEntry(userID)
		}
		return nil, false
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return entry.perms, true
}

// Set stores a permission set
func (c *MemoryCache) Set(_ context.Context, userID uuid.UUID, perms PermissionSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[userID]; exists {
		entry.perms = perms
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		userID:     userID,
		perms:      perms,
		insertedAt: time.Now(),
	}
	entry.element = c.lruList.PushFront(userID)
	c.entries[userID] = entry
}

// Invalidate removes a principal's entry
func (c *MemoryCache) Invalidate(_ context.Context, userID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeEntry(userID)
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// removeEntry removes an entry from the cache (must be called with lock held)
func (c *MemoryCache) removeEntry(userID uuid.UUID) {
	if entry, exists := c.entries[userID]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, userID)
	}
}

// evictLRU evicts the least recently used entry (must be called with lock held)
func (c *MemoryCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	c.lruList.Remove(back)
	delete(c.entries, back.Value.(uuid.UUID))
}

// CleanupExpired removes all expired entries
func (c *MemoryCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for userID, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			c.removeEntry(userID)
			removed++
		}
	}
	return removed
}

// StartCleanupWorker periodically removes expired entries until stopCh closes
func (c *MemoryCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}

const redisKeyPrefix = "authz:perms:"

// RedisCache shares permission sets across API replicas
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a RedisCache
func NewRedisCache(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func redisKey(userID uuid.UUID) string {
	return redisKeyPrefix + userID.String()
}

// Get retrieves a permission set
func (c *RedisCache) Get(ctx context.Context, userID uuid.UUID) (PermissionSet, bool) {
	raw, err := c.client.Get(ctx, redisKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("permission cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		c.logger.Warn("permission cache entry corrupt", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, false
	}
	return UnionPermissions(names), true
}

// Set stores a permission set
func (c *RedisCache) Set(ctx context.Context, userID uuid.UUID, perms PermissionSet) {
	raw, err := json.Marshal(perms.Names())
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKey(userID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("permission cache write failed", zap.Error(err))
	}
}

// Invalidate removes a principal's entry
func (c *RedisCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	if err := c.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		c.logger.Warn("permission cache invalidation failed",
			zap.String("user_id", userID.String()), zap.Error(err))
	}
}
