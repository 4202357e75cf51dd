package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, 5*time.Minute)
	userID := uuid.New()

	_, ok := cache.Get(ctx, userID)
	assert.False(t, ok)

	cache.Set(ctx, userID, UnionPermissions([]string{"A"}))
	perms, ok := cache.Get(ctx, userID)
	require.True(t, ok)
	assert.True(t, perms.Has("A"))

	stats := cache.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestMemoryCache_TTLExpiration(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, 50*time.Millisecond)
	userID := uuid.New()

	cache.Set(ctx, userID, UnionPermissions([]string{"A"}))
	time.Sleep(100 * time.Millisecond)

	_, ok := cache.Get(ctx, userID)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(2, time.Minute)
	first, second, third := uuid.New(), uuid.New(), uuid.New()

	cache.Set(ctx, first, PermissionSet{})
	cache.Set(ctx, second, PermissionSet{})
	// touch first so second becomes least recently used
	_, _ = cache.Get(ctx, first)
	cache.Set(ctx, third, PermissionSet{})

	_, ok := cache.Get(ctx, second)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, first)
	assert.True(t, ok)
	_, ok = cache.Get(ctx, third)
	assert.True(t, ok)
}

func TestMemoryCache_InvalidateAndCleanup(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, 50*time.Millisecond)
	a, b := uuid.New(), uuid.New()

	cache.Set(ctx, a, PermissionSet{})
	cache.Set(ctx, b, PermissionSet{})
	cache.Invalidate(ctx, a)
	assert.Equal(t, 1, cache.Stats().Size)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 0, cache.Stats().Size)
}

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, time.Minute, zap.NewNop()), mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t)
	userID := uuid.New()

	_, ok := cache.Get(ctx, userID)
	assert.False(t, ok)

	cache.Set(ctx, userID, UnionPermissions([]string{"B", "A"}))
	assert.True(t, mr.Exists(redisKeyPrefix+userID.String()))

	raw, err := mr.Get(redisKeyPrefix + userID.String())
	require.NoError(t, err)
	assert.JSONEq(t, `["A","B"]`, raw)

	perms, ok := cache.Get(ctx, userID)
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, perms.Names())

	cache.Invalidate(ctx, userID)
	_, ok = cache.Get(ctx, userID)
	assert.False(t, ok)
}

func TestRedisCache_Expiry(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t)
	userID := uuid.New()

	cache.Set(ctx, userID, PermissionSet{})
	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, userID)
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t)
	userID := uuid.New()

	require.NoError(t, mr.Set(redisKeyPrefix+userID.String(), "not json"))
	_, ok := cache.Get(ctx, userID)
	assert.False(t, ok)
}

func TestRedisCache_BackendDownIsMiss(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t)
	mr.Close()

	userID := uuid.New()
	cache.Set(ctx, userID, PermissionSet{})
	_, ok := cache.Get(ctx, userID)
	assert.False(t, ok)
}
