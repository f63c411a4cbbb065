package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrawatt/terrawatt/internal/domain/services"
)

func newTestCache(t *testing.T) (services.CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache, err := NewRedisCacheService("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	return cache, mr
}

func TestRedisCacheService_SetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "summary:test", `{"total":3}`, time.Minute))

	value, err := cache.Get(ctx, "summary:test")
	require.NoError(t, err)
	assert.Equal(t, `{"total":3}`, value)
}

func TestRedisCacheService_GetMissing(t *testing.T) {
	cache, _ := newTestCache(t)

	_, err := cache.Get(context.Background(), "does-not-exist")
	assert.Error(t, err)
}

func TestRedisCacheService_Delete(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "to-delete", "value", time.Minute))
	require.NoError(t, cache.Delete(ctx, "to-delete"))

	exists, err := cache.Exists(ctx, "to-delete")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisCacheService_Expiration(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	key := fmt.Sprintf(services.SummaryCacheKeyPattern, "land-1")
	require.NoError(t, cache.Set(ctx, key, "cached", services.CacheShortTerm))

	exists, err := cache.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	// Advance past the TTL
	mr.FastForward(services.CacheShortTerm + time.Second)

	exists, err = cache.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisCacheService_Ping(t *testing.T) {
	cache, mr := newTestCache(t)

	require.NoError(t, cache.Ping(context.Background()))

	mr.Close()
	assert.Error(t, cache.Ping(context.Background()))
}
