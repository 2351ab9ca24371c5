package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// requires Redis on localhost:6379, skipped otherwise
const testRedisAddr = "localhost:6379"

func setupTestCache(t *testing.T) *CatalogCache {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	cache := NewCatalogCache(client, "test:catalog:"+t.Name()+":", time.Minute)
	require.NoError(t, cache.InvalidateAll(context.Background()))
	t.Cleanup(func() {
		cache.InvalidateAll(context.Background())
		cache.Close()
	})
	return cache
}

func TestCatalogCache(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t)

	var out []string
	found, err := cache.Get(ctx, "missing", &out)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, cache.Set(ctx, "k", []string{"a", "b"}))
	found, err = cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []string{"a", "b"}, out)

	require.NoError(t, cache.InvalidateAll(ctx))
	found, err = cache.Get(ctx, "k", &out)
	require.NoError(t, err)
	require.False(t, found)

	stats := cache.Stats()
	require.Equal(t, uint64(1), stats.Hits)
	require.Equal(t, uint64(2), stats.Misses)
}

func TestProductListIsCachedAndInvalidated(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t)
	g := New(setupTestDB(t), WithCache(cache))

	seedProduct(t, g, "UI Kit", "Templates", "49.00")
	first, err := g.Products().List(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	// served from cache on the second call
	_, err = g.Products().List(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Equal(t, uint64(1), cache.Stats().Hits)

	seedProduct(t, g, "Icon Pack", "Graphics", "15.00")
	after, err := g.Products().List(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, after, 2)
	require.IsType(t, models.Product{}, after[0])
}

func TestStaleListingIsNotCached(t *testing.T) {
	ctx := context.Background()
	cache := setupTestCache(t)
	g := New(setupTestDB(t), WithCache(cache))
	products := g.Products().(productCollection)

	key := productListKey(ProductFilter{})
	gen := g.generation.Load()
	seedProduct(t, g, "UI Kit", "Templates", "49.00")

	// listing read before the insert landed
	require.False(t, products.storeListing(ctx, key, gen, []models.Product{}))
	var out []models.Product
	found, err := cache.Get(ctx, key, &out)
	require.NoError(t, err)
	require.False(t, found)

	listed, err := g.Products().List(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	found, err = cache.Get(ctx, key, &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, out, 1)
}
