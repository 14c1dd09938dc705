package catalog_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/webshop-works/checkout/internal/catalog"
	"github.com/webshop-works/checkout/internal/money"
)

func TestCacheReadThrough(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	product := catalog.Product{
		Kind:   "product",
		ID:     "sku-1",
		Title:  "Mug",
		Price:  money.MustFromString("9.99"),
		Weight: decimal.NewFromFloat(0.4),
	}
	cache := catalog.NewCache(catalog.NewMemory(product), client, time.Minute)
	ctx := context.Background()

	got, err := cache.Resolve(ctx, product.Ref())
	require.NoError(t, err)
	require.True(t, product.Price.Equal(got.Price))

	// Second hit is served from Redis even if the inner resolver forgets.
	empty := catalog.NewCache(catalog.NewMemory(), client, time.Minute)
	got, err = empty.Resolve(ctx, product.Ref())
	require.NoError(t, err)
	require.Equal(t, "Mug", got.Title)
}

func TestCacheMiss(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := catalog.NewCache(catalog.NewMemory(), client, time.Minute)
	_, err = cache.Resolve(context.Background(), catalog.Ref{Kind: "product", ID: "missing"})
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
