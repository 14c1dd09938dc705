package session_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/webshop-works/checkout/internal/cart"
	"github.com/webshop-works/checkout/internal/catalog"
	"github.com/webshop-works/checkout/internal/discount"
	"github.com/webshop-works/checkout/internal/money"
	"github.com/webshop-works/checkout/internal/session"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRoundTrip(t *testing.T) {
	_, client := newClient(t)
	store := session.NewStore(client, "sess-42", time.Hour)
	ctx := context.Background()

	state := cart.State{
		Items: []cart.StoredItem{{
			Ref:      catalog.Ref{Kind: "product", ID: "mug"},
			Quantity: 3,
			Customizations: []cart.Customization{
				{Title: "Engraving", Value: "AB", PriceDelta: money.MustFromString("2.00")},
			},
		}},
		Discount: &discount.Discount{
			Code:      "SAVE",
			Kind:      discount.KindPercentage,
			Amount:    decimal.NewFromInt(10),
			ExpiresOn: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		PostageID: "gb-std",
		Search:    &cart.PostageSearch{Country: "GB", PostalCode: "SW1A 1AA"},
	}
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, state.Items, loaded.Items)
	require.Equal(t, state.PostageID, loaded.PostageID)
	require.Equal(t, state.Search, loaded.Search)
	require.NotNil(t, loaded.Discount)
	require.Equal(t, "SAVE", loaded.Discount.Code)
	require.True(t, state.Discount.Amount.Equal(loaded.Discount.Amount))
}

func TestLoadMissingSessionIsEmpty(t *testing.T) {
	_, client := newClient(t)
	store := session.NewStore(client, "never-seen", time.Hour)

	state, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, state.Items)
	require.Nil(t, state.Discount)
}

func TestSaveOverwritesWholesale(t *testing.T) {
	_, client := newClient(t)
	store := session.NewStore(client, "sess-1", time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, cart.State{
		Items:     []cart.StoredItem{{Ref: catalog.Ref{Kind: "product", ID: "mug"}, Quantity: 1}},
		PostageID: "gb-std",
	}))
	require.NoError(t, store.Save(ctx, cart.State{}))

	state, err := store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, state.Items)
	require.Empty(t, state.PostageID)
}

func TestSaveRefreshesTTL(t *testing.T) {
	mr, client := newClient(t)
	store := session.NewStore(client, "sess-ttl", time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, cart.State{}))
	mr.FastForward(30 * time.Second)
	require.NoError(t, store.Save(ctx, cart.State{}))
	mr.FastForward(45 * time.Second)

	// Still alive: the second save reset the clock.
	_, err := store.Load(ctx)
	require.NoError(t, err)
}

func TestSessionsAreIsolated(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	a := session.NewStore(client, "sess-a", time.Hour)
	b := session.NewStore(client, "sess-b", time.Hour)

	require.NoError(t, a.Save(ctx, cart.State{PostageID: "gb-std"}))

	state, err := b.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, state.PostageID)
}
