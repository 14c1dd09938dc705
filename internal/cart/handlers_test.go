package cart_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/webshop-works/checkout/internal/cart"
	"github.com/webshop-works/checkout/internal/catalog"
	"github.com/webshop-works/checkout/internal/discount"
)

type testEnv struct {
	router *chi.Mux
	stores map[string]*memStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{stores: make(map[string]*memStore)}
	discounts := discount.NewMemory(discount.Discount{
		Code:      "TENOFF",
		Kind:      discount.KindFixed,
		Amount:    decimal.NewFromInt(10),
		ExpiresOn: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	handler := &cart.Handler{
		Carts: func(ctx context.Context, sessionID string) (*cart.Cart, error) {
			store, ok := env.stores[sessionID]
			if !ok {
				store = &memStore{}
				env.stores[sessionID] = store
			}
			return cart.New(ctx, cart.Config{
				SessionID: sessionID,
				Store:     store,
				Catalog:   catalog.NewMemory(mug, poster),
				Postage:   testResolver(),
				TaxRate:   decimal.NewFromInt(20),
			})
		},
		Catalog:   catalog.NewMemory(mug, poster),
		Discounts: discounts,
		Currency:  "GBP",
		Validate:  validator.New(),
	}
	env.router = chi.NewRouter()
	env.router.Route("/cart", handler.Routes)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(cart.SessionHeader, "sess-http")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func cartData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func addMug(t *testing.T, env *testEnv, qty int) *httptest.ResponseRecorder {
	t.Helper()
	return env.do(t, http.MethodPost, "/cart/items", map[string]any{
		"kind": "product", "id": "mug", "qty": qty,
	})
}

func TestHandlerGetEmptyCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := cartData(t, rec)
	require.Equal(t, "sess-http", data["sessionId"])
	require.Empty(t, data["items"])
	require.Equal(t, "no_search", data["postageState"])
}

func TestHandlerAddItem(t *testing.T) {
	env := newTestEnv(t)

	rec := addMug(t, env, 2)
	require.Equal(t, http.StatusOK, rec.Code)

	items := cartData(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	require.Equal(t, float64(2), item["qty"])

	pricing := cartData(t, rec)["pricing"].(map[string]any)
	require.Equal(t, "19.98", pricing["subTotal"])
}

func TestHandlerAddUnknownObject(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/cart/items", map[string]any{
		"kind": "product", "id": "ghost", "qty": 1,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Zero(t, env.stores["sess-http"].saves)
}

func TestHandlerAddRejectsBadQuantity(t *testing.T) {
	env := newTestEnv(t)

	rec := addMug(t, env, 0)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerUpdateItem(t *testing.T) {
	env := newTestEnv(t)
	addMug(t, env, 1)
	key := cart.ItemKey("mug", nil)

	rec := env.do(t, http.MethodPatch, "/cart/items/"+key, map[string]any{"qty": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	items := cartData(t, rec)["items"].([]any)
	require.Equal(t, float64(5), items[0].(map[string]any)["qty"])
}

func TestHandlerUpdateStaleKey(t *testing.T) {
	env := newTestEnv(t)
	addMug(t, env, 1)

	rec := env.do(t, http.MethodPatch, "/cart/items/ghost", map[string]any{"qty": 5})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerUpdateZeroRemoves(t *testing.T) {
	env := newTestEnv(t)
	addMug(t, env, 3)
	key := cart.ItemKey("mug", nil)

	rec := env.do(t, http.MethodPatch, "/cart/items/"+key, map[string]any{"qty": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, cartData(t, rec)["items"])
}

func TestHandlerRemoveItem(t *testing.T) {
	env := newTestEnv(t)
	addMug(t, env, 1)
	key := cart.ItemKey("mug", nil)

	rec := env.do(t, http.MethodDelete, "/cart/items/"+key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, cartData(t, rec)["items"])

	// Removing again is a silent no-op.
	rec = env.do(t, http.MethodDelete, "/cart/items/"+key, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerEmptyKeepsDiscount(t *testing.T) {
	env := newTestEnv(t)
	addMug(t, env, 1)
	rec := env.do(t, http.MethodPost, "/cart/discount", map[string]any{"code": "TENOFF"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/cart/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := cartData(t, rec)
	require.Empty(t, data["items"])
	require.NotNil(t, data["discount"])
}

func TestHandlerClearResetsEverything(t *testing.T) {
	env := newTestEnv(t)
	addMug(t, env, 1)
	env.do(t, http.MethodPost, "/cart/discount", map[string]any{"code": "TENOFF"})

	rec := env.do(t, http.MethodDelete, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := cartData(t, rec)
	require.Empty(t, data["items"])
	require.Nil(t, data["discount"])
	require.Equal(t, "no_search", data["postageState"])
}

func TestHandlerUnknownDiscountLeavesCartUntouched(t *testing.T) {
	env := newTestEnv(t)
	addMug(t, env, 1)

	rec := env.do(t, http.MethodPost, "/cart/discount", map[string]any{"code": "NOPE"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/cart", nil)
	require.Nil(t, cartData(t, rec)["discount"])
}

func TestHandlerPostageFlow(t *testing.T) {
	env := newTestEnv(t)
	addMug(t, env, 1)

	// Confirming before any search is rejected.
	rec := env.do(t, http.MethodPost, "/cart/postage", map[string]any{"id": "std"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/cart/postage/search", map[string]any{
		"country": "GB", "postalCode": "SW1A 1AA",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := cartData(t, rec)
	require.Equal(t, "search_results_available", data["state"])
	require.Len(t, data["options"].([]any), 1)

	rec = env.do(t, http.MethodPost, "/cart/postage", map[string]any{"id": "std"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "confirmed", cartData(t, rec)["postageState"])

	// Postage now feeds the pricing summary.
	rec = env.do(t, http.MethodGet, "/cart", nil)
	pricing := cartData(t, rec)["pricing"].(map[string]any)
	require.Equal(t, "3.00", pricing["postage"])
}

func TestHandlerMintsSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, cart.SessionCookie, cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}
