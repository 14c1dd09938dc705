package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/webshop-works/checkout/internal/catalog"
	"github.com/webshop-works/checkout/internal/common"
	"github.com/webshop-works/checkout/internal/discount"
	"github.com/webshop-works/checkout/internal/postage"
)

// SessionHeader carries the shopper's session id. A cookie fallback exists
// for browser clients.
const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "cart_session"
)

// Factory builds the cart bound to a session id.
type Factory func(ctx context.Context, sessionID string) (*Cart, error)

// Handler wires cart operations to HTTP.
type Handler struct {
	Carts     Factory
	Catalog   catalog.Resolver
	Discounts discount.Resolver
	Currency  string
	Now       func() time.Time
	Validate  *validator.Validate
}

type addItemPayload struct {
	Kind           string          `json:"kind" validate:"required"`
	ID             string          `json:"id" validate:"required"`
	Quantity       int             `json:"qty" validate:"gt=0"`
	Customizations []Customization `json:"customizations"`
}

type updateItemPayload struct {
	Quantity int `json:"qty"`
}

type discountPayload struct {
	Code string `json:"code" validate:"required"`
}

type postageSearchPayload struct {
	Country    string `json:"country" validate:"required,len=2"`
	PostalCode string `json:"postalCode" validate:"required"`
}

type postageConfirmPayload struct {
	ID string `json:"id" validate:"required"`
}

// Routes mounts the cart API onto a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Get)
	r.Delete("/", h.Clear)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{key}", h.UpdateItem)
	r.Delete("/items/{key}", h.RemoveItem)
	r.Delete("/items", h.Empty)
	r.Post("/discount", h.ApplyDiscount)
	r.Get("/postage", h.GetPostage)
	r.Post("/postage/search", h.SearchPostage)
	r.Post("/postage", h.ConfirmPostage)
}

// Get returns cart contents with the full pricing summary.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	h.render(w, r, c)
}

// AddItem resolves the referenced object and adds it to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload addItemPayload
	if !h.decode(w, r, &payload) {
		return
	}
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	object, err := h.Catalog.Resolve(r.Context(), catalog.Ref{Kind: payload.Kind, ID: payload.ID})
	if err != nil {
		h.writeError(w, err)
		return
	}
	if _, err := c.Add(r.Context(), object, payload.Quantity, payload.Customizations); err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, c)
}

// UpdateItem sets a line item quantity. A non-positive quantity is routed
// to removal, mirroring how the cart form treats zeroed rows.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var payload updateItemPayload
	if !h.decode(w, r, &payload) {
		return
	}
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	if payload.Quantity < 1 {
		if err := c.Remove(r.Context(), key); err != nil {
			h.writeError(w, err)
			return
		}
		h.render(w, r, c)
		return
	}
	found, err := c.Update(r.Context(), key, payload.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !found {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "no cart item with that key", nil)
		return
	}
	h.render(w, r, c)
}

// RemoveItem deletes a line item. A stale key still returns the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := c.Remove(r.Context(), chi.URLParam(r, "key")); err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, c)
}

// Empty removes every item but keeps the discount and postage selection.
func (h *Handler) Empty(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := c.RemoveAll(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, c)
}

// Clear resets the whole checkout state for the session.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := c.Clear(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, c)
}

// ApplyDiscount resolves a code and attaches the discount. Unknown or
// expired codes leave the cart untouched.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var payload discountPayload
	if !h.decode(w, r, &payload) {
		return
	}
	if h.Discounts == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "discount resolver not configured", nil)
		return
	}
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	d, err := h.Discounts.Resolve(r.Context(), strings.TrimSpace(payload.Code), h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := c.SetDiscount(r.Context(), d); err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, c)
}

// GetPostage returns the selection state and any candidate options.
func (h *Handler) GetPostage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	options, err := c.AvailablePostage(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"state":    c.PostageState(),
		"selected": c.PostageID(),
		"options":  options,
	}})
}

// SearchPostage runs an address search and returns candidate options.
func (h *Handler) SearchPostage(w http.ResponseWriter, r *http.Request) {
	var payload postageSearchPayload
	if !h.decode(w, r, &payload) {
		return
	}
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	options, err := c.SearchPostage(r.Context(), payload.Country, payload.PostalCode)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"state":   c.PostageState(),
		"options": options,
	}})
}

// ConfirmPostage records the selected option id.
func (h *Handler) ConfirmPostage(w http.ResponseWriter, r *http.Request) {
	var payload postageConfirmPayload
	if !h.decode(w, r, &payload) {
		return
	}
	c, ok := h.cart(w, r)
	if !ok {
		return
	}
	if err := c.ConfirmPostage(r.Context(), payload.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, r, c)
}

func (h *Handler) cart(w http.ResponseWriter, r *http.Request) (*Cart, bool) {
	if h.Carts == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart factory not configured", nil)
		return nil, false
	}
	c, err := h.Carts(r.Context(), h.sessionID(w, r))
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return c, true
}

// sessionID resolves the session from header or cookie, minting a new one
// when the shopper has none yet.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return cookie.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "validation failed", err.Error())
			return false
		}
	}
	return true
}

type itemView struct {
	Key            string          `json:"key"`
	Object         catalog.Product `json:"object"`
	Quantity       int             `json:"qty"`
	Customizations []Customization `json:"customizations,omitempty"`
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, c *Cart) {
	totals, err := c.Totals(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]itemView, 0, len(c.Items()))
	for _, item := range c.Items() {
		items = append(items, itemView{
			Key:            item.Key,
			Object:         item.Object,
			Quantity:       item.Quantity,
			Customizations: item.Customizations,
		})
	}
	payload := map[string]any{
		"sessionId":    c.SessionID(),
		"items":        items,
		"pricing":      totals,
		"postageState": c.PostageState(),
		"currency":     h.Currency,
	}
	if d := c.Discount(); d != nil {
		payload["discount"] = d
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": payload})
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, nil)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrNoPostageSearch):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, discount.ErrNotFound), errors.Is(err, postage.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, catalog.ErrUnavailable), errors.Is(err, discount.ErrUnavailable), errors.Is(err, postage.ErrUnavailable):
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotConfigured):
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
