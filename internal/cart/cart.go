// Package cart implements the session shopping cart: an ordered item
// collection with an identity-based merge rule, at most one attached
// discount, postage selection state and the layered cost derivation
// (subtotal, discount, postage, tax, total).
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/webshop-works/checkout/internal/catalog"
	"github.com/webshop-works/checkout/internal/discount"
	"github.com/webshop-works/checkout/internal/events"
	"github.com/webshop-works/checkout/internal/postage"
)

var (
	// ErrInvalidQuantity is returned when a mutator receives a quantity
	// below one. No state changes and nothing is persisted.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrNoPostageSearch is returned when confirming a postage option
	// before any address search has been run.
	ErrNoPostageSearch = errors.New("no postage search results available")
	// ErrNotConfigured indicates a cart missing its required
	// collaborators.
	ErrNotConfigured = errors.New("cart not configured")
)

// PostageState names the postage selection states.
type PostageState string

const (
	// PostageNoSearch means no address search has been run yet.
	PostageNoSearch PostageState = "no_search"
	// PostageSearched means candidate options are available but none is
	// confirmed.
	PostageSearched PostageState = "search_results_available"
	// PostageConfirmed means one option id has been recorded.
	PostageConfirmed PostageState = "confirmed"
)

// StoredItem is the persisted form of a line item: an object reference
// instead of the resolved object.
type StoredItem struct {
	Ref            catalog.Ref     `json:"ref"`
	Quantity       int             `json:"quantity"`
	Customizations []Customization `json:"customizations,omitempty"`
}

// PostageSearch records the last address search so candidate options can be
// re-fetched across requests.
type PostageSearch struct {
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
}

// State is the full persisted snapshot of a cart. Save fully overwrites the
// prior snapshot; there are no merge semantics.
type State struct {
	Items     []StoredItem       `json:"items"`
	Discount  *discount.Discount `json:"discount,omitempty"`
	PostageID string             `json:"postageId,omitempty"`
	Search    *PostageSearch     `json:"search,omitempty"`
}

// Store is the persistence collaborator. Implementations must be idempotent
// and must replace the stored snapshot wholesale on Save.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// Config wires a cart to its collaborators.
type Config struct {
	SessionID string
	Store     Store
	Catalog   catalog.Resolver
	Postage   postage.Resolver
	// TaxRate is a non-negative percentage applied to the post-discount,
	// post-postage base.
	TaxRate decimal.Decimal
	Events  *events.Bus
	Now     func() time.Time
}

// Cart is the aggregate root. A cart is bound to a single session and a
// single logical writer; it provides no locking because none is needed
// under that ownership rule.
type Cart struct {
	sessionID string
	items     []*LineItem
	discount  *discount.Discount
	postageID string
	search    *PostageSearch

	store   Store
	catalog catalog.Resolver
	postage postage.Resolver
	taxRate decimal.Decimal
	bus     *events.Bus
	now     func() time.Time
}

// New loads a cart from its store. Item references that no longer resolve
// are dropped rather than failing the load.
func New(ctx context.Context, cfg Config) (*Cart, error) {
	if cfg.Store == nil || cfg.Catalog == nil {
		return nil, ErrNotConfigured
	}
	c := &Cart{
		sessionID: cfg.SessionID,
		store:     cfg.Store,
		catalog:   cfg.Catalog,
		postage:   cfg.Postage,
		taxRate:   cfg.TaxRate,
		bus:       cfg.Events,
		now:       cfg.Now,
	}
	if c.now == nil {
		c.now = time.Now
	}
	state, err := cfg.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	for _, stored := range state.Items {
		if stored.Quantity < 1 {
			continue
		}
		object, err := c.catalog.Resolve(ctx, stored.Ref)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve %s/%s: %w", stored.Ref.Kind, stored.Ref.ID, err)
		}
		c.items = append(c.items, &LineItem{
			Key:            ItemKey(object.ID, stored.Customizations),
			Object:         object,
			Quantity:       stored.Quantity,
			Customizations: stored.Customizations,
		})
	}
	c.discount = state.Discount
	c.postageID = state.PostageID
	c.search = state.Search
	return c, nil
}

// SessionID returns the owning session id.
func (c *Cart) SessionID() string { return c.sessionID }

// Items returns the line items in insertion order. The returned slice is a
// copy; the items themselves remain cart-owned.
func (c *Cart) Items() []*LineItem {
	return append([]*LineItem(nil), c.items...)
}

// Discount returns the attached discount, if any.
func (c *Cart) Discount() *discount.Discount { return c.discount }

// Add inserts a line item for the resolved object, or accumulates quantity
// onto the existing item carrying the same identity key.
func (c *Cart) Add(ctx context.Context, object catalog.Product, quantity int, customizations []Customization) (*LineItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	key := ItemKey(object.ID, customizations)
	if existing := c.find(key); existing != nil {
		if _, err := c.Update(ctx, key, existing.Quantity+quantity); err != nil {
			return nil, err
		}
		return existing, nil
	}
	item := &LineItem{
		Key:            key,
		Object:         object,
		Quantity:       quantity,
		Customizations: customizations,
	}
	c.items = append(c.items, item)
	if err := c.save(ctx); err != nil {
		return nil, err
	}
	c.emit(ctx, events.TopicItemAdded, key, quantity, "")
	return item, nil
}

// Update sets the quantity of the item with the given key. It reports false
// without error or persistence when no item carries the key; a stale key is
// a normal outcome, not a failure. Update never deletes: route a zero
// quantity to Remove instead.
func (c *Cart) Update(ctx context.Context, key string, quantity int) (bool, error) {
	if quantity < 1 {
		return false, ErrInvalidQuantity
	}
	item := c.find(key)
	if item == nil {
		return false, nil
	}
	item.Quantity = quantity
	if err := c.save(ctx); err != nil {
		return false, err
	}
	c.emit(ctx, events.TopicItemUpdated, key, quantity, "")
	return true, nil
}

// Remove deletes the item with the given key. A missing key is a silent
// no-op and does not trigger a persistence write.
func (c *Cart) Remove(ctx context.Context, key string) error {
	for i, item := range c.items {
		if item.Key != key {
			continue
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		if err := c.save(ctx); err != nil {
			return err
		}
		c.emit(ctx, events.TopicItemRemoved, key, 0, "")
		return nil
	}
	return nil
}

// RemoveAll empties the item collection but keeps the discount and the
// postage selection: the shopper is still checking out, just with an empty
// basket.
func (c *Cart) RemoveAll(ctx context.Context) error {
	if len(c.items) == 0 {
		return nil
	}
	c.items = nil
	if err := c.save(ctx); err != nil {
		return err
	}
	c.emit(ctx, events.TopicCartEmptied, "", 0, "")
	return nil
}

// Clear resets the whole checkout state: items, discount, confirmed postage
// and search results are all discarded.
func (c *Cart) Clear(ctx context.Context) error {
	if len(c.items) == 0 && c.discount == nil && c.postageID == "" && c.search == nil {
		return nil
	}
	c.items = nil
	c.discount = nil
	c.postageID = ""
	c.search = nil
	if err := c.save(ctx); err != nil {
		return err
	}
	c.emit(ctx, events.TopicCartCleared, "", 0, "")
	return nil
}

// SetDiscount attaches a pre-resolved discount, overwriting any current
// one. Expiry checking belongs to the resolver that produced the discount,
// not here.
func (c *Cart) SetDiscount(ctx context.Context, d discount.Discount) error {
	c.discount = &d
	if err := c.save(ctx); err != nil {
		return err
	}
	c.emit(ctx, events.TopicDiscountApplied, "", 0, d.Code)
	return nil
}

// SearchPostage runs an address search and records it, returning the
// candidate options. Any previously confirmed option is cleared: the old
// choice may not exist for the new destination.
func (c *Cart) SearchPostage(ctx context.Context, country, postalCode string) ([]postage.Option, error) {
	if c.postage == nil {
		return nil, ErrNotConfigured
	}
	options, err := c.postage.Search(ctx, country, postalCode)
	if err != nil {
		return nil, fmt.Errorf("search postage: %w", err)
	}
	c.search = &PostageSearch{Country: country, PostalCode: postalCode}
	c.postageID = ""
	if err := c.save(ctx); err != nil {
		return nil, err
	}
	c.emit(ctx, events.TopicPostageSearched, "", 0, "")
	return options, nil
}

// AvailablePostage re-fetches the candidate options for the recorded
// search. It returns nil without error when no search has been run.
func (c *Cart) AvailablePostage(ctx context.Context) ([]postage.Option, error) {
	if c.search == nil {
		return nil, nil
	}
	if c.postage == nil {
		return nil, ErrNotConfigured
	}
	options, err := c.postage.Search(ctx, c.search.Country, c.search.PostalCode)
	if err != nil {
		return nil, fmt.Errorf("search postage: %w", err)
	}
	return options, nil
}

// ConfirmPostage records the selected option id. Confirmation requires a
// prior search; the id itself is priced lazily at read time, so an id that
// later stops resolving degrades to zero postage instead of failing.
func (c *Cart) ConfirmPostage(ctx context.Context, id string) error {
	if c.search == nil {
		return ErrNoPostageSearch
	}
	c.postageID = id
	if err := c.save(ctx); err != nil {
		return err
	}
	c.emit(ctx, events.TopicPostageSelected, "", 0, id)
	return nil
}

// PostageState reports where the cart sits in the postage selection flow.
func (c *Cart) PostageState() PostageState {
	switch {
	case c.postageID != "":
		return PostageConfirmed
	case c.search != nil:
		return PostageSearched
	default:
		return PostageNoSearch
	}
}

// PostageID returns the confirmed option id, empty when none is confirmed.
func (c *Cart) PostageID() string { return c.postageID }

func (c *Cart) find(key string) *LineItem {
	for _, item := range c.items {
		if item.Key == key {
			return item
		}
	}
	return nil
}

func (c *Cart) save(ctx context.Context) error {
	state := State{
		Discount:  c.discount,
		PostageID: c.postageID,
		Search:    c.search,
	}
	for _, item := range c.items {
		state.Items = append(state.Items, StoredItem{
			Ref:            item.Object.Ref(),
			Quantity:       item.Quantity,
			Customizations: item.Customizations,
		})
	}
	if err := c.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (c *Cart) emit(ctx context.Context, topic, key string, quantity int, code string) {
	_ = c.bus.Emit(ctx, events.Event{
		Topic:     topic,
		SessionID: c.sessionID,
		ItemKey:   key,
		Quantity:  quantity,
		Code:      code,
	})
}
