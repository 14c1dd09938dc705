// Package catalog resolves priceable objects referenced by cart line items.
// The cart never queries a product repository itself; it is handed a fully
// resolved object and stores only the (kind, id) reference for persistence.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/webshop-works/checkout/internal/money"
)

var (
	// ErrNotFound is returned when no object exists for a reference.
	ErrNotFound = errors.New("catalog object not found")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("catalog resolver unavailable")
)

// Product is a resolved priceable object. A zero Price or Weight is treated
// as absent by aggregation: such items contribute nothing to the subtotal or
// the total weight but still count toward the item total.
type Product struct {
	Kind   string          `json:"kind"`
	ID     string          `json:"id"`
	Title  string          `json:"title"`
	Price  money.Money     `json:"price"`
	Weight decimal.Decimal `json:"weight"`
}

// Ref returns the persistent reference for the product.
func (p Product) Ref() Ref {
	return Ref{Kind: p.Kind, ID: p.ID}
}

// Ref identifies a catalog object by type tag and id.
type Ref struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Resolver looks a product up by reference. Implementations return
// ErrNotFound for unknown references and wrap infrastructure failures
// distinctly.
type Resolver interface {
	Resolve(ctx context.Context, ref Ref) (Product, error)
}
