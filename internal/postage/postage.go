// Package postage resolves shipping options for a destination and prices a
// previously confirmed selection. Candidate options live outside the cart;
// the cart persists only the confirmed option id.
package postage

import (
	"context"
	"errors"

	"github.com/webshop-works/checkout/internal/money"
)

var (
	// ErrNotFound is returned when an option id does not resolve. The
	// pricing layer maps this to a zero postage cost.
	ErrNotFound = errors.New("postage option not found")
	// ErrUnavailable indicates the rates backend could not be reached.
	ErrUnavailable = errors.New("postage resolver unavailable")
)

// Option is one shipping choice offered for a destination.
type Option struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Cost  money.Money `json:"cost"`
}

// Resolver searches options for a destination and prices a single option by
// id.
type Resolver interface {
	Search(ctx context.Context, country, postalCode string) ([]Option, error)
	Cost(ctx context.Context, id string) (money.Money, error)
}
