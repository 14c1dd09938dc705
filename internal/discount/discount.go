// Package discount defines the discount value object consumed by the cart
// and the resolver contract used to look codes up. The cart never resolves
// or expiry-checks codes itself; both are resolver responsibilities.
package discount

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a code does not resolve to an
	// unexpired discount. Callers treat this as a normal outcome.
	ErrNotFound = errors.New("discount not found")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("discount resolver unavailable")
)

// Kind distinguishes how a discount amount is interpreted.
type Kind string

const (
	// KindFixed treats Amount as a currency amount.
	KindFixed Kind = "fixed"
	// KindPercentage treats Amount as a 0-100 percentage of the subtotal.
	KindPercentage Kind = "percentage"
)

// Discount is a pre-resolved discount attached to a cart. At most one is
// attached at a time; replacing it overwrites the reference.
type Discount struct {
	Code      string          `json:"code"`
	Kind      Kind            `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	ExpiresOn time.Time       `json:"expiresOn"`
}

// Expired reports whether the discount expires strictly before the given
// day. Comparison is by calendar date, matching how codes are published.
func (d Discount) Expired(now time.Time) bool {
	if d.ExpiresOn.IsZero() {
		return false
	}
	y1, m1, d1 := d.ExpiresOn.Date()
	y2, m2, d2 := now.Date()
	expiry := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return expiry.Before(today)
}

// Resolver looks up an unexpired discount by code. Implementations return
// ErrNotFound for unknown or expired codes and wrap infrastructure
// failures so callers can tell the two apart.
type Resolver interface {
	Resolve(ctx context.Context, code string, now time.Time) (Discount, error)
}
