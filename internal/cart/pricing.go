package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/webshop-works/checkout/internal/discount"
	"github.com/webshop-works/checkout/internal/money"
	"github.com/webshop-works/checkout/internal/postage"
)

// The pricing pipeline. Every getter recomputes from the raw item, discount
// and postage state on each call; nothing derived is cached across
// mutations. Stage order is load-bearing: discount is clamped against the
// subtotal, tax is charged on the post-discount, post-postage base, and the
// grand total folds all of it together.

// Summary aggregates all pipeline stages for a single read.
type Summary struct {
	TotalWeight decimal.Decimal `json:"totalWeight"`
	TotalItems  int             `json:"totalItems"`
	SubTotal    money.Money     `json:"subTotal"`
	Discount    money.Money     `json:"discount"`
	Postage     money.Money     `json:"postage"`
	Tax         money.Money     `json:"tax"`
	Total       money.Money     `json:"total"`
}

// TotalWeight sums object weight times quantity. Objects reporting no
// weight contribute nothing rather than failing the sum.
func (c *Cart) TotalWeight() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		if item.Object.Weight.IsZero() {
			continue
		}
		total = total.Add(item.Object.Weight.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// TotalItems sums the quantities of all line items.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// SubTotal sums object price times quantity over items with a price.
// Customization price deltas are deliberately not included here; see the
// design notes before changing this.
func (c *Cart) SubTotal() money.Money {
	total := money.Zero()
	for _, item := range c.items {
		if item.Object.Price.IsZero() {
			continue
		}
		total = total.Add(item.Object.Price.MulInt(item.Quantity))
	}
	return total
}

// DiscountAmount derives the applied discount. A fixed discount is capped
// at the subtotal so it can never drive the total negative; a percentage
// discount applies only when both its amount and the subtotal are non-zero.
func (c *Cart) DiscountAmount() money.Money {
	if c.discount == nil {
		return money.Zero()
	}
	subtotal := c.SubTotal()
	switch c.discount.Kind {
	case discount.KindFixed:
		amount := money.New(c.discount.Amount)
		if subtotal.LessThan(amount) {
			return subtotal
		}
		return amount
	case discount.KindPercentage:
		if c.discount.Amount.IsZero() || subtotal.IsZero() {
			return money.Zero()
		}
		return subtotal.Percent(c.discount.Amount)
	default:
		return money.Zero()
	}
}

// PostageCost resolves the confirmed postage option's cost. It is zero
// unless an option is confirmed, and an id that no longer resolves degrades
// to zero. Resolver infrastructure failures are returned as errors.
func (c *Cart) PostageCost(ctx context.Context) (money.Money, error) {
	if c.postageID == "" || c.postage == nil {
		return money.Zero(), nil
	}
	cost, err := c.postage.Cost(ctx, c.postageID)
	if err != nil {
		if errors.Is(err, postage.ErrNotFound) {
			return money.Zero(), nil
		}
		return money.Zero(), fmt.Errorf("resolve postage cost: %w", err)
	}
	return cost, nil
}

// TaxCost derives tax on the post-discount, post-postage base. A
// non-positive rate or a non-positive base yields zero.
func (c *Cart) TaxCost(ctx context.Context) (money.Money, error) {
	if !c.taxRate.IsPositive() {
		return money.Zero(), nil
	}
	postageCost, err := c.PostageCost(ctx)
	if err != nil {
		return money.Zero(), err
	}
	base := c.SubTotal().Add(postageCost).Sub(c.DiscountAmount())
	if !base.IsPositive() {
		return money.Zero(), nil
	}
	return base.Percent(c.taxRate), nil
}

// TotalCost derives the grand total: (subtotal - discount) + postage + tax.
func (c *Cart) TotalCost(ctx context.Context) (money.Money, error) {
	postageCost, err := c.PostageCost(ctx)
	if err != nil {
		return money.Zero(), err
	}
	tax, err := c.TaxCost(ctx)
	if err != nil {
		return money.Zero(), err
	}
	return c.SubTotal().Sub(c.DiscountAmount()).Add(postageCost).Add(tax), nil
}

// Totals runs the full pipeline once and returns every stage.
func (c *Cart) Totals(ctx context.Context) (Summary, error) {
	postageCost, err := c.PostageCost(ctx)
	if err != nil {
		return Summary{}, err
	}
	tax, err := c.TaxCost(ctx)
	if err != nil {
		return Summary{}, err
	}
	subtotal := c.SubTotal()
	disc := c.DiscountAmount()
	return Summary{
		TotalWeight: c.TotalWeight(),
		TotalItems:  c.TotalItems(),
		SubTotal:    subtotal,
		Discount:    disc,
		Postage:     postageCost,
		Tax:         tax,
		Total:       subtotal.Sub(disc).Add(postageCost).Add(tax),
	}, nil
}
