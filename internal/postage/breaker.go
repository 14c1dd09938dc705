package postage

import (
	"context"
	"errors"

	"github.com/webshop-works/checkout/internal/money"
	"github.com/webshop-works/checkout/internal/resilience"
)

// Guarded wraps a Resolver with a circuit breaker. When the breaker is open
// both operations report ErrUnavailable immediately instead of hammering a
// struggling rates backend. ErrNotFound counts as a success: the backend
// answered, the option just does not exist.
type Guarded struct {
	Inner   Resolver
	Breaker *resilience.Breaker
}

// NewGuarded wraps inner with breaker.
func NewGuarded(inner Resolver, breaker *resilience.Breaker) *Guarded {
	return &Guarded{Inner: inner, Breaker: breaker}
}

// Search implements Resolver.
func (g *Guarded) Search(ctx context.Context, country, postalCode string) ([]Option, error) {
	var options []Option
	err := g.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		options, err = g.Inner.Search(ctx, country, postalCode)
		return err
	})
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, err
	}
	return options, nil
}

// Cost implements Resolver.
func (g *Guarded) Cost(ctx context.Context, id string) (money.Money, error) {
	var cost money.Money
	var notFound bool
	err := g.Breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		cost, err = g.Inner.Cost(ctx, id)
		if errors.Is(err, ErrNotFound) {
			notFound = true
			return nil
		}
		return err
	})
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return money.Zero(), ErrUnavailable
	}
	if err != nil {
		return money.Zero(), err
	}
	if notFound {
		return money.Zero(), ErrNotFound
	}
	return cost, nil
}
