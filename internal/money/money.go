// Package money provides the fixed-precision monetary value type used by
// every derived cart amount. Values carry two fractional digits (minor-unit
// convention) and all arithmetic rounds back to that precision, so a value
// survives the multi-stage pricing pipeline without drift.
package money

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits carried by every amount.
const Places int32 = 2

// Money is an immutable decimal amount with two fractional digits.
// The zero value is valid and represents 0.00.
type Money struct {
	amount decimal.Decimal
}

// New builds a Money from a decimal, rounding to two places.
func New(d decimal.Decimal) Money {
	return Money{amount: d.Round(Places)}
}

// FromString parses a decimal string such as "19.99".
func FromString(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return New(d), nil
}

// MustFromString parses a decimal string and panics on malformed input.
// Intended for literals in tests and seed data.
func MustFromString(s string) Money {
	m, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromFloat converts a float64, rounding to two places.
func FromFloat(f float64) Money {
	return New(decimal.NewFromFloat(f))
}

// Zero returns the zero amount.
func Zero() Money {
	return Money{}
}

// Decimal returns the raw decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{amount: m.amount.Sub(other.amount)}
}

// MulInt returns m multiplied by an integer factor.
func (m Money) MulInt(factor int) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(factor)))}
}

// Mul returns m multiplied by an arbitrary decimal factor, rounded back to
// two places.
func (m Money) Mul(factor decimal.Decimal) Money {
	return New(m.amount.Mul(factor))
}

// Percent returns pct percent of m, rounded to two places.
func (m Money) Percent(pct decimal.Decimal) Money {
	return New(m.amount.Mul(pct).Div(decimal.NewFromInt(100)))
}

// Equal reports whether both amounts are numerically equal.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// GreaterThan reports whether m > other.
func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// IsNegative reports whether the amount is less than zero.
func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// ClampZero returns m, or zero when m is negative.
func (m Money) ClampZero() Money {
	if m.IsNegative() {
		return Money{}
	}
	return m
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.amount.StringFixed(Places)
}

// MarshalJSON renders the amount as a fixed two-place JSON string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either a JSON string or a bare number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var d decimal.Decimal
		if derr := json.Unmarshal(data, &d); derr != nil {
			return fmt.Errorf("money: unmarshal %s: %w", data, err)
		}
		*m = New(d)
		return nil
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
