package money_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/webshop-works/checkout/internal/money"
)

func TestArithmeticKeepsTwoPlaces(t *testing.T) {
	a := money.MustFromString("19.99")
	b := money.MustFromString("0.01")

	require.Equal(t, "20.00", a.Add(b).String())
	require.Equal(t, "19.98", a.Sub(b).String())
	require.Equal(t, "59.97", a.MulInt(3).String())
}

func TestPercentRounds(t *testing.T) {
	subtotal := money.MustFromString("200.00")
	require.Equal(t, "20.00", subtotal.Percent(decimal.NewFromInt(10)).String())

	odd := money.MustFromString("33.33")
	// 10% of 33.33 = 3.333, rounded back to two places.
	require.Equal(t, "3.33", odd.Percent(decimal.NewFromInt(10)).String())
}

func TestStringRoundTrip(t *testing.T) {
	m := money.MustFromString("1234.50")
	parsed, err := money.FromString(m.String())
	require.NoError(t, err)
	require.True(t, m.Equal(parsed))
}

func TestClampZero(t *testing.T) {
	neg := money.Zero().Sub(money.MustFromString("4.20"))
	require.True(t, neg.IsNegative())
	require.True(t, neg.ClampZero().IsZero())
	require.Equal(t, "4.20", money.MustFromString("4.20").ClampZero().String())
}

func TestJSON(t *testing.T) {
	m := money.MustFromString("7.50")
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.Equal(t, `"7.50"`, string(data))

	var back money.Money
	require.NoError(t, json.Unmarshal(data, &back))
	require.True(t, m.Equal(back))

	// Bare numbers appear in hand-written fixtures.
	require.NoError(t, json.Unmarshal([]byte(`7.5`), &back))
	require.Equal(t, "7.50", back.String())
}
