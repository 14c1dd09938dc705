package discount

import (
	"context"
	"strings"
	"time"
)

// Memory is an in-memory Resolver backed by a code-keyed map. Lookup is
// case-insensitive, matching how codes are typed by shoppers.
type Memory struct {
	codes map[string]Discount
}

// NewMemory builds a resolver from the provided discounts.
func NewMemory(discounts ...Discount) *Memory {
	m := &Memory{codes: make(map[string]Discount, len(discounts))}
	for _, d := range discounts {
		if strings.TrimSpace(d.Code) == "" {
			continue
		}
		m.codes[strings.ToUpper(d.Code)] = d
	}
	return m
}

// Resolve returns the unexpired discount for code or ErrNotFound.
func (m *Memory) Resolve(_ context.Context, code string, now time.Time) (Discount, error) {
	if m == nil {
		return Discount{}, ErrUnavailable
	}
	d, ok := m.codes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok || d.Expired(now) {
		return Discount{}, ErrNotFound
	}
	return d, nil
}
