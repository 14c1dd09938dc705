package catalog

import "context"

// Memory is an in-memory Resolver, used by the bundled demo catalog and by
// tests.
type Memory struct {
	products map[Ref]Product
}

// NewMemory builds a resolver from the provided products.
func NewMemory(products ...Product) *Memory {
	m := &Memory{products: make(map[Ref]Product, len(products))}
	for _, p := range products {
		m.products[p.Ref()] = p
	}
	return m
}

// Resolve returns the product for ref or ErrNotFound.
func (m *Memory) Resolve(_ context.Context, ref Ref) (Product, error) {
	if m == nil {
		return Product{}, ErrUnavailable
	}
	p, ok := m.products[ref]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}
