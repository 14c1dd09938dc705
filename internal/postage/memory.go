package postage

import (
	"context"
	"strings"

	"github.com/webshop-works/checkout/internal/money"
)

// Area groups options offered for one destination country. An empty Country
// acts as the fallback for destinations without a dedicated table.
type Area struct {
	Country string
	Options []Option
}

// Memory is a table-backed Resolver keyed by country code.
type Memory struct {
	areas    map[string][]Option
	fallback []Option
	byID     map[string]Option
}

// NewMemory builds a resolver from the provided areas.
func NewMemory(areas ...Area) *Memory {
	m := &Memory{
		areas: make(map[string][]Option, len(areas)),
		byID:  make(map[string]Option),
	}
	for _, area := range areas {
		country := strings.ToUpper(strings.TrimSpace(area.Country))
		if country == "" {
			m.fallback = append(m.fallback, area.Options...)
		} else {
			m.areas[country] = append(m.areas[country], area.Options...)
		}
		for _, opt := range area.Options {
			m.byID[opt.ID] = opt
		}
	}
	return m
}

// Search returns the options for the destination country. Destinations
// without a dedicated table get the fallback set, which may be empty.
func (m *Memory) Search(_ context.Context, country, _ string) ([]Option, error) {
	if m == nil {
		return nil, ErrUnavailable
	}
	if opts, ok := m.areas[strings.ToUpper(strings.TrimSpace(country))]; ok {
		return append([]Option(nil), opts...), nil
	}
	return append([]Option(nil), m.fallback...), nil
}

// Cost prices a single option by id.
func (m *Memory) Cost(_ context.Context, id string) (money.Money, error) {
	if m == nil {
		return money.Zero(), ErrUnavailable
	}
	opt, ok := m.byID[id]
	if !ok {
		return money.Zero(), ErrNotFound
	}
	return opt.Cost, nil
}
