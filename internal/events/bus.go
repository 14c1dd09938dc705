// Package events fans cart mutation events out to an ordered list of
// observers. Observers carry no pricing logic; they exist for logging,
// metrics and similar side channels.
package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Event describes one completed cart mutation.
type Event struct {
	Topic     string
	SessionID string
	ItemKey   string
	Quantity  int
	Code      string
}

// Notifier reacts to an emitted event.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev Event) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Bus dispatches events to its notifiers in registration order. A nil Bus
// is valid and drops everything.
type Bus struct {
	notifiers []Notifier
}

// NewBus builds a bus over the provided notifiers.
func NewBus(notifiers ...Notifier) *Bus {
	return &Bus{notifiers: notifiers}
}

// Subscribe appends a notifier. Order of registration is the order of
// delivery.
func (b *Bus) Subscribe(n Notifier) {
	if b == nil || n == nil {
		return
	}
	b.notifiers = append(b.notifiers, n)
}

// Emit delivers ev to every notifier. Notifier failures are joined and
// returned but never stop delivery to the remaining notifiers.
func (b *Bus) Emit(ctx context.Context, ev Event) error {
	if b == nil {
		return nil
	}
	if strings.TrimSpace(ev.Topic) == "" {
		return errors.New("events: topic is required")
	}
	var joined error
	for _, n := range b.notifiers {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", err))
		}
	}
	return joined
}
