package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/webshop-works/checkout/internal/events"
)

func TestEmitDeliversInOrder(t *testing.T) {
	var seen []string
	bus := events.NewBus(
		events.NotifierFunc(func(_ context.Context, ev events.Event) error {
			seen = append(seen, "first:"+ev.Topic)
			return nil
		}),
		events.NotifierFunc(func(_ context.Context, ev events.Event) error {
			seen = append(seen, "second:"+ev.Topic)
			return nil
		}),
	)

	err := bus.Emit(context.Background(), events.Event{Topic: events.TopicItemAdded})
	require.NoError(t, err)
	require.Equal(t, []string{"first:cart.item_added", "second:cart.item_added"}, seen)
}

func TestEmitJoinsFailuresWithoutStopping(t *testing.T) {
	boom := errors.New("boom")
	var delivered bool
	bus := events.NewBus(
		events.NotifierFunc(func(context.Context, events.Event) error { return boom }),
		events.NotifierFunc(func(context.Context, events.Event) error {
			delivered = true
			return nil
		}),
	)

	err := bus.Emit(context.Background(), events.Event{Topic: events.TopicCartCleared})
	require.ErrorIs(t, err, boom)
	require.True(t, delivered)
}

func TestEmitRequiresTopic(t *testing.T) {
	bus := events.NewBus()
	require.Error(t, bus.Emit(context.Background(), events.Event{}))
}

func TestNilBusDropsEvents(t *testing.T) {
	var bus *events.Bus
	require.NoError(t, bus.Emit(context.Background(), events.Event{Topic: events.TopicItemRemoved}))
}
