package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_PublishReachesAllSubscribers(t *testing.T) {
	bus := NewBus()

	var got1, got2 []Event
	s1 := bus.Subscribe(func(ev Event) { got1 = append(got1, ev) })
	s2 := bus.Subscribe(func(ev Event) { got2 = append(got2, ev) })
	defer s1.Close()
	defer s2.Close()

	bus.Publish(Event{PoseApplied: &PoseAppliedEvent{ID: 3}})

	assert.Len(t, got1, 1)
	assert.Len(t, got2, 1)
	assert.Equal(t, 3, got1[0].PoseApplied.ID)
}

func TestBus_CloseStopsDelivery(t *testing.T) {
	bus := NewBus()

	var got []Event
	sub := bus.Subscribe(func(ev Event) { got = append(got, ev) })

	bus.Publish(Event{SelectionChanged: &SelectionChangedEvent{New: 1}})
	sub.Close()
	bus.Publish(Event{SelectionChanged: &SelectionChangedEvent{New: 2}})

	assert.Len(t, got, 1)
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(func(Event) {})

	sub.Close()
	assert.NotPanics(t, func() { sub.Close() })
}
