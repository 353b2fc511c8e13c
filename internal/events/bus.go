// Package events carries engine notifications to presentation-side consumers.
//
// Subscriptions return a handle that the consumer closes on teardown; there is
// no symmetric add/remove pairing to keep in sync. Delivery is synchronous on
// the publishing goroutine, so handlers must not block.
package events

import (
	"sync"

	"github.com/holoboard/placesync/internal/placement/domain"
)

// Event is the union of engine notifications. Exactly one pointer field is
// non-nil per event.
type Event struct {
	AssetLoaded      *AssetLoadedEvent
	AssetLoadFailed  *AssetLoadFailedEvent
	PoseApplied      *PoseAppliedEvent
	SelectionChanged *SelectionChangedEvent
}

// AssetRef is the loaded content handle carried by AssetLoadedEvent. An
// interface so this package does not depend on the asset implementation.
type AssetRef interface {
	Release()
	Released() bool
}

// AssetLoadedEvent fires when the cache finishes a fetch for a placement.
// Asset remains owned by the cache; consumers must not release it.
type AssetLoadedEvent struct {
	ID     int
	Asset  AssetRef
	Width  int
	Height int
	Meta   *domain.PlacementMeta
}

// AssetLoadFailedEvent fires when a fetch fails; all waiters see one event.
type AssetLoadFailedEvent struct {
	ID      int
	Message string
}

// PoseAppliedEvent fires when an authoritative pull overwrites the local pose.
type PoseAppliedEvent struct {
	ID   int
	Pose domain.Pose
}

// SelectionChangedEvent fires on every selection transition. Previous is 0
// when nothing was selected before, New is 0 on full deselection.
type SelectionChangedEvent struct {
	Previous int
	New      int
}

// Handler receives published events.
type Handler func(Event)

// Bus is a minimal observer registry. Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]Handler)}
}

// Subscribe registers a handler and returns its cancellation handle.
func (b *Bus) Subscribe(fn Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = fn
	return &Subscription{bus: b, id: id}
}

// Publish delivers the event to all current subscribers.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Subscription is the disposable handle returned by Subscribe.
type Subscription struct {
	bus  *Bus
	id   int
	once sync.Once
}

// Close removes the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		s.bus.mu.Unlock()
	})
}
