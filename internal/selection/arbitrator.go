// Package selection enforces that at most one placement is selected at a time.
package selection

import (
	"sync"

	"github.com/holoboard/placesync/internal/events"
)

// Hooks are invoked on selection transitions. The deselect hook for the
// previous placement always runs before the select hook for the new one.
type Hooks struct {
	OnSelect   func(id int)
	OnDeselect func(id int)
}

// Arbitrator is the single source of truth for which placement is selected.
// Components must not track their own selected state independently.
type Arbitrator struct {
	bus *events.Bus

	mu       sync.Mutex
	selected int // 0 = nothing selected
	hooks    map[int]Hooks
}

// NewArbitrator creates an arbitrator with nothing selected. bus may be nil.
func NewArbitrator(bus *events.Bus) *Arbitrator {
	return &Arbitrator{
		bus:   bus,
		hooks: make(map[int]Hooks),
	}
}

// SetHooks registers the transition hooks for a placement id.
func (a *Arbitrator) SetHooks(id int, h Hooks) {
	a.mu.Lock()
	a.hooks[id] = h
	a.mu.Unlock()
}

// ClearHooks removes the hooks for a placement, e.g. on removal. If the
// placement was selected it is deselected first.
func (a *Arbitrator) ClearHooks(id int) {
	a.Deselect(id)
	a.mu.Lock()
	delete(a.hooks, id)
	a.mu.Unlock()
}

// Selected returns the currently selected id, 0 when none.
func (a *Arbitrator) Selected() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}

// Select makes id the selected placement, deselecting any previous one first.
// Selecting the already-selected id is a no-op.
func (a *Arbitrator) Select(id int) {
	a.mu.Lock()
	prev := a.selected
	if prev == id {
		a.mu.Unlock()
		return
	}
	a.selected = id
	deselectHook := a.hooks[prev].OnDeselect
	selectHook := a.hooks[id].OnSelect
	a.mu.Unlock()

	if prev != 0 && deselectHook != nil {
		deselectHook(prev)
	}
	if selectHook != nil {
		selectHook(id)
	}
	a.publish(prev, id)
}

// Deselect clears the selection if id is the selected placement; no-op
// otherwise.
func (a *Arbitrator) Deselect(id int) {
	a.mu.Lock()
	if a.selected != id || id == 0 {
		a.mu.Unlock()
		return
	}
	a.selected = 0
	deselectHook := a.hooks[id].OnDeselect
	a.mu.Unlock()

	if deselectHook != nil {
		deselectHook(id)
	}
	a.publish(id, 0)
}

// DeselectAll clears whatever selection exists.
func (a *Arbitrator) DeselectAll() {
	a.mu.Lock()
	id := a.selected
	a.mu.Unlock()
	if id != 0 {
		a.Deselect(id)
	}
}

func (a *Arbitrator) publish(prev, next int) {
	if a.bus == nil {
		return
	}
	a.bus.Publish(events.Event{SelectionChanged: &events.SelectionChangedEvent{
		Previous: prev,
		New:      next,
	}})
}
