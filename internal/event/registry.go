// Package event turns polled per-frame input into comparator calls and
// window-scoped pointer events.
package event

import (
	"sync"

	"github.com/nicky-ayoub/ebitcompare/internal/compare"
)

type listenerEntry struct {
	id  uint32
	src compare.Source
	l   compare.Listener
}

// Registry is the window-level listener table. It implements
// compare.Window.
type Registry struct {
	mu        sync.Mutex
	listeners []listenerEntry
	nextID    uint32
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Listen registers l for every pointer event of src until the returned
// subscription is removed.
func (r *Registry) Listen(src compare.Source, l compare.Listener) compare.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.listeners = append(r.listeners, listenerEntry{id: r.nextID, src: src, l: l})
	return &registration{reg: r, id: r.nextID}
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// Move delivers a move event to listeners of ev.Source.
func (r *Registry) Move(ev compare.PointerEvent) {
	for _, e := range r.snapshot(ev.Source) {
		if e.l.Move != nil {
			e.l.Move(ev)
		}
	}
}

// Up delivers a release event to listeners of ev.Source.
func (r *Registry) Up(ev compare.PointerEvent) {
	for _, e := range r.snapshot(ev.Source) {
		if e.l.Up != nil {
			e.l.Up(ev)
		}
	}
}

// snapshot copies the matching listeners so handlers can remove themselves
// while an event is being delivered.
func (r *Registry) snapshot(src compare.Source) []listenerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]listenerEntry, 0, len(r.listeners))
	for _, e := range r.listeners {
		if e.src == src {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) remove(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.listeners {
		if r.listeners[i].id == id {
			copy(r.listeners[i:], r.listeners[i+1:])
			r.listeners[len(r.listeners)-1] = listenerEntry{}
			r.listeners = r.listeners[:len(r.listeners)-1]
			return
		}
	}
}

type registration struct {
	reg *Registry
	id  uint32
}

// Remove unregisters the listener. Removing twice is a no-op.
func (h *registration) Remove() {
	if h.reg == nil {
		return
	}
	h.reg.remove(h.id)
	h.reg = nil
}
