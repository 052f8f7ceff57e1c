package host

import (
	"sync"
	"sync/atomic"
)

// ListenerID identifies a listener added to an Event.
type ListenerID uint64

// Event is a typed listener list. It is safe to add, remove and emit from
// different goroutines. Add and Remove publish a new copy of the list, so
// Emit neither locks nor allocates and a listener may remove itself.
type Event[T any] struct {
	mu        sync.Mutex // serializes writers
	next      ListenerID
	listeners atomic.Pointer[[]listener[T]]
}

type listener[T any] struct {
	id ListenerID
	fn func(T)
}

func (e *Event[T]) load() []listener[T] {
	if p := e.listeners.Load(); p != nil {
		return *p
	}
	return nil
}

func (e *Event[T]) Add(fn func(T)) ListenerID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	old := e.load()
	list := make([]listener[T], len(old), len(old)+1)
	copy(list, old)
	list = append(list, listener[T]{id: e.next, fn: fn})
	e.listeners.Store(&list)
	return e.next
}

func (e *Event[T]) Remove(id ListenerID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	old := e.load()
	for i, l := range old {
		if l.id == id {
			list := make([]listener[T], 0, len(old)-1)
			list = append(list, old[:i]...)
			list = append(list, old[i+1:]...)
			e.listeners.Store(&list)
			return
		}
	}
}

func (e *Event[T]) Len() int { return len(e.load()) }

// Emit calls every listener in the order they were added.
func (e *Event[T]) Emit(v T) {
	for _, l := range e.load() {
		l.fn(v)
	}
}
