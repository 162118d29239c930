package event

import "sync"

// Source is the subscribe-only side of an event stream. The store binds to
// a Source; it never emits through it.
type Source interface {
	On(kind Kind, handler func(payload any))
}

// Bus is a named-event emitter connecting a connector to any number of
// subscribers. Handlers for one kind run in registration order and see
// each payload exactly once; handlers for different kinds may run on
// different goroutines, depending on who calls Emit.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]func(any)
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]func(any))}
}

// On registers a handler for one event kind.
func (b *Bus) On(kind Kind, handler func(payload any)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
}

// Emit delivers payload to every handler of kind, synchronously, in
// registration order.
func (b *Bus) Emit(kind Kind, payload any) {
	b.mu.RLock()
	handlers := append(([]func(any))(nil), b.handlers[kind]...)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(payload)
	}
}

var _ Source = (*Bus)(nil)
