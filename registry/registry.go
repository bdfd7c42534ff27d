package registry

import (
	"sync"

	"github.com/hupe1980/agentcore/core"
)

// Map is a thread-safe, map-backed handler registry. Registration is safe
// to call concurrently with dispatch, but handlers should normally be
// registered during initialization before the runtime starts.
type Map struct {
	mu       sync.RWMutex
	handlers map[core.EventKind]core.Handler
}

// NewMap creates an empty registry.
func NewMap() *Map {
	return &Map{handlers: make(map[core.EventKind]core.Handler)}
}

// Register binds a handler to an event kind. An existing binding for the
// same kind is replaced without warning.
func (m *Map) Register(kind core.EventKind, h core.Handler) *Map {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[kind] = h
	return m
}

// RegisterFunc binds a plain function to an event kind.
func (m *Map) RegisterFunc(kind core.EventKind, fn core.HandlerFunc) *Map {
	return m.Register(kind, fn)
}

// Deregister removes the binding for a kind. Removing an absent kind is a
// no-op.
func (m *Map) Deregister(kind core.EventKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, kind)
}

// HandlerFor implements core.HandlerRegistry.
func (m *Map) HandlerFor(kind core.EventKind) (core.Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[kind]
	return h, ok
}

// Kinds returns the event kinds that currently have a handler bound.
func (m *Map) Kinds() []core.EventKind {
	m.mu.RLock()
	defer m.mu.RUnlock()
	kinds := make([]core.EventKind, 0, len(m.handlers))
	for k := range m.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}

var _ core.HandlerRegistry = (*Map)(nil)
