package wsession

import (
	"sync"
)

type EventType byte

const (
	// EventConnect fires when the connection becomes live, whether the
	// trigger was a Connect call or a transport notification.
	EventConnect EventType = iota
	// EventDisconnect fires when the connection goes away.
	EventDisconnect
	// EventFailed fires when a connection attempt does not produce a handle.
	EventFailed
)

func (e EventType) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type callback[T any] func(T)

// EventEmitterCallback is a simple event emitter. It maps events (of type K) to
// listener callbacks (of type V).
type EventEmitterCallback[K comparable, V any] struct {
	listeners map[K][]callback[V]
	lock      sync.RWMutex
}

// NewEventEmitter creates a new EventEmitterCallback and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitterCallback[K, V] {
	return &EventEmitterCallback[K, V]{
		listeners: make(map[K][]callback[V]),
	}
}

// On registers a new listener for the given event.
func (e *EventEmitterCallback[K, V]) On(event K, listener callback[V]) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit triggers all listeners registered for the given event synchronously.
// The method waits until every listener has run before returning.
func (e *EventEmitterCallback[K, V]) Emit(event K, data V) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	listeners, found := e.listeners[event]
	if !found {
		return
	}

	for _, listener := range listeners {
		listener(data)
	}
}

// Close removes all listeners to prevent memory leaks.
func (e *EventEmitterCallback[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners = make(map[K][]callback[V])
}
