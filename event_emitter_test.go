package wsession

import (
	"sync"
	"testing"
)

func TestEmitterSingleLifecycleListener(t *testing.T) {
	emitter := NewEventEmitter[EventType, EventType]()
	var mu sync.Mutex
	var results []EventType

	emitter.On(EventConnect, func(e EventType) {
		mu.Lock()
		results = append(results, e)
		mu.Unlock()
	})

	emitter.Emit(EventConnect, EventConnect)

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 || results[0] != EventConnect {
		t.Errorf("Expected to receive [connect], but got %v", results)
	}
}

func TestEmitterMultipleListenersSameEvent(t *testing.T) {
	emitter := NewEventEmitter[EventType, EventType]()
	var mu sync.Mutex
	var calls int

	// Two independent listeners for the same lifecycle event: both fire.
	for i := 0; i < 2; i++ {
		emitter.On(EventDisconnect, func(EventType) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	}

	emitter.Emit(EventDisconnect, EventDisconnect)

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("Expected 2 callbacks, but got %d", calls)
	}
}

func TestEmitterNoListeners(t *testing.T) {
	emitter := NewEventEmitter[EventType, EventType]()
	// Emitting an event nobody listens to must not call or fail anything.
	emitter.Emit(EventFailed, EventFailed)
}

func TestEmitterDistinctEvents(t *testing.T) {
	emitter := NewEventEmitter[EventType, EventType]()
	var connects, failures int

	emitter.On(EventConnect, func(EventType) {
		connects++
	})
	emitter.On(EventFailed, func(EventType) {
		failures++
	})

	emitter.Emit(EventConnect, EventConnect)
	emitter.Emit(EventFailed, EventFailed)
	emitter.Emit(EventFailed, EventFailed)

	if connects != 1 {
		t.Errorf("For connect, expected 1 callback, got %d", connects)
	}
	if failures != 2 {
		t.Errorf("For failed, expected 2 callbacks, got %d", failures)
	}
}

func TestEmitterCloseDropsListeners(t *testing.T) {
	emitter := NewEventEmitter[EventType, EventType]()
	var calls int

	emitter.On(EventConnect, func(EventType) {
		calls++
	})

	emitter.Close()
	emitter.Emit(EventConnect, EventConnect)

	if calls != 0 {
		t.Errorf("Expected no callbacks after Close, but got %d", calls)
	}

	// A closed emitter accepts new registrations again.
	emitter.On(EventConnect, func(EventType) {
		calls++
	})
	emitter.Emit(EventConnect, EventConnect)

	if calls != 1 {
		t.Errorf("Expected 1 callback after re-registering, but got %d", calls)
	}
}

func TestEmitterConcurrent(t *testing.T) {
	emitter := NewEventEmitter[EventType, EventType]()
	var mu sync.Mutex
	var results []EventType
	var wg sync.WaitGroup

	// Concurrently registers 10 listeners.
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emitter.On(EventDisconnect, func(e EventType) {
				mu.Lock()
				results = append(results, e)
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	// Concurrent emission: 10 events are emitted.
	for j := 0; j < 10; j++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emitter.Emit(EventDisconnect, EventDisconnect)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	// Expect 10 (listeners) * 10 (emissions) = 100 callbacks.
	if len(results) != 100 {
		t.Errorf("Expected 100 callbacks, but got %d", len(results))
	}
}
