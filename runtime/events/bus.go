// Package events provides a lightweight pub/sub event bus for worker
// observability. The engine client and the worker publish task lifecycle
// events; listeners such as the Prometheus metrics listener consume them.
package events

import "sync"

// Listener is a function that handles events.
type Listener func(*Event)

type subscription struct {
	id       uint64
	listener Listener
}

// EventBus manages event distribution to listeners. Listeners run on a
// separate goroutine per published event, so a slow listener never delays
// the worker loop.
type EventBus struct {
	mu              sync.RWMutex
	nextID          uint64
	listeners       map[EventType][]subscription
	globalListeners []subscription
	closed          bool
	inflight        sync.WaitGroup
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners: make(map[EventType][]subscription),
	}
}

// Subscribe registers a listener for a specific event type. The returned
// function removes it.
func (eb *EventBus) Subscribe(eventType EventType, listener Listener) (unsubscribe func()) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eb.nextID
	eb.listeners[eventType] = append(eb.listeners[eventType], subscription{id: id, listener: listener})
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		eb.listeners[eventType] = without(eb.listeners[eventType], id)
	}
}

// SubscribeAll registers a listener for all event types. The returned
// function removes it.
func (eb *EventBus) SubscribeAll(listener Listener) (unsubscribe func()) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eb.nextID
	eb.globalListeners = append(eb.globalListeners, subscription{id: id, listener: listener})
	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		eb.globalListeners = without(eb.globalListeners, id)
	}
}

// Publish sends an event to all registered listeners asynchronously.
// Events published after Close are dropped.
func (eb *EventBus) Publish(event *Event) {
	eb.mu.RLock()
	if eb.closed {
		eb.mu.RUnlock()
		return
	}
	targets := make([]Listener, 0, len(eb.listeners[event.Type])+len(eb.globalListeners))
	for _, s := range eb.listeners[event.Type] {
		targets = append(targets, s.listener)
	}
	for _, s := range eb.globalListeners {
		targets = append(targets, s.listener)
	}
	eb.inflight.Add(1)
	eb.mu.RUnlock()

	go func() {
		defer eb.inflight.Done()
		for _, listener := range targets {
			safeInvoke(listener, event)
		}
	}()
}

// Close stops accepting events and waits for in-flight deliveries.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	eb.closed = true
	eb.mu.Unlock()
	eb.inflight.Wait()
}

// Clear removes all listeners (primarily for tests).
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.listeners = make(map[EventType][]subscription)
	eb.globalListeners = nil
}

func without(subs []subscription, id uint64) []subscription {
	out := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

func safeInvoke(listener Listener, event *Event) {
	defer func() { _ = recover() }()
	listener(event)
}
