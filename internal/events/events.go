package events

import (
	"fmt"
	"sync"

	"bizdesk/internal/models"
	console "bizdesk/internal/utils/logger"
)

var log = console.New("EVENTS")

// Wildcard handlers receive every event.
const Wildcard = "*"

type EventHandler func(interface{})

// Change describes a committed write to workspace data.
type Change struct {
	WorkspaceID string        `json:"workspaceId"`
	Module      models.Module `json:"module"`
	Table       string        `json:"table"`
	Action      string        `json:"action"`
	ID          string        `json:"id,omitempty"`
}

// Name is the event name a change is emitted under, e.g. "invoices.created".
func (c Change) Name() string {
	return c.Table + "." + c.Action
}

type subscription struct {
	id      uint64
	handler EventHandler
}

type EventBus struct {
	handlers map[string][]subscription
	nextID   uint64
	mu       sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string][]subscription),
	}
}

// On registers a handler for an event and returns a function that removes it.
func (bus *EventBus) On(event string, handler EventHandler) func() {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.nextID++
	id := bus.nextID
	bus.handlers[event] = append(bus.handlers[event], subscription{id: id, handler: handler})
	log.Debug("Registered handler for event: %s", event)

	return func() { bus.off(event, id) }
}

// OnAny registers a handler for every event.
func (bus *EventBus) OnAny(handler EventHandler) func() {
	return bus.On(Wildcard, handler)
}

func (bus *EventBus) off(event string, id uint64) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	subs := bus.handlers[event]
	for i, s := range subs {
		if s.id == id {
			bus.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(bus.handlers[event]) == 0 {
		delete(bus.handlers, event)
	}
}

// Emit triggers an event with the given data
func (bus *EventBus) Emit(event string, data interface{}) {
	bus.mu.RLock()
	subs := make([]subscription, 0, len(bus.handlers[event])+len(bus.handlers[Wildcard]))
	subs = append(subs, bus.handlers[event]...)
	if event != Wildcard {
		subs = append(subs, bus.handlers[Wildcard]...)
	}
	bus.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	log.Debug("Emitting event: %s", event)

	for _, s := range subs {
		go func(h EventHandler) {
			defer func() {
				if r := recover(); r != nil {
					_ = log.Error("Panic in event handler", fmt.Errorf("panic: %v", r))
				}
			}()
			h(data)
		}(s.handler)
	}
}

// Publish emits a change under its name.
func (bus *EventBus) Publish(c Change) {
	if bus == nil {
		return
	}
	bus.Emit(c.Name(), c)
}
