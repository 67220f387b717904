package seiretsu

import "reflect"

// MaxEventTypes defines the maximum number of unique event types that can be
// registered in an EventBus.
const MaxEventTypes = 256

// ArchetypeCreated is published when the World adds a new archetype to its
// graph.
type ArchetypeCreated struct {
	Signature Signature
	ID        int
}

// ArchetypesCollected is published by GC after empty archetypes were
// dropped.
type ArchetypesCollected struct {
	Archetypes int
	Links      int
}

// EntityDespawned is published after an entity was removed from its
// archetype and its identity recycled, before relations to it are cleaned
// up.
type EntityDespawned struct {
	Entity Entity
}

// EventBus provides a simple, type-safe event bus. The World publishes its
// lifecycle events on it; applications may publish their own.
//
// Handlers run synchronously on the publishing goroutine, in subscription
// order. A handler that changes the World while the World is locked has its
// changes deferred like any other structural operation.
type EventBus struct {
	eventTypeMap    map[reflect.Type]uint8
	handlers        [MaxEventTypes][]any
	nextEventTypeID uint16
}

// Subscribe registers handler for events of type T.
//
// Parameters:
//   - bus: The EventBus instance to subscribe to.
//   - handler: A function that takes a single argument of type `T`.
func Subscribe[T any](bus *EventBus, handler func(T)) {
	id := bus.eventTypeID(reflect.TypeFor[T]())
	if cap(bus.handlers[id]) == 0 {
		bus.handlers[id] = make([]any, 0, 4)
	}
	bus.handlers[id] = append(bus.handlers[id], handler)
}

// Publish broadcasts event to every handler subscribed to T. Publishing a
// type nobody subscribed to is allocation-free.
func Publish[T any](bus *EventBus, event T) {
	if bus.eventTypeMap == nil {
		return
	}
	if id, ok := bus.eventTypeMap[reflect.TypeFor[T]()]; ok {
		for _, h := range bus.handlers[id] {
			h.(func(T))(event)
		}
	}
}

// eventTypeID retrieves or assigns an id for the event type.
func (bus *EventBus) eventTypeID(t reflect.Type) uint8 {
	if bus.eventTypeMap == nil {
		bus.eventTypeMap = make(map[reflect.Type]uint8)
	}
	if id, ok := bus.eventTypeMap[t]; ok {
		return id
	}
	if bus.nextEventTypeID >= MaxEventTypes {
		panic("seiretsu: too many event types")
	}
	id := uint8(bus.nextEventTypeID)
	bus.nextEventTypeID++
	bus.eventTypeMap[t] = id
	return id
}
