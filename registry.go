package seiretsu

import (
	"fmt"
	"math"
	"reflect"
	"sync"
)

// componentType describes one registered Go type. newColumn is the explicit
// factory for its storage, so archetypes never instantiate columns through
// reflection.
type componentType struct {
	typ       reflect.Type
	newColumn func(capacity int) column
	size      uintptr
	id        uint16
}

// Registry assigns stable numeric ids to component types. It is safe for
// concurrent use and may be shared by several Worlds (WithRegistry) so that
// type expressions mean the same thing in each of them.
type Registry struct {
	byType map[reflect.Type]uint16
	types  []componentType // indexed by id; id 0 is reserved
	mu     sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]uint16, 32),
		types:  make([]componentType, 1, 32),
	}
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types) - 1
}

// TypeOf returns the Go type registered under id.
func (r *Registry) TypeOf(id uint16) (reflect.Type, bool) {
	ct, ok := r.lookup(id)
	if !ok {
		return nil, false
	}
	return ct.typ, true
}

func (r *Registry) lookup(id uint16) (componentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) >= len(r.types) {
		return componentType{}, false
	}
	return r.types[id], true
}

// RegisterType returns the id of T in r, registering it on first use. It
// panics with ErrTooManyTypes once all 65535 ids are taken.
func RegisterType[T any](r *Registry) uint16 {
	t := reflect.TypeFor[T]()
	r.mu.RLock()
	id, ok := r.byType[t]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byType[t]; ok {
		return id
	}
	if len(r.types) > math.MaxUint16 {
		panic(fmt.Errorf("%w: cannot register %s", ErrTooManyTypes, t))
	}
	id = uint16(len(r.types))
	r.types = append(r.types, componentType{
		id:   id,
		typ:  t,
		size: t.Size(),
		newColumn: func(capacity int) column {
			return NewStorage[T](capacity)
		},
	})
	r.byType[t] = id
	return id
}
