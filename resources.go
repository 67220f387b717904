package seiretsu

import (
	"fmt"
	"reflect"
	"sync"
)

// Resources holds world-global singletons, at most one per type. Slots are
// addressed by small ids that are reused after removal. Reads may happen
// from Job workers; the store is guarded by a RWMutex.
type Resources struct {
	items   []any
	types   map[reflect.Type]int
	freeIds []int
	mu      sync.RWMutex
}

// Add stores res and returns its id.
//
// Returns:
//   - ErrDuplicateResource if a resource of the same dynamic type exists.
func (r *Resources) Add(res any) (int, error) {
	if res == nil {
		return -1, fmt.Errorf("%w: nil resource", ErrInvalidRange)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(reflect.TypeOf(res), res)
}

func (r *Resources) add(t reflect.Type, res any) (int, error) {
	if r.types == nil {
		r.types = make(map[reflect.Type]int)
	}
	if _, ok := r.types[t]; ok {
		return -1, fmt.Errorf("%w: %s", ErrDuplicateResource, t)
	}
	var id int
	if n := len(r.freeIds); n > 0 {
		id = r.freeIds[n-1]
		r.freeIds = r.freeIds[:n-1]
		r.items[id] = res
	} else {
		id = len(r.items)
		r.items = append(r.items, res)
	}
	r.types[t] = id
	return id, nil
}

// Has reports whether id names a stored resource.
func (r *Resources) Has(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.has(id)
}

func (r *Resources) has(id int) bool {
	return id >= 0 && id < len(r.items) && r.items[id] != nil
}

// Get returns the resource stored under id, or nil.
func (r *Resources) Get(id int) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.has(id) {
		return nil
	}
	return r.items[id]
}

// Remove drops the resource under id and frees the id for reuse.
func (r *Resources) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.has(id) {
		return
	}
	delete(r.types, reflect.TypeOf(r.items[id]))
	r.items[id] = nil
	r.freeIds = append(r.freeIds, id)
}

// Len returns the number of stored resources.
func (r *Resources) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Clear removes every resource.
func (r *Resources) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.items)
	r.items = r.items[:0]
	clear(r.types)
	r.freeIds = r.freeIds[:0]
}

func (r *Resources) idOf(t reflect.Type) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.types[t]
	return id, ok
}

// SetResource stores res as the singleton of type T, replacing a previous
// one, and returns its id.
func SetResource[T any](r *Resources, res *T) int {
	t := reflect.TypeFor[*T]()
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.types[t]; ok {
		r.items[id] = res
		return id
	}
	id, _ := r.add(t, res)
	return id
}

// GetResource returns the singleton of type T.
func GetResource[T any](r *Resources) (*T, bool) {
	id, ok := r.idOf(reflect.TypeFor[*T]())
	if !ok {
		return nil, false
	}
	res, ok := r.Get(id).(*T)
	return res, ok
}

// HasResource reports whether a singleton of type T is stored.
func HasResource[T any](r *Resources) bool {
	_, ok := r.idOf(reflect.TypeFor[*T]())
	return ok
}

// RemoveResource drops the singleton of type T and reports whether one was
// stored.
func RemoveResource[T any](r *Resources) bool {
	id, ok := r.idOf(reflect.TypeFor[*T]())
	if ok {
		r.Remove(id)
	}
	return ok
}
