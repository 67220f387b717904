package seiretsu

import (
	"fmt"
	"reflect"
	"sync"
)

// linkTable interns link objects to small ids so that a link target fits in
// a Match. Ids are never reused; GC forgets objects no archetype refers to.
// LinkTo may be called from Job workers, so every access takes mu.
type linkTable struct {
	ids     map[any]uint32
	objects map[uint32]any
	next    uint32
	mu      sync.RWMutex
}

func newLinkTable() *linkTable {
	return &linkTable{
		ids:     make(map[any]uint32),
		objects: make(map[uint32]any),
		next:    1,
	}
}

func (t *linkTable) intern(obj any) (uint32, error) {
	if obj == nil || !reflect.ValueOf(obj).Comparable() {
		return 0, fmt.Errorf("%w: %T", ErrUncomparableLink, obj)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[obj]; ok {
		return id, nil
	}
	id := t.next
	t.next++
	t.ids[obj] = id
	t.objects[id] = obj
	return id, nil
}

func (t *linkTable) object(id uint32) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	obj, ok := t.objects[id]
	return obj, ok
}

// lookup returns the id of an already interned object.
func (t *linkTable) lookup(obj any) (uint32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.ids[obj]
	return id, ok
}

// retain drops every interned object whose id is not in keep and returns
// how many were dropped.
func (t *linkTable) retain(keep map[uint32]struct{}) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := 0
	for id, obj := range t.objects {
		if _, ok := keep[id]; ok {
			continue
		}
		delete(t.objects, id)
		delete(t.ids, obj)
		dropped++
	}
	return dropped
}

// LinkTo returns the Match for a link to obj in w, interning obj on first
// use. It panics with ErrUncomparableLink if obj cannot be a map key.
func LinkTo[T comparable](w *World, obj T) Match {
	id, err := w.links.intern(obj)
	if err != nil {
		panic(err)
	}
	return linkMatch(id)
}

// LinkedObject returns the object a link Match refers to.
func (w *World) LinkedObject(m Match) (any, bool) {
	if !m.IsLink() {
		return nil, false
	}
	return w.links.object(m.linkID())
}
