// Package seiretsu implements an archetype-based entity storage and query
// engine. Entities with identical sets of type expressions (plain
// components, entity-to-entity relations and object links) share one dense
// columnar archetype; queries are compiled once and kept up to date as
// archetypes come and go; streams cross-join wildcard matches into flat
// iteration.
package seiretsu

import (
	"fmt"
	"sync"
)

// Entity represents a unique identifier for a record in the World. It
// combines a recyclable Index with a Generation that changes every time the
// index is reused, so stale handles stop resolving.
type Entity struct {
	// Index is unique among the currently live entities. Index 0 is
	// reserved for virtual identities and is never handed out by Spawn.
	Index uint32
	// Generation is incremented (wrapping, skipping 0) each time Index is
	// recycled.
	Generation uint16
}

// None is the zero Entity. It never refers to a live record.
var None = Entity{}

// IsVirtual reports whether e is a reserved, non-spawnable identity.
func (e Entity) IsVirtual() bool {
	return e.Index == 0
}

func (e Entity) String() string {
	if e.IsVirtual() {
		return "E(none)"
	}
	return fmt.Sprintf("E%d:%d", e.Index, e.Generation)
}

// successor returns the identity that the next spawn reusing e.Index gets.
func (e Entity) successor() Entity {
	g := e.Generation + 1
	if g == 0 {
		g = 1
	}
	return Entity{Index: e.Index, Generation: g}
}

func (e Entity) key() uint64 {
	return uint64(e.Index) | uint64(e.Generation)<<32
}

func entityFromKey(k uint64) Entity {
	return Entity{Index: uint32(k), Generation: uint16(k >> 32)}
}

// archetypePending marks an entity spawned while the World was locked; it
// is placed into the root archetype when the deferred queue drains.
const archetypePending = -1

// entityMeta holds the internal location and state of an entity.
type entityMeta struct {
	entity    Entity // equals the live handle; None once despawned
	archetype int    // id in World.archetypes, archetypePending if not placed
	row       int    // row inside the archetype
}

// entityPool hands out and recycles identities. It owns the meta table,
// which is indexed by Entity.Index. Spawn, recycle and the liveness reads
// take mu, so Job workers may spawn while other workers query liveness;
// placement and row patching happen only on the structural goroutine.
type entityPool struct {
	metas []entityMeta
	free  []Entity // despawned identities, most recent last
	alive int
	mu    sync.RWMutex
}

func newEntityPool(capacity int) *entityPool {
	p := &entityPool{
		metas: make([]entityMeta, 1, capacity+1),
		free:  make([]Entity, 0, 64),
	}
	p.metas[0] = entityMeta{archetype: archetypePending, row: -1}
	return p
}

// spawn pops a recycled index (bumping its generation) or allocates a new
// one. The returned entity is alive but not yet placed in any archetype.
func (p *entityPool) spawn() Entity {
	p.mu.Lock()
	defer p.mu.Unlock()
	var e Entity
	if n := len(p.free); n > 0 {
		e = p.free[n-1].successor()
		p.free = p.free[:n-1]
		p.metas[e.Index] = entityMeta{entity: e, archetype: archetypePending, row: -1}
	} else {
		e = Entity{Index: uint32(len(p.metas)), Generation: 1}
		p.metas = append(p.metas, entityMeta{entity: e, archetype: archetypePending, row: -1})
	}
	p.alive++
	return e
}

// recycle invalidates e and makes its index available again.
func (p *entityPool) recycle(e Entity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metas[e.Index] = entityMeta{archetype: archetypePending, row: -1}
	p.free = append(p.free, e)
	p.alive--
}

func (p *entityPool) isAlive(e Entity) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return e.Index != 0 && int(e.Index) < len(p.metas) && p.metas[e.Index].entity == e
}

// lookup returns a copy of the meta of e if e is alive.
func (p *entityPool) lookup(e Entity) (entityMeta, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if e.Index == 0 || int(e.Index) >= len(p.metas) || p.metas[e.Index].entity != e {
		return entityMeta{}, false
	}
	return p.metas[e.Index], true
}

func (p *entityPool) count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.alive
}

// meta returns the meta slot of a live entity. The pointer is only valid on
// the structural goroutine.
func (p *entityPool) meta(e Entity) *entityMeta {
	return &p.metas[e.Index]
}
