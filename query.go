package seiretsu

import (
	"fmt"
	"iter"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// QueryBuilder collects the Has/Not/Any lists of a Mask.
type QueryBuilder struct {
	world *World
	mask  *Mask
}

// Query starts building a query that requires every expression in has.
func (w *World) Query(has ...TypeExpression) *QueryBuilder {
	b := &QueryBuilder{world: w, mask: acquireMask()}
	b.mask.has = append(b.mask.has, has...)
	return b
}

// Has requires every archetype to match each of exprs.
func (b *QueryBuilder) Has(exprs ...TypeExpression) *QueryBuilder {
	b.mask.has = append(b.mask.has, exprs...)
	return b
}

// Not rejects archetypes matching any of exprs.
func (b *QueryBuilder) Not(exprs ...TypeExpression) *QueryBuilder {
	b.mask.not = append(b.mask.not, exprs...)
	return b
}

// Any requires archetypes to match at least one of exprs.
func (b *QueryBuilder) Any(exprs ...TypeExpression) *QueryBuilder {
	b.mask.any = append(b.mask.any, exprs...)
	return b
}

// Compile returns the live Query for the built Mask. Equivalent masks share
// one Query; each Compile takes a reference that Dispose releases.
func (b *QueryBuilder) Compile() *Query {
	w := b.world
	m := b.mask
	b.mask = nil
	m.normalize()
	key := m.key()
	for _, q := range w.queryIndex[key] {
		if q.mask.equal(m) {
			releaseMask(m)
			q.refs++
			return q
		}
	}
	q := &Query{
		world:   w,
		mask:    m,
		members: roaring.New(),
		key:     key,
		refs:    1,
	}
	for _, a := range w.archetypes {
		if a != nil && m.Matches(a.signature) {
			q.include(a)
		}
	}
	w.queries = append(w.queries, q)
	w.queryIndex[key] = append(w.queryIndex[key], q)
	w.logger.Debug("query compiled", "mask", m.String(), "archetypes", len(q.archetypes))
	return q
}

// Query is a live view of every archetype matching a Mask. Archetypes
// created after compilation join it as they appear; GC removes the ones it
// collects.
type Query struct {
	world      *World
	mask       *Mask
	archetypes []*archetype // matched, in creation order
	members    *roaring.Bitmap
	filters    []TypeExpression // at most one per type id
	filtered   []*archetype
	dirty      bool
	key        uint64
	refs       int
}

func (q *Query) include(a *archetype) {
	q.archetypes = append(q.archetypes, a)
	q.members.Add(uint32(a.id))
	q.dirty = true
}

func (q *Query) exclude(dropped *roaring.Bitmap) {
	if !q.members.Intersects(dropped) {
		return
	}
	q.members.AndNot(dropped)
	q.archetypes = slices.DeleteFunc(slices.Clone(q.archetypes), func(a *archetype) bool {
		return dropped.Contains(uint32(a.id))
	})
	q.dirty = true
}

// visible returns the matched archetypes that pass every runtime filter.
// A rebuild allocates a new slice, so enumerations still ranging the
// previous one keep their snapshot.
func (q *Query) visible() []*archetype {
	if len(q.filters) == 0 {
		return q.archetypes
	}
	if q.dirty {
		filtered := make([]*archetype, 0, len(q.archetypes))
		for _, a := range q.archetypes {
			if q.passes(a) {
				filtered = append(filtered, a)
			}
		}
		q.filtered = filtered
		q.dirty = false
	}
	return q.filtered
}

func (q *Query) passes(a *archetype) bool {
	for _, f := range q.filters {
		if !a.signature.Matches(f) {
			return false
		}
	}
	return true
}

// filterFor returns the runtime filter narrowing typeID, if any.
func (q *Query) filterFor(typeID uint16) (TypeExpression, bool) {
	for _, f := range q.filters {
		if f.TypeID == typeID {
			return f, true
		}
	}
	return TypeExpression{}, false
}

// Mask returns the compiled mask. It must not be modified.
func (q *Query) Mask() *Mask { return q.mask }

// Archetypes returns how many archetypes are currently visible.
func (q *Query) Archetypes() int { return len(q.visible()) }

// Count returns the number of entities in the visible archetypes.
func (q *Query) Count() int {
	n := 0
	for _, a := range q.visible() {
		n += a.Count()
	}
	return n
}

// Contains reports whether e is alive and lives in a visible archetype.
func (q *Query) Contains(e Entity) bool {
	w := q.world
	m, ok := w.entities.lookup(e)
	if !ok || m.archetype == archetypePending || !q.members.Contains(uint32(m.archetype)) {
		return false
	}
	return q.passes(w.archetypes[m.archetype])
}

// Filter narrows the matched target of a type already named by the mask's
// Has or Any lists, e.g. restricting a relation wildcard to one target.
// Filtering replaces any earlier filter on the same type.
func (q *Query) Filter(expr TypeExpression) error {
	if !q.mask.covers(expr.TypeID) {
		return fmt.Errorf("%w: filter %s on query %s", ErrMissingComponent, expr, q.mask)
	}
	i := slices.IndexFunc(q.filters, func(f TypeExpression) bool { return f.TypeID == expr.TypeID })
	if i >= 0 {
		q.filters[i] = expr
	} else {
		q.filters = append(q.filters, expr)
	}
	q.dirty = true
	return nil
}

// ClearFilters removes every runtime filter.
func (q *Query) ClearFilters() {
	q.filters = q.filters[:0]
	q.filtered = nil
	q.dirty = true
}

// All yields every entity of the visible archetypes in archetype-then-row
// order. A structural change to an archetype while it is being enumerated
// panics with ErrConcurrentModification; Lock the World to mutate during
// enumeration.
func (q *Query) All() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for _, a := range q.visible() {
			version := a.version
			for row := 0; row < a.Count(); row++ {
				if !yield(a.entities.data[row]) {
					return
				}
				if a.version != version {
					panic(concurrentModification(a))
				}
			}
		}
	}
}

// Despawn despawns every entity the query currently matches. While the
// World is locked each despawn is deferred.
func (q *Query) Despawn() error {
	w := q.world
	if w.deferring() {
		for _, e := range q.snapshot() {
			if err := w.Despawn(e); err != nil {
				return err
			}
		}
		return nil
	}
	arches := slices.Clone(q.visible())
	var gone []Entity
	for _, a := range arches {
		for _, e := range a.entities.Span() {
			w.entities.recycle(e)
			gone = append(gone, e)
		}
		a.truncate()
	}
	for _, e := range gone {
		Publish(&w.events, EntityDespawned{Entity: e})
		w.unrelate(e)
	}
	if len(gone) > 0 {
		w.logger.Debug("query despawned", "mask", q.mask.String(), "entities", len(gone))
	}
	return nil
}

// Truncate despawns entities past the first n in enumeration order.
func (q *Query) Truncate(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: truncate to %d", ErrInvalidRange, n)
	}
	ents := q.snapshot()
	if n >= len(ents) {
		return nil
	}
	for _, e := range ents[n:] {
		if err := q.world.Despawn(e); err != nil {
			return err
		}
	}
	return nil
}

func (q *Query) snapshot() []Entity {
	out := make([]Entity, 0, q.Count())
	for _, a := range q.visible() {
		out = append(out, a.entities.Span()...)
	}
	return out
}

// Dispose releases one reference. The last release detaches the query from
// the World and returns its mask to the pool.
func (q *Query) Dispose() {
	if q.refs == 0 {
		return
	}
	q.refs--
	if q.refs > 0 {
		return
	}
	w := q.world
	w.queries = slices.DeleteFunc(w.queries, func(x *Query) bool { return x == q })
	peers := slices.DeleteFunc(w.queryIndex[q.key], func(x *Query) bool { return x == q })
	if len(peers) == 0 {
		delete(w.queryIndex, q.key)
	} else {
		w.queryIndex[q.key] = peers
	}
	releaseMask(q.mask)
	q.mask = &Mask{}
	q.archetypes = nil
	q.filtered = nil
	q.members.Clear()
}

// columnsFor appends the columns of a that a stream over expr reads, honoring
// the runtime filter on expr's type.
func (q *Query) columnsFor(a *archetype, expr TypeExpression, dst []column) []column {
	f, ok := q.filterFor(expr.TypeID)
	if !ok {
		return a.matchingColumns(expr, dst)
	}
	lo, hi := a.signature.typeRange(expr.TypeID)
	for i := lo; i < hi; i++ {
		stored := a.signature.exprs[i]
		if expr.Matches(stored) && f.Matches(stored) {
			dst = append(dst, a.columns[i])
		}
	}
	return dst
}

// Blit writes v over every column of type T matched by match (plain when
// omitted) in every visible archetype.
func Blit[T any](q *Query, v T, match ...Match) error {
	expr := Comp[T](q.world, match...)
	var cols []column
	for _, a := range q.visible() {
		cols = q.columnsFor(a, expr, cols[:0])
		for _, c := range cols {
			s, err := storageOf[T](c)
			if err != nil {
				return err
			}
			s.Blit(v)
		}
	}
	return nil
}
