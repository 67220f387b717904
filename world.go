package seiretsu

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
)

// World owns every archetype, the identity pool and the entity index, and
// performs all structural mutation. Structural operations are meant to be
// issued from one goroutine at a time; streams may read and write component
// data from many goroutines while the World is locked.
type World struct {
	registry  *Registry
	logger    *slog.Logger
	scheduler Scheduler
	resources *Resources

	archetypes     []*archetype // indexed by archetype id; nil once collected
	freeArchetypes []int
	bySignature    map[uint64][]int
	byType         map[uint16]*roaring.Bitmap // type id -> archetype ids
	byTarget       map[Entity]*roaring.Bitmap // relation target -> archetype ids
	root           *archetype

	queries    []*Query
	queryIndex map[uint64][]*Query

	links    *linkTable
	entities *entityPool
	events   EventBus

	deferred []deferredOp
	locks    int
	mu       sync.Mutex // guards mode transitions, locks and deferred
	mode     atomic.Int32

	chunkSize int
	capacity  int
}

// NewWorld creates and initializes a new World.
//
// Parameters:
//   - opts: Options such as WithInitialCapacity or WithLogger.
//
// Returns:
//   - The newly created World, holding only the empty root archetype.
func NewWorld(opts ...Option) *World {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.scheduler == nil {
		o.scheduler = NewScheduler(o.workers)
	}
	w := &World{
		registry:    o.registry,
		logger:      o.logger,
		scheduler:   o.scheduler,
		resources:   &Resources{},
		archetypes:  make([]*archetype, 0, 16),
		bySignature: make(map[uint64][]int, 16),
		byType:      make(map[uint16]*roaring.Bitmap, 16),
		byTarget:    make(map[Entity]*roaring.Bitmap),
		queryIndex:  make(map[uint64][]*Query),
		links:       newLinkTable(),
		entities:    newEntityPool(o.initialCapacity),
		chunkSize:   o.chunkSize,
		capacity:    o.initialCapacity,
	}
	w.root = w.createArchetype(Signature{})
	return w
}

// Registry returns the component type registry used by w.
func (w *World) Registry() *Registry { return w.registry }

// Events returns the bus the World publishes lifecycle events on.
func (w *World) Events() *EventBus { return &w.events }

// Resources returns the world's store of global singletons.
func (w *World) Resources() *Resources { return w.resources }

// Count returns the number of live entities.
func (w *World) Count() int { return w.entities.count() }

// ArchetypeCount returns the number of archetypes in the graph, including
// empty ones that GC has not collected yet.
func (w *World) ArchetypeCount() int {
	return len(w.archetypes) - len(w.freeArchetypes)
}

// IsAlive reports whether e refers to a live entity: its index is in range
// and the stored identity equals e exactly.
func (w *World) IsAlive(e Entity) bool {
	return w.entities.isAlive(e)
}

// Spawn creates a new entity with no components. While the World is locked
// the identity is reserved immediately and its placement deferred.
func (w *World) Spawn() Entity {
	e := w.entities.spawn()
	if w.deferring() && w.enqueue(deferredOp{kind: opSpawn, entity: e}) {
		return e
	}
	w.place(e)
	return e
}

// place puts a spawned entity into the root archetype.
func (w *World) place(e Entity) {
	m := w.entities.meta(e)
	m.archetype = w.root.id
	m.row = w.root.add(e)
}

// Despawn removes e and all of its components, recycles its identity and
// removes every relation that targets e from the entities holding it.
func (w *World) Despawn(e Entity) error {
	if !w.IsAlive(e) {
		return fmt.Errorf("%w: despawn %s", ErrDeadEntity, e)
	}
	if w.deferring() && w.enqueue(deferredOp{kind: opDespawn, entity: e}) {
		return nil
	}
	w.despawn(e)
	return nil
}

func (w *World) despawn(e Entity) {
	m := w.entities.meta(e)
	if m.archetype != archetypePending {
		w.archetypes[m.archetype].remove(m.row, w.entities)
	}
	w.entities.recycle(e)
	Publish(&w.events, EntityDespawned{Entity: e})
	w.unrelate(e)
}

// unrelate removes every relation targeting e, moving each holder archetype
// in bulk to its signature without those relations.
func (w *World) unrelate(e Entity) {
	set, ok := w.byTarget[e]
	if !ok {
		return
	}
	delete(w.byTarget, e)
	for _, id := range set.ToArray() {
		a := w.archetypes[id]
		if a == nil || a.Count() == 0 {
			continue
		}
		var drop []TypeExpression
		for _, expr := range a.signature.exprs {
			if expr.Target.IsRelation() && expr.Target.Entity() == e {
				drop = append(drop, expr)
			}
		}
		if len(drop) == 0 {
			continue
		}
		dst := w.archetypeFor(a.signature.Except(NewSignature(drop...)))
		a.migrateAll(dst, newTransition(a, dst), w.entities)
	}
}

// archetypeFor returns the archetype named by sig, creating it if needed.
func (w *World) archetypeFor(sig Signature) *archetype {
	for _, id := range w.bySignature[sig.hash] {
		if a := w.archetypes[id]; a.signature.Equal(sig) {
			return a
		}
	}
	return w.createArchetype(sig)
}

func (w *World) createArchetype(sig Signature) *archetype {
	var id int
	if n := len(w.freeArchetypes); n > 0 {
		id = w.freeArchetypes[n-1]
		w.freeArchetypes = w.freeArchetypes[:n-1]
	} else {
		id = len(w.archetypes)
		w.archetypes = append(w.archetypes, nil)
	}
	capacity := minStorageCapacity
	if sig.Len() == 0 {
		capacity = w.capacity
	}
	a, err := newArchetype(id, sig, w.registry, capacity)
	if err != nil {
		// expressions are validated against the registry before they reach
		// the graph
		panic(err)
	}
	w.archetypes[id] = a
	w.bySignature[sig.hash] = append(w.bySignature[sig.hash], id)

	for _, expr := range sig.exprs {
		bitmapFor(w.byType, expr.TypeID).Add(uint32(id))
		if expr.Target.IsRelation() {
			bitmapFor(w.byTarget, expr.Target.Entity()).Add(uint32(id))
		}
	}
	for _, q := range w.queries {
		if q.mask.Matches(sig) {
			q.include(a)
		}
	}
	w.logger.Debug("archetype created", "id", id, "signature", sig.String())
	Publish(&w.events, ArchetypeCreated{ID: id, Signature: sig})
	return a
}

func bitmapFor[K comparable](m map[K]*roaring.Bitmap, k K) *roaring.Bitmap {
	b, ok := m[k]
	if !ok {
		b = roaring.New()
		m[k] = b
	}
	return b
}

// transition returns the memoized edge from a when adding or removing expr.
func (w *World) transition(a *archetype, expr TypeExpression, add bool) *transition {
	key := edgeKey{expr: expr, add: add}
	if tr, ok := a.edges[key]; ok {
		return tr
	}
	var sig Signature
	if add {
		sig = a.signature.Add(expr)
	} else {
		sig = a.signature.Remove(expr)
	}
	tr := newTransition(a, w.archetypeFor(sig))
	a.edges[key] = tr
	return tr
}

// archetypeOf returns the archetype of a live entity, placing entities whose
// spawn is still pending.
func (w *World) archetypeOf(e Entity) (*archetype, *entityMeta) {
	m := w.entities.meta(e)
	if m.archetype == archetypePending {
		w.place(e)
	}
	return w.archetypes[m.archetype], m
}

// Signature returns the set of type expressions e currently carries.
func (w *World) Signature(e Entity) (Signature, error) {
	m, ok := w.entities.lookup(e)
	if !ok {
		return Signature{}, fmt.Errorf("%w: signature of %s", ErrDeadEntity, e)
	}
	if m.archetype == archetypePending {
		return Signature{}, nil
	}
	return w.archetypes[m.archetype].signature, nil
}

// GC drops every empty archetype (except the root) from the graph, from
// every query and from the type and relation indexes, and forgets link
// objects nothing refers to anymore. It is illegal while the World is
// locked.
func (w *World) GC() error {
	if mode := w.Mode(); mode != Immediate {
		return fmt.Errorf("%w: GC in %s mode", ErrModeConflict, mode)
	}
	dropped := roaring.New()
	for _, a := range w.archetypes {
		if a == nil || a == w.root || a.Count() > 0 {
			continue
		}
		dropped.Add(uint32(a.id))
	}

	if !dropped.IsEmpty() {
		for _, q := range w.queries {
			q.exclude(dropped)
		}
		for k, set := range w.byType {
			set.AndNot(dropped)
			if set.IsEmpty() {
				delete(w.byType, k)
			}
		}
		for k, set := range w.byTarget {
			set.AndNot(dropped)
			if set.IsEmpty() {
				delete(w.byTarget, k)
			}
		}
		for _, id := range dropped.ToArray() {
			a := w.archetypes[id]
			ids := w.bySignature[a.signature.hash]
			ids = slices.DeleteFunc(ids, func(x int) bool { return x == int(id) })
			if len(ids) == 0 {
				delete(w.bySignature, a.signature.hash)
			} else {
				w.bySignature[a.signature.hash] = ids
			}
			w.archetypes[id] = nil
			w.freeArchetypes = append(w.freeArchetypes, int(id))
		}
		for _, a := range w.archetypes {
			if a == nil {
				continue
			}
			for k, tr := range a.edges {
				if dropped.Contains(uint32(tr.target)) {
					delete(a.edges, k)
				}
			}
		}
	}
	links := w.links.retain(w.referencedLinks())

	if n := int(dropped.GetCardinality()); n > 0 || links > 0 {
		w.logger.Info("garbage collected", "archetypes", n, "links", links)
		Publish(&w.events, ArchetypesCollected{Archetypes: n, Links: links})
	}
	return nil
}

// referencedLinks collects the link ids used by live archetypes and query
// masks.
func (w *World) referencedLinks() map[uint32]struct{} {
	keep := make(map[uint32]struct{})
	mark := func(exprs []TypeExpression) {
		for _, e := range exprs {
			if e.Target.IsLink() {
				keep[e.Target.linkID()] = struct{}{}
			}
		}
	}
	for _, a := range w.archetypes {
		if a != nil {
			mark(a.signature.exprs)
		}
	}
	for _, q := range w.queries {
		mark(q.mask.has)
		mark(q.mask.not)
		mark(q.mask.any)
		mark(q.filters)
	}
	return keep
}

// Compact shrinks every archetype's columns to their row counts. Columns
// must not move while a locked run reads them, so Compact is illegal unless
// the World is in Immediate mode.
func (w *World) Compact() error {
	if mode := w.Mode(); mode != Immediate {
		return fmt.Errorf("%w: Compact in %s mode", ErrModeConflict, mode)
	}
	for _, a := range w.archetypes {
		if a != nil {
			a.compact()
		}
	}
	return nil
}

// RelationTargets returns every entity that some entity relates to through
// a component of type T, in index order.
func RelationTargets[T any](w *World) []Entity {
	id := RegisterType[T](w.registry)
	set, ok := w.byType[id]
	if !ok {
		return nil
	}
	seen := make(map[Entity]struct{})
	var out []Entity
	it := set.Iterator()
	for it.HasNext() {
		a := w.archetypes[it.Next()]
		if a.Count() == 0 {
			continue
		}
		lo, hi := a.signature.typeRange(id)
		for _, expr := range a.signature.exprs[lo:hi] {
			if !expr.Target.IsRelation() {
				continue
			}
			t := expr.Target.Entity()
			if _, dup := seen[t]; !dup {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	slices.SortFunc(out, func(a, b Entity) int { return int(a.Index) - int(b.Index) })
	return out
}
