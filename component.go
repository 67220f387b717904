package seiretsu

import (
	"fmt"
	"reflect"
)

// Comp returns the type expression for component type T in w, registering T
// on first use. Without a match the expression is plain; wildcards and
// RelationTo/LinkTo targets select the other forms.
func Comp[T any](w *World, match ...Match) TypeExpression {
	m := MatchPlain
	if len(match) > 0 {
		m = match[0]
	}
	return TypeExpression{TypeID: RegisterType[T](w.registry), Target: m}
}

// checkAdd validates an addition without touching the graph.
func (w *World) checkAdd(e Entity, expr TypeExpression) error {
	if !w.IsAlive(e) {
		return fmt.Errorf("%w: add %s to %s", ErrDeadEntity, expr, e)
	}
	if expr.IsWildcard() {
		return fmt.Errorf("%w: add %s", ErrInvalidExpression, expr)
	}
	if _, ok := w.registry.lookup(expr.TypeID); !ok {
		return fmt.Errorf("%w: type id %d", ErrUnregisteredType, expr.TypeID)
	}
	if expr.Target.IsRelation() && !w.IsAlive(expr.Target.Entity()) {
		return fmt.Errorf("%w: relation target %s", ErrDeadEntity, expr.Target.Entity())
	}
	return nil
}

// attach migrates e along the add-edge for expr and returns the destination
// archetype, the new row and the (zeroed) column to backfill.
func (w *World) attach(e Entity, expr TypeExpression) (*archetype, int, column, error) {
	src, m := w.archetypeOf(e)
	if src.signature.Has(expr) {
		return nil, 0, nil, fmt.Errorf("%w: %s on %s", ErrDuplicateComponent, expr, e)
	}
	tr := w.transition(src, expr, true)
	dst := w.archetypes[tr.target]
	row := src.migrate(m.row, dst, tr, w.entities)
	col, _ := dst.column(expr)
	return dst, row, col, nil
}

// detach migrates e along the remove-edge for expr.
func (w *World) detach(e Entity, expr TypeExpression) error {
	src, m := w.archetypeOf(e)
	if !src.signature.Has(expr) {
		return fmt.Errorf("%w: %s on %s", ErrMissingComponent, expr, e)
	}
	tr := w.transition(src, expr, false)
	src.migrate(m.row, w.archetypes[tr.target], tr, w.entities)
	return nil
}

func add[T any](w *World, e Entity, expr TypeExpression, v T) error {
	if err := w.checkAdd(e, expr); err != nil {
		return err
	}
	if w.deferring() && w.enqueue(deferredOp{kind: opAdd, entity: e, expr: expr, value: v}) {
		return nil
	}
	_, row, col, err := w.attach(e, expr)
	if err != nil {
		return err
	}
	s, err := storageOf[T](col)
	if err != nil {
		return err
	}
	s.data[row] = v
	return nil
}

// Add attaches a boxed value under expr. value must have exactly the Go type
// registered for expr.TypeID.
func (w *World) Add(e Entity, expr TypeExpression, value any) error {
	if err := w.checkAdd(e, expr); err != nil {
		return err
	}
	ct, _ := w.registry.lookup(expr.TypeID)
	if reflect.TypeOf(value) != ct.typ {
		return fmt.Errorf("%w: %T for %s (%s)", ErrTypeMismatch, value, expr, ct.typ)
	}
	if w.deferring() && w.enqueue(deferredOp{kind: opAdd, entity: e, expr: expr, value: value}) {
		return nil
	}
	_, row, col, err := w.attach(e, expr)
	if err != nil {
		return err
	}
	return col.set(row, value)
}

// Remove detaches the component under expr from e.
func (w *World) Remove(e Entity, expr TypeExpression) error {
	if !w.IsAlive(e) {
		return fmt.Errorf("%w: remove %s from %s", ErrDeadEntity, expr, e)
	}
	if expr.IsWildcard() {
		return fmt.Errorf("%w: remove %s", ErrInvalidExpression, expr)
	}
	if w.deferring() && w.enqueue(deferredOp{kind: opRemove, entity: e, expr: expr}) {
		return nil
	}
	return w.detach(e, expr)
}

// Has reports whether e carries a component matched by expr, which may be a
// wildcard.
func (w *World) Has(e Entity, expr TypeExpression) bool {
	m, ok := w.entities.lookup(e)
	if !ok || m.archetype == archetypePending {
		return false
	}
	return w.archetypes[m.archetype].signature.Matches(expr)
}

// Value returns a copy of the boxed component stored under expr.
func (w *World) Value(e Entity, expr TypeExpression) (any, error) {
	col, row, err := w.locate(e, expr)
	if err != nil {
		return nil, err
	}
	return col.get(row), nil
}

func (w *World) locate(e Entity, expr TypeExpression) (column, int, error) {
	m, ok := w.entities.lookup(e)
	if !ok {
		return nil, 0, fmt.Errorf("%w: get %s from %s", ErrDeadEntity, expr, e)
	}
	if expr.IsWildcard() {
		return nil, 0, fmt.Errorf("%w: get %s", ErrInvalidExpression, expr)
	}
	if m.archetype == archetypePending {
		return nil, 0, fmt.Errorf("%w: %s on %s", ErrMissingComponent, expr, e)
	}
	col, ok := w.archetypes[m.archetype].column(expr)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s on %s", ErrMissingComponent, expr, e)
	}
	return col, m.row, nil
}

// Get returns a pointer to the component of type T stored under expr. The
// pointer is valid until the next structural change of the entity's
// archetype.
func Get[T any](w *World, e Entity, expr TypeExpression) (*T, error) {
	col, row, err := w.locate(e, expr)
	if err != nil {
		return nil, err
	}
	s, err := storageOf[T](col)
	if err != nil {
		return nil, err
	}
	return &s.data[row], nil
}

// AddComponent adds a plain component of type T with value v to e.
//
// Adding moves the entity to a different archetype. If the World is locked
// the addition is queued and applied at the outermost Unlock.
//
// Returns:
//   - ErrDeadEntity if e is not alive.
//   - ErrDuplicateComponent if e already has a plain T.
func AddComponent[T any](w *World, e Entity, v T) error {
	return add(w, e, Comp[T](w), v)
}

// SetComponent updates the plain component T of e, or adds it if missing.
func SetComponent[T any](w *World, e Entity, v T) error {
	expr := Comp[T](w)
	if !w.Has(e, expr) {
		return add(w, e, expr, v)
	}
	p, err := Get[T](w, e, expr)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// GetComponent returns a pointer to the plain component T of e.
func GetComponent[T any](w *World, e Entity) (*T, error) {
	return Get[T](w, e, Comp[T](w))
}

// HasComponent reports whether e has a component T matching match (plain
// when omitted).
func HasComponent[T any](w *World, e Entity, match ...Match) bool {
	return w.Has(e, Comp[T](w, match...))
}

// RemoveComponent removes the plain component T from e.
func RemoveComponent[T any](w *World, e Entity) error {
	return w.Remove(e, Comp[T](w))
}

// AddRelation adds a component T to e that relates it to target. Despawning
// target later removes the relation again.
func AddRelation[T any](w *World, e, target Entity, v T) error {
	return add(w, e, Comp[T](w, RelationTo(target)), v)
}

// GetRelation returns the component T relating e to target.
func GetRelation[T any](w *World, e, target Entity) (*T, error) {
	return Get[T](w, e, Comp[T](w, RelationTo(target)))
}

// RemoveRelation removes the relation T from e to target.
func RemoveRelation[T any](w *World, e, target Entity) error {
	return w.Remove(e, Comp[T](w, RelationTo(target)))
}

// AddLink links e to obj. The object itself is stored as the component
// value and its identity becomes the expression's target.
func AddLink[T comparable](w *World, e Entity, obj T) error {
	id, err := w.links.intern(obj)
	if err != nil {
		return err
	}
	return add(w, e, Comp[T](w, linkMatch(id)), obj)
}

// GetLink returns the stored object of the link from e to obj.
func GetLink[T comparable](w *World, e Entity, obj T) (*T, error) {
	expr, ok := linkExpr(w, obj)
	if !ok {
		return nil, fmt.Errorf("%w: no link to %v", ErrMissingComponent, obj)
	}
	return Get[T](w, e, expr)
}

// RemoveLink removes the link from e to obj.
func RemoveLink[T comparable](w *World, e Entity, obj T) error {
	expr, ok := linkExpr(w, obj)
	if !ok {
		return fmt.Errorf("%w: no link to %v", ErrMissingComponent, obj)
	}
	return w.Remove(e, expr)
}

// linkExpr resolves the expression of an already interned link object.
func linkExpr[T comparable](w *World, obj T) (TypeExpression, bool) {
	id, ok := w.links.lookup(obj)
	if !ok {
		return TypeExpression{}, false
	}
	return Comp[T](w, linkMatch(id)), true
}
