package seiretsu

import (
	"fmt"
	"reflect"
	"slices"
)

// Spawner creates entities that start out with a fixed set of components.
// The destination archetype is resolved once per Spawn, so spawning n
// entities costs one bulk append per column.
type Spawner struct {
	world  *World
	exprs  []TypeExpression
	values []any
	err    error
}

// Entity starts describing the components of new entities.
func (w *World) Entity() *Spawner {
	return &Spawner{world: w}
}

// Add sets value as the initial component under expr. Errors are reported by
// Spawn.
func (s *Spawner) Add(expr TypeExpression, value any) *Spawner {
	if s.err != nil {
		return s
	}
	if expr.IsWildcard() {
		s.err = fmt.Errorf("%w: spawn with %s", ErrInvalidExpression, expr)
		return s
	}
	ct, ok := s.world.registry.lookup(expr.TypeID)
	if !ok {
		s.err = fmt.Errorf("%w: type id %d", ErrUnregisteredType, expr.TypeID)
		return s
	}
	if reflect.TypeOf(value) != ct.typ {
		s.err = fmt.Errorf("%w: %T for %s (%s)", ErrTypeMismatch, value, expr, ct.typ)
		return s
	}
	if slices.Contains(s.exprs, expr) {
		s.err = fmt.Errorf("%w: %s", ErrDuplicateComponent, expr)
		return s
	}
	s.exprs = append(s.exprs, expr)
	s.values = append(s.values, value)
	return s
}

// With adds a component of type T under match (plain when omitted).
func With[T any](s *Spawner, v T, match ...Match) *Spawner {
	return s.Add(Comp[T](s.world, match...), v)
}

// Spawn creates n entities carrying the configured components. While the
// World is locked the identities are reserved and their placement queued.
func (s *Spawner) Spawn(n int) ([]Entity, error) {
	if s.err != nil {
		return nil, s.err
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: spawn %d entities", ErrInvalidRange, n)
	}
	w := s.world
	for _, expr := range s.exprs {
		if expr.Target.IsRelation() && !w.IsAlive(expr.Target.Entity()) {
			return nil, fmt.Errorf("%w: relation target %s", ErrDeadEntity, expr.Target.Entity())
		}
	}
	ents := make([]Entity, n)
	if w.deferring() {
		for i := range ents {
			ents[i] = w.Spawn()
			for k, expr := range s.exprs {
				if err := w.Add(ents[i], expr, s.values[k]); err != nil {
					return ents[:i+1], err
				}
			}
		}
		return ents, nil
	}
	if n == 0 {
		return ents, nil
	}

	a := w.archetypeFor(NewSignature(s.exprs...))
	for i := range ents {
		ents[i] = w.entities.spawn()
	}
	a.reserve(n)
	start := a.addN(ents)
	for i, e := range ents {
		m := w.entities.meta(e)
		m.archetype = a.id
		m.row = start + i
	}
	for k, expr := range s.exprs {
		col, _ := a.column(expr)
		if err := col.fill(start, n, s.values[k]); err != nil {
			return ents, err
		}
	}
	return ents, nil
}
