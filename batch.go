package seiretsu

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
)

// AddConflict decides what a batch addition does to archetypes that already
// hold the added expression.
type AddConflict uint8

const (
	// AddStrict only accepts additions the query's Not list proves absent.
	AddStrict AddConflict = iota
	// AddSkip leaves archetypes that already hold the expression unchanged.
	AddSkip
	// AddReplace overwrites the existing value.
	AddReplace
)

// RemoveConflict decides what a batch removal does to archetypes lacking
// the removed expression.
type RemoveConflict uint8

const (
	// RemoveStrict only accepts removals the query's Has or Any lists prove
	// present.
	RemoveStrict RemoveConflict = iota
	// RemoveAllow ignores archetypes that lack the expression.
	RemoveAllow
)

type batchAdd struct {
	value any
	expr  TypeExpression
}

// Batch is a set of additions and removals applied to every entity of a
// Query at once. Each matched archetype computes one target signature and
// moves all of its rows in a single pass.
type Batch struct {
	query     *Query
	adds      []batchAdd
	removes   []TypeExpression
	err       error
	onAdd     AddConflict
	onRemove  RemoveConflict
	submitted bool
}

// Batch starts a bulk structural change over q.
func (q *Query) Batch(onAdd AddConflict, onRemove RemoveConflict) *Batch {
	return &Batch{query: q, onAdd: onAdd, onRemove: onRemove}
}

func (b *Batch) fail(err error) *Batch {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Err returns the first error recorded by Add or Remove.
func (b *Batch) Err() error { return b.err }

// Add queues attaching value under expr. Errors are reported by Submit.
func (b *Batch) Add(expr TypeExpression, value any) *Batch {
	if b.submitted {
		return b.fail(fmt.Errorf("%w: add %s after submit", ErrBatchConflict, expr))
	}
	w := b.query.world
	if expr.IsWildcard() {
		return b.fail(fmt.Errorf("%w: batch add %s", ErrInvalidExpression, expr))
	}
	ct, ok := w.registry.lookup(expr.TypeID)
	if !ok {
		return b.fail(fmt.Errorf("%w: type id %d", ErrUnregisteredType, expr.TypeID))
	}
	if reflect.TypeOf(value) != ct.typ {
		return b.fail(fmt.Errorf("%w: %T for %s (%s)", ErrTypeMismatch, value, expr, ct.typ))
	}
	if slices.ContainsFunc(b.adds, func(a batchAdd) bool { return a.expr == expr }) {
		return b.fail(fmt.Errorf("%w: %s added twice", ErrBatchConflict, expr))
	}
	if slices.ContainsFunc(b.removes, func(r TypeExpression) bool { return r.Matches(expr) }) {
		return b.fail(fmt.Errorf("%w: %s both added and removed", ErrBatchConflict, expr))
	}
	if b.onAdd == AddStrict && !b.query.mask.excludes(expr) {
		return b.fail(fmt.Errorf("%w: %s not proven absent by %s", ErrBatchConflict, expr, b.query.mask))
	}
	b.adds = append(b.adds, batchAdd{expr: expr, value: value})
	return b
}

// Remove queues detaching every expression matched by expr, which may be a
// wildcard. Errors are reported by Submit.
func (b *Batch) Remove(expr TypeExpression) *Batch {
	if b.submitted {
		return b.fail(fmt.Errorf("%w: remove %s after submit", ErrBatchConflict, expr))
	}
	if slices.Contains(b.removes, expr) {
		return b.fail(fmt.Errorf("%w: %s removed twice", ErrBatchConflict, expr))
	}
	if slices.ContainsFunc(b.adds, func(a batchAdd) bool { return expr.Matches(a.expr) }) {
		return b.fail(fmt.Errorf("%w: %s both added and removed", ErrBatchConflict, expr))
	}
	if b.onRemove == RemoveStrict && !b.query.mask.proves(expr) {
		return b.fail(fmt.Errorf("%w: %s not proven present by %s", ErrBatchConflict, expr, b.query.mask))
	}
	b.removes = append(b.removes, expr)
	return b
}

// Submit applies the batch, or queues it while the World is locked. A batch
// can be submitted once.
func (b *Batch) Submit() error {
	if b.err != nil {
		return b.err
	}
	if b.submitted {
		return fmt.Errorf("%w: batch already submitted", ErrBatchConflict)
	}
	b.submitted = true
	w := b.query.world
	if w.deferring() && w.enqueue(deferredOp{kind: opBatch, batch: b}) {
		return nil
	}
	return b.apply()
}

func (b *Batch) apply() error {
	w := b.query.world
	for _, a := range b.adds {
		if a.expr.Target.IsRelation() && !w.IsAlive(a.expr.Target.Entity()) {
			return fmt.Errorf("%w: relation target %s", ErrDeadEntity, a.expr.Target.Entity())
		}
	}
	var errs []error
	moved := 0
	for _, a := range slices.Clone(b.query.visible()) {
		n := a.Count()
		if n == 0 {
			continue
		}
		sig := a.signature
		for _, r := range b.removes {
			if matched := sig.MatchesAll(r); len(matched) > 0 {
				sig = sig.Except(NewSignature(matched...))
			}
		}
		var fill, replace []batchAdd
		for _, add := range b.adds {
			if !sig.Has(add.expr) {
				sig = sig.Add(add.expr)
				fill = append(fill, add)
				continue
			}
			switch b.onAdd {
			case AddReplace:
				replace = append(replace, add)
			case AddStrict:
				errs = append(errs, fmt.Errorf("%w: %s on archetype %s", ErrDuplicateComponent, add.expr, a.signature))
			}
		}

		dst, start := a, 0
		if !sig.Equal(a.signature) {
			dst = w.archetypeFor(sig)
			start = a.migrateAll(dst, newTransition(a, dst), w.entities)
			moved += n
		}
		for _, add := range slices.Concat(fill, replace) {
			col, _ := dst.column(add.expr)
			if err := col.fill(start, n, add.value); err != nil {
				errs = append(errs, err)
			}
		}
	}
	w.logger.Debug("batch applied", "mask", b.query.mask.String(), "adds", len(b.adds), "removes", len(b.removes), "moved", moved)
	return errors.Join(errs...)
}
