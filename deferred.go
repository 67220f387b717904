package seiretsu

import (
	"errors"
	"fmt"
)

// Mode is the structural mutation mode of a World.
type Mode int32

const (
	// Immediate applies structural operations synchronously.
	Immediate Mode = iota
	// CatchUp is the transient mode in which the deferred queue drains.
	CatchUp
	// Deferred queues structural operations until the last Unlock.
	Deferred
)

func (m Mode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case CatchUp:
		return "catch-up"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("Mode(%d)", int32(m))
	}
}

type opKind uint8

const (
	opSpawn opKind = iota
	opAdd
	opRemove
	opDespawn
	opBatch
)

func (k opKind) String() string {
	return [...]string{"spawn", "add", "remove", "despawn", "batch"}[k]
}

// deferredOp is one queued structural operation. value carries the boxed
// component of an add; batch carries a frozen batch.
type deferredOp struct {
	value  any
	batch  *Batch
	expr   TypeExpression
	entity Entity
	kind   opKind
}

// Mode returns the current mode of w.
func (w *World) Mode() Mode {
	return Mode(w.mode.Load())
}

func (w *World) deferring() bool {
	return Mode(w.mode.Load()) == Deferred
}

// enqueue appends op to the deferred queue. It reports false if the World
// left Deferred mode in the meantime, in which case the caller applies op
// itself.
func (w *World) enqueue(op deferredOp) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if Mode(w.mode.Load()) != Deferred {
		return false
	}
	w.deferred = append(w.deferred, op)
	return true
}

// Lock puts w into Deferred mode. Locks nest; structural operations are
// queued until the outermost Unlock.
func (w *World) Lock() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.locks++
	w.mode.Store(int32(Deferred))
}

// Unlock releases one Lock. Releasing the outermost lock drains the deferred
// queue in enqueue order and returns the World to Immediate mode. Failures
// of queued operations are joined into the returned error.
func (w *World) Unlock() error {
	w.mu.Lock()
	if w.locks == 0 {
		w.mu.Unlock()
		return fmt.Errorf("%w: unlock without matching lock", ErrModeConflict)
	}
	w.locks--
	if w.locks > 0 {
		w.mu.Unlock()
		return nil
	}
	w.mode.Store(int32(CatchUp))
	w.mu.Unlock()
	return w.catchUp()
}

// catchUp applies queued operations one by one. A Lock taken while draining
// stops the drain; the remaining operations wait for that lock's release.
func (w *World) catchUp() error {
	var errs []error
	applied := 0
	for {
		w.mu.Lock()
		if w.locks > 0 {
			w.mu.Unlock()
			break
		}
		if len(w.deferred) == 0 {
			w.deferred = w.deferred[:0]
			w.mode.Store(int32(Immediate))
			w.mu.Unlock()
			break
		}
		op := w.deferred[0]
		w.deferred[0] = deferredOp{}
		w.deferred = w.deferred[1:]
		w.mu.Unlock()

		if err := w.apply(op); err != nil {
			w.logger.Warn("deferred operation failed", "op", op.kind.String(), "entity", op.entity.String(), "error", err)
			errs = append(errs, err)
		}
		applied++
	}
	if applied > 0 {
		w.logger.Debug("deferred queue drained", "ops", applied, "failed", len(errs))
	}
	return errors.Join(errs...)
}

func (w *World) apply(op deferredOp) error {
	switch op.kind {
	case opSpawn:
		if w.IsAlive(op.entity) && w.entities.meta(op.entity).archetype == archetypePending {
			w.place(op.entity)
		}
		return nil
	case opAdd:
		if err := w.checkAdd(op.entity, op.expr); err != nil {
			return err
		}
		_, row, col, err := w.attach(op.entity, op.expr)
		if err != nil {
			return err
		}
		return col.set(row, op.value)
	case opRemove:
		if !w.IsAlive(op.entity) {
			return fmt.Errorf("%w: remove %s from %s", ErrDeadEntity, op.expr, op.entity)
		}
		return w.detach(op.entity, op.expr)
	case opDespawn:
		if !w.IsAlive(op.entity) {
			return fmt.Errorf("%w: despawn %s", ErrDeadEntity, op.entity)
		}
		w.despawn(op.entity)
		return nil
	case opBatch:
		return op.batch.apply()
	}
	return nil
}
