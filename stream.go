package seiretsu

import (
	"errors"
	"fmt"
	"iter"
)

// streamCore is the arity-independent part of every Stream: the query it
// reads from, one expression per stream type and the cross-join cursor used
// by the locked runners. A Stream runs one runner at a time.
type streamCore struct {
	query *Query
	exprs []TypeExpression
	join  *crossJoin
}

func newStreamCore(q *Query, match []Match, ids ...uint16) streamCore {
	exprs := make([]TypeExpression, len(ids))
	for i, id := range ids {
		m := MatchPlain
		if i < len(match) {
			m = match[i]
		}
		exprs[i] = TypeExpression{TypeID: id, Target: m}
	}
	return streamCore{query: q, exprs: exprs, join: newCrossJoin(len(ids))}
}

// Query returns the query the stream reads from.
func (s *streamCore) Query() *Query { return s.query }

// Exprs returns the expression of every stream type, in declaration order.
func (s *streamCore) Exprs() []TypeExpression {
	return append([]TypeExpression(nil), s.exprs...)
}

// Count returns the number of rows a run visits: every entity once per
// cross-join permutation of its archetype.
func (s *streamCore) Count() int {
	j := newCrossJoin(len(s.exprs))
	n := 0
	for _, a := range s.query.visible() {
		if a.Count() == 0 {
			continue
		}
		j.reset(s.query, a, s.exprs)
		n += a.Count() * j.Permutations()
	}
	return n
}

// run locks the World and calls visit once per archetype permutation, with
// s.join selecting the columns. The error of the final Unlock is joined into
// the result.
func (s *streamCore) run(visit func(a *archetype, n int) error) (err error) {
	w := s.query.world
	w.Lock()
	defer func() {
		err = errors.Join(err, w.Unlock())
	}()
	for _, a := range s.query.visible() {
		n := a.Count()
		if n == 0 {
			continue
		}
		s.join.reset(s.query, a, s.exprs)
		if s.join.Empty() {
			continue
		}
		for {
			if err := visit(a, n); err != nil {
				return err
			}
			if !s.join.Permutate() {
				break
			}
		}
	}
	return nil
}

// chunks splits n rows into units of the World's chunk size and hands them
// to its scheduler.
func (s *streamCore) chunks(n int, work func(lo, hi int)) error {
	w := s.query.world
	size := w.chunkSize
	units := (n + size - 1) / size
	return w.scheduler.Run(units, func(u int) {
		lo := u * size
		work(lo, min(lo+size, n))
	})
}

// each drives an unlocked enumeration with its own cross-join cursor.
func (s *streamCore) each(visit func(a *archetype, j *crossJoin) bool) {
	j := newCrossJoin(len(s.exprs))
	for _, a := range s.query.visible() {
		if a.Count() == 0 {
			continue
		}
		j.reset(s.query, a, s.exprs)
		if j.Empty() {
			continue
		}
		for {
			if !visit(a, j) {
				return
			}
			if !j.Permutate() {
				break
			}
		}
	}
}

func concurrentModification(a *archetype) error {
	return fmt.Errorf("%w: archetype %d %s", ErrConcurrentModification, a.id, a.signature)
}

func mustStorage[T any](c column) *Storage[T] {
	s, err := storageOf[T](c)
	if err != nil {
		panic(err)
	}
	return s
}

// Stream iterates component T of every entity a Query matches. When the
// stream's match is a wildcard, an entity holding several matching columns
// is visited once per column.
type Stream[T any] struct {
	streamCore
}

// NewStream creates a Stream over q reading T with match (plain when
// omitted).
func NewStream[T any](q *Query, match ...Match) *Stream[T] {
	return &Stream[T]{
		streamCore: newStreamCore(q, match, RegisterType[T](q.world.registry)),
	}
}

// For calls fn for every row while the World is locked. Structural changes
// made by fn are applied after the run.
func (s *Stream[T]) For(fn func(e Entity, c *T)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T](s.join.Select(0))
		if err != nil {
			return err
		}
		ents, d1 := a.entities.data[:n], c1.data[:n]
		for i := range ents {
			fn(ents[i], &d1[i])
		}
		return nil
	})
}

// Job is For split into chunks that run in parallel on the World's
// scheduler. fn must only touch the row it is given.
func (s *Stream[T]) Job(fn func(e Entity, c *T)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T](s.join.Select(0))
		if err != nil {
			return err
		}
		ents, d1 := a.entities.data[:n], c1.data[:n]
		return s.chunks(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				fn(ents[i], &d1[i])
			}
		})
	})
}

// Raw calls fn once per archetype permutation with the contiguous entity
// and component buffers.
func (s *Stream[T]) Raw(fn func(entities []Entity, c []T)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T](s.join.Select(0))
		if err != nil {
			return err
		}
		fn(a.entities.data[:n], c1.data[:n])
		return nil
	})
}

// All enumerates rows without locking the World. A structural change to
// the archetype being enumerated panics with ErrConcurrentModification.
func (s *Stream[T]) All() iter.Seq2[Entity, *T] {
	return func(yield func(Entity, *T) bool) {
		s.each(func(a *archetype, j *crossJoin) bool {
			c1 := mustStorage[T](j.Select(0))
			version := a.version
			for row := 0; row < a.Count(); row++ {
				if !yield(a.entities.data[row], &c1.data[row]) {
					return false
				}
				if a.version != version {
					panic(concurrentModification(a))
				}
			}
			return true
		})
	}
}

// Blit writes v into every column the stream reads.
func (s *Stream[T]) Blit(v T) error {
	return Blit(s.query, v, s.exprs[0].Target)
}
