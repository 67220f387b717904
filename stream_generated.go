package seiretsu

import "iter"

// Refs2 points at the 2 components of one Stream2 row.
type Refs2[T1 any, T2 any] struct {
	C1 *T1
	C2 *T2
}

// Stream2 iterates the components T1 and T2 of every entity a Query
// matches. Stream types with wildcard matches are cross-joined; T1
// varies fastest.
type Stream2[T1 any, T2 any] struct {
	streamCore
}

// NewStream2 creates a Stream2 over q. match[i] selects the target of the
// i-th stream type; missing entries are plain.
func NewStream2[T1 any, T2 any](q *Query, match ...Match) *Stream2[T1, T2] {
	return &Stream2[T1, T2]{
		streamCore: newStreamCore(q, match, RegisterType[T1](q.world.registry), RegisterType[T2](q.world.registry)),
	}
}

// For calls fn for every row while the World is locked.
func (s *Stream2[T1, T2]) For(fn func(e Entity, c1 *T1, c2 *T2)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T1](s.join.Select(0))
		if err != nil {
			return err
		}
		c2, err := storageOf[T2](s.join.Select(1))
		if err != nil {
			return err
		}
		ents := a.entities.data[:n]
		d1, d2 := c1.data[:n], c2.data[:n]
		for i := range ents {
			fn(ents[i], &d1[i], &d2[i])
		}
		return nil
	})
}

// Job is For split into chunks that run in parallel on the World's
// scheduler.
func (s *Stream2[T1, T2]) Job(fn func(e Entity, c1 *T1, c2 *T2)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T1](s.join.Select(0))
		if err != nil {
			return err
		}
		c2, err := storageOf[T2](s.join.Select(1))
		if err != nil {
			return err
		}
		ents := a.entities.data[:n]
		d1, d2 := c1.data[:n], c2.data[:n]
		return s.chunks(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				fn(ents[i], &d1[i], &d2[i])
			}
		})
	})
}

// Raw calls fn once per archetype permutation with contiguous buffers.
func (s *Stream2[T1, T2]) Raw(fn func(entities []Entity, c1 []T1, c2 []T2)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T1](s.join.Select(0))
		if err != nil {
			return err
		}
		c2, err := storageOf[T2](s.join.Select(1))
		if err != nil {
			return err
		}
		fn(a.entities.data[:n], c1.data[:n], c2.data[:n])
		return nil
	})
}

// All enumerates rows without locking the World.
func (s *Stream2[T1, T2]) All() iter.Seq2[Entity, Refs2[T1, T2]] {
	return func(yield func(Entity, Refs2[T1, T2]) bool) {
		s.each(func(a *archetype, j *crossJoin) bool {
			c1 := mustStorage[T1](j.Select(0))
			c2 := mustStorage[T2](j.Select(1))
			version := a.version
			for row := 0; row < a.Count(); row++ {
				if !yield(a.entities.data[row], Refs2[T1, T2]{&c1.data[row], &c2.data[row]}) {
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

// Refs3 points at the 3 components of one Stream3 row.
type Refs3[T1 any, T2 any, T3 any] struct {
	C1 *T1
	C2 *T2
	C3 *T3
}

// Stream3 iterates the components T1, T2 and T3 of every entity a Query
// matches. Stream types with wildcard matches are cross-joined; T1
// varies fastest.
type Stream3[T1 any, T2 any, T3 any] struct {
	streamCore
}

// NewStream3 creates a Stream3 over q. match[i] selects the target of the
// i-th stream type; missing entries are plain.
func NewStream3[T1 any, T2 any, T3 any](q *Query, match ...Match) *Stream3[T1, T2, T3] {
	return &Stream3[T1, T2, T3]{
		streamCore: newStreamCore(q, match, RegisterType[T1](q.world.registry), RegisterType[T2](q.world.registry), RegisterType[T3](q.world.registry)),
	}
}

// For calls fn for every row while the World is locked.
func (s *Stream3[T1, T2, T3]) For(fn func(e Entity, c1 *T1, c2 *T2, c3 *T3)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T1](s.join.Select(0))
		if err != nil {
			return err
		}
		c2, err := storageOf[T2](s.join.Select(1))
		if err != nil {
			return err
		}
		c3, err := storageOf[T3](s.join.Select(2))
		if err != nil {
			return err
		}
		ents := a.entities.data[:n]
		d1, d2, d3 := c1.data[:n], c2.data[:n], c3.data[:n]
		for i := range ents {
			fn(ents[i], &d1[i], &d2[i], &d3[i])
		}
		return nil
	})
}

// Job is For split into chunks that run in parallel on the World's
// scheduler.
func (s *Stream3[T1, T2, T3]) Job(fn func(e Entity, c1 *T1, c2 *T2, c3 *T3)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T1](s.join.Select(0))
		if err != nil {
			return err
		}
		c2, err := storageOf[T2](s.join.Select(1))
		if err != nil {
			return err
		}
		c3, err := storageOf[T3](s.join.Select(2))
		if err != nil {
			return err
		}
		ents := a.entities.data[:n]
		d1, d2, d3 := c1.data[:n], c2.data[:n], c3.data[:n]
		return s.chunks(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				fn(ents[i], &d1[i], &d2[i], &d3[i])
			}
		})
	})
}

// Raw calls fn once per archetype permutation with contiguous buffers.
func (s *Stream3[T1, T2, T3]) Raw(fn func(entities []Entity, c1 []T1, c2 []T2, c3 []T3)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T1](s.join.Select(0))
		if err != nil {
			return err
		}
		c2, err := storageOf[T2](s.join.Select(1))
		if err != nil {
			return err
		}
		c3, err := storageOf[T3](s.join.Select(2))
		if err != nil {
			return err
		}
		fn(a.entities.data[:n], c1.data[:n], c2.data[:n], c3.data[:n])
		return nil
	})
}

// All enumerates rows without locking the World.
func (s *Stream3[T1, T2, T3]) All() iter.Seq2[Entity, Refs3[T1, T2, T3]] {
	return func(yield func(Entity, Refs3[T1, T2, T3]) bool) {
		s.each(func(a *archetype, j *crossJoin) bool {
			c1 := mustStorage[T1](j.Select(0))
			c2 := mustStorage[T2](j.Select(1))
			c3 := mustStorage[T3](j.Select(2))
			version := a.version
			for row := 0; row < a.Count(); row++ {
				if !yield(a.entities.data[row], Refs3[T1, T2, T3]{&c1.data[row], &c2.data[row], &c3.data[row]}) {
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

// Refs4 points at the 4 components of one Stream4 row.
type Refs4[T1 any, T2 any, T3 any, T4 any] struct {
	C1 *T1
	C2 *T2
	C3 *T3
	C4 *T4
}

// Stream4 iterates the components T1, T2, T3 and T4 of every entity a Query
// matches. Stream types with wildcard matches are cross-joined; T1
// varies fastest.
type Stream4[T1 any, T2 any, T3 any, T4 any] struct {
	streamCore
}

// NewStream4 creates a Stream4 over q. match[i] selects the target of the
// i-th stream type; missing entries are plain.
func NewStream4[T1 any, T2 any, T3 any, T4 any](q *Query, match ...Match) *Stream4[T1, T2, T3, T4] {
	return &Stream4[T1, T2, T3, T4]{
		streamCore: newStreamCore(q, match, RegisterType[T1](q.world.registry), RegisterType[T2](q.world.registry), RegisterType[T3](q.world.registry), RegisterType[T4](q.world.registry)),
	}
}

// For calls fn for every row while the World is locked.
func (s *Stream4[T1, T2, T3, T4]) For(fn func(e Entity, c1 *T1, c2 *T2, c3 *T3, c4 *T4)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T1](s.join.Select(0))
		if err != nil {
			return err
		}
		c2, err := storageOf[T2](s.join.Select(1))
		if err != nil {
			return err
		}
		c3, err := storageOf[T3](s.join.Select(2))
		if err != nil {
			return err
		}
		c4, err := storageOf[T4](s.join.Select(3))
		if err != nil {
			return err
		}
		ents := a.entities.data[:n]
		d1, d2, d3, d4 := c1.data[:n], c2.data[:n], c3.data[:n], c4.data[:n]
		for i := range ents {
			fn(ents[i], &d1[i], &d2[i], &d3[i], &d4[i])
		}
		return nil
	})
}

// Job is For split into chunks that run in parallel on the World's
// scheduler.
func (s *Stream4[T1, T2, T3, T4]) Job(fn func(e Entity, c1 *T1, c2 *T2, c3 *T3, c4 *T4)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T1](s.join.Select(0))
		if err != nil {
			return err
		}
		c2, err := storageOf[T2](s.join.Select(1))
		if err != nil {
			return err
		}
		c3, err := storageOf[T3](s.join.Select(2))
		if err != nil {
			return err
		}
		c4, err := storageOf[T4](s.join.Select(3))
		if err != nil {
			return err
		}
		ents := a.entities.data[:n]
		d1, d2, d3, d4 := c1.data[:n], c2.data[:n], c3.data[:n], c4.data[:n]
		return s.chunks(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				fn(ents[i], &d1[i], &d2[i], &d3[i], &d4[i])
			}
		})
	})
}

// Raw calls fn once per archetype permutation with contiguous buffers.
func (s *Stream4[T1, T2, T3, T4]) Raw(fn func(entities []Entity, c1 []T1, c2 []T2, c3 []T3, c4 []T4)) error {
	return s.run(func(a *archetype, n int) error {
		c1, err := storageOf[T1](s.join.Select(0))
		if err != nil {
			return err
		}
		c2, err := storageOf[T2](s.join.Select(1))
		if err != nil {
			return err
		}
		c3, err := storageOf[T3](s.join.Select(2))
		if err != nil {
			return err
		}
		c4, err := storageOf[T4](s.join.Select(3))
		if err != nil {
			return err
		}
		fn(a.entities.data[:n], c1.data[:n], c2.data[:n], c3.data[:n], c4.data[:n])
		return nil
	})
}

// All enumerates rows without locking the World.
func (s *Stream4[T1, T2, T3, T4]) All() iter.Seq2[Entity, Refs4[T1, T2, T3, T4]] {
	return func(yield func(Entity, Refs4[T1, T2, T3, T4]) bool) {
		s.each(func(a *archetype, j *crossJoin) bool {
			c1 := mustStorage[T1](j.Select(0))
			c2 := mustStorage[T2](j.Select(1))
			c3 := mustStorage[T3](j.Select(2))
			c4 := mustStorage[T4](j.Select(3))
			version := a.version
			for row := 0; row < a.Count(); row++ {
				if !yield(a.entities.data[row], Refs4[T1, T2, T3, T4]{&c1.data[row], &c2.data[row], &c3.data[row], &c4.data[row]}) {
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
