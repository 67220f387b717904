package seiretsu

import (
	"fmt"
	"reflect"
)

const minStorageCapacity = 16

// column is the type-erased view of a Storage used by archetypes, the
// deferred queue and batches. Every method with a column or any argument
// expects the same element type as the receiver.
type column interface {
	Len() int
	Cap() int
	Type() reflect.Type
	appendZero(n int)
	appendFrom(src column, row int)
	appendRange(src column, start, n int)
	swapRemove(row int)
	truncate(n int)
	resize(capacity int) error
	compact()
	get(row int) any
	set(row int, v any) error
	fill(start, n int, v any) error
}

// Storage is a growable, densely packed column of one component type. Rows
// [0, Len) are occupied; rows past Len are always zero so that freshly
// appended rows need no initialization.
type Storage[T any] struct {
	data  []T // len(data) is the capacity
	count int
}

// NewStorage creates a Storage with room for capacity rows.
func NewStorage[T any](capacity int) *Storage[T] {
	return &Storage[T]{data: make([]T, max(capacity, 0))}
}

// Len returns the number of occupied rows.
func (s *Storage[T]) Len() int { return s.count }

// Cap returns the number of rows that fit without growing.
func (s *Storage[T]) Cap() int { return len(s.data) }

// Type returns the element type.
func (s *Storage[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

// Span returns the occupied rows. The slice aliases the storage and is
// invalidated by any structural change.
func (s *Storage[T]) Span() []T { return s.data[:s.count] }

// At returns a pointer to row i.
func (s *Storage[T]) At(i int) *T { return &s.data[i] }

// grow makes room for n more rows, doubling the capacity as needed.
func (s *Storage[T]) grow(n int) {
	need := s.count + n
	if need <= len(s.data) {
		return
	}
	c := max(len(s.data)*2, need, minStorageCapacity)
	data := make([]T, c)
	copy(data, s.data[:s.count])
	s.data = data
}

// Append adds v as the last row.
func (s *Storage[T]) Append(v T) {
	s.grow(1)
	s.data[s.count] = v
	s.count++
}

// AppendN adds n copies of v.
func (s *Storage[T]) AppendN(v T, n int) {
	s.grow(n)
	for i := s.count; i < s.count+n; i++ {
		s.data[i] = v
	}
	s.count += n
}

// Delete removes row i in O(1) by moving the last row into its place.
func (s *Storage[T]) Delete(i int) {
	last := s.count - 1
	if i < last {
		s.data[i] = s.data[last]
	}
	var zero T
	s.data[last] = zero
	s.count--
}

// Blit writes v over every occupied row.
func (s *Storage[T]) Blit(v T) {
	for i := range s.data[:s.count] {
		s.data[i] = v
	}
}

// Migrate moves row i of s to the end of dst and removes it from s.
func (s *Storage[T]) Migrate(dst *Storage[T], i int) {
	dst.Append(s.data[i])
	s.Delete(i)
}

// Resize changes the capacity. Shrinking below Len is an error.
func (s *Storage[T]) Resize(capacity int) error {
	if capacity < s.count {
		return fmt.Errorf("%w: capacity %d below count %d", ErrInvalidRange, capacity, s.count)
	}
	if capacity == len(s.data) {
		return nil
	}
	data := make([]T, capacity)
	copy(data, s.data[:s.count])
	s.data = data
	return nil
}

// Compact shrinks the capacity to the occupied rows.
func (s *Storage[T]) Compact() {
	_ = s.Resize(s.count)
}

// Clear drops every row, keeping the capacity.
func (s *Storage[T]) Clear() {
	s.truncate(0)
}

func (s *Storage[T]) appendZero(n int) {
	s.grow(n)
	s.count += n
}

func (s *Storage[T]) appendFrom(src column, row int) {
	s.Append(src.(*Storage[T]).data[row])
}

func (s *Storage[T]) appendRange(src column, start, n int) {
	from := src.(*Storage[T]).data[start : start+n]
	s.grow(n)
	copy(s.data[s.count:], from)
	s.count += n
}

func (s *Storage[T]) swapRemove(row int) { s.Delete(row) }

func (s *Storage[T]) truncate(n int) {
	if n >= s.count {
		return
	}
	clear(s.data[n:s.count])
	s.count = n
}

func (s *Storage[T]) resize(capacity int) error { return s.Resize(capacity) }

func (s *Storage[T]) compact() { s.Compact() }

func (s *Storage[T]) get(row int) any { return s.data[row] }

func (s *Storage[T]) set(row int, v any) error {
	t, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: %T into column of %s", ErrTypeMismatch, v, s.Type())
	}
	s.data[row] = t
	return nil
}

func (s *Storage[T]) fill(start, n int, v any) error {
	t, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: %T into column of %s", ErrTypeMismatch, v, s.Type())
	}
	rows := s.data[start : start+n]
	for i := range rows {
		rows[i] = t
	}
	return nil
}

// storageOf narrows a column to its typed Storage.
func storageOf[T any](c column) (*Storage[T], error) {
	s, ok := c.(*Storage[T])
	if !ok {
		return nil, fmt.Errorf("%w: want %s, column holds %s", ErrTypeMismatch, reflect.TypeFor[T](), c.Type())
	}
	return s, nil
}
