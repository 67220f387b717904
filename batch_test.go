package seiretsu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -run ^TestBatchAddStrict$ . -count 1
func TestBatchAddStrict(t *testing.T) {
	w := NewWorld()
	ents, err := With(w.Entity(), Int{3}).Spawn(100)
	require.NoError(t, err)

	q := w.Query(Comp[Int](w)).Not(Comp[Float](w)).Compile()
	require.NoError(t, q.Batch(AddStrict, RemoveStrict).Add(Comp[Float](w), Float{0.5}).Submit())

	assert.Equal(t, 0, q.Count())
	for _, e := range ents {
		f, err := GetComponent[Float](w, e)
		require.NoError(t, err)
		assert.Equal(t, 0.5, f.V)
		i, err := GetComponent[Int](w, e)
		require.NoError(t, err)
		assert.Equal(t, 3, i.V)
	}
}

// go test -run ^TestBatchConflicts$ . -count 1
func TestBatchConflicts(t *testing.T) {
	w := NewWorld()
	q := w.Query(Comp[Int](w)).Compile()

	err := q.Batch(AddStrict, RemoveStrict).Add(Comp[Float](w), Float{}).Submit()
	assert.ErrorIs(t, err, ErrBatchConflict, "Float is not proven absent")

	err = q.Batch(AddSkip, RemoveStrict).Remove(Comp[Float](w)).Submit()
	assert.ErrorIs(t, err, ErrBatchConflict, "Float is not proven present")

	err = q.Batch(AddSkip, RemoveAllow).Add(Comp[Float](w), Float{}).Add(Comp[Float](w), Float{}).Submit()
	assert.ErrorIs(t, err, ErrBatchConflict)

	err = q.Batch(AddSkip, RemoveAllow).Add(Comp[Float](w), Float{}).Remove(Comp[Float](w, MatchAny)).Submit()
	assert.ErrorIs(t, err, ErrBatchConflict)

	err = q.Batch(AddSkip, RemoveAllow).Add(Comp[Float](w, MatchAny), Float{}).Submit()
	assert.ErrorIs(t, err, ErrInvalidExpression)

	err = q.Batch(AddSkip, RemoveAllow).Add(Comp[Float](w), 1.0).Submit()
	assert.ErrorIs(t, err, ErrTypeMismatch)

	b := q.Batch(AddSkip, RemoveAllow)
	require.NoError(t, b.Submit())
	assert.ErrorIs(t, b.Submit(), ErrBatchConflict)
}

// go test -run ^TestBatchRemoveWildcard$ . -count 1
func TestBatchRemoveWildcard(t *testing.T) {
	w := NewWorld()
	a, b := w.Spawn(), w.Spawn()
	holders := []Entity{w.Spawn(), w.Spawn()}
	for _, h := range holders {
		require.NoError(t, AddComponent(w, h, Int{1}))
		require.NoError(t, AddRelation(w, h, a, Owes{1}))
		require.NoError(t, AddRelation(w, h, b, Owes{2}))
	}
	require.NoError(t, AddComponent(w, holders[1], Owes{3}))

	q := w.Query(Comp[Owes](w, MatchEntity)).Compile()
	require.NoError(t, q.Batch(AddStrict, RemoveStrict).Remove(Comp[Owes](w, MatchEntity)).Submit())

	assert.Equal(t, 0, q.Count())
	for _, h := range holders {
		assert.False(t, HasComponent[Owes](w, h, MatchEntity))
		assert.True(t, HasComponent[Int](w, h))
	}
	o, err := GetComponent[Owes](w, holders[1])
	require.NoError(t, err)
	assert.Equal(t, 3, o.Amount)
}

// go test -run ^TestBatchSkipAndReplace$ . -count 1
func TestBatchSkipAndReplace(t *testing.T) {
	w := NewWorld()
	plain, err := With(w.Entity(), Int{1}).Spawn(3)
	require.NoError(t, err)
	both, err := With(With(w.Entity(), Int{1}), Float{7}).Spawn(3)
	require.NoError(t, err)

	q := w.Query(Comp[Int](w)).Compile()
	require.NoError(t, q.Batch(AddSkip, RemoveAllow).Add(Comp[Float](w), Float{1}).Submit())
	for _, e := range plain {
		f, _ := GetComponent[Float](w, e)
		assert.Equal(t, 1.0, f.V)
	}
	for _, e := range both {
		f, _ := GetComponent[Float](w, e)
		assert.Equal(t, 7.0, f.V, "skip keeps the existing value")
	}

	require.NoError(t, q.Batch(AddReplace, RemoveAllow).Add(Comp[Float](w), Float{2}).Submit())
	for _, e := range append(plain, both...) {
		f, _ := GetComponent[Float](w, e)
		assert.Equal(t, 2.0, f.V)
	}
}

// go test -run ^TestBatchDeferred$ . -count 1
func TestBatchDeferred(t *testing.T) {
	w := NewWorld()
	_, err := With(w.Entity(), Int{1}).Spawn(5)
	require.NoError(t, err)
	q := w.Query(Comp[Int](w)).Not(Comp[Tag](w)).Compile()

	w.Lock()
	require.NoError(t, q.Batch(AddStrict, RemoveStrict).Add(Comp[Tag](w), Tag{}).Submit())
	assert.Equal(t, 5, q.Count())
	require.NoError(t, w.Unlock())
	assert.Equal(t, 0, q.Count())

	tagged := w.Query(Comp[Tag](w)).Compile()
	assert.Equal(t, 5, tagged.Count())
}

// go test -run ^TestBatchDeadRelationTarget$ . -count 1
func TestBatchDeadRelationTarget(t *testing.T) {
	w := NewWorld()
	_, err := With(w.Entity(), Int{1}).Spawn(2)
	require.NoError(t, err)
	gone := w.Spawn()
	require.NoError(t, w.Despawn(gone))

	q := w.Query(Comp[Int](w)).Compile()
	err = q.Batch(AddSkip, RemoveAllow).Add(Comp[Owes](w, RelationTo(gone)), Owes{}).Submit()
	assert.ErrorIs(t, err, ErrDeadEntity)
}

// go test -run ^TestBatchFrozenAfterSubmit$ . -count 1
func TestBatchFrozenAfterSubmit(t *testing.T) {
	w := NewWorld()
	ents, err := With(w.Entity(), Int{1}).Spawn(3)
	require.NoError(t, err)
	q := w.Query(Comp[Int](w)).Not(Comp[Tag](w)).Compile()

	w.Lock()
	b := q.Batch(AddSkip, RemoveAllow).Add(Comp[Tag](w), Tag{})
	require.NoError(t, b.Submit())
	b.Add(Comp[Float](w), Float{1}).Remove(Comp[Int](w))
	assert.ErrorIs(t, b.Err(), ErrBatchConflict)
	assert.ErrorContains(t, b.Err(), "after submit")
	require.NoError(t, w.Unlock())

	for _, e := range ents {
		assert.True(t, HasComponent[Tag](w, e))
		assert.True(t, HasComponent[Int](w, e))
		assert.False(t, HasComponent[Float](w, e))
	}
	assert.ErrorIs(t, b.Submit(), ErrBatchConflict)
}
