package seiretsu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -run ^TestLockDefersStructuralChanges$ . -count 1
func TestLockDefersStructuralChanges(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	require.NoError(t, AddComponent(w, e, Int{1}))

	w.Lock()
	assert.Equal(t, Deferred, w.Mode())
	require.NoError(t, AddComponent(w, e, Float{2}))
	require.NoError(t, RemoveComponent[Int](w, e))
	assert.True(t, HasComponent[Int](w, e))
	assert.False(t, HasComponent[Float](w, e))

	require.NoError(t, w.Unlock())
	assert.Equal(t, Immediate, w.Mode())
	assert.False(t, HasComponent[Int](w, e))
	f, err := GetComponent[Float](w, e)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f.V)
}

// go test -run ^TestLockNests$ . -count 1
func TestLockNests(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()

	w.Lock()
	w.Lock()
	require.NoError(t, AddComponent(w, e, Int{1}))
	require.NoError(t, w.Unlock())
	assert.Equal(t, Deferred, w.Mode())
	assert.False(t, HasComponent[Int](w, e))

	require.NoError(t, w.Unlock())
	assert.True(t, HasComponent[Int](w, e))
	assert.ErrorIs(t, w.Unlock(), ErrModeConflict)
}

// go test -run ^TestDeferredOrder$ . -count 1
func TestDeferredOrder(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()

	w.Lock()
	require.NoError(t, AddComponent(w, e, Int{1}))
	require.NoError(t, RemoveComponent[Int](w, e))
	require.NoError(t, AddComponent(w, e, Int{2}))
	require.NoError(t, w.Unlock())

	v, err := GetComponent[Int](w, e)
	require.NoError(t, err)
	assert.Equal(t, 2, v.V)
}

// go test -run ^TestDeferredFailuresJoined$ . -count 1
func TestDeferredFailuresJoined(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()

	w.Lock()
	require.NoError(t, AddComponent(w, e, Int{1}))
	require.NoError(t, AddComponent(w, e, Int{2}), "duplicate is only detectable at catch-up")
	require.NoError(t, RemoveComponent[Float](w, e))
	err := w.Unlock()
	assert.ErrorIs(t, err, ErrDuplicateComponent)
	assert.ErrorIs(t, err, ErrMissingComponent)

	v, gerr := GetComponent[Int](w, e)
	require.NoError(t, gerr)
	assert.Equal(t, 1, v.V)
}

// go test -run ^TestSpawnWhileLocked$ . -count 1
func TestSpawnWhileLocked(t *testing.T) {
	w := NewWorld()
	w.Lock()
	e := w.Spawn()
	assert.True(t, w.IsAlive(e))
	assert.Equal(t, 0, w.root.Count())
	require.NoError(t, AddComponent(w, e, Int{4}))
	require.NoError(t, w.Unlock())

	assert.Equal(t, 0, w.root.Count())
	v, err := GetComponent[Int](w, e)
	require.NoError(t, err)
	assert.Equal(t, 4, v.V)
}

// go test -run ^TestDespawnWhileLocked$ . -count 1
func TestDespawnWhileLocked(t *testing.T) {
	w := NewWorld()
	target := w.Spawn()
	holder := w.Spawn()
	require.NoError(t, AddRelation(w, holder, target, Owes{1}))

	w.Lock()
	require.NoError(t, w.Despawn(target))
	assert.True(t, w.IsAlive(target))
	assert.True(t, HasComponent[Owes](w, holder, RelationTo(target)))
	require.NoError(t, w.Unlock())

	assert.False(t, w.IsAlive(target))
	assert.False(t, HasComponent[Owes](w, holder, MatchAny))
}

// go test -run ^TestGCWhileLocked$ . -count 1
func TestGCWhileLocked(t *testing.T) {
	w := NewWorld()
	w.Lock()
	assert.ErrorIs(t, w.GC(), ErrModeConflict)
	require.NoError(t, w.Unlock())
	assert.NoError(t, w.GC())
}

// go test -run ^TestLockDuringCatchUp$ . -count 1
func TestLockDuringCatchUp(t *testing.T) {
	w := NewWorld()
	e := w.Spawn()
	f := w.Spawn()

	var relocked bool
	Subscribe(w.Events(), func(ev ArchetypeCreated) {
		if relocked || w.Mode() != CatchUp {
			return
		}
		relocked = true
		w.Lock()
	})

	w.Lock()
	require.NoError(t, AddComponent(w, e, Int{1}))
	require.NoError(t, AddComponent(w, f, Float{1}))
	require.NoError(t, w.Unlock())

	require.True(t, relocked)
	assert.Equal(t, Deferred, w.Mode())
	assert.True(t, HasComponent[Int](w, e))
	assert.False(t, HasComponent[Float](w, f), "drain stops at the new lock")

	require.NoError(t, w.Unlock())
	assert.True(t, HasComponent[Float](w, f))
	assert.Equal(t, Immediate, w.Mode())
}

// go test -race -run ^TestCompactWhileLocked$ . -count 1
func TestCompactWhileLocked(t *testing.T) {
	w := NewWorld()
	_, err := With(w.Entity(), Int{}).Spawn(10)
	require.NoError(t, err)
	s := NewStream[Int](w.Query(Comp[Int](w)).Compile())

	compacted := false
	require.NoError(t, s.For(func(_ Entity, c *Int) {
		if !compacted {
			assert.ErrorIs(t, w.Compact(), ErrModeConflict)
			compacted = true
		}
		c.V = 99
	}))
	require.True(t, compacted)
	n := 0
	for _, c := range s.All() {
		assert.Equal(t, 99, c.V)
		n++
	}
	assert.Equal(t, 10, n)

	w.Lock()
	assert.ErrorIs(t, w.Compact(), ErrModeConflict)
	require.NoError(t, w.Unlock())
	assert.NoError(t, w.Compact())
}
