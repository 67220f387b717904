package seiretsu

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -run ^TestMaskMatches$ . -count 1
func TestMaskMatches(t *testing.T) {
	a := TypeExpression{TypeID: 1}
	b := TypeExpression{TypeID: 2}
	c := TypeExpression{TypeID: 3}

	tests := []struct {
		name string
		mask Mask
		sig  Signature
		want bool
	}{
		{"empty mask", Mask{}, NewSignature(a), true},
		{"has", Mask{has: []TypeExpression{a}}, NewSignature(a, b), true},
		{"has missing", Mask{has: []TypeExpression{a, c}}, NewSignature(a, b), false},
		{"not vetoes", Mask{has: []TypeExpression{a}, not: []TypeExpression{b}}, NewSignature(a, b), false},
		{"any one", Mask{any: []TypeExpression{b, c}}, NewSignature(a, c), true},
		{"any none", Mask{any: []TypeExpression{b, c}}, NewSignature(a), false},
		{"wildcard not", Mask{not: []TypeExpression{{TypeID: 1, Target: MatchTarget}}}, NewSignature(a), true},
		{"wildcard not hit", Mask{not: []TypeExpression{{TypeID: 1, Target: MatchAny}}}, NewSignature(a), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mask.Matches(tt.sig))
		})
	}
}

// go test -run ^TestQueryInterned$ . -count 1
func TestQueryInterned(t *testing.T) {
	w := NewWorld()
	q1 := w.Query(Comp[Int](w), Comp[Float](w)).Not(Comp[Tag](w)).Compile()
	q2 := w.Query().Not(Comp[Tag](w)).Has(Comp[Float](w), Comp[Int](w), Comp[Int](w)).Compile()
	q3 := w.Query(Comp[Int](w)).Compile()

	assert.Same(t, q1, q2)
	assert.NotSame(t, q1, q3)
	assert.Len(t, w.queries, 2)

	q1.Dispose()
	assert.Len(t, w.queries, 2, "still referenced by q2")
	q2.Dispose()
	assert.Len(t, w.queries, 1)

	q4 := w.Query(Comp[Float](w), Comp[Int](w)).Not(Comp[Tag](w)).Compile()
	assert.NotSame(t, q1, q4)
}

// go test -run ^TestQueryMasksDiffer$ . -count 1
func TestQueryMasksDiffer(t *testing.T) {
	w := NewWorld()
	has := w.Query(Comp[Int](w)).Compile()
	not := w.Query().Not(Comp[Int](w)).Compile()
	anyOf := w.Query().Any(Comp[Int](w)).Compile()
	assert.NotSame(t, has, not)
	assert.NotSame(t, has, anyOf)
	assert.NotSame(t, not, anyOf)
}

// go test -run ^TestQueryTracksNewArchetypes$ . -count 1
func TestQueryTracksNewArchetypes(t *testing.T) {
	w := NewWorld()
	q := w.Query(Comp[Position](w)).Not(Comp[Tag](w)).Compile()
	assert.Equal(t, 0, q.Archetypes())

	e1, e2, e3 := w.Spawn(), w.Spawn(), w.Spawn()
	require.NoError(t, AddComponent(w, e1, Position{}))
	require.NoError(t, AddComponent(w, e2, Position{}))
	require.NoError(t, AddComponent(w, e2, Velocity{}))
	require.NoError(t, AddComponent(w, e3, Position{}))
	require.NoError(t, AddComponent(w, e3, Tag{}))

	assert.Equal(t, 2, q.Count())
	assert.True(t, q.Contains(e1))
	assert.True(t, q.Contains(e2))
	assert.False(t, q.Contains(e3))

	for _, a := range w.archetypes {
		if a == nil {
			continue
		}
		assert.Equal(t, q.mask.Matches(a.signature), q.members.Contains(uint32(a.id)), a.signature.String())
	}
}

// go test -run ^TestQueryAnyList$ . -count 1
func TestQueryAnyList(t *testing.T) {
	w := NewWorld()
	e1, e2, e3 := w.Spawn(), w.Spawn(), w.Spawn()
	require.NoError(t, AddComponent(w, e1, Int{}))
	require.NoError(t, AddComponent(w, e2, Float{}))
	require.NoError(t, AddComponent(w, e3, Tag{}))

	q := w.Query().Any(Comp[Int](w), Comp[Float](w)).Compile()
	got := slices.Collect(q.All())
	assert.ElementsMatch(t, []Entity{e1, e2}, got)
}

// go test -run ^TestQueryFilter$ . -count 1
func TestQueryFilter(t *testing.T) {
	w := NewWorld()
	bank, shop := w.Spawn(), w.Spawn()
	e1, e2, e3 := w.Spawn(), w.Spawn(), w.Spawn()
	require.NoError(t, AddComponent(w, e1, Owes{Amount: 1}))
	require.NoError(t, AddRelation(w, e2, bank, Owes{Amount: 2}))
	require.NoError(t, AddRelation(w, e3, bank, Owes{Amount: 3}))
	require.NoError(t, AddRelation(w, e3, shop, Owes{Amount: 4}))

	q := w.Query(Comp[Owes](w, MatchAny)).Compile()
	assert.Equal(t, 3, q.Count())
	stream := NewStream[Owes](q, MatchAny)
	assert.Equal(t, 4, stream.Count())

	require.NoError(t, q.Filter(Comp[Owes](w)))
	assert.Equal(t, 1, q.Count())
	assert.True(t, q.Contains(e1))
	assert.False(t, q.Contains(e2))

	require.NoError(t, q.Filter(Comp[Owes](w, RelationTo(bank))))
	assert.Equal(t, 2, q.Count())
	var amounts []int
	require.NoError(t, stream.For(func(_ Entity, o *Owes) { amounts = append(amounts, o.Amount) }))
	assert.ElementsMatch(t, []int{2, 3}, amounts, "filter narrows the wildcard column as well")

	assert.ErrorIs(t, q.Filter(Comp[Int](w)), ErrMissingComponent)

	q.ClearFilters()
	assert.Equal(t, 3, q.Count())
	assert.Equal(t, 4, stream.Count())
}

// go test -run ^TestQueryAllPanicsOnModification$ . -count 1
func TestQueryAllPanicsOnModification(t *testing.T) {
	w := NewWorld()
	for range 3 {
		require.NoError(t, AddComponent(w, w.Spawn(), Int{}))
	}
	q := w.Query(Comp[Int](w)).Compile()

	assert.PanicsWithError(t, "seiretsu: archetype modified during enumeration: archetype 1 {T1}", func() {
		for e := range q.All() {
			_ = RemoveComponent[Int](w, e)
		}
	})
}

// go test -run ^TestQueryAllWhileLocked$ . -count 1
func TestQueryAllWhileLocked(t *testing.T) {
	w := NewWorld()
	for range 3 {
		require.NoError(t, AddComponent(w, w.Spawn(), Int{}))
	}
	q := w.Query(Comp[Int](w)).Compile()

	w.Lock()
	n := 0
	for e := range q.All() {
		require.NoError(t, RemoveComponent[Int](w, e))
		n++
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, q.Count())
	require.NoError(t, w.Unlock())
	assert.Equal(t, 0, q.Count())
}

// go test -run ^TestQueryDespawn$ . -count 1
func TestQueryDespawn(t *testing.T) {
	w := NewWorld()
	creditor := w.Spawn()
	require.NoError(t, AddComponent(w, creditor, Tag{}))
	ents, err := With(w.Entity(), Int{}).Spawn(10)
	require.NoError(t, err)
	debtor := w.Spawn()
	require.NoError(t, AddRelation(w, debtor, creditor, Owes{Amount: 1}))

	var despawned int
	Subscribe(w.Events(), func(EntityDespawned) { despawned++ })

	q := w.Query(Comp[Int](w)).Compile()
	require.NoError(t, q.Despawn())
	assert.Equal(t, 0, q.Count())
	assert.Equal(t, 10, despawned)
	for _, e := range ents {
		assert.False(t, w.IsAlive(e))
	}

	tags := w.Query(Comp[Tag](w)).Compile()
	require.NoError(t, tags.Despawn())
	assert.True(t, w.IsAlive(debtor))
	assert.False(t, HasComponent[Owes](w, debtor, MatchAny))
	assert.Equal(t, 1, w.Count())
	assert.Equal(t, 11, despawned)
}

// go test -run ^TestQueryTruncate$ . -count 1
func TestQueryTruncate(t *testing.T) {
	w := NewWorld()
	ents, err := With(w.Entity(), Int{}).Spawn(10)
	require.NoError(t, err)
	q := w.Query(Comp[Int](w)).Compile()

	assert.ErrorIs(t, q.Truncate(-1), ErrInvalidRange)
	require.NoError(t, q.Truncate(4))
	assert.Equal(t, 4, q.Count())
	for i, e := range ents {
		assert.Equal(t, i < 4, w.IsAlive(e))
	}
	require.NoError(t, q.Truncate(100))
	assert.Equal(t, 4, q.Count())
}

// go test -run ^TestBlit$ . -count 1
func TestBlit(t *testing.T) {
	w := NewWorld()
	_, err := With(With(w.Entity(), Int{}), Float{}).Spawn(5)
	require.NoError(t, err)
	_, err = With(w.Entity(), Int{}).Spawn(5)
	require.NoError(t, err)

	q := w.Query(Comp[Int](w)).Compile()
	require.NoError(t, Blit(q, Int{9}))
	n := 0
	for e := range q.All() {
		v, err := GetComponent[Int](w, e)
		require.NoError(t, err)
		assert.Equal(t, 9, v.V)
		n++
	}
	assert.Equal(t, 10, n)
}

// go test -run ^TestQueryAllKeepsSnapshotAcrossRefilter$ . -count 1
func TestQueryAllKeepsSnapshotAcrossRefilter(t *testing.T) {
	w := NewWorld()
	a, b := w.Spawn(), w.Spawn()
	x, err := With(w.Entity(), Owes{1}, RelationTo(a)).Spawn(1)
	require.NoError(t, err)
	_, err = With(w.Entity(), Owes{2}, RelationTo(b)).Spawn(1)
	require.NoError(t, err)
	z, err := With(With(w.Entity(), Owes{3}, RelationTo(a)), Int{}).Spawn(1)
	require.NoError(t, err)
	_, err = With(With(w.Entity(), Owes{4}, RelationTo(b)), Float{}).Spawn(1)
	require.NoError(t, err)

	q := w.Query(Comp[Owes](w, MatchEntity)).Compile()
	require.NoError(t, q.Filter(Comp[Owes](w, RelationTo(a))))

	var got []Entity
	for e := range q.All() {
		got = append(got, e)
		if len(got) == 1 {
			require.NoError(t, q.Filter(Comp[Owes](w, RelationTo(b))))
			assert.Equal(t, 2, q.Count())
		}
	}
	assert.Equal(t, []Entity{x[0], z[0]}, got)
}
