package seiretsu

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExprs() []TypeExpression {
	return []TypeExpression{
		{TypeID: 4},
		{TypeID: 1},
		{TypeID: 2, Target: RelationTo(Entity{Index: 3, Generation: 1})},
		{TypeID: 2, Target: RelationTo(Entity{Index: 1, Generation: 2})},
		{TypeID: 2},
		{TypeID: 3, Target: linkMatch(1)},
	}
}

// go test -run ^TestSignatureOrderIndependent$ . -count 1
func TestSignatureOrderIndependent(t *testing.T) {
	exprs := sampleExprs()
	base := NewSignature(exprs...)
	rng := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		shuffled := slices.Clone(exprs)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		s := NewSignature(shuffled...)
		assert.True(t, base.Equal(s))
		assert.Equal(t, base.Hash(), s.Hash())
	}

	diff := NewSignature(exprs[:5]...)
	assert.False(t, base.Equal(diff))
	assert.NotEqual(t, base.Hash(), diff.Hash())
}

// go test -run ^TestSignatureDuplicatesCollapse$ . -count 1
func TestSignatureDuplicatesCollapse(t *testing.T) {
	a := TypeExpression{TypeID: 1}
	s := NewSignature(a, a, a)
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Equal(NewSignature(a)))
}

// go test -run ^TestSignatureGroupsTypes$ . -count 1
func TestSignatureGroupsTypes(t *testing.T) {
	s := NewSignature(sampleExprs()...)
	for i := 1; i < s.Len(); i++ {
		assert.LessOrEqual(t, s.At(i-1).TypeID, s.At(i).TypeID)
	}
	lo, hi := s.typeRange(2)
	assert.Equal(t, 3, hi-lo)
	for _, e := range s.exprs[lo:hi] {
		assert.Equal(t, uint16(2), e.TypeID)
	}
	lo, hi = s.typeRange(9)
	assert.Equal(t, lo, hi)
}

// go test -run ^TestSignatureAddRemove$ . -count 1
func TestSignatureAddRemove(t *testing.T) {
	s := NewSignature(sampleExprs()...)
	extra := TypeExpression{TypeID: 7}

	added := s.Add(extra)
	require.True(t, added.Has(extra))
	assert.True(t, added.Equal(NewSignature(append(sampleExprs(), extra)...)))
	assert.Equal(t, NewSignature(append(sampleExprs(), extra)...).Hash(), added.Hash())

	removed := added.Remove(extra)
	assert.True(t, removed.Equal(s))
	assert.Equal(t, s.Hash(), removed.Hash())

	assert.True(t, s.Add(s.At(0)).Equal(s))
	assert.True(t, s.Remove(extra).Equal(s))
}

// go test -run ^TestSignatureSetOps$ . -count 1
func TestSignatureSetOps(t *testing.T) {
	a := TypeExpression{TypeID: 1}
	b := TypeExpression{TypeID: 2}
	c := TypeExpression{TypeID: 3}

	u := NewSignature(a, b).Union(NewSignature(b, c))
	assert.True(t, u.Equal(NewSignature(a, b, c)))

	x := u.Except(NewSignature(b))
	assert.True(t, x.Equal(NewSignature(a, c)))
	assert.Equal(t, NewSignature(c, a).Hash(), x.Hash())
}

// go test -run ^TestSignatureWildcardMatch$ . -count 1
func TestSignatureWildcardMatch(t *testing.T) {
	s := NewSignature(sampleExprs()...)
	assert.True(t, s.Matches(TypeExpression{TypeID: 2, Target: MatchEntity}))
	assert.Len(t, s.MatchesAll(TypeExpression{TypeID: 2, Target: MatchEntity}), 2)
	assert.Len(t, s.MatchesAll(TypeExpression{TypeID: 2, Target: MatchAny}), 3)
	assert.Len(t, s.MatchesAll(TypeExpression{TypeID: 2}), 1)
	assert.True(t, s.Matches(TypeExpression{TypeID: 3, Target: MatchObject}))
	assert.False(t, s.Matches(TypeExpression{TypeID: 3}))
	assert.False(t, s.Matches(TypeExpression{TypeID: 4, Target: MatchTarget}))
}
