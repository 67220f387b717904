package seiretsu

import (
	"iter"
	"slices"
	"strings"
)

// Signature is an immutable, order-independent set of type expressions. It
// uniquely names an archetype. Elements are kept sorted so that every
// expression sharing a TypeID is contiguous.
type Signature struct {
	exprs []TypeExpression
	hash  uint64
}

// NewSignature builds a Signature from exprs in any order; duplicates are
// collapsed.
func NewSignature(exprs ...TypeExpression) Signature {
	if len(exprs) == 0 {
		return Signature{}
	}
	s := slices.Clone(exprs)
	slices.SortFunc(s, TypeExpression.Compare)
	s = slices.Compact(s)
	return Signature{exprs: s, hash: hashExprs(s)}
}

// hashExprs sums per-element hashes so the result does not depend on order.
func hashExprs(exprs []TypeExpression) uint64 {
	var h uint64
	for _, e := range exprs {
		h += e.hash()
	}
	return h
}

// Len returns the number of expressions in s.
func (s Signature) Len() int { return len(s.exprs) }

// At returns the i-th expression in sort order.
func (s Signature) At(i int) TypeExpression { return s.exprs[i] }

// Hash returns the commutative hash of the element set.
func (s Signature) Hash() uint64 { return s.hash }

// All iterates the expressions in sort order.
func (s Signature) All() iter.Seq[TypeExpression] {
	return slices.Values(s.exprs)
}

// Exprs returns a copy of the expressions in sort order.
func (s Signature) Exprs() []TypeExpression {
	return slices.Clone(s.exprs)
}

// IndexOf returns the position of expr in s, or -1.
func (s Signature) IndexOf(expr TypeExpression) int {
	i, ok := slices.BinarySearchFunc(s.exprs, expr, TypeExpression.Compare)
	if !ok {
		return -1
	}
	return i
}

// Has reports whether s contains expr exactly.
func (s Signature) Has(expr TypeExpression) bool {
	return s.IndexOf(expr) >= 0
}

// typeRange returns the half-open range of positions holding typeID.
func (s Signature) typeRange(typeID uint16) (int, int) {
	lo, _ := slices.BinarySearchFunc(s.exprs, typeID, func(e TypeExpression, id uint16) int {
		return int(e.TypeID) - int(id)
	})
	hi := lo
	for hi < len(s.exprs) && s.exprs[hi].TypeID == typeID {
		hi++
	}
	return lo, hi
}

// Matches reports whether any expression in s is matched by expr (taken as
// the query side, so it may be a wildcard).
func (s Signature) Matches(expr TypeExpression) bool {
	lo, hi := s.typeRange(expr.TypeID)
	for i := lo; i < hi; i++ {
		if expr.Matches(s.exprs[i]) {
			return true
		}
	}
	return false
}

// MatchesAll returns the expressions of s matched by expr.
func (s Signature) MatchesAll(expr TypeExpression) []TypeExpression {
	lo, hi := s.typeRange(expr.TypeID)
	var out []TypeExpression
	for i := lo; i < hi; i++ {
		if expr.Matches(s.exprs[i]) {
			out = append(out, s.exprs[i])
		}
	}
	return out
}

// Add returns s ∪ {expr}.
func (s Signature) Add(expr TypeExpression) Signature {
	i, ok := slices.BinarySearchFunc(s.exprs, expr, TypeExpression.Compare)
	if ok {
		return s
	}
	out := make([]TypeExpression, 0, len(s.exprs)+1)
	out = append(out, s.exprs[:i]...)
	out = append(out, expr)
	out = append(out, s.exprs[i:]...)
	return Signature{exprs: out, hash: s.hash + expr.hash()}
}

// Remove returns s \ {expr}.
func (s Signature) Remove(expr TypeExpression) Signature {
	i := s.IndexOf(expr)
	if i < 0 {
		return s
	}
	out := make([]TypeExpression, 0, len(s.exprs)-1)
	out = append(out, s.exprs[:i]...)
	out = append(out, s.exprs[i+1:]...)
	return Signature{exprs: out, hash: s.hash - expr.hash()}
}

// Union returns s ∪ o.
func (s Signature) Union(o Signature) Signature {
	if len(o.exprs) == 0 {
		return s
	}
	out := make([]TypeExpression, 0, len(s.exprs)+len(o.exprs))
	out = append(out, s.exprs...)
	out = append(out, o.exprs...)
	slices.SortFunc(out, TypeExpression.Compare)
	out = slices.Compact(out)
	return Signature{exprs: out, hash: hashExprs(out)}
}

// Except returns s \ o.
func (s Signature) Except(o Signature) Signature {
	if len(o.exprs) == 0 {
		return s
	}
	out := make([]TypeExpression, 0, len(s.exprs))
	h := s.hash
	for _, e := range s.exprs {
		if o.Has(e) {
			h -= e.hash()
			continue
		}
		out = append(out, e)
	}
	return Signature{exprs: out, hash: h}
}

// Equal reports whether s and o hold the same element set.
func (s Signature) Equal(o Signature) bool {
	return s.hash == o.hash && slices.Equal(s.exprs, o.exprs)
}

func (s Signature) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, e := range s.exprs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteByte('}')
	return b.String()
}
