package seiretsu

import (
	"slices"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
)

// Mask is the Has/Not/Any predicate a Query is compiled from.
type Mask struct {
	has []TypeExpression // all required
	not []TypeExpression // any is a veto
	any []TypeExpression // at least one required, unless empty
}

var maskPool = sync.Pool{
	New: func() any { return new(Mask) },
}

func acquireMask() *Mask {
	return maskPool.Get().(*Mask)
}

func releaseMask(m *Mask) {
	m.reset()
	maskPool.Put(m)
}

func (m *Mask) reset() {
	m.has = m.has[:0]
	m.not = m.not[:0]
	m.any = m.any[:0]
}

// Has returns a copy of the required expressions.
func (m *Mask) Has() []TypeExpression { return slices.Clone(m.has) }

// Not returns a copy of the forbidden expressions.
func (m *Mask) Not() []TypeExpression { return slices.Clone(m.not) }

// Any returns a copy of the at-least-one-of expressions.
func (m *Mask) Any() []TypeExpression { return slices.Clone(m.any) }

// Matches reports whether an archetype with signature sig satisfies m. Not
// is tested first and vetoes everything else.
func (m *Mask) Matches(sig Signature) bool {
	for _, e := range m.not {
		if sig.Matches(e) {
			return false
		}
	}
	for _, e := range m.has {
		if !sig.Matches(e) {
			return false
		}
	}
	if len(m.any) == 0 {
		return true
	}
	for _, e := range m.any {
		if sig.Matches(e) {
			return true
		}
	}
	return false
}

// normalize sorts and de-duplicates every list so that equivalent masks
// compare and hash equal.
func (m *Mask) normalize() {
	norm := func(s []TypeExpression) []TypeExpression {
		slices.SortFunc(s, TypeExpression.Compare)
		return slices.Compact(s)
	}
	m.has = norm(m.has)
	m.not = norm(m.not)
	m.any = norm(m.any)
}

// key hashes a normalized mask. The list lengths are mixed in so that
// moving an expression between lists changes the key.
func (m *Mask) key() uint64 {
	h := xxh3.New()
	buf := make([]byte, 0, 64)
	for _, list := range [...][]TypeExpression{m.has, m.not, m.any} {
		buf = append(buf[:0], byte(len(list)), byte(len(list)>>8))
		for _, e := range list {
			buf = e.appendBytes(buf)
		}
		_, _ = h.Write(buf)
	}
	return h.Sum64()
}

func (m *Mask) equal(o *Mask) bool {
	return slices.Equal(m.has, o.has) && slices.Equal(m.not, o.not) && slices.Equal(m.any, o.any)
}

// covers reports whether the mask proves the presence of a component with
// typeID: some Has or Any expression names it.
func (m *Mask) covers(typeID uint16) bool {
	for _, e := range m.has {
		if e.TypeID == typeID {
			return true
		}
	}
	for _, e := range m.any {
		if e.TypeID == typeID {
			return true
		}
	}
	return false
}

// proves reports whether some Has or Any expression overlaps expr, so that
// matching archetypes may hold what expr names.
func (m *Mask) proves(expr TypeExpression) bool {
	overlaps := func(e TypeExpression) bool {
		return e == expr || e.TypeID == expr.TypeID && (expr.Matches(e) || e.Matches(expr))
	}
	return slices.ContainsFunc(m.has, overlaps) || slices.ContainsFunc(m.any, overlaps)
}

// excludes reports whether no matching archetype can hold expr.
func (m *Mask) excludes(expr TypeExpression) bool {
	for _, e := range m.not {
		if e.Matches(expr) {
			return true
		}
	}
	return false
}

func (m *Mask) String() string {
	var b strings.Builder
	write := func(name string, list []TypeExpression) {
		if len(list) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		b.WriteByte('(')
		for i, e := range list {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(e.String())
		}
		b.WriteByte(')')
	}
	write("has", m.has)
	write("not", m.not)
	write("any", m.any)
	if b.Len() == 0 {
		return "all"
	}
	return b.String()
}
