package seiretsu

import (
	"cmp"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

type matchKind uint8

const (
	kindPlain matchKind = iota
	kindAny
	kindTarget
	kindEntity
	kindObject
	kindRelation
	kindLink
)

// Match is the target discriminator of a TypeExpression. The zero Match is
// MatchPlain: a component without a target. Wildcards are only meaningful
// on the query side of a match.
type Match struct {
	kind  matchKind
	value uint64
}

var (
	// MatchPlain matches components that have no target.
	MatchPlain = Match{kind: kindPlain}
	// MatchAny matches every target, including plain.
	MatchAny = Match{kind: kindAny}
	// MatchTarget matches any non-plain target (relations and links).
	MatchTarget = Match{kind: kindTarget}
	// MatchEntity matches any entity relation.
	MatchEntity = Match{kind: kindEntity}
	// MatchObject matches any object link.
	MatchObject = Match{kind: kindObject}
)

// RelationTo returns the Match for a relation targeting e.
func RelationTo(e Entity) Match {
	return Match{kind: kindRelation, value: e.key()}
}

func linkMatch(id uint32) Match {
	return Match{kind: kindLink, value: uint64(id)}
}

// IsWildcard reports whether m is one of MatchAny, MatchTarget, MatchEntity
// or MatchObject.
func (m Match) IsWildcard() bool {
	return m.kind >= kindAny && m.kind <= kindObject
}

// IsPlain reports whether m denotes "no target".
func (m Match) IsPlain() bool { return m.kind == kindPlain }

// IsRelation reports whether m targets a specific entity.
func (m Match) IsRelation() bool { return m.kind == kindRelation }

// IsLink reports whether m targets a specific linked object.
func (m Match) IsLink() bool { return m.kind == kindLink }

// Entity returns the relation target of m, or None if m is not a relation.
func (m Match) Entity() Entity {
	if m.kind != kindRelation {
		return None
	}
	return entityFromKey(m.value)
}

func (m Match) linkID() uint32 {
	return uint32(m.value)
}

func (m Match) compare(o Match) int {
	if c := cmp.Compare(m.kind, o.kind); c != 0 {
		return c
	}
	return cmp.Compare(m.value, o.value)
}

func (m Match) String() string {
	switch m.kind {
	case kindPlain:
		return "plain"
	case kindAny:
		return "any"
	case kindTarget:
		return "target"
	case kindEntity:
		return "entity"
	case kindObject:
		return "object"
	case kindRelation:
		return "->" + m.Entity().String()
	default:
		return fmt.Sprintf("link#%d", m.value)
	}
}

// TypeExpression is a component type id combined with a target. Expressions
// order by TypeID first, so every expression of one type is contiguous
// inside a Signature.
type TypeExpression struct {
	TypeID uint16
	Target Match
}

// Matches reports whether t, taken as the query side, matches the stored
// expression other. It is not commutative.
func (t TypeExpression) Matches(other TypeExpression) bool {
	if t.TypeID != other.TypeID {
		return false
	}
	switch t.Target.kind {
	case kindPlain:
		return other.Target.kind == kindPlain
	case kindAny:
		return true
	case kindTarget:
		return other.Target.kind != kindPlain
	case kindEntity:
		return other.Target.kind == kindRelation
	case kindObject:
		return other.Target.kind == kindLink
	}
	return t.Target == other.Target
}

// Compare orders expressions by TypeID, then by target.
func (t TypeExpression) Compare(o TypeExpression) int {
	if c := cmp.Compare(t.TypeID, o.TypeID); c != 0 {
		return c
	}
	return t.Target.compare(o.Target)
}

// Less reports whether t sorts before o.
func (t TypeExpression) Less(o TypeExpression) bool {
	return t.Compare(o) < 0
}

// IsWildcard reports whether the target of t is a wildcard.
func (t TypeExpression) IsWildcard() bool {
	return t.Target.IsWildcard()
}

func (t TypeExpression) String() string {
	if t.Target.IsPlain() {
		return fmt.Sprintf("T%d", t.TypeID)
	}
	return fmt.Sprintf("T%d<%s>", t.TypeID, t.Target)
}

func (t TypeExpression) appendBytes(b []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, t.TypeID)
	b = append(b, byte(t.Target.kind))
	return binary.LittleEndian.AppendUint64(b, t.Target.value)
}

func (t TypeExpression) hash() uint64 {
	var buf [11]byte
	return xxh3.Hash(t.appendBytes(buf[:0]))
}
