package seiretsu

import "fmt"

// copyOp moves one column from a source archetype to a target archetype.
type copyOp struct {
	from int // column index in the source
	to   int // column index in the target
}

// transition is a memoized move between two archetypes: which columns carry
// over and which target columns start out zeroed.
type transition struct {
	copies []copyOp
	fresh  []int
	target int // archetype id
}

func newTransition(src, dst *archetype) *transition {
	tr := &transition{target: dst.id}
	for j, expr := range dst.signature.exprs {
		if i := src.signature.IndexOf(expr); i >= 0 {
			tr.copies = append(tr.copies, copyOp{from: i, to: j})
		} else {
			tr.fresh = append(tr.fresh, j)
		}
	}
	return tr
}

type edgeKey struct {
	expr TypeExpression
	add  bool
}

// archetype holds storage for one unique signature: the identity column plus
// one column per type expression, all with the same row count.
type archetype struct {
	signature Signature
	edges     map[edgeKey]*transition // add/remove-one-expression cache
	columns   []column                // parallel to signature.exprs
	entities  Storage[Entity]
	id        int
	version   uint64 // bumped on every row change
}

func newArchetype(id int, sig Signature, reg *Registry, capacity int) (*archetype, error) {
	a := &archetype{
		id:        id,
		signature: sig,
		edges:     make(map[edgeKey]*transition, 4),
		columns:   make([]column, len(sig.exprs)),
		entities:  Storage[Entity]{data: make([]Entity, capacity)},
	}
	for i, expr := range sig.exprs {
		ct, ok := reg.lookup(expr.TypeID)
		if !ok {
			return nil, fmt.Errorf("%w: type id %d", ErrUnregisteredType, expr.TypeID)
		}
		a.columns[i] = ct.newColumn(capacity)
	}
	return a, nil
}

// Count returns the number of rows.
func (a *archetype) Count() int { return a.entities.count }

// Cap returns the row capacity of the identity column.
func (a *archetype) Cap() int { return len(a.entities.data) }

// column returns the column holding expr exactly.
func (a *archetype) column(expr TypeExpression) (column, bool) {
	i := a.signature.IndexOf(expr)
	if i < 0 {
		return nil, false
	}
	return a.columns[i], true
}

// matchingColumns appends, in signature order, every column whose
// expression is matched by expr.
func (a *archetype) matchingColumns(expr TypeExpression, dst []column) []column {
	lo, hi := a.signature.typeRange(expr.TypeID)
	for i := lo; i < hi; i++ {
		if expr.Matches(a.signature.exprs[i]) {
			dst = append(dst, a.columns[i])
		}
	}
	return dst
}

// add appends a zeroed row for e and returns its index.
func (a *archetype) add(e Entity) int {
	row := a.entities.count
	a.entities.Append(e)
	for _, c := range a.columns {
		c.appendZero(1)
	}
	a.version++
	return row
}

// addN appends n zeroed rows for ents and returns the first row index.
func (a *archetype) addN(ents []Entity) int {
	start := a.entities.count
	a.entities.grow(len(ents))
	copy(a.entities.data[start:], ents)
	a.entities.count += len(ents)
	for _, c := range a.columns {
		c.appendZero(len(ents))
	}
	a.version++
	return start
}

// remove deletes row in O(1): the last row moves into its place and the
// moved entity's meta is patched.
func (a *archetype) remove(row int, pool *entityPool) {
	last := a.entities.count - 1
	if row < last {
		moved := a.entities.data[last]
		pool.metas[moved.Index].row = row
	}
	a.entities.Delete(row)
	for _, c := range a.columns {
		c.swapRemove(row)
	}
	a.version++
}

// migrate moves row into dst along tr and returns the new row. Columns only
// dst has are left zeroed for the caller to backfill.
func (a *archetype) migrate(row int, dst *archetype, tr *transition, pool *entityPool) int {
	e := a.entities.data[row]
	newRow := dst.entities.count
	dst.entities.Append(e)
	for _, op := range tr.copies {
		dst.columns[op.to].appendFrom(a.columns[op.from], row)
	}
	for _, j := range tr.fresh {
		dst.columns[j].appendZero(1)
	}
	dst.version++
	a.remove(row, pool)
	m := &pool.metas[e.Index]
	m.archetype = dst.id
	m.row = newRow
	return newRow
}

// migrateAll moves every row into dst in one pass and returns the first row
// they occupy in dst.
func (a *archetype) migrateAll(dst *archetype, tr *transition, pool *entityPool) int {
	n := a.entities.count
	start := dst.entities.count
	if n == 0 {
		return start
	}
	dst.entities.appendRange(&a.entities, 0, n)
	for _, op := range tr.copies {
		dst.columns[op.to].appendRange(a.columns[op.from], 0, n)
	}
	for _, j := range tr.fresh {
		dst.columns[j].appendZero(n)
	}
	for i, e := range dst.entities.data[start : start+n] {
		m := &pool.metas[e.Index]
		m.archetype = dst.id
		m.row = start + i
	}
	a.truncate()
	dst.version++
	return start
}

// truncate drops every row without touching entity metas.
func (a *archetype) truncate() {
	a.entities.truncate(0)
	for _, c := range a.columns {
		c.truncate(0)
	}
	a.version++
}

// resize sets the capacity of every column.
func (a *archetype) resize(capacity int) error {
	if capacity < a.Count() {
		return fmt.Errorf("%w: archetype %d capacity %d below count %d", ErrInvalidRange, a.id, capacity, a.Count())
	}
	if err := a.entities.Resize(capacity); err != nil {
		return err
	}
	for _, c := range a.columns {
		if err := c.resize(capacity); err != nil {
			return err
		}
	}
	return nil
}

// reserve grows every column so that n more rows fit.
func (a *archetype) reserve(n int) {
	if need := a.Count() + n; need > a.Cap() {
		_ = a.resize(max(need, a.Cap()*2))
	}
}

func (a *archetype) compact() {
	_ = a.resize(a.Count())
}
