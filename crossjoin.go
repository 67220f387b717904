package seiretsu

// crossJoin enumerates, for one archetype, every combination of the columns
// matched by each stream type. It is a mixed-radix counter: position 0
// varies fastest and carries into position 1 when it wraps.
type crossJoin struct {
	columns [][]column // per stream type, matching columns in signature order
	counter []int
	limits  []int
	empty   bool
}

func newCrossJoin(n int) *crossJoin {
	return &crossJoin{
		columns: make([][]column, n),
		counter: make([]int, n),
		limits:  make([]int, n),
	}
}

// reset gathers the columns of a for every stream expression and rewinds
// the counter. The join is empty when any expression matches nothing.
func (j *crossJoin) reset(q *Query, a *archetype, exprs []TypeExpression) {
	j.empty = false
	for i, expr := range exprs {
		j.columns[i] = q.columnsFor(a, expr, j.columns[i][:0])
		j.limits[i] = len(j.columns[i])
		j.counter[i] = 0
		if j.limits[i] == 0 {
			j.empty = true
		}
	}
}

// Empty reports whether the current archetype contributes no rows.
func (j *crossJoin) Empty() bool { return j.empty }

// Select returns the column currently chosen for stream type i.
func (j *crossJoin) Select(i int) column {
	return j.columns[i][j.counter[i]]
}

// Permutate advances to the next combination. It returns false once the last
// position would carry past its limit, leaving the counter rewound.
func (j *crossJoin) Permutate() bool {
	for i := range j.counter {
		j.counter[i]++
		if j.counter[i] < j.limits[i] {
			return true
		}
		j.counter[i] = 0
	}
	return false
}

// Permutations returns how many combinations the current archetype yields.
func (j *crossJoin) Permutations() int {
	if j.empty {
		return 0
	}
	n := 1
	for _, l := range j.limits {
		n *= l
	}
	return n
}
