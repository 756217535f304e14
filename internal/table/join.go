package table

import (
	"fmt"

	"github.com/Strexas/kath/internal/failure"
)

// JoinKind selects which unmatched rows a join keeps.
type JoinKind int

const (
	// Outer keeps unmatched rows from both sides.
	Outer JoinKind = iota
	// Left keeps unmatched rows from the left side only.
	Left
)

// JoinSpec describes an equality join between two tables.
type JoinSpec struct {
	Name    string
	LeftOn  string
	RightOn string
	Kind    JoinKind

	// Matchable, when set, rejects key cells that must never join
	// (sentinels such as "?"). Null cells never join regardless.
	Matchable func(Value) bool
}

// Origin records which source rows produced a joined row. A side that did
// not contribute is -1.
type Origin struct {
	Left  int
	Right int
}

// Joined is a join result together with per-row provenance.
type Joined struct {
	*Table
	Origins  []Origin
	LeftLen  int
	RightLen int
}

// Join performs an equality join. Output columns are the left columns
// followed by the right columns. When both key columns share a name they are
// merged into the left one. Any other shared column name is a collision.
//
// Rows are emitted in left order, each left row expanded by its matches in
// right order (the cross product for duplicate keys). For outer joins the
// unmatched right rows follow in right order.
func Join(left, right *Table, spec JoinSpec) (*Joined, error) {
	li := left.ColumnIndex(spec.LeftOn)
	if li < 0 {
		return nil, fmt.Errorf("join %s: left table %s has no column %q", spec.Name, left.Name, spec.LeftOn)
	}
	ri := right.ColumnIndex(spec.RightOn)
	if ri < 0 {
		return nil, fmt.Errorf("join %s: right table %s has no column %q", spec.Name, right.Name, spec.RightOn)
	}
	sharedKey := spec.LeftOn == spec.RightOn

	out := New(spec.Name, left.cols...)
	rightPos := make([]int, 0, len(right.cols))
	for j, c := range right.cols {
		if sharedKey && j == ri {
			continue
		}
		if out.HasColumn(c.Name) {
			return nil, failure.New(failure.Collision, c.Name, "column present in both %s and %s", left.Name, right.Name)
		}
		out.addColumn(c)
		rightPos = append(rightPos, j)
	}
	out.Typed = left.Typed && right.Typed

	matchable := func(v Value) (string, bool) {
		k, ok := v.Key()
		if !ok {
			return "", false
		}
		if spec.Matchable != nil && !spec.Matchable(v) {
			return "", false
		}
		return k, true
	}

	byKey := make(map[string][]int)
	for j, row := range right.Rows {
		if k, ok := matchable(row[ri]); ok {
			byKey[k] = append(byKey[k], j)
		}
	}

	j := &Joined{Table: out, LeftLen: left.Len(), RightLen: right.Len()}
	used := make([]bool, right.Len())

	emit := func(l, r int) {
		row := make([]Value, 0, len(out.cols))
		if l >= 0 {
			row = append(row, left.Rows[l]...)
		} else {
			for _, c := range left.cols {
				row = append(row, Null(c.Kind))
			}
			if sharedKey {
				row[li] = right.Rows[r][ri]
			}
		}
		for _, p := range rightPos {
			if r >= 0 {
				row = append(row, right.Rows[r][p])
			} else {
				row = append(row, Null(right.cols[p].Kind))
			}
		}
		out.Rows = append(out.Rows, row)
		j.Origins = append(j.Origins, Origin{Left: l, Right: r})
	}

	for l, row := range left.Rows {
		var matches []int
		if k, ok := matchable(row[li]); ok {
			matches = byKey[k]
		}
		if len(matches) == 0 {
			emit(l, -1)
			continue
		}
		for _, r := range matches {
			used[r] = true
			emit(l, r)
		}
	}

	if spec.Kind == Outer {
		for r := range right.Rows {
			if !used[r] {
				emit(-1, r)
			}
		}
	}
	return j, nil
}

type combineKey struct {
	left, right, occurrence int
}

// CombineFirst reconciles two joins of the same left and right tables by
// taking, cell by cell, the first non-null value. Rows are aligned by
// provenance: the k-th output row of left row i in a pairs with the k-th
// output row of left row i in b. A right-only row is kept only when that
// right row matched no left row in either join.
func CombineFirst(name string, a, b *Joined) (*Table, error) {
	if a.LeftLen != b.LeftLen || a.RightLen != b.RightLen {
		return nil, failure.New(failure.Precondition, name,
			"combine requires joins of the same tables (left %d/%d, right %d/%d)",
			a.LeftLen, b.LeftLen, a.RightLen, b.RightLen)
	}

	out := New(name, a.cols...)
	for _, c := range b.cols {
		if !out.HasColumn(c.Name) {
			out.addColumn(c)
		}
	}
	out.Typed = a.Typed && b.Typed

	index := func(j *Joined) (map[combineKey]int, []bool) {
		m := make(map[combineKey]int, len(j.Origins))
		matched := make([]bool, j.RightLen)
		seen := make(map[int]int)
		for i, o := range j.Origins {
			if o.Left >= 0 {
				m[combineKey{left: o.Left, right: -1, occurrence: seen[o.Left]}] = i
				seen[o.Left]++
				if o.Right >= 0 {
					matched[o.Right] = true
				}
			} else {
				m[combineKey{left: -1, right: o.Right}] = i
			}
		}
		return m, matched
	}
	aIdx, aMatched := index(a)
	bIdx, bMatched := index(b)

	pos := func(j *Joined) []int {
		p := make([]int, len(out.cols))
		for k, c := range out.cols {
			p[k] = j.ColumnIndex(c.Name)
		}
		return p
	}
	aPos, bPos := pos(a), pos(b)

	combine := func(ai, bi int) {
		row := make([]Value, len(out.cols))
		for k, c := range out.cols {
			v := Null(c.Kind)
			if ai >= 0 && aPos[k] >= 0 {
				v = a.Rows[ai][aPos[k]]
			}
			if v.IsNull() && bi >= 0 && bPos[k] >= 0 {
				v = b.Rows[bi][bPos[k]]
			}
			row[k] = v
		}
		out.Rows = append(out.Rows, row)
	}
	lookup := func(m map[combineKey]int, k combineKey) int {
		if i, ok := m[k]; ok {
			return i
		}
		return -1
	}

	for l := 0; l < a.LeftLen; l++ {
		for occ := 0; ; occ++ {
			k := combineKey{left: l, right: -1, occurrence: occ}
			ai, bi := lookup(aIdx, k), lookup(bIdx, k)
			if ai < 0 && bi < 0 {
				break
			}
			combine(ai, bi)
		}
	}
	for r := 0; r < a.RightLen; r++ {
		if aMatched[r] || bMatched[r] {
			continue
		}
		k := combineKey{left: -1, right: r}
		ai, bi := lookup(aIdx, k), lookup(bIdx, k)
		if ai < 0 && bi < 0 {
			continue
		}
		combine(ai, bi)
	}
	return out, nil
}
