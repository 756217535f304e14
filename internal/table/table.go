// Package table provides the in-memory relational tables that flow through
// the reconciliation pipeline: ordered typed columns, nullable cells, and the
// join operations used to merge sources.
package table

import (
	"fmt"

	"github.com/Strexas/kath/internal/failure"
)

// Column describes one named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Table is a named table with ordered columns and row-major cells.
// Every row has exactly one cell per column.
type Table struct {
	Name string
	Rows [][]Value

	// Typed is set once every cell has been coerced to its declared kind.
	Typed bool

	// Notes carries free-text annotations from the source (diagnostics only).
	Notes []string

	cols  []Column
	index map[string]int
}

// New creates an empty table with the given columns.
func New(name string, cols ...Column) *Table {
	t := &Table{Name: name, index: make(map[string]int, len(cols))}
	for _, c := range cols {
		t.addColumn(c)
	}
	return t
}

// NewText creates an empty table whose columns are all String.
func NewText(name string, names []string) *Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Kind: String}
	}
	return New(name, cols...)
}

func (t *Table) addColumn(c Column) {
	if _, ok := t.index[c.Name]; ok {
		// Duplicate header names keep the first position, like a CSV reader
		// that resolves by name.
		t.cols = append(t.cols, c)
		return
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
}

// Columns returns a copy of the column list.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.cols...)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column definition.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.cols[i], true
}

// Append adds a row. The row length must match the column count.
func (t *Table) Append(row []Value) error {
	if len(row) != len(t.cols) {
		return fmt.Errorf("table %s: row has %d cells, want %d", t.Name, len(row), len(t.cols))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Get returns the cell at row i in the named column. Unknown columns read as null.
func (t *Table) Get(i int, name string) Value {
	j, ok := t.index[name]
	if !ok {
		return Value{}
	}
	return t.Rows[i][j]
}

// Set replaces the cell at row i in the named column.
func (t *Table) Set(i int, name string, v Value) error {
	j, ok := t.index[name]
	if !ok {
		return fmt.Errorf("table %s: no column %q", t.Name, name)
	}
	t.Rows[i][j] = v
	return nil
}

// Values returns every cell of the named column.
func (t *Table) Values(name string) ([]Value, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("table %s: no column %q", t.Name, name)
	}
	out := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out, nil
}

// Clone returns a deep copy. Mutating the clone never affects t.
func (t *Table) Clone() *Table {
	c := New(t.Name, t.cols...)
	c.Typed = t.Typed
	c.Notes = append([]string(nil), t.Notes...)
	c.Rows = make([][]Value, len(t.Rows))
	for i, row := range t.Rows {
		c.Rows[i] = append([]Value(nil), row...)
	}
	return c
}

// WithColumn returns a copy of t with the column set to values. An existing
// column of the same name is replaced in place, otherwise it is appended.
func (t *Table) WithColumn(col Column, values []Value) (*Table, error) {
	if len(values) != len(t.Rows) {
		return nil, fmt.Errorf("table %s: column %q has %d values, want %d", t.Name, col.Name, len(values), len(t.Rows))
	}
	c := t.Clone()
	if j, ok := c.index[col.Name]; ok {
		c.cols[j] = col
		for i := range c.Rows {
			c.Rows[i][j] = values[i]
		}
		return c, nil
	}
	c.addColumn(col)
	for i := range c.Rows {
		c.Rows[i] = append(c.Rows[i], values[i])
	}
	return c, nil
}

// Rename returns a copy of t with columns renamed by the mapping. Renaming
// onto an existing column name is a collision error.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := t.Columns()
	seen := make(map[string]bool, len(cols))
	for i, c := range cols {
		if to, ok := mapping[c.Name]; ok {
			cols[i].Name = to
		}
		if seen[cols[i].Name] {
			return nil, failure.New(failure.Collision, t.Name+"."+cols[i].Name, "rename produces a duplicate column")
		}
		seen[cols[i].Name] = true
	}
	c := t.Clone()
	c.cols = nil
	c.index = make(map[string]int, len(cols))
	for _, col := range cols {
		c.addColumn(col)
	}
	return c, nil
}

// WithSuffix returns a copy of t with suffix appended to every column name
// for which match returns true. A nil match suffixes every column.
func (t *Table) WithSuffix(suffix string, match func(name string) bool) (*Table, error) {
	mapping := make(map[string]string)
	for _, c := range t.cols {
		if match == nil || match(c.Name) {
			mapping[c.Name] = c.Name + suffix
		}
	}
	return t.Rename(mapping)
}

// Select returns a copy of t restricted to the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	cols := make([]Column, len(names))
	for i, n := range names {
		j, ok := t.index[n]
		if !ok {
			return nil, fmt.Errorf("table %s: no column %q", t.Name, n)
		}
		idx[i] = j
		cols[i] = t.cols[j]
	}
	s := New(t.Name, cols...)
	s.Typed = t.Typed
	s.Rows = make([][]Value, len(t.Rows))
	for i, row := range t.Rows {
		out := make([]Value, len(idx))
		for k, j := range idx {
			out[k] = row[j]
		}
		s.Rows[i] = out
	}
	return s, nil
}

// Concat stacks tables vertically. Columns are the union in first-seen order;
// cells missing from a source table are null.
func Concat(name string, tables ...*Table) *Table {
	out := New(name)
	out.Typed = len(tables) > 0
	for _, t := range tables {
		for _, c := range t.cols {
			if !out.HasColumn(c.Name) {
				out.addColumn(c)
			}
		}
		out.Typed = out.Typed && t.Typed
	}
	for _, t := range tables {
		pos := make([]int, len(out.cols))
		for j, c := range out.cols {
			pos[j] = t.ColumnIndex(c.Name)
		}
		for _, row := range t.Rows {
			r := make([]Value, len(out.cols))
			for j, p := range pos {
				if p < 0 {
					r[j] = Null(out.cols[j].Kind)
				} else {
					r[j] = row[p]
				}
			}
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}
