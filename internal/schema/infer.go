package schema

import (
	"strconv"
	"strings"

	"github.com/Strexas/kath/internal/table"
)

// Infer returns a typed copy of t for tables that have no registered schema,
// such as a previously written merge result. A column becomes Integer when
// every non-null cell is an integer, Double when every cell is a number, and
// String otherwise.
func Infer(t *table.Table) *table.Table {
	cols := t.Columns()
	for j := range cols {
		cols[j].Kind = inferKind(t, j)
	}

	out := table.New(t.Name, cols...)
	out.Notes = append([]string(nil), t.Notes...)
	out.Rows = make([][]table.Value, len(t.Rows))
	for i, row := range t.Rows {
		typed := make([]table.Value, len(row))
		for j, v := range row {
			typed[j] = CoerceValue(v, cols[j].Kind)
		}
		out.Rows[i] = typed
	}
	out.Typed = true
	return out
}

func inferKind(t *table.Table, j int) table.Kind {
	ints, floats, seen := true, true, false
	for _, row := range t.Rows {
		v := row[j]
		if v.IsNull() {
			continue
		}
		if k := v.Kind(); k != table.String {
			return k
		}
		raw := strings.TrimSpace(v.String())
		if raw == "" {
			continue
		}
		seen = true
		if ints {
			if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
				ints = false
			}
		}
		if !ints {
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				floats = false
				break
			}
		}
	}
	switch {
	case !seen:
		return table.String
	case ints:
		return table.Integer
	case floats:
		return table.Double
	}
	return table.String
}
