package schema

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/table"
)

// dateLayouts are tried in order when coercing Date cells.
var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// Coerce returns a typed copy of t. Every column of t must be declared in s;
// an undeclared column is a schema-drift failure naming table and column.
// Cells that do not parse as their declared kind become null.
func (s *Schema) Coerce(t *table.Table) (*table.Table, error) {
	cols := t.Columns()
	for i, c := range cols {
		k, ok := s.columns[c.Name]
		if !ok {
			return nil, failure.New(failure.SchemaDrift, t.Name+"."+c.Name,
				"column %q of table %q has no schema entry", c.Name, t.Name)
		}
		cols[i].Kind = k
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
	return out, nil
}

// Coerce returns a typed copy of t using the schema registered for t's name.
func (s *Set) Coerce(t *table.Table) (*table.Table, error) {
	ts, ok := s.tables[t.Name]
	if !ok {
		return nil, failure.New(failure.SchemaDrift, t.Name, "table %q has no schema (version %s)", t.Name, s.Version)
	}
	return ts.Coerce(t)
}

// Coerce returns typed copies of tables, in order, using set. The first
// schema-drift failure stops the run.
func Coerce(tables []*table.Table, set *Set) ([]*table.Table, error) {
	out := make([]*table.Table, len(tables))
	for i, t := range tables {
		typed, err := set.Coerce(t)
		if err != nil {
			return nil, err
		}
		out[i] = typed
	}
	return out, nil
}

// CoerceValue converts a raw cell to kind k. Cells already of kind k pass
// through; anything unparsable becomes a null of kind k.
func CoerceValue(v table.Value, k table.Kind) table.Value {
	if v.IsNull() {
		return table.Null(k)
	}
	if v.Kind() == k {
		return v
	}
	raw := v.String()

	switch k {
	case table.String:
		return table.TextValue(raw)
	case table.Integer:
		if i, ok := parseInt(raw); ok {
			return table.IntValue(i)
		}
	case table.Double:
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && !math.IsNaN(f) {
			return table.FloatValue(f)
		}
	case table.Boolean:
		// Strict two-value map; LOVD exports flags as 0/1.
		switch strings.TrimSpace(raw) {
		case "0":
			return table.BoolValue(false)
		case "1":
			return table.BoolValue(true)
		}
	case table.Date:
		if d, ok := parseDate(raw); ok {
			return table.DateValue(d)
		}
	}
	return table.Null(k)
}

func parseInt(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
