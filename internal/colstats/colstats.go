// Package colstats computes single-value column aggregates over a table.
package colstats

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/table"
)

// Op is an aggregation operation.
type Op string

const (
	Sum Op = "sum"
	Avg Op = "avg"
	Min Op = "min"
	Max Op = "max"
	Cnt Op = "cnt"
)

// ParseOp parses an operation name.
func ParseOp(s string) (Op, error) {
	switch op := Op(strings.ToLower(strings.TrimSpace(s))); op {
	case Sum, Avg, Min, Max, Cnt:
		return op, nil
	}
	return "", fmt.Errorf("unknown aggregation %q (want sum, avg, min, max or cnt)", s)
}

// Result is the aggregate of one column.
type Result struct {
	Column  string
	Op      Op
	Value   float64
	Skipped int
}

// Formatted renders the value: N/A for an empty min/max or a zero sum/avg,
// an integer when the value is integral, otherwise three decimals.
func (r Result) Formatted() string {
	v := r.Value
	if math.IsInf(v, 0) || (v == 0 && (r.Op == Sum || r.Op == Avg)) {
		return "N/A"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%.3f", v)
}

// numeric returns the cell as a number. Text cells are parsed.
func numeric(v table.Value) (float64, bool) {
	if f, ok := v.AsFloat(); ok {
		return f, true
	}
	s, ok := v.AsText()
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Aggregate computes ops (column name to operation) over t. Results are
// ordered by column name. cnt counts non-empty cells; the other operations
// use numeric cells only. Cells an operation cannot use are counted as
// skipped.
func Aggregate(t *table.Table, ops map[string]Op) ([]Result, error) {
	columns := make([]string, 0, len(ops))
	for c := range ops {
		if !t.HasColumn(c) {
			return nil, failure.New(failure.NotFound, t.Name+"."+c, "no column %q to aggregate", c)
		}
		columns = append(columns, c)
	}
	sort.Strings(columns)

	results := make([]Result, len(columns))
	for i, c := range columns {
		op := ops[c]
		r := Result{Column: c, Op: op}
		switch op {
		case Min:
			r.Value = math.Inf(1)
		case Max:
			r.Value = math.Inf(-1)
		}

		vals, _ := t.Values(c)
		n := 0
		for _, v := range vals {
			if op == Cnt {
				if v.IsNull() || v.String() == "" {
					r.Skipped++
				} else {
					r.Value++
				}
				continue
			}
			f, ok := numeric(v)
			if !ok {
				r.Skipped++
				continue
			}
			switch op {
			case Sum, Avg:
				r.Value += f
				n++
			case Min:
				r.Value = math.Min(r.Value, f)
			case Max:
				r.Value = math.Max(r.Value, f)
			default:
				return nil, fmt.Errorf("aggregate %s: unknown operation %q", c, op)
			}
		}
		if op == Avg && n > 0 {
			r.Value /= float64(n)
		}
		results[i] = r
	}
	return results, nil
}
