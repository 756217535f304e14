package colstats

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/table"
)

func readTable(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.ReadDelimited(strings.NewReader(csv), "data", ',')
	require.NoError(t, err)
	return tbl
}

func TestAggregate(t *testing.T) {
	tbl := readTable(t, "a,b,c,d\n"+
		"1,2.5,x,\n"+
		"2,abc,y,\n"+
		"4,0.25,,\n")

	results, err := Aggregate(tbl, map[string]Op{"a": Avg, "b": Sum, "c": Cnt, "d": Max})
	require.NoError(t, err)
	require.Len(t, results, 4)

	byCol := map[string]Result{}
	for _, r := range results {
		byCol[r.Column] = r
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, []string{results[0].Column, results[1].Column, results[2].Column, results[3].Column})

	assert.InDelta(t, 7.0/3.0, byCol["a"].Value, 1e-12)
	assert.Equal(t, "2.333", byCol["a"].Formatted())
	assert.Equal(t, 0, byCol["a"].Skipped)

	assert.Equal(t, "2.750", byCol["b"].Formatted())
	assert.Equal(t, 1, byCol["b"].Skipped)

	assert.Equal(t, "2", byCol["c"].Formatted())
	assert.Equal(t, 1, byCol["c"].Skipped)

	assert.True(t, math.IsInf(byCol["d"].Value, -1))
	assert.Equal(t, "N/A", byCol["d"].Formatted())
	assert.Equal(t, 3, byCol["d"].Skipped)
}

func TestAggregate_MinMaxTyped(t *testing.T) {
	tbl := table.New("typed", table.Column{Name: "pos", Kind: table.Integer})
	for _, v := range []int64{63720622, 63720100, 63720999} {
		require.NoError(t, tbl.Append([]table.Value{table.IntValue(v)}))
	}
	require.NoError(t, tbl.Append([]table.Value{table.Null(table.Integer)}))

	results, err := Aggregate(tbl, map[string]Op{"pos": Min})
	require.NoError(t, err)
	assert.Equal(t, "63720100", results[0].Formatted())
	assert.Equal(t, 1, results[0].Skipped)
}

func TestFormatted(t *testing.T) {
	tests := []struct {
		op   Op
		v    float64
		want string
	}{
		{Sum, 0, "N/A"},
		{Avg, 0, "N/A"},
		{Min, 0, "0"},
		{Cnt, 0, "0"},
		{Max, math.Inf(-1), "N/A"},
		{Sum, 12, "12"},
		{Sum, -3.14159, "-3.142"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Result{Op: tt.op, Value: tt.v}.Formatted(), "%s %v", tt.op, tt.v)
	}
}

func TestAggregate_UnknownColumn(t *testing.T) {
	_, err := Aggregate(readTable(t, "a\n1\n"), map[string]Op{"z": Sum})
	assert.True(t, failure.Is(err, failure.NotFound))
}

func TestParseOp(t *testing.T) {
	op, err := ParseOp(" AVG ")
	require.NoError(t, err)
	assert.Equal(t, Avg, op)
	_, err = ParseOp("median")
	assert.Error(t, err)
}
