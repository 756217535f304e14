package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/liftover"
	"github.com/Strexas/kath/internal/table"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mergedTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New("lovd_gnomad",
		table.Column{Name: "id", Kind: table.Integer},
		table.Column{Name: "VariantOnGenome/DNA/hg38", Kind: table.String},
		table.Column{Name: "Popmax", Kind: table.Double},
		table.Column{Name: "Popmax population", Kind: table.String},
		table.Column{Name: "VariantOnTranscript/DBID", Kind: table.Boolean},
		table.Column{Name: "created_date", Kind: table.Date},
	)
	when := time.Date(2021, 3, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, tbl.Append([]table.Value{
		table.IntValue(1), table.TextValue("g.64430518dup"), table.FloatValue(0.25),
		table.TextValue("Ashkenazi Jewish"), table.BoolValue(true), table.DateValue(when),
	}))
	require.NoError(t, tbl.Append([]table.Value{
		table.Null(table.Integer), table.TextValue("?"), table.Null(table.Double),
		table.Null(table.String), table.Null(table.Boolean), table.Null(table.Date),
	}))
	tbl.Typed = true
	return tbl
}

// --- Workspace tables ---

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Empty(t, s.Path())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kath.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestWriteAndReadTable(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	in := mergedTable(t)

	require.NoError(t, s.WriteTable(ctx, "eys", in))

	out, err := s.ReadTable(ctx, "eys")
	require.NoError(t, err)
	assert.True(t, out.Typed)
	assert.Equal(t, in.ColumnNames(), out.ColumnNames())
	require.Equal(t, 2, out.Len())

	id, ok := out.Get(0, "id").AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
	pm, ok := out.Get(0, "Popmax").AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 0.25, pm, 1e-12)
	assert.Equal(t, "Ashkenazi Jewish", out.Get(0, "Popmax population").String())
	b, ok := out.Get(0, "VariantOnTranscript/DBID").AsBool()
	require.True(t, ok)
	assert.True(t, b)
	when, ok := out.Get(0, "created_date").AsTime()
	require.True(t, ok)
	assert.Equal(t, 2021, when.Year())

	for _, c := range in.ColumnNames() {
		if c == "VariantOnGenome/DNA/hg38" {
			continue
		}
		assert.True(t, out.Get(1, c).IsNull(), c)
	}
}

func TestWriteTableReplaces(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	require.NoError(t, s.WriteTable(ctx, "eys", mergedTable(t)))

	small := table.NewText("eys", []string{"only"})
	require.NoError(t, s.WriteTable(ctx, "eys", small))

	out, err := s.ReadTable(ctx, "eys")
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, out.ColumnNames())
	assert.Equal(t, 0, out.Len())

	names, err := s.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"eys"}, names)
}

func TestWriteTableDuplicateColumn(t *testing.T) {
	s := openInMemory(t)
	dup := table.NewText("dup", []string{"a", "a"})
	err := s.WriteTable(context.Background(), "dup", dup)
	assert.True(t, failure.Is(err, failure.Collision))
}

func TestReadTableMissing(t *testing.T) {
	s := openInMemory(t)
	_, err := s.ReadTable(context.Background(), "nope")
	assert.True(t, failure.Is(err, failure.NotFound))
}

func TestImportCSV(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gnomad.csv")
	require.NoError(t, os.WriteFile(path, []byte("gnomAD ID,Position,Allele Frequency\n"+
		"6-63720621-C-T,63720621,0.004\n"+
		"6-63720622-A-AT,63720622,0.5\n"), 0644))

	n, err := s.ImportCSV(ctx, path, "gnomad")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	out, err := s.ReadTable(ctx, "gnomad")
	require.NoError(t, err)
	pos, ok := out.Get(0, "Position").AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(63720621), pos)
	assert.Equal(t, "6-63720622-A-AT", out.Get(1, "gnomAD ID").String())

	_, err = s.ImportCSV(ctx, filepath.Join(t.TempDir(), "none.csv"), "x")
	assert.True(t, failure.Is(err, failure.NotFound))
}

// --- Run records ---

func TestRecordAndListRuns(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := s.RecordRun(ctx, Run{
		StartedAt: start, FinishedAt: start.Add(time.Second),
		Output: "out/first.csv", Table: "lovd_gnomad", Rows: 10,
		Inputs: []RunInput{
			{Source: "lovd", FileFingerprint: FileFingerprint{Path: "lovd.txt", Size: 100, ModTime: start}},
			{Source: "gnomad", FileFingerprint: FileFingerprint{Path: "gnomad.csv", Size: 50, ModTime: start}},
		},
	})
	require.NoError(t, err)
	assert.Len(t, first, 36, "uuid")

	second, err := s.RecordRun(ctx, Run{ID: "fixed", StartedAt: start.Add(time.Hour), Output: "out/second.csv"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", second)

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "fixed", runs[0].ID, "newest first")
	assert.Empty(t, runs[0].Inputs)

	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, int64(10), runs[1].Rows)
	require.Len(t, runs[1].Inputs, 2)
	assert.Equal(t, "gnomad", runs[1].Inputs[0].Source)
	assert.Equal(t, int64(100), runs[1].Inputs[1].Size)

	_, err = s.RecordRun(ctx, Run{ID: "fixed"})
	assert.Error(t, err, "run ids are unique")
}

// --- Liftover cache (gob) ---

func TestLiftoverCacheWriteAndLoad(t *testing.T) {
	dir := t.TempDir()
	lc := NewLiftoverCache(dir)
	chain := FileFingerprint{Path: "hg19ToHg38.over.chain.gz", Size: 1234, ModTime: time.Now()}

	m := liftover.NewMemo(liftover.ConverterFunc(func(_ context.Context, _ string, pos int64) (int64, error) {
		if pos == 1 {
			return 0, liftover.ErrUnmapped
		}
		return pos + 10, nil
	}))
	ctx := context.Background()
	_, err := m.Convert(ctx, "6", 100)
	require.NoError(t, err)
	_, err = m.Convert(ctx, "chr6", 1)
	require.ErrorIs(t, err, liftover.ErrUnmapped)

	assert.False(t, lc.Valid("chain", chain), "nothing written yet")
	require.NoError(t, lc.Write(m, "chain", chain))
	assert.True(t, lc.Valid("chain", chain))

	calls := 0
	fresh := liftover.NewMemo(liftover.ConverterFunc(func(context.Context, string, int64) (int64, error) {
		calls++
		return 0, nil
	}))
	n, err := lc.Load(fresh)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := fresh.Convert(ctx, "6", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(110), got)
	_, err = fresh.Convert(ctx, "6", 1)
	assert.ErrorIs(t, err, liftover.ErrUnmapped)
	assert.Equal(t, 0, calls, "served from cache")
}

func TestLiftoverCacheInvalidation(t *testing.T) {
	lc := NewLiftoverCache(t.TempDir())
	now := time.Now()
	chain := FileFingerprint{Size: 1234, ModTime: now}
	require.NoError(t, lc.Write(liftover.NewMemo(liftover.Offset(1)), "chain", chain))

	assert.False(t, lc.Valid("chain", FileFingerprint{Size: 1235, ModTime: now}), "size changed")
	assert.False(t, lc.Valid("chain", FileFingerprint{Size: 1234, ModTime: now.Add(time.Second)}), "modtime changed")
	assert.False(t, lc.Valid("ensembl", chain), "different source")

	lc.Clear()
	assert.False(t, lc.Valid("chain", chain))
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))
	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fp.Size)
	assert.Equal(t, path, fp.Path)

	_, err = StatFile(path + ".missing")
	assert.Error(t, err)
}
