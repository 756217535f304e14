package lovd

import (
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/liftover"
	"github.com/Strexas/kath/internal/schema"
	"github.com/Strexas/kath/internal/table"
)

// row quotes each field the way LOVD does and joins them with tabs.
func row(fields ...string) string {
	for i, f := range fields {
		fields[i] = `"` + f + `"`
	}
	return strings.Join(fields, "\t") + "\n"
}

func header(cols ...string) string {
	for i, c := range cols {
		cols[i] = "{{" + c + "}}"
	}
	return row(cols...)
}

var testExport = "### LOVD-version 3000-290 ### Full data download ### To import, do not remove or alter this header ###\n" +
	"## Filter: (gene_id = EYS)\n" +
	"# charset = UTF-8\n" +
	"\n" +
	"## Genes ## Do not remove or alter this header ##\n" +
	"## Count = 1\n" +
	header("id", "name", "chromosome") +
	row("EYS", "eyes shut homolog", "6") +
	"\n\n" +
	"## Variants_On_Genome ## Do not remove or alter this header ##\n" +
	"## Note: Only showing Variant/DBID and higher columns\n" +
	"## Count = 3\n" +
	header("id", "position_g_start", "position_g_end", "VariantOnGenome/DNA", "VariantOnGenome/DNA/hg38") +
	row("0000000001", "64430518", "64430518", "g.64430518dup", "") +
	row("0000000002", "64430517", "64430517", "g.64430517C>T", "g.63720621C>T") +
	row("0000000003", "64430100", "64430200", "g.64430100_64430200del", "") +
	"\n\n" +
	"## Variants_On_Transcripts ## Do not remove or alter this header ##\n" +
	header("id", "transcriptid", "VariantOnTranscript/DNA") +
	row("0000000001", "00001", "c.1211dup") +
	row("0000000002", "00001", "c.1210G>A") +
	row("0000000002", "00002", "c.1009G>A") +
	row("0000000009", "00001", "c.5T>G")

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lovd_eys.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func parseTestExport(t *testing.T) *Export {
	t.Helper()
	e, err := ParseFile(writeExport(t, testExport), nil)
	require.NoError(t, err)
	return e
}

func TestParseFile(t *testing.T) {
	e := parseTestExport(t)

	assert.Equal(t, []string{"Genes", GenomeTable, TranscriptsTable}, e.Names())
	assert.False(t, e.Typed())

	genes, ok := e.Table("Genes")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name", "chromosome"}, genes.ColumnNames())
	require.Equal(t, 1, genes.Len())
	assert.Equal(t, "eyes shut homolog", genes.Get(0, "name").String())
	assert.Equal(t, []string{"Count = 1"}, genes.Notes)

	vog, ok := e.Table(GenomeTable)
	require.True(t, ok)
	assert.Equal(t, 3, vog.Len())
	assert.Len(t, vog.Notes, 2)
	assert.Equal(t, "", vog.Get(0, HG38Column).String(), "empty quoted field")

	vot, ok := e.Table(TranscriptsTable)
	require.True(t, ok)
	assert.Equal(t, 4, vot.Len(), "block ended by end of file")
}

func TestParse_LogsNotes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewParser(strings.NewReader(testExport))
	p.SetLogger(zap.New(core))

	_, err := p.Parse()
	require.NoError(t, err)

	entries := logs.FilterMessage("lovd table notes").All()
	require.Len(t, entries, 2, "tables without notes are not logged")
	assert.Equal(t, "Genes", entries[0].ContextMap()["table"])
}

func TestParse_FieldCountMismatch(t *testing.T) {
	bad := "a\nb\nc\n\n" +
		"## Genes ## header ##\n" +
		header("id", "name") +
		row("EYS") +
		"\n"
	_, err := NewParser(strings.NewReader(bad)).Parse()
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 7, pe.Line)
	assert.Contains(t, pe.Error(), "1 fields, header has 2")

	_, err = ParseFile(writeExport(t, bad), nil)
	assert.True(t, failure.Is(err, failure.MalformedInput))
}

func TestParse_PreambleOnly(t *testing.T) {
	e, err := NewParser(strings.NewReader("a\nb\n")).Parse()
	require.NoError(t, err)
	assert.Empty(t, e.Tables())
}

func TestParse_CRLF(t *testing.T) {
	e, err := NewParser(strings.NewReader(strings.ReplaceAll(testExport, "\n", "\r\n"))).Parse()
	require.NoError(t, err)
	assert.Equal(t, []string{"Genes", GenomeTable, TranscriptsTable}, e.Names())
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.txt"), nil)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.NotFound))
}

func TestParseFile_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lovd_eys.txt.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(testExport))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	e, err := ParseFile(path, nil)
	require.NoError(t, err)
	assert.Len(t, e.Tables(), 3)
}

func TestCut(t *testing.T) {
	assert.Equal(t, "id", cut(`"{{id}}"`, 3, 3))
	assert.Equal(t, "EYS", cut(`"EYS"`, 1, 1))
	assert.Equal(t, "", cut(`""`, 1, 1))
	assert.Equal(t, "", cut("x", 3, 3))
}

func TestExportCoerce(t *testing.T) {
	e := parseTestExport(t)
	typed, err := e.Coerce(schema.LOVD())
	require.NoError(t, err)
	assert.True(t, typed.Typed())
	assert.False(t, e.Typed(), "original export untouched")

	vog, _ := typed.Table(GenomeTable)
	id, ok := vog.Get(0, "id").AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, table.TextValue(""), vog.Get(0, HG38Column), "empty text stays text")
}

func TestVariantView(t *testing.T) {
	e := parseTestExport(t)

	_, err := VariantView(e)
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Precondition), "untyped tables are rejected")

	typed, err := e.Coerce(schema.LOVD())
	require.NoError(t, err)
	view, err := VariantView(typed)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"id", "transcriptid", "VariantOnTranscript/DNA",
		StartColumn, EndColumn, HG19Column, HG38Column,
	}, view.ColumnNames())
	require.Equal(t, 4, view.Len(), "left join keeps every transcript variant")
	assert.Equal(t, "g.64430518dup", view.Get(0, HG19Column).String())
	assert.Equal(t, "g.64430517C>T", view.Get(1, HG19Column).String())
	assert.Equal(t, "g.64430517C>T", view.Get(2, HG19Column).String())
	assert.True(t, view.Get(3, HG19Column).IsNull(), "no genome variant with id 9")
	assert.True(t, view.Typed)
}

func TestVariantView_MissingTable(t *testing.T) {
	_, err := VariantView(NewExport("x"))
	assert.True(t, failure.Is(err, failure.MalformedInput))
}

func fillFixture(t *testing.T, hg19, hg38 []string) *table.Table {
	t.Helper()
	tbl := table.New("lovd",
		table.Column{Name: HG19Column, Kind: table.String},
		table.Column{Name: HG38Column, Kind: table.String},
	)
	for i := range hg19 {
		cells := []table.Value{table.Null(table.String), table.Null(table.String)}
		if hg19[i] != "" {
			cells[0] = table.TextValue(hg19[i])
		}
		if hg38[i] != "" {
			cells[1] = table.TextValue(hg38[i])
		}
		require.NoError(t, tbl.Append(cells))
	}
	return tbl
}

func TestFillMissingHG38(t *testing.T) {
	in := fillFixture(t,
		[]string{"g.64430518dup", "g.64430517C>T", "g.64430100_64430200del", "", "g.64430517C>T"},
		[]string{"", "", "", "", "g.63720621C>T"},
	)
	var lifted []int64
	conv := liftover.ConverterFunc(func(ctx context.Context, chrom string, pos int64) (int64, error) {
		assert.Equal(t, "6", chrom)
		lifted = append(lifted, pos)
		return liftover.Offset(-709896).Convert(ctx, chrom, pos)
	})

	var progress []int
	out, err := FillMissingHG38(context.Background(), in, FillOptions{
		Converter: conv,
		Progress:  func(done, total int) { progress = append(progress, done) },
	})
	require.NoError(t, err)

	keys, err := out.Values(KeyColumn)
	require.NoError(t, err)
	got := make([]string, len(keys))
	for i, k := range keys {
		got[i] = k.String()
	}
	assert.Equal(t, []string{"6-63720622-dup", "6-63720621-C-T", "?", "?", "6-63720621-C-T"}, got)
	assert.Equal(t, []int64{64430518, 64430517}, lifted, "intervals, nulls and present hg38 values skip liftover")
	assert.Equal(t, []int{1, 2, 3, 4, 5}, progress)

	assert.False(t, in.HasColumn(KeyColumn), "input table untouched")
	assert.True(t, out.Get(0, HG38Column).IsNull(), "hg38 column itself is not rewritten")
}

func TestFillMissingHG38_LiftedEqualsSupplied(t *testing.T) {
	conv := liftover.Offset(-709896)
	lifted, err := FillMissingHG38(context.Background(),
		fillFixture(t, []string{"g.64430517C>T"}, []string{""}), FillOptions{Converter: conv})
	require.NoError(t, err)
	supplied, err := FillMissingHG38(context.Background(),
		fillFixture(t, []string{"g.64430517C>T"}, []string{"g.63720621C>T"}), FillOptions{Converter: conv})
	require.NoError(t, err)

	assert.Equal(t, supplied.Get(0, KeyColumn), lifted.Get(0, KeyColumn))
}

func TestFillMissingHG38_Unmapped(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	conv := liftover.ConverterFunc(func(context.Context, string, int64) (int64, error) {
		return 0, liftover.ErrUnmapped
	})

	out, err := FillMissingHG38(context.Background(),
		fillFixture(t, []string{"g.64430518dup"}, []string{""}),
		FillOptions{Converter: conv, Logger: zap.New(core)})
	require.NoError(t, err)
	assert.Equal(t, "?", out.Get(0, KeyColumn).String())
	assert.Equal(t, 1, logs.Len())
}

func TestFillMissingHG38_CollaboratorFailure(t *testing.T) {
	conv := liftover.ConverterFunc(func(context.Context, string, int64) (int64, error) {
		return 0, errors.New("connection refused")
	})
	_, err := FillMissingHG38(context.Background(),
		fillFixture(t, []string{"g.64430518dup"}, []string{""}), FillOptions{Converter: conv})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.Collaborator))
	assert.Contains(t, err.Error(), "liftover 6:64430518")
}

func TestFillMissingHG38_Empty(t *testing.T) {
	in := fillFixture(t, nil, nil)
	out, err := FillMissingHG38(context.Background(), in, FillOptions{})
	require.NoError(t, err)
	assert.Same(t, in, out)
}

func TestFillMissingHG38_MissingColumn(t *testing.T) {
	in := table.NewText("lovd", []string{"id"})
	require.NoError(t, in.Append([]table.Value{table.TextValue("1")}))
	_, err := FillMissingHG38(context.Background(), in, FillOptions{Converter: liftover.Offset(0)})
	assert.True(t, failure.Is(err, failure.SchemaDrift))
}
