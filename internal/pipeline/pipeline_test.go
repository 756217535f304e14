package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strexas/kath/internal/duckdb"
	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/liftover"
	"github.com/Strexas/kath/internal/lovd"
	"github.com/Strexas/kath/internal/popmax"
	"github.com/Strexas/kath/internal/table"
)

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

var lovdExport = "### LOVD-version 3000-290 ### Full data download ### To import, do not remove or alter this header ###\n" +
	"## Filter: (gene_id = EYS)\n" +
	"# charset = UTF-8\n" +
	"\n" +
	"## Variants_On_Genome ## Do not remove or alter this header ##\n" +
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

const gnomadCSV = "gnomAD ID,Allele Count African/African American,Allele Number African/African American,Allele Count East Asian,Allele Number East Asian\n" +
	"6-63720621-C-T,1,10,3,10\n" +
	"6-99999-A-G,0,5,0,5\n"

const clinvarTSV = "Name\tGermline classification\tAccession\tGRCh38Location\n" +
	"NM_001142800.2(EYS):c.1211dup (p.Asn404fs)\tPathogenic\tVCV1\t64430518\n"

type fixture struct {
	lovd, gnomad, clinvar string
	dir                   string
}

func writeFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		lovd:    filepath.Join(dir, "lovd_eys.txt"),
		gnomad:  filepath.Join(dir, "gnomad.csv"),
		clinvar: filepath.Join(dir, "clinvar.tsv"),
		dir:     dir,
	}
	require.NoError(t, os.WriteFile(f.lovd, []byte(lovdExport), 0644))
	require.NoError(t, os.WriteFile(f.gnomad, []byte(gnomadCSV), 0644))
	require.NoError(t, os.WriteFile(f.clinvar, []byte(clinvarTSV), 0644))
	return f
}

func strs(t *testing.T, tbl *table.Table, col string) []string {
	t.Helper()
	vals, err := tbl.Values(col)
	require.NoError(t, err)
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = v.String()
	}
	return out
}

func TestRun(t *testing.T) {
	f := writeFixture(t)
	store, err := duckdb.Open("")
	require.NoError(t, err)
	defer store.Close()

	res, err := Run(context.Background(), Config{
		LOVD:      f.lovd,
		GnomAD:    f.gnomad,
		ClinVar:   f.clinvar,
		Converter: liftover.Offset(-709896),
		Output:    filepath.Join(f.dir, "out", "merged.csv"),
		Store:     store,
	})
	require.NoError(t, err)
	out := res.Table

	assert.Equal(t,
		[]string{"6-63720622-dup", "6-63720621-C-T", "6-63720621-C-T", "?", ""},
		strs(t, out, lovd.KeyColumn))
	assert.Equal(t, []string{"1", "2", "2", "9", ""}, strs(t, out, "id"))
	assert.Equal(t, []string{"VCV1", "", "", "", ""}, strs(t, out, "Accession_clinvar"))
	assert.Equal(t,
		[]string{"", "East Asian", "East Asian", "", "African/African American"},
		strs(t, out, popmax.PopulationColumn))
	pm, ok := out.Get(1, popmax.PopmaxColumn).AsFloat()
	require.True(t, ok)
	assert.InDelta(t, 0.3, pm, 1e-12)
	assert.Equal(t, 1, res.Conversions, "only the dup row needs liftover")

	_, err = os.Stat(filepath.Join(f.dir, "out", "merged.csv"))
	assert.NoError(t, err)

	stored, err := store.ReadTable(context.Background(), DefaultStoreTable)
	require.NoError(t, err)
	assert.Equal(t, out.Len(), stored.Len())

	runs, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Len(t, runs[0].Inputs, 3)
	assert.Equal(t, int64(5), runs[0].Rows)
}

func TestRun_LOVDOnly(t *testing.T) {
	f := writeFixture(t)
	res, err := Run(context.Background(), Config{LOVD: f.lovd, Converter: liftover.Offset(-709896)})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Table.Len())
	assert.False(t, res.Table.HasColumn(popmax.PopmaxColumn), "popmax needs gnomAD")
	assert.Empty(t, res.RunID)
}

func TestRun_ClinVarByCDNA(t *testing.T) {
	f := writeFixture(t)
	res, err := Run(context.Background(), Config{
		LOVD: f.lovd, ClinVar: f.clinvar, ClinVarByCDNA: true,
		Converter: liftover.Offset(-709896),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"VCV1", "", "", ""}, strs(t, res.Table, "Accession_clinvar"))
}

func TestRun_ClinVarWithoutConverter(t *testing.T) {
	f := writeFixture(t)
	res, err := Run(context.Background(), Config{LOVD: f.lovd, ClinVar: f.clinvar})
	require.NoError(t, err)
	assert.False(t, res.Table.HasColumn(lovd.KeyColumn), "no hg38 fill without a converter")
	assert.Equal(t, 0, res.Conversions)
	assert.Equal(t, []string{"VCV1", "", "", ""}, strs(t, res.Table, "Accession_clinvar"))
}

func TestRun_LiftoverCache(t *testing.T) {
	f := writeFixture(t)
	cache := duckdb.NewLiftoverCache(filepath.Join(f.dir, "cache"))
	var calls int32
	conv := liftover.ConverterFunc(func(ctx context.Context, chrom string, pos int64) (int64, error) {
		atomic.AddInt32(&calls, 1)
		return liftover.Offset(-709896).Convert(ctx, chrom, pos)
	})
	cfg := Config{LOVD: f.lovd, Converter: conv, LiftoverCache: cache, LiftoverSource: "test"}

	first, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Conversions)

	second, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Conversions)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, strs(t, first.Table, lovd.KeyColumn), strs(t, second.Table, lovd.KeyColumn))
}

func TestRun_Failures(t *testing.T) {
	f := writeFixture(t)
	ctx := context.Background()

	_, err := Run(ctx, Config{Converter: liftover.Offset(0)})
	assert.True(t, failure.Is(err, failure.Precondition), "LOVD is required")

	_, err = Run(ctx, Config{LOVD: f.lovd, GnomAD: f.gnomad})
	assert.True(t, failure.Is(err, failure.Precondition), "gnomAD merge needs a converter")

	_, err = Run(ctx, Config{LOVD: f.lovd, GnomAD: filepath.Join(f.dir, "none.csv"), Converter: liftover.Offset(0)})
	assert.True(t, failure.Is(err, failure.NotFound))

	drift := filepath.Join(f.dir, "drift.csv")
	require.NoError(t, os.WriteFile(drift, []byte("gnomAD ID,Unheard Of\nx,1\n"), 0644))
	_, err = Run(ctx, Config{LOVD: f.lovd, GnomAD: drift, Converter: liftover.Offset(0)})
	assert.True(t, failure.Is(err, failure.SchemaDrift))
}

func TestLoaders(t *testing.T) {
	for src := range sourceNames {
		_, ok := Loaders[src]
		assert.True(t, ok, "no loader for %s", src)

		parsed, err := ParseSource(src.String())
		require.NoError(t, err)
		assert.Equal(t, src, parsed)
	}
	_, err := ParseSource("dbsnp")
	assert.Error(t, err)

	_, err = Load(context.Background(), Source(42), "x", nil)
	assert.True(t, failure.Is(err, failure.Precondition))
}

func TestLoad_Fingerprint(t *testing.T) {
	f := writeFixture(t)
	in, err := Load(context.Background(), SourceClinVar, f.clinvar, nil)
	require.NoError(t, err)
	assert.Equal(t, SourceClinVar, in.Source)
	assert.Equal(t, int64(len(clinvarTSV)), in.Fingerprint.Size)
	assert.Equal(t, 1, in.Table.Len())
}
