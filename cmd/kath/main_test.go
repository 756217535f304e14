package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strexas/kath/internal/colstats"
	"github.com/Strexas/kath/internal/failure"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func TestRun_ExitCodes(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	csv := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(csv, []byte("id,Popmax\n1,0.5\n2,0.25\n"), 0o644))

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"normalize", []string{"normalize", "g.63720621C>T"}, ExitSuccess},
		{"aggregate", []string{"aggregate", csv, "Popmax=max", "id=cnt"}, ExitSuccess},
		{"missing args", []string{"normalize"}, ExitUsage},
		{"unknown flag", []string{"parse", "--nope", "x"}, ExitUsage},
		{"bad aggregation", []string{"aggregate", csv, "Popmax"}, ExitUsage},
		{"bad op", []string{"aggregate", csv, "Popmax=median"}, ExitUsage},
		{"missing file", []string{"aggregate", filepath.Join(dir, "none.csv"), "id=cnt"}, ExitError},
		{"missing column", []string{"aggregate", csv, "nope=sum"}, ExitError},
		{"merge without inputs", []string{"merge", "gnomad"}, ExitUsage},
		{"fetch unknown source", []string{"fetch", "clinvar"}, ExitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(tt.args))
		})
	}
}

func TestRun_Popmax(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "gnomad.csv")
	out := filepath.Join(dir, "popmax.csv")
	content := "gnomAD ID,exome_ac_afr,exome_an_afr,exome_ac_eas,exome_an_eas\n" +
		"6-63720621-C-T,1,10,3,10\n"
	require.NoError(t, os.WriteFile(in, []byte(content), 0o644))

	require.Equal(t, ExitSuccess, run([]string{"popmax", in, "-o", out}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Popmax population")
	assert.Contains(t, string(data), "East Asian")
}

const lovdExport = "### LOVD-version 3000-290 ### Full data download ### To import, do not remove or alter this header ###\n" +
	"\n" +
	"## Variants_On_Genome ## Do not remove or alter this header ##\n" +
	"\"{{id}}\"\t\"{{position_g_start}}\"\t\"{{position_g_end}}\"\t\"{{VariantOnGenome/DNA}}\"\t\"{{VariantOnGenome/DNA/hg38}}\"\n" +
	"\"0000000001\"\t\"64430518\"\t\"64430518\"\t\"g.64430518dup\"\t\"\"\n" +
	"\n\n" +
	"## Variants_On_Transcripts ## Do not remove or alter this header ##\n" +
	"\"{{id}}\"\t\"{{transcriptid}}\"\t\"{{VariantOnTranscript/DNA}}\"\n" +
	"\"0000000001\"\t\"00001\"\t\"c.1211dup\"\n"

func TestRun_MergeClinVarWithoutChain(t *testing.T) {
	isolateHome(t)
	dir := t.TempDir()
	lovdPath := filepath.Join(dir, "lovd.txt")
	clinvarPath := filepath.Join(dir, "clinvar.tsv")
	out := filepath.Join(dir, "merged.csv")
	require.NoError(t, os.WriteFile(lovdPath, []byte(lovdExport), 0o644))
	require.NoError(t, os.WriteFile(clinvarPath,
		[]byte("Name\tGermline classification\tAccession\tGRCh38Location\n"+
			"NM_001142800.2(EYS):c.1211dup (p.Asn404fs)\tPathogenic\tVCV1\t64430518\n"), 0o644))

	for _, by := range []string{"position", "cdna"} {
		t.Run(by, func(t *testing.T) {
			code := run([]string{"merge", "clinvar", "--lovd", lovdPath, "--clinvar", clinvarPath, "--by", by, "-o", out})
			require.Equal(t, ExitSuccess, code, "no chain file is needed")
			data, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Contains(t, string(data), "VCV1")
		})
	}

	gnomadPath := filepath.Join(dir, "gnomad.csv")
	require.NoError(t, os.WriteFile(gnomadPath, []byte("gnomAD ID\n6-63720621-C-T\n"), 0o644))
	assert.Equal(t, ExitError,
		run([]string{"merge", "gnomad", "--lovd", lovdPath, "--gnomad", gnomadPath, "-o", out}),
		"gnomAD merge still needs the chain file")
}

func TestParseAggregations(t *testing.T) {
	ops, err := parseAggregations([]string{"Popmax=max", "Allele Count_gnomad=SUM"})
	require.NoError(t, err)
	assert.Equal(t, map[string]colstats.Op{
		"Popmax":              colstats.Max,
		"Allele Count_gnomad": colstats.Sum,
	}, ops)

	_, err = parseAggregations([]string{"=sum"})
	var ue usageError
	assert.ErrorAs(t, err, &ue)
}

func TestDefaultFetchPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "lovd", "lovd_eys.txt"), defaultFetchPath("lovd", "EYS"))
	assert.Equal(t, filepath.Join("data", "gnomad", "gnomad_eys.json"), defaultFetchPath("gnomad", "EYS"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2<<20))
}

func TestHintFor(t *testing.T) {
	assert.NotEmpty(t, hintFor(failure.New(failure.NotFound, "x", "missing")))
	assert.Empty(t, hintFor(failure.New(failure.Write, "x", "disk full")))
}
