package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/table"
)

func hg38Table(t *testing.T, values ...string) *table.Table {
	t.Helper()
	tbl := table.NewText("Variants_On_Genome", []string{"id", "VariantOnGenome/DNA/hg38"})
	for i, v := range values {
		cell := table.Null(table.String)
		if v != "" {
			cell = table.TextValue(v)
		}
		require.NoError(t, tbl.Append([]table.Value{table.IntValue(int64(i + 1)), cell}))
	}
	return tbl
}

func TestWriteLOVDVCF(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	tbl := hg38Table(t, "g.63720621C>T", "g.63720622dup", "g.63720100_63720200del", "", "g.63436587A>G")

	var buf bytes.Buffer
	require.NoError(t, WriteLOVDVCF(&buf, tbl, VCFOptions{Logger: zap.New(core)}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"##fileformat=VCFv4.2",
		"##contig=<ID=6,length=63719980>",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO",
		"6\t63720621\t.\tC\tT\t.\t.\t.",
		"6\t63436587\t.\tA\tG\t.\t.\t.",
	}, lines)
	assert.Equal(t, 3, logs.Len(), "dup, interval and empty values are skipped")
}

func TestVCFWriter_Options(t *testing.T) {
	tbl := table.NewText("v", []string{"hg38"})
	require.NoError(t, tbl.Append([]table.Value{table.TextValue("g.100A>C")}))

	var buf bytes.Buffer
	vw := NewVCFWriter(&buf, VCFOptions{Chrom: "chrX", ContigLength: 156040895, Column: "hg38"})
	require.NoError(t, vw.WriteHeader())
	require.NoError(t, vw.WriteTable(tbl))
	require.NoError(t, vw.Flush())

	assert.Contains(t, buf.String(), "##contig=<ID=X,length=156040895>\n")
	assert.True(t, strings.HasSuffix(buf.String(), "X\t100\t.\tA\tC\t.\t.\t.\n"))
	written, skipped := vw.Counts()
	assert.Equal(t, 1, written)
	assert.Equal(t, 0, skipped)
}

func TestWriteLOVDVCF_MissingColumn(t *testing.T) {
	tbl := table.NewText("Variants_On_Genome", []string{"id"})
	err := WriteLOVDVCF(&bytes.Buffer{}, tbl, VCFOptions{})
	assert.True(t, failure.Is(err, failure.SchemaDrift))
}
