package output

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/table"
	"github.com/Strexas/kath/internal/variant"
)

// DefaultContigLength is the contig length written for chromosome 6 exports.
const DefaultContigLength = 63719980

// VCFOptions configures VCF export.
type VCFOptions struct {
	Chrom        string
	ContigLength int64
	// Column holds hg38 HGVS genomic notation, e.g. g.63720621C>T.
	Column string
	Logger *zap.Logger
}

// VCFWriter writes hg38 point substitutions as minimal VCF 4.2 records.
type VCFWriter struct {
	w    *bufio.Writer
	opts VCFOptions

	written int
	skipped int
}

// NewVCFWriter creates a new VCF output writer.
func NewVCFWriter(w io.Writer, opts VCFOptions) *VCFWriter {
	if opts.Chrom == "" {
		opts.Chrom = "6"
	}
	if opts.ContigLength == 0 {
		opts.ContigLength = DefaultContigLength
	}
	if opts.Column == "" {
		opts.Column = "VariantOnGenome/DNA/hg38"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &VCFWriter{w: bufio.NewWriter(w), opts: opts}
}

// WriteHeader writes the file format, contig and column header lines.
func (vw *VCFWriter) WriteHeader() error {
	_, err := fmt.Fprintf(vw.w, "##fileformat=VCFv4.2\n##contig=<ID=%s,length=%d>\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n",
		variant.NormalizeChrom(vw.opts.Chrom), vw.opts.ContigLength)
	return err
}

// WriteTable writes one record per point substitution in the configured
// column. Every other value is skipped and logged.
func (vw *VCFWriter) WriteTable(t *table.Table) error {
	vals, err := t.Values(vw.opts.Column)
	if err != nil {
		return failure.Wrap(failure.SchemaDrift, t.Name+"."+vw.opts.Column, err)
	}
	for _, v := range vals {
		s, _ := v.AsText()
		k := variant.ParseHGVS(s, vw.opts.Chrom)
		if k.Kind != variant.KindSubstitution {
			vw.skipped++
			vw.opts.Logger.Warn("skipping variant", zap.String("variant", s))
			continue
		}
		if _, err := fmt.Fprintf(vw.w, "%s\t%d\t.\t%c\t%c\t.\t.\t.\n", k.Chrom, k.Pos, k.Ref, k.Alt); err != nil {
			return err
		}
		vw.written++
	}
	return nil
}

// Counts returns the number of records written and values skipped.
func (vw *VCFWriter) Counts() (written, skipped int) {
	return vw.written, vw.skipped
}

// Flush flushes buffered output.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

// WriteLOVDVCF writes the hg38 substitutions of t as a VCF document.
func WriteLOVDVCF(w io.Writer, t *table.Table, opts VCFOptions) error {
	vw := NewVCFWriter(w, opts)
	if err := vw.WriteHeader(); err != nil {
		return failure.Wrap(failure.Write, "vcf", err)
	}
	if err := vw.WriteTable(t); err != nil {
		if failure.KindOf(err) == failure.Unknown {
			return failure.Wrap(failure.Write, "vcf", err)
		}
		return err
	}
	if err := vw.Flush(); err != nil {
		return failure.Wrap(failure.Write, "vcf", err)
	}
	return nil
}
