package lovd

import (
	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/schema"
	"github.com/Strexas/kath/internal/table"
)

// Table and column names of the LOVD 3 export used by the merge routes.
const (
	GenomeTable      = "Variants_On_Genome"
	TranscriptsTable = "Variants_On_Transcripts"

	HG19Column  = "VariantOnGenome/DNA"
	HG38Column  = "VariantOnGenome/DNA/hg38"
	CDNAColumn  = "VariantOnTranscript/DNA"
	StartColumn = "position_g_start"
	EndColumn   = "position_g_end"
)

var genomeViewColumns = []string{"id", StartColumn, EndColumn, HG19Column, HG38Column}

// Coerce returns a copy of the export with every table typed by set.
func (e *Export) Coerce(set *schema.Set) (*Export, error) {
	typed, err := schema.Coerce(e.tables, set)
	if err != nil {
		return nil, err
	}
	return NewExport(e.Path, typed...), nil
}

// VariantView left-joins the transcript variants with the genomic columns
// of their parent genome variant. Both tables must be typed so that ids
// compare as integers.
func VariantView(e *Export) (*table.Table, error) {
	vot, ok := e.Table(TranscriptsTable)
	if !ok {
		return nil, failure.New(failure.MalformedInput, e.Path, "export has no %s table", TranscriptsTable)
	}
	vog, ok := e.Table(GenomeTable)
	if !ok {
		return nil, failure.New(failure.MalformedInput, e.Path, "export has no %s table", GenomeTable)
	}
	for _, t := range []*table.Table{vot, vog} {
		if !t.Typed {
			return nil, failure.New(failure.Precondition, t.Name, "table must be coerced before building the variant view")
		}
	}

	genome, err := vog.Select(genomeViewColumns...)
	if err != nil {
		return nil, failure.Wrap(failure.SchemaDrift, GenomeTable, err)
	}
	j, err := table.Join(vot, genome, table.JoinSpec{
		Name:    "lovd",
		LeftOn:  "id",
		RightOn: "id",
		Kind:    table.Left,
	})
	if err != nil {
		return nil, err
	}
	return j.Table, nil
}
