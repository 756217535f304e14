// Package clinvar reads ClinVar tab-separated exports and derives the
// columns used to join them against LOVD.
package clinvar

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/table"
	"github.com/Strexas/kath/internal/variant"
)

// Column names of the ClinVar export and of derived columns.
const (
	TableName            = "clinvar"
	NameColumn           = "Name"
	ClassificationColumn = "Germline classification"
	AccessionColumn      = "Accession"
	LocationColumn       = "GRCh38Location"

	StartColumn = "GRCh38Start"
	EndColumn   = "GRCh38End"
	CDNAColumn  = "cDNA"
)

// ReadTSV reads a ClinVar tab-separated export with a header row.
func ReadTSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, failure.Wrap(failure.NotFound, path, err)
		}
		return nil, fmt.Errorf("open clinvar file: %w", err)
	}
	defer f.Close()

	t, err := table.ReadDelimited(f, TableName, '\t')
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, path, err)
	}
	return t, nil
}

// SplitLocation returns a copy of t with integer StartColumn and EndColumn
// parsed from column ("<start> - <end>" or a single position). Locations
// that do not parse are null on both sides and logged.
func SplitLocation(t *table.Table, column string, logger *zap.Logger) (*table.Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	locs, err := t.Values(column)
	if err != nil {
		return nil, failure.Wrap(failure.SchemaDrift, t.Name+"."+column, err)
	}

	starts := make([]table.Value, len(locs))
	ends := make([]table.Value, len(locs))
	skipped := 0
	for i, v := range locs {
		starts[i], ends[i] = table.Null(table.Integer), table.Null(table.Integer)
		s, ok := v.AsText()
		if !ok {
			continue
		}
		r, ok := variant.ParseRange(s)
		if !ok {
			skipped++
			logger.Warn("unparsable clinvar location", zap.Int("row", i), zap.String("location", s))
			continue
		}
		starts[i], ends[i] = table.IntValue(r.Start), table.IntValue(r.End)
	}
	if skipped > 0 {
		logger.Info("clinvar locations skipped", zap.Int("count", skipped), zap.Int("rows", len(locs)))
	}

	out, err := t.WithColumn(table.Column{Name: StartColumn, Kind: table.Integer}, starts)
	if err != nil {
		return nil, err
	}
	return out.WithColumn(table.Column{Name: EndColumn, Kind: table.Integer}, ends)
}

// WithCDNA returns a copy of t with CDNAColumn extracted from the Name column.
func WithCDNA(t *table.Table) (*table.Table, error) {
	names, err := t.Values(NameColumn)
	if err != nil {
		return nil, failure.Wrap(failure.SchemaDrift, t.Name+"."+NameColumn, err)
	}
	cdna := make([]table.Value, len(names))
	for i, v := range names {
		if s, ok := v.AsText(); ok {
			cdna[i] = table.TextValue(variant.ClinVarCDNA(s))
		} else {
			cdna[i] = table.Null(table.String)
		}
	}
	return t.WithColumn(table.Column{Name: CDNAColumn, Kind: table.String}, cdna)
}
