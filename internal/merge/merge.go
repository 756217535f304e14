// Package merge reconciles the LOVD variant view with gnomAD and ClinVar.
//
// Every merge is an outer join: variants known to only one source are kept
// with nulls on the other side. Columns of the second source are suffixed
// rather than overwritten, and duplicate keys yield the cross product of the
// matching rows.
package merge

import (
	"go.uber.org/zap"

	"github.com/Strexas/kath/internal/clinvar"
	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/gnomad"
	"github.com/Strexas/kath/internal/lovd"
	"github.com/Strexas/kath/internal/table"
	"github.com/Strexas/kath/internal/variant"
)

// Column suffixes applied to second-source columns.
const (
	GnomADSuffix  = "_gnomad"
	ClinVarSuffix = "_clinvar"
)

// Options configures the merges.
type Options struct {
	// GnomADIDColumn is the gnomAD identifier column before suffixing.
	// Defaults to gnomad.IDColumn.
	GnomADIDColumn string
	Logger         *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// matchable rejects the unresolved sentinel and empty text as join keys.
func matchable(v table.Value) bool {
	s, ok := v.AsText()
	if !ok {
		return true
	}
	return s != "" && s != variant.Unresolved
}

func requireTyped(tables ...*table.Table) error {
	for _, t := range tables {
		if !t.Typed {
			return failure.New(failure.Precondition, t.Name, "table must be coerced before merging")
		}
	}
	return nil
}

func requireColumns(t *table.Table, names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return failure.New(failure.Precondition, t.Name+"."+n, "merge input lacks column %q", n)
		}
	}
	return nil
}

// LOVDGnomAD outer-joins the LOVD variant view with gnomAD on the hg38
// gnomAD-format key. The view must already carry lovd.KeyColumn. Every
// gnomAD column is suffixed with GnomADSuffix.
func LOVDGnomAD(view, gnomadTable *table.Table, opts Options) (*table.Table, error) {
	if err := requireTyped(view, gnomadTable); err != nil {
		return nil, err
	}
	if err := requireColumns(view, lovd.KeyColumn); err != nil {
		return nil, err
	}
	idCol := opts.GnomADIDColumn
	if idCol == "" {
		idCol = gnomad.IDColumn
	}
	if err := requireColumns(gnomadTable, idCol); err != nil {
		return nil, err
	}

	suffixed, err := gnomadTable.WithSuffix(GnomADSuffix, nil)
	if err != nil {
		return nil, err
	}
	j, err := table.Join(view, suffixed, table.JoinSpec{
		Name:      "lovd_gnomad",
		LeftOn:    lovd.KeyColumn,
		RightOn:   idCol + GnomADSuffix,
		Kind:      table.Outer,
		Matchable: matchable,
	})
	if err != nil {
		return nil, err
	}

	opts.logger().Info("merged lovd with gnomad",
		zap.Int("lovd_rows", view.Len()),
		zap.Int("gnomad_rows", gnomadTable.Len()),
		zap.Int("rows", j.Len()))
	return j.Table, nil
}

// prepareClinVar renames the ambiguous ClinVar columns and suffixes every
// other column whose name the LOVD side already uses.
func prepareClinVar(view, cv *table.Table) (*table.Table, error) {
	mapping := map[string]string{
		clinvar.ClassificationColumn: clinvar.ClassificationColumn + ClinVarSuffix,
		clinvar.AccessionColumn:      clinvar.AccessionColumn + ClinVarSuffix,
	}
	for _, name := range cv.ColumnNames() {
		if _, ok := mapping[name]; !ok && view.HasColumn(name) {
			mapping[name] = name + ClinVarSuffix
		}
	}
	out, err := cv.Rename(mapping)
	if err != nil {
		return nil, err
	}
	// ClinVar has no column schema: its cells are text apart from the
	// derived integer location columns.
	out.Typed = true
	return out, nil
}

// LOVDClinVar joins the LOVD variant view with ClinVar twice, genomic start
// against the ClinVar range start and genomic end against the range end, and
// combines the two results taking the first non-null value per cell.
func LOVDClinVar(view, cv *table.Table, opts Options) (*table.Table, error) {
	if err := requireTyped(view); err != nil {
		return nil, err
	}
	if err := requireColumns(view, lovd.StartColumn, lovd.EndColumn); err != nil {
		return nil, err
	}

	located, err := clinvar.SplitLocation(cv, clinvar.LocationColumn, opts.Logger)
	if err != nil {
		return nil, err
	}
	located, err = prepareClinVar(view, located)
	if err != nil {
		return nil, err
	}

	byStart, err := table.Join(view, located, table.JoinSpec{
		Name:    "lovd_clinvar_start",
		LeftOn:  lovd.StartColumn,
		RightOn: clinvar.StartColumn,
		Kind:    table.Outer,
	})
	if err != nil {
		return nil, err
	}
	byEnd, err := table.Join(view, located, table.JoinSpec{
		Name:    "lovd_clinvar_end",
		LeftOn:  lovd.EndColumn,
		RightOn: clinvar.EndColumn,
		Kind:    table.Outer,
	})
	if err != nil {
		return nil, err
	}

	out, err := table.CombineFirst("lovd_clinvar", byStart, byEnd)
	if err != nil {
		return nil, err
	}
	opts.logger().Info("merged lovd with clinvar",
		zap.Int("lovd_rows", view.Len()),
		zap.Int("clinvar_rows", cv.Len()),
		zap.Int("start_rows", byStart.Len()),
		zap.Int("end_rows", byEnd.Len()),
		zap.Int("rows", out.Len()))
	return out, nil
}

// LOVDClinVarByCDNA outer-joins the LOVD transcript cDNA change against the
// cDNA extracted from the ClinVar Name column.
func LOVDClinVarByCDNA(view, cv *table.Table, opts Options) (*table.Table, error) {
	if err := requireTyped(view); err != nil {
		return nil, err
	}
	if err := requireColumns(view, lovd.CDNAColumn); err != nil {
		return nil, err
	}

	withCDNA, err := clinvar.WithCDNA(cv)
	if err != nil {
		return nil, err
	}
	withCDNA, err = prepareClinVar(view, withCDNA)
	if err != nil {
		return nil, err
	}

	j, err := table.Join(view, withCDNA, table.JoinSpec{
		Name:      "lovd_clinvar",
		LeftOn:    lovd.CDNAColumn,
		RightOn:   clinvar.CDNAColumn,
		Kind:      table.Outer,
		Matchable: matchable,
	})
	if err != nil {
		return nil, err
	}
	opts.logger().Info("merged lovd with clinvar by cdna",
		zap.Int("lovd_rows", view.Len()),
		zap.Int("clinvar_rows", cv.Len()),
		zap.Int("rows", j.Len()))
	return j.Table, nil
}
