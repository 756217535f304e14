// Package popmax computes per-population allele frequencies and the
// population with the highest frequency (popmax) for gnomAD-associated rows.
package popmax

import (
	"go.uber.org/zap"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/gnomad"
	"github.com/Strexas/kath/internal/table"
)

// Output columns.
const (
	FrequencyPrefix  = "Allele_Frequency_"
	PopmaxColumn     = "Popmax"
	PopulationColumn = "Popmax population"
)

// Layout selects where per-population counts are read from.
type Layout int

const (
	// Auto detects the layout from the column names.
	Auto Layout = iota
	// Cohort reads exome_ac_<id>, exome_an_<id>, genome_ac_<id>, genome_an_<id>.
	Cohort
	// Browser reads "Allele Count <name>" and "Allele Number <name>".
	Browser
)

func (l Layout) String() string {
	switch l {
	case Cohort:
		return "cohort"
	case Browser:
		return "browser"
	default:
		return "auto"
	}
}

// Options configures Aggregate.
type Options struct {
	Layout Layout
	// Suffix is appended to every input column name, e.g. "_gnomad" after a
	// merge.
	Suffix string
	Logger *zap.Logger
}

// stratum holds the column positions (-1 when absent) of one population.
type stratum struct {
	pop     gnomad.Population
	acs     []int
	ans     []int
	freqCol string
}

// DetectLayout inspects t for either count layout.
func DetectLayout(t *table.Table, suffix string) (Layout, error) {
	first := gnomad.Populations[0]
	if t.HasColumn(gnomad.CountColumn("exome", first.ID)+suffix) ||
		t.HasColumn(gnomad.CountColumn("genome", first.ID)+suffix) {
		return Cohort, nil
	}
	if t.HasColumn(browserCount(first.Name) + suffix) {
		return Browser, nil
	}
	return Auto, failure.New(failure.Precondition, t.Name, "no per-population allele count columns (suffix %q)", suffix)
}

func browserCount(name string) string  { return "Allele Count " + name }
func browserNumber(name string) string { return "Allele Number " + name }

func strata(t *table.Table, layout Layout, suffix string) []stratum {
	out := make([]stratum, len(gnomad.Populations))
	for i, p := range gnomad.Populations {
		s := stratum{pop: p, freqCol: FrequencyPrefix + p.ID}
		switch layout {
		case Cohort:
			for _, c := range gnomad.Cohorts {
				s.acs = append(s.acs, t.ColumnIndex(gnomad.CountColumn(c, p.ID)+suffix))
				s.ans = append(s.ans, t.ColumnIndex(gnomad.NumberColumn(c, p.ID)+suffix))
			}
		case Browser:
			s.acs = []int{t.ColumnIndex(browserCount(p.Name) + suffix)}
			s.ans = []int{t.ColumnIndex(browserNumber(p.Name) + suffix)}
		}
		out[i] = s
	}
	return out
}

// sum adds the numeric cells at positions, treating missing cells as zero.
// present reports whether any cell was non-null.
func sum(row []table.Value, positions []int) (total float64, present bool) {
	for _, p := range positions {
		if p < 0 {
			continue
		}
		if f, ok := row[p].AsFloat(); ok {
			total += f
			present = true
		}
	}
	return total, present
}

// Aggregate returns a copy of t with Allele_Frequency_<id> per population
// and the Popmax and Popmax population columns.
//
// The frequency of a population is (sum of counts) / (sum of numbers); a
// zero denominator gives a null frequency. Popmax starts at 0 and is
// replaced only by a strictly greater frequency, so ties keep the earlier
// population and an all-zero row reports the first one. Rows without any
// per-population cell have no gnomAD association and get null outputs.
func Aggregate(t *table.Table, opts Options) (*table.Table, error) {
	if !t.Typed {
		return nil, failure.New(failure.Precondition, t.Name, "table must be coerced before popmax")
	}
	layout := opts.Layout
	if layout == Auto {
		var err error
		if layout, err = DetectLayout(t, opts.Suffix); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	st := strata(t, layout, opts.Suffix)
	freqs := make([][]table.Value, len(st))
	for i := range freqs {
		freqs[i] = make([]table.Value, t.Len())
	}
	popmax := make([]table.Value, t.Len())
	population := make([]table.Value, t.Len())

	associated := 0
	for r, row := range t.Rows {
		seen := false
		best := 0.0
		bestPop := st[0].pop.Name
		for i, s := range st {
			ac, acOK := sum(row, s.acs)
			an, anOK := sum(row, s.ans)
			seen = seen || acOK || anOK
			if an == 0 {
				freqs[i][r] = table.Null(table.Double)
				continue
			}
			f := ac / an
			freqs[i][r] = table.FloatValue(f)
			if f > best {
				best, bestPop = f, s.pop.Name
			}
		}
		if !seen {
			for i := range st {
				freqs[i][r] = table.Null(table.Double)
			}
			popmax[r] = table.Null(table.Double)
			population[r] = table.Null(table.String)
			continue
		}
		associated++
		popmax[r] = table.FloatValue(best)
		population[r] = table.TextValue(bestPop)
	}

	out := t
	for i, s := range st {
		var err error
		if out, err = out.WithColumn(table.Column{Name: s.freqCol, Kind: table.Double}, freqs[i]); err != nil {
			return nil, err
		}
	}
	out, err := out.WithColumn(table.Column{Name: PopmaxColumn, Kind: table.Double}, popmax)
	if err != nil {
		return nil, err
	}
	out, err = out.WithColumn(table.Column{Name: PopulationColumn, Kind: table.String}, population)
	if err != nil {
		return nil, err
	}

	logger.Info("computed popmax",
		zap.Stringer("layout", layout),
		zap.Int("rows", t.Len()),
		zap.Int("associated", associated))
	return out, nil
}
