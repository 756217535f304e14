package gnomad

import (
	"fmt"
	"io"

	"github.com/Jeffail/gabs"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/schema"
	"github.com/Strexas/kath/internal/table"
)

// GraphQLIDColumn is the variant identifier column of API-derived tables.
const GraphQLIDColumn = "variant_id"

// graphQLColumns are the fixed leading columns of FromGraphQL tables.
var graphQLColumns = []table.Column{
	{Name: GraphQLIDColumn, Kind: table.String},
	{Name: "chrom", Kind: table.String},
	{Name: "pos", Kind: table.Integer},
	{Name: "ref", Kind: table.String},
	{Name: "alt", Kind: table.String},
	{Name: "HGVS Consequence", Kind: table.String},
	{Name: "Protein Consequence", Kind: table.String},
	{Name: "total_ac", Kind: table.Integer},
	{Name: "total_an", Kind: table.Integer},
	{Name: "Allele Frequency", Kind: table.Double},
	{Name: "Homozygote Count", Kind: table.Integer},
}

// FromGraphQL flattens a gnomAD API response (data.gene.variants[]) into a
// typed table with per-cohort, per-stratum allele counts and numbers.
func FromGraphQL(r io.Reader) (*table.Table, error) {
	parsed, err := gabs.ParseJSONBuffer(r)
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, "gnomad response", err)
	}
	if err := responseError(parsed); err != nil {
		return nil, err
	}

	variants := parsed.Path("data.gene.variants")
	if variants.Data() == nil {
		return nil, failure.New(failure.MalformedInput, "gnomad response", "missing data.gene.variants")
	}
	children, err := variants.Children()
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, "gnomad response", fmt.Errorf("data.gene.variants: %w", err))
	}

	cols := append([]table.Column(nil), graphQLColumns...)
	for _, cohort := range Cohorts {
		for _, p := range Populations {
			cols = append(cols,
				table.Column{Name: CountColumn(cohort, p.ID), Kind: table.Integer},
				table.Column{Name: NumberColumn(cohort, p.ID), Kind: table.Integer},
			)
		}
	}
	t := table.New(schema.GnomADTable, cols...)
	t.Typed = true

	for _, v := range children {
		row, err := variantRow(v)
		if err != nil {
			return nil, err
		}
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func variantRow(v *gabs.Container) ([]table.Value, error) {
	id := text(v, "variant_id")
	if id.IsNull() {
		return nil, failure.New(failure.MalformedInput, "gnomad response", "variant without variant_id")
	}

	var ac, an, hom int64
	for _, cohort := range Cohorts {
		ac += count(v, cohort+".ac")
		an += count(v, cohort+".an")
		hom += count(v, cohort+".ac_hom")
	}
	freq := table.Null(table.Double)
	if an != 0 {
		freq = table.FloatValue(float64(ac) / float64(an))
	}

	pos := table.Null(table.Integer)
	if f, ok := v.Path("pos").Data().(float64); ok {
		pos = table.IntValue(int64(f))
	}

	row := []table.Value{
		id,
		text(v, "chrom"),
		pos,
		text(v, "ref"),
		text(v, "alt"),
		text(v, "hgvsc"),
		text(v, "hgvsp"),
		table.IntValue(ac),
		table.IntValue(an),
		freq,
		table.IntValue(hom),
	}

	for _, cohort := range Cohorts {
		byPop := make(map[string][2]int64)
		if pops, err := v.Path(cohort + ".populations").Children(); err == nil {
			for _, p := range pops {
				pid, _ := p.Path("id").Data().(string)
				byPop[pid] = [2]int64{count(p, "ac"), count(p, "an")}
			}
		}
		for _, p := range Populations {
			c := byPop[p.ID]
			row = append(row, table.IntValue(c[0]), table.IntValue(c[1]))
		}
	}
	return row, nil
}

func text(c *gabs.Container, path string) table.Value {
	if s, ok := c.Path(path).Data().(string); ok {
		return table.TextValue(s)
	}
	return table.Null(table.String)
}

// count reads a numeric field, treating a missing or null value as zero.
func count(c *gabs.Container, path string) int64 {
	f, _ := c.Path(path).Data().(float64)
	return int64(f)
}

// responseError reports GraphQL-level errors carried in a 200 response.
func responseError(parsed *gabs.Container) error {
	errs, err := parsed.Path("errors").Children()
	if err != nil || len(errs) == 0 {
		return nil
	}
	msg, _ := errs[0].Path("message").Data().(string)
	return failure.New(failure.Collaborator, "gnomad api", "graphql error: %s", msg)
}
