// Package gnomad reads gnomAD variant data, either the browser CSV export or
// a GraphQL API response, into tables.
package gnomad

// Population is one gnomAD ancestry stratum.
type Population struct {
	ID   string
	Name string
}

// Populations lists the gnomAD v4 strata in the order used for popmax.
var Populations = []Population{
	{"afr", "African/African American"},
	{"eas", "East Asian"},
	{"asj", "Ashkenazi Jewish"},
	{"sas", "South Asian"},
	{"nfe", "European (non-Finnish)"},
	{"fin", "European (Finnish)"},
	{"mid", "Middle Eastern"},
	{"amr", "Admixed American"},
	{"ami", "Amish"},
	{"remaining", "Remaining"},
}

// PopulationName returns the display name for a stratum id.
func PopulationName(id string) (string, bool) {
	for _, p := range Populations {
		if p.ID == id {
			return p.Name, true
		}
	}
	return "", false
}

// Cohorts are the two gnomAD sequencing cohorts.
var Cohorts = []string{"exome", "genome"}

// CountColumn names the per-cohort allele count column, e.g. exome_ac_afr.
func CountColumn(cohort, pop string) string { return cohort + "_ac_" + pop }

// NumberColumn names the per-cohort allele number column, e.g. genome_an_nfe.
func NumberColumn(cohort, pop string) string { return cohort + "_an_" + pop }
