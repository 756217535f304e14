package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Strexas/kath/internal/duckdb"
	"github.com/Strexas/kath/internal/output"
	"github.com/Strexas/kath/internal/pipeline"
)

// mergeFlags are shared by the merge subcommands.
type mergeFlags struct {
	lovd       string
	gnomad     string
	graphql    bool
	clinvar    string
	by         string
	output     string
	appendOut  bool
	store      bool
	storeTable string
}

func (f *mergeFlags) register(cmd *cobra.Command, gnomad, clinvar bool) {
	cmd.Flags().StringVar(&f.lovd, "lovd", "", "LOVD full-data export (required)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output CSV (required)")
	cmd.Flags().BoolVar(&f.appendOut, "append", false, "Append to an existing output CSV instead of replacing it")
	cmd.Flags().BoolVar(&f.store, "store", false, "Also save the result and a run record in the DuckDB store (store.path)")
	cmd.Flags().StringVar(&f.storeTable, "table", pipeline.DefaultStoreTable, "Store table name")
	if gnomad {
		cmd.Flags().StringVar(&f.gnomad, "gnomad", "", "gnomAD browser CSV export, or API response with --graphql")
		cmd.Flags().BoolVar(&f.graphql, "graphql", false, "Read --gnomad as a gnomAD API (GraphQL) response")
	}
	if clinvar {
		cmd.Flags().StringVar(&f.clinvar, "clinvar", "", "ClinVar tab-separated export")
		cmd.Flags().StringVar(&f.by, "by", "position", "ClinVar join: position or cdna")
	}
}

func (f *mergeFlags) run(cmd *cobra.Command, needGnomAD, needClinVar bool) error {
	if f.lovd == "" || f.output == "" {
		return usagef("--lovd and --output are required")
	}
	if needGnomAD && f.gnomad == "" {
		return usagef("--gnomad is required")
	}
	if needClinVar && f.clinvar == "" {
		return usagef("--clinvar is required")
	}
	by := strings.ToLower(f.by)
	if f.clinvar != "" && by != "position" && by != "cdna" {
		return usagef("--by must be position or cdna, got %q", f.by)
	}

	progress, finish := rowProgress()
	defer finish()

	cfg := pipeline.Config{
		LOVD:           f.lovd,
		GnomAD:         f.gnomad,
		GnomADIDColumn: viper.GetString("gnomad.id_column"),
		ClinVar:        f.clinvar,
		ClinVarByCDNA:  by == "cdna",
		Chrom:          viper.GetString("chromosome"),
		HG19Column:     viper.GetString("lovd.hg19_column"),
		HG38Column:     viper.GetString("lovd.hg38_column"),
		Output:         f.output,
		StoreTable:     f.storeTable,
		Progress:       progress,
		Logger:         logger,
	}
	// Only the gnomAD join uses the hg38 key, so ClinVar-only merges run
	// without a chain file.
	if f.gnomad != "" {
		setup, err := newConverter()
		if err != nil {
			return err
		}
		cfg.Converter = setup.conv
		cfg.LiftoverCache = setup.cache
		cfg.LiftoverSource = setup.source
		cfg.Chain = setup.chain
	}
	if f.graphql {
		cfg.GnomADSource = pipeline.SourceGnomADGraphQL
	}
	if f.appendOut {
		cfg.Mode = output.Append
	}
	if f.store {
		store, err := duckdb.Open(viper.GetString("store.path"))
		if err != nil {
			return err
		}
		defer store.Close()
		cfg.Store = store
	}

	res, err := pipeline.Run(cmd.Context(), cfg)
	finish()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Merged %d rows into %s (%d liftover lookups)\n", res.Table.Len(), f.output, res.Conversions)
	if res.RunID != "" {
		fmt.Fprintf(os.Stderr, "Run %s saved to table %s\n", res.RunID, f.storeTable)
	}
	return nil
}

func newMergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge LOVD with gnomAD and/or ClinVar",
		Long: `Merge the LOVD variant view with gnomAD and/or ClinVar. LOVD rows without
an hg38 notation are lifted over from hg19 using liftover.source. Every merge
is an outer join: variants known to one source only are kept.`,
	}

	var g, c, a mergeFlags
	gnomadCmd := &cobra.Command{
		Use:     "gnomad",
		Short:   "Merge LOVD with gnomAD and compute popmax",
		Example: `  kath merge gnomad --lovd data/lovd/lovd_eys.txt --gnomad data/gnomad/gnomad_eys.csv -o data/merged/lovd_gnomad.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(cmd, true, false)
		},
	}
	g.register(gnomadCmd, true, false)

	clinvarCmd := &cobra.Command{
		Use:     "clinvar",
		Short:   "Merge LOVD with ClinVar",
		Example: `  kath merge clinvar --lovd data/lovd/lovd_eys.txt --clinvar data/clinvar/clinvar_eys.txt --by cdna -o data/merged/lovd_clinvar.csv`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, false, true)
		},
	}
	c.register(clinvarCmd, false, true)

	allCmd := &cobra.Command{
		Use:   "all",
		Short: "Run the full pipeline: LOVD, gnomAD, ClinVar and popmax",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, true, true)
		},
	}
	a.register(allCmd, true, true)

	cmd.AddCommand(gnomadCmd, clinvarCmd, allCmd)
	return cmd
}
