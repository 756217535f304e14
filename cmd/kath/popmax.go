package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Strexas/kath/internal/colstats"
	"github.com/Strexas/kath/internal/output"
	"github.com/Strexas/kath/internal/popmax"
	"github.com/Strexas/kath/internal/schema"
)

var layouts = map[string]popmax.Layout{
	"auto":    popmax.Auto,
	"cohort":  popmax.Cohort,
	"browser": popmax.Browser,
}

func newPopmaxCmd() *cobra.Command {
	var (
		outPath string
		suffix  string
		layout  string
	)
	cmd := &cobra.Command{
		Use:   "popmax <csv>",
		Short: "Compute per-population frequencies and popmax over a CSV",
		Long: `Read a gnomAD CSV (browser export or a merge result) and add
Allele_Frequency_<population>, Popmax and Popmax population columns.`,
		Example: `  kath popmax data/gnomad/gnomad_eys.csv -o data/gnomad/popmax.csv
  kath popmax data/merged/lovd_gnomad.csv --suffix _gnomad -o data/merged/popmax.csv`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, ok := layouts[strings.ToLower(layout)]
			if !ok {
				return usagef("--layout must be auto, cohort or browser, got %q", layout)
			}
			if outPath == "" {
				return usagef("--output is required")
			}
			in, err := readCSV(args[0])
			if err != nil {
				return err
			}
			out, err := popmax.Aggregate(schema.Infer(in), popmax.Options{Layout: l, Suffix: suffix, Logger: logger})
			if err != nil {
				return err
			}
			return output.WriteCSV(outPath, out, output.Override)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output CSV (required)")
	cmd.Flags().StringVar(&suffix, "suffix", "", "Suffix of the count columns, e.g. _gnomad")
	cmd.Flags().StringVar(&layout, "layout", "auto", "Count column layout: auto, cohort or browser")
	return cmd
}

// parseAggregations parses column=op arguments.
func parseAggregations(args []string) (map[string]colstats.Op, error) {
	ops := make(map[string]colstats.Op, len(args))
	for _, a := range args {
		col, name, ok := strings.Cut(a, "=")
		if !ok || col == "" {
			return nil, usagef("aggregation %q is not column=op", a)
		}
		op, err := colstats.ParseOp(name)
		if err != nil {
			return nil, usageError{err}
		}
		ops[col] = op
	}
	return ops, nil
}

func newAggregateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate <csv> <column=op>...",
		Short: "Compute column statistics (sum, avg, min, max, cnt)",
		Long: `Aggregate columns of a CSV. cnt counts non-empty cells; the other operations
use numeric cells only. Cells an operation cannot use are reported as skipped.`,
		Example: `  kath aggregate data/merged/eys.csv "Popmax=max" "Allele Count_gnomad=sum" id=cnt`,
		Args:    minimumArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := parseAggregations(args[1:])
			if err != nil {
				return err
			}
			t, err := readCSV(args[0])
			if err != nil {
				return err
			}
			results, err := colstats.Aggregate(t, ops)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tOP\tVALUE\tSKIPPED")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.Column, r.Op, r.Formatted(), r.Skipped)
			}
			return tw.Flush()
		},
	}
}
