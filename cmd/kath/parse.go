package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/lovd"
	"github.com/Strexas/kath/internal/output"
	"github.com/Strexas/kath/internal/schema"
	"github.com/Strexas/kath/internal/table"
	"github.com/Strexas/kath/internal/variant"
)

// parseLOVD parses and coerces a LOVD export.
func parseLOVD(path string) (*lovd.Export, error) {
	raw, err := lovd.ParseFile(path, logger)
	if err != nil {
		return nil, err
	}
	return raw.Coerce(schema.LOVD())
}

func newParseCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "parse <lovd.txt>",
		Short: "Parse and coerce a LOVD export",
		Long: `Parse a LOVD full-data download (plain or gzipped), coerce every table to
its column schema, and list the tables. With -o, each table is written to
<dir>/<table>.csv.`,
		Example: `  kath parse data/lovd/lovd_eys.txt
  kath parse data/lovd/lovd_eys.txt -o data/lovd/tables`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			export, err := parseLOVD(args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TABLE\tROWS\tCOLUMNS")
			for _, t := range export.Tables() {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", t.Name, t.Len(), t.Width())
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if outDir == "" {
				return nil
			}
			for _, t := range export.Tables() {
				path := filepath.Join(outDir, t.Name+".csv")
				if err := output.WriteCSV(path, t, output.Override); err != nil {
					return err
				}
				logger.Info("wrote table", zap.String("table", t.Name), zap.String("path", path))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Directory for one CSV per table")
	return cmd
}

func newNormalizeCmd() *cobra.Command {
	var chrom string
	cmd := &cobra.Command{
		Use:   "normalize <variant>...",
		Short: "Print the gnomAD-format key of each variant",
		Long: `Normalize HGVS genomic (g.) notation or gnomAD dash notation to the
canonical gnomAD identifier. Unsupported notations print "?".`,
		Example: `  kath normalize g.63720621C>T g.64430518dup 6-63720621-C-T`,
		Args:    minimumArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if chrom == "" {
				chrom = viper.GetString("chromosome")
			}
			for _, a := range args {
				fmt.Printf("%s\t%s\n", a, variant.NormalizeToGnomAD(a, chrom))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chrom, "chrom", "", "Chromosome for HGVS input (default: config chromosome)")
	return cmd
}

func newExportVCFCmd() *cobra.Command {
	var (
		outPath      string
		contigLength int64
	)
	cmd := &cobra.Command{
		Use:   "export-vcf <lovd.txt>",
		Short: "Write the LOVD hg38 substitutions as VCF",
		Example: `  kath export-vcf data/lovd/lovd_eys.txt -o data/lovd/eys.vcf`,
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			export, err := parseLOVD(args[0])
			if err != nil {
				return err
			}
			vog, ok := export.Table(lovd.GenomeTable)
			if !ok {
				return fmt.Errorf("%s has no %s table", args[0], lovd.GenomeTable)
			}

			var w io.Writer = os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return output.WriteLOVDVCF(w, vog, output.VCFOptions{
				Chrom:        viper.GetString("chromosome"),
				ContigLength: contigLength,
				Column:       viper.GetString("lovd.hg38_column"),
				Logger:       logger,
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().Int64Var(&contigLength, "contig-length", output.DefaultContigLength, "Contig length written to the header")
	return cmd
}

// readCSV reads a comma-separated file into an untyped table.
func readCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, failure.Wrap(failure.NotFound, path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := table.ReadDelimited(f, filepath.Base(path), ',')
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, path, err)
	}
	return t, nil
}
