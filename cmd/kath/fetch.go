package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Strexas/kath/internal/gnomad"
	"github.com/Strexas/kath/internal/pipeline"
)

// fetchSources maps the fetch command's database names to sources.
var fetchSources = map[string]pipeline.Source{
	"lovd":   pipeline.SourceLOVD,
	"gnomad": pipeline.SourceGnomADGraphQL,
}

func defaultFetchPath(database, gene string) string {
	ext := ".txt"
	if database == "gnomad" {
		ext = ".json"
	}
	return filepath.Join("data", database, strings.ToLower(database+"_"+gene)+ext)
}

func newFetchCmd() *cobra.Command {
	var (
		gene     string
		output   string
		override bool
		retries  uint64
	)
	cmd := &cobra.Command{
		Use:   "fetch <lovd|gnomad>",
		Short: "Download source data for a gene",
		Long: `Download the LOVD full-data export or the gnomAD variants (GraphQL API
response, gnomad_r4 dataset) for a gene. An existing file is kept unless
--override is given.`,
		Example: `  kath fetch lovd --gene EYS -o data/lovd/lovd_eys.txt
  kath fetch gnomad --gene EYS -o data/gnomad/gnomad_eys.json --override`,
		Args:      exactArgs(1),
		ValidArgs: []string{"lovd", "gnomad"},
		RunE: func(cmd *cobra.Command, args []string) error {
			database := strings.ToLower(args[0])
			src, ok := fetchSources[database]
			if !ok {
				return usagef("cannot fetch %q (want lovd or gnomad)", args[0])
			}
			if output == "" {
				output = defaultFetchPath(database, gene)
			}

			d := pipeline.NewDownloader(logger)
			d.Progress = byteProgress
			d.GnomAD = gnomad.NewClient(viper.GetString("gnomad.api_url"), 0, retries)

			fmt.Fprintf(os.Stderr, "Fetching %s data for %s...\n", database, gene)
			skipped, err := d.Download(cmd.Context(), src, gene, output, override)
			if err != nil {
				return err
			}
			if skipped {
				fmt.Fprintf(os.Stderr, "  %s already exists, skipping (use --override to download again)\n", output)
				return nil
			}
			if info, err := os.Stat(output); err == nil {
				fmt.Fprintf(os.Stderr, "Done: %s (%s)\n", output, formatSize(info.Size()))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&gene, "gene", "EYS", "Gene symbol")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default: data/<database>/<database>_<gene>)")
	cmd.Flags().BoolVar(&override, "override", false, "Replace an existing file")
	cmd.Flags().Uint64Var(&retries, "retries", 3, "Retries for the gnomAD API")
	return cmd
}
