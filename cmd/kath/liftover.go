package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Strexas/kath/internal/duckdb"
	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/liftover"
	"github.com/Strexas/kath/internal/pipeline"
)

// UCSC hg19 to hg38 chain file.
const (
	chainURL      = "https://hgdownload.soe.ucsc.edu/goldenPath/hg19/liftOver/hg19ToHg38.over.chain.gz"
	chainFileName = "hg19ToHg38.over.chain.gz"
)

// converterSetup is a configured liftover converter together with the
// identity used to validate its on-disk cache.
type converterSetup struct {
	conv   liftover.Converter
	source string
	chain  duckdb.FileFingerprint
	cache  *duckdb.LiftoverCache
}

// newConverter builds the converter selected by liftover.source.
func newConverter() (*converterSetup, error) {
	cache := duckdb.NewLiftoverCache(viper.GetString("liftover.cache"))

	switch source := viper.GetString("liftover.source"); source {
	case "chain":
		path := viper.GetString("liftover.chain")
		chain, err := liftover.LoadChain(path)
		if err != nil {
			if failure.Is(err, failure.NotFound) {
				return nil, fmt.Errorf("%w (download it with: kath liftover fetch)", err)
			}
			return nil, err
		}
		fp, err := duckdb.StatFile(path)
		if err != nil {
			return nil, fmt.Errorf("stat chain file: %w", err)
		}
		logger.Info("loaded chain file", zap.String("path", path), zap.Int("blocks", chain.BlockCount()))
		return &converterSetup{conv: chain, source: "chain", chain: fp, cache: cache}, nil

	case "ensembl":
		url := viper.GetString("liftover.ensembl_url")
		conv := liftover.NewEnsembl(url, liftover.EnsemblOptions{
			Timeout: viper.GetDuration("liftover.timeout"),
			Retries: uint64(viper.GetInt("liftover.retries")),
		})
		return &converterSetup{conv: conv, source: "ensembl " + url, cache: cache}, nil

	default:
		return nil, usagef("unknown liftover.source %q (want chain or ensembl)", source)
	}
}

func newLiftoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liftover",
		Short: "hg19 to hg38 liftover utilities",
	}
	cmd.AddCommand(newLiftoverFetchCmd(), newLiftoverConvertCmd(), newLiftoverClearCmd())
	return cmd
}

func newLiftoverFetchCmd() *cobra.Command {
	var (
		url      string
		output   string
		override bool
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the UCSC hg19ToHg38 chain file",
		Long:  "Download the UCSC hg19ToHg38 chain file to liftover.chain (default: ~/.kath/hg19ToHg38.over.chain.gz).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = viper.GetString("liftover.chain")
			}
			if _, err := os.Stat(output); err == nil && !override {
				fmt.Fprintf(os.Stderr, "  %s already exists, skipping (use --override to download again)\n", output)
				return nil
			}
			if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}

			d := pipeline.NewDownloader(logger)
			d.Progress = byteProgress
			fmt.Fprintf(os.Stderr, "Downloading %s...\n", url)
			if err := d.File(cmd.Context(), url, output); err != nil {
				return err
			}
			info, err := os.Stat(output)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Done: %s (%s)\n", output, formatSize(info.Size()))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", chainURL, "Chain file URL")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination (default: liftover.chain)")
	cmd.Flags().BoolVar(&override, "override", false, "Replace an existing file")
	return cmd
}

func newLiftoverConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "convert <chrom> <pos>",
		Short:   "Lift one hg19 position over to hg38",
		Example: "  kath liftover convert 6 64430518",
		Args:    exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || pos < 1 {
				return usagef("position must be a positive integer, got %q", args[1])
			}
			setup, err := newConverter()
			if err != nil {
				return err
			}
			target, err := setup.conv.Convert(cmd.Context(), args[0], pos)
			if errors.Is(err, liftover.ErrUnmapped) {
				fmt.Printf("%s:%d\tunmapped\n", args[0], pos)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s:%d\t%d\n", args[0], pos, target)
			return nil
		},
	}
}

func newLiftoverClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-cache",
		Short: "Remove cached liftover results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			duckdb.NewLiftoverCache(viper.GetString("liftover.cache")).Clear()
			fmt.Fprintln(os.Stderr, "Liftover cache cleared")
			return nil
		},
	}
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
