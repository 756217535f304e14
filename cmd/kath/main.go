// Package main provides the kath command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Strexas/kath/internal/failure"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// logger is built by the root command before any subcommand runs.
var logger = zap.NewNop()

// usageError marks errors caused by bad arguments or flags.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.MinimumNArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	logger.Sync()
	if err == nil {
		return ExitSuccess
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", root.Name())
		return ExitUsage
	}
	if hint := hintFor(err); hint != "" {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
	}
	return ExitError
}

// hintFor suggests a next step for the common failure kinds.
func hintFor(err error) string {
	switch failure.KindOf(err) {
	case failure.NotFound:
		return "Check that the file path is correct"
	case failure.SchemaDrift:
		return "The source export gained a column; update the column schema"
	case failure.Collaborator:
		return "A remote service failed; retry later or raise liftover.retries"
	case failure.Precondition:
		return "Run the prerequisite step first (see the command help)"
	}
	return ""
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "kath",
		Short: "Reconcile LOVD, gnomAD and ClinVar variant data",
		Long: `kath parses LOVD full-data exports, normalizes variants to gnomAD
identifiers (lifting hg19 positions over to hg38 where needed), merges them
with gnomAD and ClinVar, and computes popmax allele frequencies.`,
		Example: `  # Download the LOVD export and the gnomAD variants for EYS
  kath fetch lovd --gene EYS -o data/lovd/lovd_eys.txt
  kath fetch gnomad --gene EYS -o data/gnomad/eys.json

  # Merge everything into one CSV
  kath merge all --lovd data/lovd/lovd_eys.txt --gnomad data/gnomad/eys.json --graphql \
    --clinvar data/clinvar/clinvar_eys.txt -o data/merged/eys.csv`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose (development) logging")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.AddCommand(
		newParseCmd(),
		newNormalizeCmd(),
		newMergeCmd(),
		newPopmaxCmd(),
		newExportVCFCmd(),
		newAggregateCmd(),
		newStoreCmd(),
		newLiftoverCmd(),
		newFetchCmd(),
		newConfigCmd(),
	)
	return root
}

// newLogger builds the development logger when verbose is set and the
// production logger otherwise, at the configured level.
func newLogger(verbose bool) (*zap.Logger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		level, err := zapcore.ParseLevel(viper.GetString("log.level"))
		if err != nil {
			return nil, usagef("invalid log.level %q: %v", viper.GetString("log.level"), err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
