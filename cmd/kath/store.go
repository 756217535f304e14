package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Strexas/kath/internal/duckdb"
)

func openStore() (*duckdb.Store, error) {
	path := viper.GetString("store.path")
	s, err := duckdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	return s, nil
}

func newStoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the DuckDB workspace store",
		Long:  "The workspace store (store.path, default ~/.kath/kath.duckdb) keeps merged tables and a record of every stored merge run.",
	}
	cmd.AddCommand(newStoreImportCmd(), newStoreRunsCmd(), newStoreTablesCmd())
	return cmd
}

func newStoreImportCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:     "import <csv>",
		Short:   "Import a CSV file as a store table",
		Example: `  kath store import data/gnomad/gnomad_eys.csv --table gnomad_eys`,
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				base := filepath.Base(args[0])
				name = strings.TrimSuffix(base, filepath.Ext(base))
			}
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.ImportCSV(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Imported %d rows into %s\n", n, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "table", "", "Table name (default: file name without extension)")
	return cmd
}

func newStoreRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List recorded merge runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tTABLE\tROWS\tOUTPUT\tINPUTS")
			for _, r := range runs {
				inputs := make([]string, len(r.Inputs))
				for i, in := range r.Inputs {
					inputs[i] = in.Source + "=" + in.Path
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Table, r.Rows, r.Output, strings.Join(inputs, " "))
			}
			return tw.Flush()
		},
	}
}

func newStoreTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List stored tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			names, err := s.Tables(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	}
}
