// Package pipeline orchestrates a full reconciliation run: it loads the
// source files, coerces and fills the LOVD side, merges it with gnomAD and
// ClinVar, computes popmax and writes the result.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Strexas/kath/internal/duckdb"
	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/gnomad"
	"github.com/Strexas/kath/internal/liftover"
	"github.com/Strexas/kath/internal/lovd"
	"github.com/Strexas/kath/internal/merge"
	"github.com/Strexas/kath/internal/output"
	"github.com/Strexas/kath/internal/popmax"
	"github.com/Strexas/kath/internal/schema"
	"github.com/Strexas/kath/internal/table"
)

// DefaultStoreTable is the store table a run writes when none is named.
const DefaultStoreTable = "merged"

// Config describes one run. LOVD is required, and Converter is required
// when GnomAD is set. Without a Converter the hg38 fill is skipped.
type Config struct {
	LOVD string
	// GnomAD is read as GnomADSource, which defaults to the browser CSV.
	GnomAD       string
	GnomADSource Source
	// GnomADIDColumn overrides the CSV identifier column.
	GnomADIDColumn string
	ClinVar        string
	// ClinVarByCDNA joins ClinVar on the transcript cDNA instead of the
	// genomic start and end.
	ClinVarByCDNA bool

	Chrom        string
	HG19Column   string
	HG38Column   string
	Schemas      *schema.Set
	GnomADSchema *schema.Schema

	Converter liftover.Converter
	// LiftoverCache, when set, seeds the memoized converter and is
	// rewritten after the fill. LiftoverSource and Chain identify the
	// converter the entries came from.
	LiftoverCache  *duckdb.LiftoverCache
	LiftoverSource string
	Chain          duckdb.FileFingerprint

	Output string
	Mode   output.Mode

	Store      *duckdb.Store
	StoreTable string

	Progress func(done, total int)
	Logger   *zap.Logger
}

// Result is the outcome of Run.
type Result struct {
	Table  *table.Table
	Inputs []*Input
	// Conversions counts liftover lookups that reached the converter.
	Conversions int
	RunID       string
}

func (c *Config) defaults() {
	if c.Chrom == "" {
		c.Chrom = "6"
	}
	if c.Schemas == nil {
		c.Schemas = schema.LOVD()
	}
	if c.GnomADSchema == nil {
		c.GnomADSchema = schema.GnomAD()
	}
	if c.GnomADSource != SourceGnomADGraphQL {
		c.GnomADSource = SourceGnomAD
	}
	if c.StoreTable == "" {
		c.StoreTable = DefaultStoreTable
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

type job struct {
	src  Source
	path string
}

// loadAll reads the configured inputs concurrently. The result is indexed
// like jobs.
func loadAll(ctx context.Context, jobs []job, logger *zap.Logger) ([]*Input, error) {
	inputs := make([]*Input, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		g.Go(func() error {
			in, err := Load(ctx, j.src, j.path, logger)
			if err != nil {
				return err
			}
			inputs[i] = in
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// Run executes the pipeline described by cfg.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	cfg.defaults()
	logger := cfg.Logger
	started := time.Now()

	if cfg.LOVD == "" {
		return nil, failure.New(failure.Precondition, "lovd", "a LOVD export is required")
	}
	if cfg.Converter == nil && cfg.GnomAD != "" {
		return nil, failure.New(failure.Precondition, "liftover", "merging with gnomAD requires a liftover converter")
	}

	jobs := []job{{SourceLOVD, cfg.LOVD}}
	if cfg.GnomAD != "" {
		jobs = append(jobs, job{cfg.GnomADSource, cfg.GnomAD})
	}
	if cfg.ClinVar != "" {
		jobs = append(jobs, job{SourceClinVar, cfg.ClinVar})
	}
	inputs, err := loadAll(ctx, jobs, logger)
	if err != nil {
		return nil, err
	}
	res := &Result{Inputs: inputs}

	export, err := inputs[0].Export.Coerce(cfg.Schemas)
	if err != nil {
		return nil, err
	}
	view, err := lovd.VariantView(export)
	if err != nil {
		return nil, err
	}

	merged := view
	if cfg.Converter != nil {
		if merged, res.Conversions, err = fillHG38(ctx, view, cfg); err != nil {
			return nil, err
		}
	}

	opts := merge.Options{GnomADIDColumn: cfg.GnomADIDColumn, Logger: logger}
	var gnomadIn, clinvarIn *Input
	for _, in := range inputs[1:] {
		switch in.Source {
		case SourceGnomAD, SourceGnomADGraphQL:
			gnomadIn = in
		case SourceClinVar:
			clinvarIn = in
		}
	}

	if gnomadIn != nil {
		gt := gnomadIn.Table
		if gnomadIn.Source == SourceGnomADGraphQL {
			opts.GnomADIDColumn = gnomad.GraphQLIDColumn
		} else if gt, err = cfg.GnomADSchema.Coerce(gt); err != nil {
			return nil, err
		}
		if merged, err = merge.LOVDGnomAD(merged, gt, opts); err != nil {
			return nil, err
		}
	}

	if clinvarIn != nil {
		if cfg.ClinVarByCDNA {
			merged, err = merge.LOVDClinVarByCDNA(merged, clinvarIn.Table, opts)
		} else {
			merged, err = merge.LOVDClinVar(merged, clinvarIn.Table, opts)
		}
		if err != nil {
			return nil, err
		}
	}

	if gnomadIn != nil {
		if merged, err = popmax.Aggregate(merged, popmax.Options{Suffix: merge.GnomADSuffix, Logger: logger}); err != nil {
			return nil, err
		}
	}
	res.Table = merged

	if cfg.Output != "" {
		if err := output.WriteCSV(cfg.Output, merged, cfg.Mode); err != nil {
			return nil, err
		}
		logger.Info("wrote merged table", zap.String("path", cfg.Output), zap.Int("rows", merged.Len()))
	}

	if cfg.Store != nil {
		if err := cfg.Store.WriteTable(ctx, cfg.StoreTable, merged); err != nil {
			return nil, failure.Wrap(failure.Write, cfg.StoreTable, err)
		}
		run := duckdb.Run{
			StartedAt:  started,
			FinishedAt: time.Now(),
			Output:     cfg.Output,
			Table:      cfg.StoreTable,
			Rows:       int64(merged.Len()),
		}
		for _, in := range inputs {
			run.Inputs = append(run.Inputs, duckdb.RunInput{Source: in.Source.String(), FileFingerprint: in.Fingerprint})
		}
		if res.RunID, err = cfg.Store.RecordRun(ctx, run); err != nil {
			return nil, failure.Wrap(failure.Write, "merge_runs", err)
		}
		logger.Info("recorded run", zap.String("run_id", res.RunID), zap.String("table", cfg.StoreTable))
	}
	return res, nil
}

// fillHG38 adds lovd.KeyColumn through a memoized converter seeded from
// and written back to the liftover cache. It returns the number of lookups
// that reached the converter.
func fillHG38(ctx context.Context, view *table.Table, cfg Config) (*table.Table, int, error) {
	logger := cfg.Logger
	memo := liftover.NewMemo(cfg.Converter)
	if cfg.LiftoverCache != nil && cfg.LiftoverCache.Valid(cfg.LiftoverSource, cfg.Chain) {
		if n, err := cfg.LiftoverCache.Load(memo); err != nil {
			logger.Warn("ignoring liftover cache", zap.Error(err))
		} else {
			logger.Info("loaded liftover cache", zap.Int("entries", n))
		}
	}
	merged, err := lovd.FillMissingHG38(ctx, view, lovd.FillOptions{
		Converter:  memo,
		Chrom:      cfg.Chrom,
		HG19Column: cfg.HG19Column,
		HG38Column: cfg.HG38Column,
		Logger:     logger,
		Progress:   cfg.Progress,
	})
	if err != nil {
		return nil, 0, err
	}
	if !merged.HasColumn(lovd.KeyColumn) {
		// An empty view is returned unchanged by the fill.
		if merged, err = merged.WithColumn(table.Column{Name: lovd.KeyColumn, Kind: table.String}, nil); err != nil {
			return nil, 0, err
		}
	}
	conversions := memo.Calls()
	if cfg.LiftoverCache != nil && conversions > 0 {
		if err := cfg.LiftoverCache.Write(memo, cfg.LiftoverSource, cfg.Chain); err != nil {
			logger.Warn("could not write liftover cache", zap.Error(err))
		}
	}
	return merged, conversions, nil
}
