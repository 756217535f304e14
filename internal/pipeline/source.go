package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Strexas/kath/internal/clinvar"
	"github.com/Strexas/kath/internal/duckdb"
	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/gnomad"
	"github.com/Strexas/kath/internal/lovd"
	"github.com/Strexas/kath/internal/table"
)

// Source identifies an input database and its file format.
type Source int

const (
	SourceLOVD Source = iota
	// SourceGnomAD is the gnomAD browser CSV export.
	SourceGnomAD
	// SourceGnomADGraphQL is a saved gnomAD API response.
	SourceGnomADGraphQL
	SourceClinVar
)

var sourceNames = map[Source]string{
	SourceLOVD:          "lovd",
	SourceGnomAD:        "gnomad",
	SourceGnomADGraphQL: "gnomad-graphql",
	SourceClinVar:       "clinvar",
}

func (s Source) String() string {
	if n, ok := sourceNames[s]; ok {
		return n
	}
	return fmt.Sprintf("source(%d)", int(s))
}

// ParseSource maps a source name such as "lovd" to its Source.
func ParseSource(name string) (Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range sourceNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown source %q", name)
}

// Input is one loaded source file. LOVD inputs carry an Export, the others a
// single table.
type Input struct {
	Source      Source
	Export      *lovd.Export
	Table       *table.Table
	Fingerprint duckdb.FileFingerprint
}

// LoaderFunc reads a source file.
type LoaderFunc func(ctx context.Context, path string, logger *zap.Logger) (*Input, error)

// Loaders dispatches each source to its reader.
var Loaders = map[Source]LoaderFunc{
	SourceLOVD:          loadLOVD,
	SourceGnomAD:        loadGnomADCSV,
	SourceGnomADGraphQL: loadGnomADGraphQL,
	SourceClinVar:       loadClinVar,
}

// Load reads path with the loader registered for src and records the file
// fingerprint.
func Load(ctx context.Context, src Source, path string, logger *zap.Logger) (*Input, error) {
	load, ok := Loaders[src]
	if !ok {
		return nil, failure.New(failure.Precondition, src.String(), "no loader registered")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	in, err := load(ctx, path, logger)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src, err)
	}
	in.Source = src
	if fp, err := duckdb.StatFile(path); err == nil {
		in.Fingerprint = fp
	}
	return in, nil
}

func loadLOVD(_ context.Context, path string, logger *zap.Logger) (*Input, error) {
	e, err := lovd.ParseFile(path, logger)
	if err != nil {
		return nil, err
	}
	return &Input{Export: e}, nil
}

func loadGnomADCSV(_ context.Context, path string, _ *zap.Logger) (*Input, error) {
	t, err := gnomad.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	return &Input{Table: t}, nil
}

func loadGnomADGraphQL(_ context.Context, path string, _ *zap.Logger) (*Input, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, failure.Wrap(failure.NotFound, path, err)
	}
	if err != nil {
		return nil, fmt.Errorf("open gnomad response: %w", err)
	}
	defer f.Close()

	t, err := gnomad.FromGraphQL(f)
	if err != nil {
		return nil, err
	}
	return &Input{Table: t}, nil
}

func loadClinVar(_ context.Context, path string, _ *zap.Logger) (*Input, error) {
	t, err := clinvar.ReadTSV(path)
	if err != nil {
		return nil, err
	}
	return &Input{Table: t}, nil
}
