// Package liftover converts genomic positions from hg19 (GRCh37) to hg38
// (GRCh38). Converters are collaborators of the reconciliation core: the core
// only invokes them.
package liftover

import (
	"context"
	"errors"
)

// ErrUnmapped is returned when a position has no counterpart in the target build.
var ErrUnmapped = errors.New("position does not map to target assembly")

// Converter maps a 1-based hg19 position on chrom to its 1-based hg38 position.
type Converter interface {
	Convert(ctx context.Context, chrom string, pos int64) (int64, error)
}

// ConverterFunc adapts a function to the Converter interface.
type ConverterFunc func(ctx context.Context, chrom string, pos int64) (int64, error)

// Convert calls f.
func (f ConverterFunc) Convert(ctx context.Context, chrom string, pos int64) (int64, error) {
	return f(ctx, chrom, pos)
}

// Offset returns a converter that shifts every position by delta. It is
// useful for fixtures and for loci covered by a single chain block.
func Offset(delta int64) Converter {
	return ConverterFunc(func(_ context.Context, _ string, pos int64) (int64, error) {
		if pos+delta <= 0 {
			return 0, ErrUnmapped
		}
		return pos + delta, nil
	})
}
