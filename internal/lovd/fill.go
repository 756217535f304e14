package lovd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/liftover"
	"github.com/Strexas/kath/internal/table"
	"github.com/Strexas/kath/internal/variant"
)

// KeyColumn holds the normalized hg38 join key added by FillMissingHG38.
const KeyColumn = "hg38_gnomad_format"

// FillOptions configures FillMissingHG38.
type FillOptions struct {
	Converter  liftover.Converter
	Chrom      string
	HG19Column string
	HG38Column string
	Logger     *zap.Logger

	// Progress, when set, is called after each row with the number of rows
	// processed so far and the total.
	Progress func(done, total int)
}

func (o *FillOptions) defaults() {
	if o.Chrom == "" {
		o.Chrom = "6"
	}
	if o.HG19Column == "" {
		o.HG19Column = HG19Column
	}
	if o.HG38Column == "" {
		o.HG38Column = HG38Column
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// FillMissingHG38 returns a copy of t with KeyColumn set to the gnomAD-format
// hg38 identifier of each row. Rows with an hg38 value use it directly;
// otherwise the hg19 value is lifted over. Interval notations (containing
// "_") and positions that do not map yield variant.Unresolved. Converter
// failures other than liftover.ErrUnmapped abort the fill.
func FillMissingHG38(ctx context.Context, t *table.Table, opts FillOptions) (*table.Table, error) {
	opts.defaults()
	if t.Len() == 0 {
		return t, nil
	}
	if opts.Converter == nil {
		return nil, failure.New(failure.Precondition, t.Name, "hg38 fill requires a liftover converter")
	}
	hg19, err := t.Values(opts.HG19Column)
	if err != nil {
		return nil, failure.Wrap(failure.SchemaDrift, t.Name+"."+opts.HG19Column, err)
	}
	hg38, err := t.Values(opts.HG38Column)
	if err != nil {
		return nil, failure.Wrap(failure.SchemaDrift, t.Name+"."+opts.HG38Column, err)
	}

	keys := make([]table.Value, t.Len())
	for i := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, err := hg38Value(ctx, hg38[i], hg19[i], opts)
		if err != nil {
			return nil, err
		}
		keys[i] = table.TextValue(variant.NormalizeToGnomAD(g, opts.Chrom))
		if opts.Progress != nil {
			opts.Progress(i+1, len(keys))
		}
	}
	return t.WithColumn(table.Column{Name: KeyColumn, Kind: table.String}, keys)
}

// hg38Value returns the row's hg38 HGVS string, lifting hg19 when needed.
func hg38Value(ctx context.Context, hg38, hg19 table.Value, opts FillOptions) (string, error) {
	if s, ok := hg38.AsText(); ok && s != "" {
		return s, nil
	}
	src, ok := hg19.AsText()
	if !ok || src == "" || strings.Contains(src, "_") {
		return variant.Unresolved, nil
	}
	pos, ok := variant.HGVSPosition(src)
	if !ok {
		return variant.Unresolved, nil
	}

	lifted, err := opts.Converter.Convert(ctx, opts.Chrom, pos)
	if errors.Is(err, liftover.ErrUnmapped) {
		opts.Logger.Warn("hg19 position does not map to hg38",
			zap.String("chrom", opts.Chrom),
			zap.Int64("pos", pos),
			zap.String("variant", src))
		return variant.Unresolved, nil
	}
	if err != nil {
		if failure.KindOf(err) == failure.Collaborator {
			return "", err
		}
		return "", failure.Wrap(failure.Collaborator, fmt.Sprintf("liftover %s:%d", opts.Chrom, pos), err)
	}

	tail := src
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	return fmt.Sprintf("g.%d%s", lifted, tail), nil
}
