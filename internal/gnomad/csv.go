package gnomad

import (
	"fmt"
	"os"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/schema"
	"github.com/Strexas/kath/internal/table"
)

// IDColumn is the variant identifier column of the browser CSV export.
const IDColumn = "gnomAD ID"

// ReadCSV reads a gnomAD browser CSV export as an untyped table.
func ReadCSV(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, failure.Wrap(failure.NotFound, path, err)
		}
		return nil, fmt.Errorf("open gnomad file: %w", err)
	}
	defer f.Close()

	t, err := table.ReadDelimited(f, schema.GnomADTable, ',')
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, path, err)
	}
	return t, nil
}
