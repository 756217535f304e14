// Package output writes reconciled tables as CSV and LOVD hg38 variants as VCF.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/table"
)

// Mode selects how WriteCSV treats an existing file.
type Mode int

const (
	// Override replaces any existing file.
	Override Mode = iota
	// Append keeps the rows of an existing file and adds the new ones after
	// them. Columns are the union of both, in first-seen order.
	Append
)

// ParseMode parses "override" or "append".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "override":
		return Override, nil
	case "append":
		return Append, nil
	}
	return Override, fmt.Errorf("unknown write mode %q (want override or append)", s)
}

// WriteCSV writes t to path as comma-separated UTF-8 with a header row.
// The file is written to a temporary name and renamed into place.
func WriteCSV(path string, t *table.Table, mode Mode) error {
	if mode == Append {
		existing, err := readExisting(path)
		if err != nil {
			return err
		}
		if existing != nil {
			t = table.Concat(t.Name, existing, t)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return failure.Wrap(failure.Write, path, err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return failure.Wrap(failure.Write, path, err)
	}
	if err := table.WriteDelimited(f, t, ','); err != nil {
		f.Close()
		os.Remove(tmp)
		return failure.Wrap(failure.Write, path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return failure.Wrap(failure.Write, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return failure.Wrap(failure.Write, path, err)
	}
	return nil
}

func readExisting(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, failure.Wrap(failure.Write, path, err)
	}
	defer f.Close()

	t, err := table.ReadDelimited(f, filepath.Base(path), ',')
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, path, err)
	}
	return t, nil
}
