package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ReadDelimited reads a header row followed by data rows into a String table.
// Empty cells are null. Short rows are padded with nulls; long rows are an error.
func ReadDelimited(r io.Reader, name string, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return New(name), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}
	t := NewText(name, append([]string(nil), header...))

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", name, line, err)
		}
		if len(rec) > t.Width() {
			return nil, fmt.Errorf("read %s line %d: %d fields, header has %d", name, line, len(rec), t.Width())
		}
		row := make([]Value, t.Width())
		for i := range row {
			if i < len(rec) && rec[i] != "" {
				row[i] = TextValue(rec[i])
			} else {
				row[i] = Null(String)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteDelimited writes t with a header row. Null cells are written empty.
func WriteDelimited(w io.Writer, t *Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, t.Width())
	for _, row := range t.Rows {
		for i, v := range row {
			rec[i] = v.String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
