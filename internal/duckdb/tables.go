package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"os"
	"strings"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/table"
)

var sqlTypes = map[table.Kind]string{
	table.String:  "VARCHAR",
	table.Integer: "BIGINT",
	table.Double:  "DOUBLE",
	table.Boolean: "BOOLEAN",
	table.Date:    "TIMESTAMP",
}

// quoteIdent quotes a column or table name. LOVD column names contain
// slashes and gnomAD ones contain spaces.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// WriteTable stores t under name, replacing any existing table of that name.
// Rows are batch-inserted with the Appender API.
func (s *Store) WriteTable(ctx context.Context, name string, t *table.Table) error {
	cols := t.Columns()
	seen := make(map[string]bool, len(cols))
	defs := make([]string, len(cols))
	for i, c := range cols {
		if seen[c.Name] {
			return failure.New(failure.Collision, name+"."+c.Name, "duplicate column cannot be stored")
		}
		seen[c.Name] = true
		defs[i] = quoteIdent(c.Name) + " " + sqlTypes[c.Kind]
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	ddl := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", name, err)
	}
	if t.Len() == 0 {
		return nil
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", name)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	args := make([]driver.Value, len(cols))
	for _, row := range t.Rows {
		for i, v := range row {
			args[i] = v.Interface()
		}
		if err := appender.AppendRow(args...); err != nil {
			return fmt.Errorf("append row to %s: %w", name, err)
		}
	}
	return appender.Flush()
}

// kindOf maps a DuckDB column type name to a table kind.
func kindOf(dbType string) table.Kind {
	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT",
		"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT":
		return table.Integer
	case "FLOAT", "DOUBLE", "DECIMAL":
		return table.Double
	case "BOOLEAN":
		return table.Boolean
	case "DATE", "TIMESTAMP", "TIMESTAMPTZ":
		return table.Date
	}
	if strings.HasPrefix(strings.ToUpper(dbType), "DECIMAL") {
		return table.Double
	}
	return table.String
}

// cell converts a scanned driver value into a cell of kind k.
func cell(k table.Kind, raw any) table.Value {
	if raw == nil {
		return table.Null(k)
	}
	switch k {
	case table.Integer:
		switch v := raw.(type) {
		case int8:
			return table.IntValue(int64(v))
		case int16:
			return table.IntValue(int64(v))
		case int32:
			return table.IntValue(int64(v))
		case int64:
			return table.IntValue(v)
		case uint8:
			return table.IntValue(int64(v))
		case uint16:
			return table.IntValue(int64(v))
		case uint32:
			return table.IntValue(int64(v))
		case uint64:
			return table.IntValue(int64(v))
		}
	case table.Double:
		switch v := raw.(type) {
		case float32:
			return table.FloatValue(float64(v))
		case float64:
			return table.FloatValue(v)
		}
	case table.Boolean:
		if v, ok := raw.(bool); ok {
			return table.BoolValue(v)
		}
	case table.Date:
		if v, ok := raw.(time.Time); ok {
			return table.DateValue(v)
		}
	}
	return table.TextValue(fmt.Sprint(raw))
}

// ReadTable loads a stored table. Column kinds follow the DuckDB types, and
// the result is marked typed.
func (s *Store) ReadTable(ctx context.Context, name string) (*table.Table, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, failure.Wrap(failure.NotFound, name, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types of %s: %w", name, err)
	}
	cols := make([]table.Column, len(types))
	for i, ct := range types {
		cols[i] = table.Column{Name: ct.Name(), Kind: kindOf(ct.DatabaseTypeName())}
	}
	t := table.New(name, cols...)

	raw := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		row := make([]table.Value, len(cols))
		for i, c := range cols {
			row[i] = cell(c.Kind, raw[i])
		}
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}
	t.Typed = true
	return t, nil
}

// ImportCSV bulk-loads a CSV file into a new table using DuckDB's
// read_csv_auto, replacing any existing table of that name.
func (s *Store) ImportCSV(ctx context.Context, path, name string) (int64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, failure.Wrap(failure.NotFound, path, err)
	}
	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, header=true)",
		quoteIdent(name), quoteLiteral(path))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return 0, failure.Wrap(failure.MalformedInput, path, err)
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+quoteIdent(name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

// Tables lists the user tables in the store, excluding run bookkeeping.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'main' AND table_name NOT IN ('merge_runs', 'merge_run_inputs')
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
