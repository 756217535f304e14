// Package schema holds the declared column types of every source table and
// coerces raw string tables into typed ones.
//
// Schemas are versioned configuration. The defaults are embedded YAML
// documents; alternate schemas can be loaded with Load and passed explicitly.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Strexas/kath/internal/table"
)

//go:embed lovd.yaml
var lovdYAML []byte

//go:embed gnomad.yaml
var gnomadYAML []byte

// Schema maps the columns of one table to their kinds. It is immutable.
type Schema struct {
	name    string
	columns map[string]table.Kind
}

// Name returns the table name the schema describes.
func (s *Schema) Name() string { return s.name }

// Kind returns the declared kind of a column.
func (s *Schema) Kind(column string) (table.Kind, bool) {
	k, ok := s.columns[column]
	return k, ok
}

// Columns returns the declared column names, sorted.
func (s *Schema) Columns() []string {
	names := make([]string, 0, len(s.columns))
	for n := range s.columns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Set is a versioned collection of per-table schemas. It is immutable.
type Set struct {
	Version string
	tables  map[string]*Schema
}

// Table returns the schema for the named table.
func (s *Set) Table(name string) (*Schema, bool) {
	t, ok := s.tables[name]
	return t, ok
}

// Tables returns the table names, sorted.
func (s *Set) Tables() []string {
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type document struct {
	Version string                       `yaml:"version"`
	Tables  map[string]map[string]string `yaml:"tables"`
	Columns map[string]string            `yaml:"columns"`
}

// Load decodes a schema document. A document with a top-level "columns"
// mapping describes a single flat table stored under flatName.
func Load(r io.Reader, flatName string) (*Set, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	set := &Set{Version: doc.Version, tables: make(map[string]*Schema)}
	add := func(name string, cols map[string]string) error {
		s := &Schema{name: name, columns: make(map[string]table.Kind, len(cols))}
		for col, kindName := range cols {
			k, err := table.ParseKind(kindName)
			if err != nil {
				return fmt.Errorf("schema %s column %q: %w", name, col, err)
			}
			s.columns[col] = k
		}
		set.tables[name] = s
		return nil
	}

	for name, cols := range doc.Tables {
		if err := add(name, cols); err != nil {
			return nil, err
		}
	}
	if doc.Columns != nil {
		if err := add(flatName, doc.Columns); err != nil {
			return nil, err
		}
	}
	if len(set.tables) == 0 {
		return nil, fmt.Errorf("schema %q declares no tables", doc.Version)
	}
	return set, nil
}

// GnomADTable is the table name under which the flat gnomAD schema is stored.
const GnomADTable = "gnomad"

var (
	loadLOVD = sync.OnceValues(func() (*Set, error) {
		return loadEmbedded(lovdYAML, "")
	})
	loadGnomAD = sync.OnceValues(func() (*Set, error) {
		return loadEmbedded(gnomadYAML, GnomADTable)
	})
)

func loadEmbedded(data []byte, flatName string) (*Set, error) {
	return Load(bytes.NewReader(data), flatName)
}

// LOVD returns the built-in per-table schema of the LOVD download.
func LOVD() *Set {
	s, err := loadLOVD()
	if err != nil {
		panic(fmt.Sprintf("embedded lovd schema: %v", err))
	}
	return s
}

// GnomAD returns the built-in flat schema of the gnomAD CSV export.
func GnomAD() *Schema {
	s, err := loadGnomAD()
	if err != nil {
		panic(fmt.Sprintf("embedded gnomad schema: %v", err))
	}
	t, _ := s.Table(GnomADTable)
	return t
}
