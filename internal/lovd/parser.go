// Package lovd parses LOVD full-data downloads into typed relational tables
// and derives the variant view used for cross-database merges.
package lovd

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/Strexas/kath/internal/failure"
	"github.com/Strexas/kath/internal/table"
)

// preambleLines is the fixed header of every LOVD download.
const preambleLines = 4

// Export is one parsed LOVD download. Tables keep the order in which they
// appear in the file.
type Export struct {
	Path   string
	tables []*table.Table
	byName map[string]int
}

func newExport(path string) *Export {
	return &Export{Path: path, byName: make(map[string]int)}
}

// NewExport assembles an export from already-built tables.
func NewExport(path string, tables ...*table.Table) *Export {
	e := newExport(path)
	for _, t := range tables {
		e.put(t)
	}
	return e
}

func (e *Export) put(t *table.Table) {
	if i, ok := e.byName[t.Name]; ok {
		e.tables[i] = t
		return
	}
	e.byName[t.Name] = len(e.tables)
	e.tables = append(e.tables, t)
}

// Tables returns the tables in file order.
func (e *Export) Tables() []*table.Table {
	return append([]*table.Table(nil), e.tables...)
}

// Names returns the table names in file order.
func (e *Export) Names() []string {
	names := make([]string, len(e.tables))
	for i, t := range e.tables {
		names[i] = t.Name
	}
	return names
}

// Table returns the named table.
func (e *Export) Table(name string) (*table.Table, bool) {
	i, ok := e.byName[name]
	if !ok {
		return nil, false
	}
	return e.tables[i], true
}

// Typed reports whether every table has been coerced.
func (e *Export) Typed() bool {
	for _, t := range e.tables {
		if !t.Typed {
			return false
		}
	}
	return true
}

// Parser reads the LOVD block format.
type Parser struct {
	reader     *bufio.Reader
	lineNumber int
	logger     *zap.Logger
}

// NewParser creates a parser over r.
func NewParser(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReader(r), logger: zap.NewNop()}
}

// SetLogger sets the logger used for table notes.
func (p *Parser) SetLogger(l *zap.Logger) {
	p.logger = l
}

// ParseFile parses the LOVD download at path. Plain and gzipped files are
// accepted. A missing file fails before any parsing.
func ParseFile(path string, logger *zap.Logger) (*Export, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, failure.Wrap(failure.NotFound, path, err)
		}
		return nil, fmt.Errorf("stat lovd file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lovd file: %w", err)
	}
	defer f.Close()

	r, err := maybeGzip(f)
	if err != nil {
		return nil, err
	}

	p := NewParser(r)
	if logger != nil {
		p.SetLogger(logger)
	}
	p.logger.Info("parsing lovd file", zap.String("path", path))

	e, err := p.Parse()
	if err != nil {
		return nil, failure.Wrap(failure.MalformedInput, path, err)
	}
	e.Path = path
	return e, nil
}

func maybeGzip(f *os.File) (io.Reader, error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return gz, nil
	}
	return br, nil
}

// Parse reads every table block from the input.
func (p *Parser) Parse() (*Export, error) {
	e := newExport("")

	for i := 0; i < preambleLines; i++ {
		if _, ok, err := p.readLine(); err != nil {
			return nil, err
		} else if !ok {
			return e, nil
		}
	}

	for {
		line, ok, err := p.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		t, err := p.parseBlock(line)
		if err != nil {
			return nil, err
		}
		e.put(t)
	}
	return e, nil
}

// parseBlock parses one table starting at its ##name## marker line.
func (p *Parser) parseBlock(marker string) (*table.Table, error) {
	parts := strings.Split(marker, "##")
	if len(parts) < 2 {
		return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("expected table marker, got %q", marker)}
	}
	name := strings.TrimSpace(parts[1])
	if name == "" {
		return nil, &ParseError{Line: p.lineNumber, Message: "empty table name"}
	}

	var notes []string
	line, ok, err := p.readLine()
	for ok && err == nil && strings.HasPrefix(line, "##") {
		notes = append(notes, cut(line, 3, 0))
		line, ok, err = p.readLine()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("table %s has no header", name)}
	}
	if len(notes) > 0 {
		p.logger.Info("lovd table notes", zap.String("table", name), zap.Strings("notes", notes))
	}

	headers := strings.Split(line, "\t")
	for i, h := range headers {
		headers[i] = cut(h, 3, 3)
	}
	t := table.NewText(name, headers)
	t.Notes = notes

	for {
		line, ok, err := p.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			return t, nil
		}
		if line == "" {
			break
		}
		fields := strings.Split(line, "\t")
		if len(fields) != len(headers) {
			return nil, &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("table %s row has %d fields, header has %d", name, len(fields), len(headers)),
			}
		}
		row := make([]table.Value, len(fields))
		for i, f := range fields {
			row[i] = table.TextValue(cut(f, 1, 1))
		}
		t.Rows = append(t.Rows, row)
	}

	// Inter-table separator.
	if _, _, err := p.readLine(); err != nil {
		return nil, err
	}
	return t, nil
}

// readLine returns the next line without its line terminator. ok is false
// at end of input.
func (p *Parser) readLine() (string, bool, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", false, fmt.Errorf("read line %d: %w", p.lineNumber+1, err)
	}
	if line == "" && err == io.EOF {
		return "", false, nil
	}
	p.lineNumber++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true, nil
}

// cut drops head characters from the start and tail from the end of s.
func cut(s string, head, tail int) string {
	if len(s) < head+tail {
		return ""
	}
	return s[head : len(s)-tail]
}

// ParseError represents an error during LOVD parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("lovd parse error at line %d: %s", e.Line, e.Message)
}
