// Package csvtable reads, writes and merges the labeled event tables that
// phases exchange with the judgement stage.
package csvtable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
)

// Table is a header plus string rows.
type Table struct {
	Header []string
	Rows   [][]string
}

// New creates an empty table with the given header.
func New(header []string) *Table {
	return &Table{Header: slices.Clone(header)}
}

// Append adds a row. The row must be as wide as the header.
func (t *Table) Append(row []string) error {
	if len(row) != len(t.Header) {
		return fmt.Errorf("%w: got %d cells, header has %d", ErrRowWidth, len(row), len(t.Header))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns the position of name in the header, or -1.
func (t *Table) Column(name string) int {
	return slices.Index(t.Header, name)
}

// Columns resolves several column names at once.
func (t *Table) Columns(names ...string) (map[string]int, error) {
	out := make(map[string]int, len(names))
	for _, n := range names {
		i := t.Column(n)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, n)
		}
		out[n] = i
	}
	return out, nil
}

// Read parses a CSV stream whose first record is the header.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := New(header)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", t.Len()+1, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadFile reads a table from path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Write encodes the table as CSV.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes the table to path, creating parent directories.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create table directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create table file: %w", err)
	}
	if err := t.Write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write table file: %w", err)
	}
	return f.Close()
}

// Merge concatenates tables in argument order. Every table must have the
// same header as the first, and there must be at least one row overall.
func Merge(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables to merge", ErrEmptyTable)
	}
	out := New(tables[0].Header)
	for i, t := range tables {
		if t == nil {
			return nil, fmt.Errorf("%w: table %d is nil", ErrEmptyTable, i)
		}
		if !slices.Equal(t.Header, out.Header) {
			return nil, fmt.Errorf("%w: table %d has %v, want %v", ErrHeaderMismatch, i, t.Header, out.Header)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("%w: merged table has no rows", ErrEmptyTable)
	}
	return out, nil
}
