// Package inmemory is an in-memory sheets.Store for tests and local runs.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/farm-ledger/internal/sheets"
)

// Store keeps worksheets in memory and is safe for concurrent use.
// Data is lost on restart.
type Store struct {
	mu     sync.Mutex
	tables map[string]*Table
}

// NewStore creates an empty in-memory spreadsheet.
func NewStore() *Store {
	return &Store{tables: make(map[string]*Table)}
}

// Table implements sheets.Store. The same name always returns the same table.
func (s *Store) Table(name string, header []string) sheets.Table {
	return s.table(name, header)
}

// Get returns the named table, creating it when missing.
func (s *Store) Get(name string) *Table {
	return s.table(name, nil)
}

func (s *Store) table(name string, header []string) *Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[name]
	if !ok {
		t = &Table{name: name}
		s.tables[name] = t
	}
	if header != nil && t.header == nil {
		t.header = append([]string(nil), header...)
	}
	return t
}

// Table is one in-memory worksheet.
type Table struct {
	mu      sync.Mutex
	name    string
	header  []string
	rows    [][]string
	ensured bool
	err     error
}

// SetError makes every following operation fail with err; nil restores normal behavior.
func (t *Table) SetError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.err = err
}

// Rows returns a copy of the data rows.
func (t *Table) Rows() [][]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Header returns the header row.
func (t *Table) Header() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.header...)
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Ensure(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.ensured = true
	return nil
}

func (t *Table) ReadAll(ctx context.Context) ([]sheets.Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	rows := make([]sheets.Row, len(t.rows))
	for i, r := range t.rows {
		rows[i] = sheets.Row{Number: i + 2, Values: append([]string(nil), r...)}
	}
	return rows, nil
}

func (t *Table) Append(ctx context.Context, rows ...[]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	for _, r := range rows {
		t.rows = append(t.rows, append([]string(nil), r...))
	}
	return nil
}

func (t *Table) UpdateCell(ctx context.Context, row, col int, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	i := row - 2
	if i < 0 || i >= len(t.rows) || col < 0 {
		return fmt.Errorf("UpdateCell: row %d: %w", row, sheets.ErrRowOutOfRange)
	}
	for len(t.rows[i]) <= col {
		t.rows[i] = append(t.rows[i], "")
	}
	t.rows[i][col] = value
	return nil
}

func (t *Table) DeleteRow(ctx context.Context, row int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	i := row - 2
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("DeleteRow: row %d: %w", row, sheets.ErrRowOutOfRange)
	}
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return nil
}

func (t *Table) Replace(ctx context.Context, rows ...[]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	replaced := make([][]string, 0, len(rows))
	for _, r := range rows {
		replaced = append(replaced, append([]string(nil), r...))
	}
	t.rows = replaced
	return nil
}

var _ sheets.Store = (*Store)(nil)
var _ sheets.Table = (*Table)(nil)
