// Package memory is an in-process table store used by tests, local
// development and as a mirror target.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"tracker/internal/core"
	"tracker/internal/tables"
)

// Store keeps every table in memory. Appends replace the stored table with
// a new value, so a Load never sees a partial write.
type Store struct {
	mu     sync.Mutex
	tables map[string]core.Table
}

var _ tables.Store = (*Store)(nil)

// New returns a store pre-populated with seed.
func New(seed ...core.Table) *Store {
	s := &Store{tables: make(map[string]core.Table, len(seed))}
	for _, t := range seed {
		s.tables[t.Name] = core.NewTableWithColumns(t.Name, t.Columns, t.Rows...)
	}
	return s
}

// NewFromFiles seeds the config table from seed_exercises.txt under base,
// one exercise per line. Blank lines and # comments are skipped.
func NewFromFiles(base, configTable string) *Store {
	names := readLines(filepath.Join(base, "seed_exercises.txt"))
	if len(names) == 0 {
		return New()
	}
	rows := make([]core.Row, 0, len(names))
	for _, n := range names {
		rows = append(rows, core.NewRow(core.Cell(core.ColEjercicio, core.String(n))))
	}
	return New(core.NewTable(configTable, rows...))
}

func (s *Store) Load(ctx context.Context, name string) tables.Outcome {
	if err := tables.ValidateName(name); err != nil {
		return tables.UnreachableTable(name, err)
	}
	if err := ctx.Err(); err != nil {
		return tables.UnreachableTable(name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return tables.MissingTable(name)
	}
	return tables.LoadedTable(t)
}

func (s *Store) Append(ctx context.Context, name string, rows []core.Row) error {
	if err := tables.ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tables[name]
	if !ok {
		current = core.Table{Name: name}
	}
	s.tables[name] = current.Concat(rows...)
	return nil
}

// Names lists the tables held by the store.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tables))
	for n := range s.tables {
		out = append(out, n)
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	seen := map[string]struct{}{}
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
