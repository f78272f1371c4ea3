// Package file implements the table store on local flat files: one CSV file
// per table inside a data directory, replaced atomically on every append.
package file

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tracker/internal/core"
	"tracker/internal/tables"
)

// QuarantinePrefix is prepended to the file name of a quarantined table.
const QuarantinePrefix = "corrupto_"

const extension = ".csv"

type Store struct {
	dir   string
	locks tables.Locks
	now   func() time.Time
}

// Ensure interface conformance
var (
	_ tables.Store       = (*Store)(nil)
	_ tables.Quarantiner = (*Store)(nil)
)

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file backing the named table.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+extension)
}

// Load reads the table file. A missing file is an empty table; a file that
// cannot be parsed is reported as Malformed and left untouched.
func (s *Store) Load(ctx context.Context, name string) tables.Outcome {
	if err := tables.ValidateName(name); err != nil {
		return tables.UnreachableTable(name, err)
	}
	if err := ctx.Err(); err != nil {
		return tables.UnreachableTable(name, err)
	}
	return s.read(name)
}

func (s *Store) read(name string) tables.Outcome {
	f, err := os.Open(s.Path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tables.MissingTable(name)
		}
		return tables.UnreachableTable(name, err)
	}
	defer f.Close()

	t, err := readCSV(name, f)
	if err != nil {
		return tables.MalformedTable(name, err)
	}
	return tables.LoadedTable(t)
}

// Append concatenates rows after the current contents and replaces the file
// atomically. A malformed file is quarantined first so the new rows are kept.
func (s *Store) Append(ctx context.Context, name string, rows []core.Row) error {
	if err := tables.ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.locks.Lock(name)
	defer unlock()

	out := s.read(name)
	current := out.Table
	switch out.Status {
	case tables.Loaded, tables.Missing:
	case tables.Malformed:
		artifact, err := s.quarantine(name)
		if err != nil {
			return fmt.Errorf("quarantine %s: %w", name, err)
		}
		slog.WarnContext(ctx, "Quarantined malformed table before append",
			"table", name,
			"artifact", artifact,
			"error", out.Err)
		current = core.Table{Name: name}
	default:
		return fmt.Errorf("read %s before append: %w", name, out.Err)
	}

	merged := current.Concat(rows...)
	if err := writeCSV(s.Path(name), merged); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Quarantine renames the table file to corrupto_<file>. When that artifact
// already exists a UTC timestamp is inserted so older artifacts are kept.
func (s *Store) Quarantine(ctx context.Context, name string) (string, error) {
	if err := tables.ValidateName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	unlock := s.locks.Lock(name)
	defer unlock()

	if out := s.read(name); out.Status != tables.Malformed {
		return "", fmt.Errorf("%w: %s is %s", tables.ErrNotMalformed, name, out.Status)
	}
	return s.quarantine(name)
}

func (s *Store) quarantine(name string) (string, error) {
	src := s.Path(name)
	base := filepath.Base(src)
	dst := filepath.Join(s.dir, QuarantinePrefix+base)
	if _, err := os.Stat(dst); err == nil {
		stamp := s.now().UTC().Format("20060102T150405Z")
		dst = filepath.Join(s.dir, QuarantinePrefix+stamp+"_"+base)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("rename %s: %w", src, err)
	}
	return dst, nil
}

// readCSV parses a header row followed by data rows. Every record must have
// as many fields as the header; blank cells are absent.
func readCSV(name string, r io.Reader) (core.Table, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	header, err := cr.Read()
	if err == io.EOF {
		return core.Table{Name: name}, nil
	}
	if err != nil {
		return core.Table{}, fmt.Errorf("header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return core.Table{}, fmt.Errorf("header: column %d has no name", i+1)
		}
		if _, dup := seen[h]; dup {
			return core.Table{}, fmt.Errorf("header: duplicate column %q", h)
		}
		seen[h] = struct{}{}
		header[i] = h
	}

	var rows []core.Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return core.Table{}, err
		}
		fields := make([]core.Field, 0, len(header))
		for i, cell := range rec {
			v := core.ParseCell(cell)
			if v.IsAbsent() {
				continue
			}
			fields = append(fields, core.Cell(header[i], v))
		}
		rows = append(rows, core.NewRow(fields...))
	}
	return core.NewTableWithColumns(name, header, rows...), nil
}

// writeCSV atomically writes the table using the temp-file, fsync, rename
// pattern.
func writeCSV(path string, t core.Table) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".table-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	bw := bufio.NewWriter(tmp)
	w := csv.NewWriter(bw)
	if err := w.Write(t.Columns); err != nil {
		return fail(fmt.Errorf("writing header: %w", err))
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, col := range t.Columns {
			v, _ := row.Lookup(col)
			rec[i] = core.FormatCell(v)
		}
		if err := w.Write(rec); err != nil {
			return fail(fmt.Errorf("writing record: %w", err))
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fail(fmt.Errorf("flushing csv: %w", err))
	}
	if err := bw.Flush(); err != nil {
		return fail(fmt.Errorf("flushing buffer: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
