// Package sqlite keeps every table in one SQLite database. Rows are stored
// as ordered JSON objects keyed by table name and position.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tracker/internal/core"
	"tracker/internal/tables"

	_ "modernc.org/sqlite"
)

// QuarantinePrefix is prepended to the name of a quarantined table.
const QuarantinePrefix = "corrupto_"

type Store struct {
	db    *sql.DB
	locks tables.Locks
	now   func() time.Time
}

// Ensure interface conformance
var (
	_ tables.Store       = (*Store)(nil)
	_ tables.Quarantiner = (*Store)(nil)
)

// Open creates the database file if needed and applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := Migrate(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Load(ctx context.Context, name string) tables.Outcome {
	if err := tables.ValidateName(name); err != nil {
		return tables.UnreachableTable(name, err)
	}

	var rawColumns string
	err := s.db.QueryRowContext(ctx,
		`SELECT columns FROM tracked_tables WHERE name = ?`, name).Scan(&rawColumns)
	if errors.Is(err, sql.ErrNoRows) {
		return tables.MissingTable(name)
	}
	if err != nil {
		return tables.UnreachableTable(name, err)
	}
	var columns []string
	if err := json.Unmarshal([]byte(rawColumns), &columns); err != nil {
		return tables.MalformedTable(name, fmt.Errorf("columns: %w", err))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, data FROM table_rows WHERE table_name = ? ORDER BY position`, name)
	if err != nil {
		return tables.UnreachableTable(name, err)
	}
	defer rows.Close()

	var out []core.Row
	for rows.Next() {
		var (
			pos  int64
			data string
		)
		if err := rows.Scan(&pos, &data); err != nil {
			return tables.UnreachableTable(name, err)
		}
		var r core.Row
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return tables.MalformedTable(name, fmt.Errorf("row %d: %w", pos, err))
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return tables.UnreachableTable(name, err)
	}
	return tables.LoadedTable(core.NewTableWithColumns(name, columns, out...))
}

// Append inserts rows after the current last position in one transaction. A
// malformed table is quarantined first so the new rows start a clean table.
func (s *Store) Append(ctx context.Context, name string, rows []core.Row) error {
	if err := tables.ValidateName(name); err != nil {
		return err
	}
	unlock := s.locks.Lock(name)
	defer unlock()

	if out := s.Load(ctx, name); out.Status == tables.Malformed {
		artifact, err := s.quarantine(ctx, name)
		if err != nil {
			return fmt.Errorf("quarantine %s: %w", name, err)
		}
		slog.WarnContext(ctx, "Quarantined malformed table before append",
			"table", name,
			"artifact", artifact,
			"error", out.Err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var rawColumns string
	err = tx.QueryRowContext(ctx, `SELECT columns FROM tracked_tables WHERE name = ?`, name).Scan(&rawColumns)
	var columns []string
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("read columns: %w", err)
	default:
		if jerr := json.Unmarshal([]byte(rawColumns), &columns); jerr != nil {
			slog.WarnContext(ctx, "Discarding unreadable column list", "table", name, "error", jerr)
			columns = nil
		}
	}
	columns = core.MergeColumns(columns, rows)
	encoded, err := json.Marshal(columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tracked_tables (name, columns) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET columns = excluded.columns`,
		name, string(encoded)); err != nil {
		return fmt.Errorf("upsert table: %w", err)
	}

	var last int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM table_rows WHERE table_name = ?`, name).Scan(&last); err != nil {
		return fmt.Errorf("read last position: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO table_rows (table_name, position, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, r := range rows {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, name, last+int64(i)+1, string(data)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.DebugContext(ctx, "Rows appended to SQLite", "table", name, "rows", len(rows))
	return nil
}

// Quarantine renames the table to corrupto_<name>, or
// corrupto_<timestamp>_<name> when that name is in use.
func (s *Store) Quarantine(ctx context.Context, name string) (string, error) {
	if err := tables.ValidateName(name); err != nil {
		return "", err
	}
	unlock := s.locks.Lock(name)
	defer unlock()

	if out := s.Load(ctx, name); out.Status != tables.Malformed {
		return "", fmt.Errorf("%w: %s is %s", tables.ErrNotMalformed, name, out.Status)
	}
	return s.quarantine(ctx, name)
}

func (s *Store) quarantine(ctx context.Context, name string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	target := QuarantinePrefix + name
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracked_tables WHERE name = ?`, target).Scan(&n); err != nil {
		return "", fmt.Errorf("check artifact: %w", err)
	}
	if n > 0 {
		target = QuarantinePrefix + s.now().UTC().Format("20060102T150405Z") + "_" + name
	}

	res, err := tx.ExecContext(ctx, `UPDATE tracked_tables SET name = ? WHERE name = ?`, target, name)
	if err != nil {
		return "", fmt.Errorf("rename table: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return "", fmt.Errorf("table %q not found", name)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE table_rows SET table_name = ? WHERE table_name = ?`, target, name); err != nil {
		return "", fmt.Errorf("move rows: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return target, nil
}
