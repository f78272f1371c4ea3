package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// schemaMigrationsTable records applied schema versions.
const schemaMigrationsTable = "tracker_schema_migrations"

//go:embed migrations/*.sql
var schemaFS embed.FS

// Migrate applies every pending schema step to the database at dbPath and
// returns the resulting schema version.
//
// The migrate driver closes the connection it is handed, so it always gets a
// private one instead of the store's pool.
func Migrate(dbPath string) (uint, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open schema connection: %w", err)
	}

	m, err := newMigrator(conn)
	if err != nil {
		conn.Close()
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply schema: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	return version, nil
}

func newMigrator(conn *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load embedded schema: %w", err)
	}
	target, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{
		MigrationsTable: schemaMigrationsTable,
	})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("prepare schema target: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", target)
	if err != nil {
		src.Close()
		target.Close()
		return nil, fmt.Errorf("prepare migrator: %w", err)
	}
	return m, nil
}
