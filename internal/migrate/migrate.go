// Package migrate runs schema migrations using a versioned migration table.
// Migration files live in one directory per driver and are named with a
// 4-digit prefix for order: sql/sqlite/0001_name.sql, sql/postgres/0001_name.sql.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"sort"

	"waterwatch-server/internal/db"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var sqlFS embed.FS

const tableName = "schema_migrations"

var migrationFileRe = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

type migration struct {
	version string
	name    string
	body    string
}

// Run ensures the schema_migrations table exists, then applies any embedded
// migrations for driverName that have not yet been run, in order by version.
func Run(conn *sql.DB, driverName string) error {
	return run(conn, driverName, sqlFS)
}

func run(conn *sql.DB, driverName string, fsys fs.FS) error {
	dir, err := migrationsDir(driverName)
	if err != nil {
		return err
	}

	if err := ensureMigrationsTable(conn, driverName); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := appliedVersions(conn)
	if err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}

	pending, err := pendingMigrations(fsys, dir, applied)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := apply(conn, driverName, m); err != nil {
			return fmt.Errorf("apply %s: %w", m.version+"_"+m.name+".sql", err)
		}
		slog.Info("migration applied", "version", m.version, "name", m.name, "driver", driverName)
	}

	return nil
}

func migrationsDir(driverName string) (string, error) {
	switch driverName {
	case db.DriverSQLite:
		return "sql/sqlite", nil
	case db.DriverPostgres:
		return "sql/postgres", nil
	default:
		return "", fmt.Errorf("no migrations for driver %q", driverName)
	}
}

func pendingMigrations(fsys fs.FS, dir string, applied map[string]bool) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	var pending []migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		version, name, ok := parseMigrationFilename(e.Name())
		if !ok || applied[version] {
			continue
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		pending = append(pending, migration{version: version, name: name, body: string(body)})
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].version < pending[j].version })
	return pending, nil
}

func ensureMigrationsTable(conn *sql.DB, driverName string) error {
	appliedDefault := `(strftime('%Y-%m-%dT%H:%M:%fZ','now'))`
	if driverName == db.DriverPostgres {
		appliedDefault = `(to_char(now() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS.MS"Z"'))`
	}
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			version    TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT ` + appliedDefault + `
		)
	`)
	return err
}

func appliedVersions(conn *sql.DB) (map[string]bool, error) {
	rows, err := conn.Query("SELECT version FROM " + tableName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close migration rows", "error", err)
		}
	}()
	out := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func parseMigrationFilename(filename string) (version, name string, ok bool) {
	m := migrationFileRe.FindStringSubmatch(filename)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// apply runs one migration and records it in the same transaction so a
// failed body leaves no version row behind.
func apply(conn *sql.DB, driverName string, m migration) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(m.body); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(
		db.Rebind(driverName, "INSERT INTO "+tableName+" (version, name) VALUES (?, ?)"),
		m.version, m.name,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
