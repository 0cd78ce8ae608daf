package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"waterwatch-server/internal/config"

	"github.com/lib/pq"
	sqlite3 "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open returns the process-wide connection pool. Callers own it and must
// Close it on shutdown; every repository call borrows from it.
func Open(cfg config.Config) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.LogSQL {
		drv, err := driverFor(cfg.Driver)
		if err != nil {
			return nil, err
		}
		connector, err := NewLoggingConnector(drv, dsn, slog.Default())
		if err != nil {
			return nil, err
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.Driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	// SQLite is typically best with low concurrency; tune if needed.
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// Rebind rewrites '?' placeholders into the positional form the driver
// expects. Statements are written once, in SQLite syntax.
func Rebind(driverName, query string) string {
	if driverName != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func driverFor(name string) (driver.Driver, error) {
	switch name {
	case DriverSQLite:
		return &sqlite3.SQLiteDriver{}, nil
	case DriverPostgres:
		return &pq.Driver{}, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", name)
	}
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Driver == DriverPostgres {
		return "", fmt.Errorf("postgres requires DB_DSN")
	}

	// Ensure directory exists for file-backed sqlite db
	path := cfg.Path
	dir := filepath.Dir(path)
	if dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	// busy_timeout keeps concurrent ingest from failing with "database is locked";
	// WAL lets readers proceed while a reading is being appended.
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
