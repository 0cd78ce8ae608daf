package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"waterwatch-server/internal/db"
	"waterwatch-server/internal/metrics"
	"waterwatch-server/internal/modules/readings/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-recent-readings.sql
var getRecentReadingsSQL string

//go:embed sql/get-latest-reading.sql
var getLatestReadingSQL string

//go:embed sql/count-readings.sql
var countReadingsSQL string

const defaultTimeout = 5 * time.Second

// ReadingsRepository is the storage contract for readings. Append assigns
// id and created_at; QueryRecent returns newest first.
type ReadingsRepository interface {
	Append(ctx context.Context, ph, ntu, tds float64) (types.Reading, error)
	QueryRecent(ctx context.Context, limit int) ([]types.Reading, error)
	Latest(ctx context.Context) (types.Reading, error)
	Count(ctx context.Context) (int64, error)
}

type repositoryImpl struct {
	db      *sql.DB
	timeout time.Duration
	metrics *metrics.Manager

	insertSQL string
	recentSQL string
}

// Option configures the repository.
type Option func(*repositoryImpl)

// WithDriver rewrites placeholders for the named driver (default sqlite3).
func WithDriver(driverName string) Option {
	return func(r *repositoryImpl) {
		r.insertSQL = db.Rebind(driverName, insertReadingSQL)
		r.recentSQL = db.Rebind(driverName, getRecentReadingsSQL)
	}
}

// WithTimeout bounds every storage call.
func WithTimeout(d time.Duration) Option {
	return func(r *repositoryImpl) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(r *repositoryImpl) {
		r.metrics = m
	}
}

func NewRepository(conn *sql.DB, opts ...Option) ReadingsRepository {
	r := &repositoryImpl{
		db:        conn,
		timeout:   defaultTimeout,
		insertSQL: insertReadingSQL,
		recentSQL: getRecentReadingsSQL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *repositoryImpl) Append(ctx context.Context, ph, ntu, tds float64) (out types.Reading, err error) {
	defer r.observe("append", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := scanReading(r.db.QueryRowContext(ctx, r.insertSQL, ph, ntu, tds), &out); err != nil {
		return types.Reading{}, &types.WriteError{Err: err}
	}
	return out, nil
}

func (r *repositoryImpl) QueryRecent(ctx context.Context, limit int) (out []types.Reading, err error) {
	defer r.observe("query_recent", time.Now(), &err)
	if limit <= 0 {
		return nil, &types.ReadError{Op: "query recent", Err: fmt.Errorf("limit must be > 0, got %d", limit)}
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.recentSQL, limit)
	if err != nil {
		return nil, &types.ReadError{Op: "query recent", Err: err}
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close recent readings rows", "error", err)
		}
	}()

	out = make([]types.Reading, 0, limit)
	for rows.Next() {
		var rec types.Reading
		if err := scanReading(rows, &rec); err != nil {
			return nil, &types.ReadError{Op: "query recent", Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.ReadError{Op: "query recent", Err: err}
	}
	return out, nil
}

func (r *repositoryImpl) Latest(ctx context.Context) (out types.Reading, err error) {
	defer r.observe("latest", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = scanReading(r.db.QueryRowContext(ctx, getLatestReadingSQL), &out)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Reading{}, types.ErrNoReadings
	}
	if err != nil {
		return types.Reading{}, &types.ReadError{Op: "latest reading", Err: err}
	}
	return out, nil
}

func (r *repositoryImpl) Count(ctx context.Context) (n int64, err error) {
	defer r.observe("count", time.Now(), &err)
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.db.QueryRowContext(ctx, countReadingsSQL).Scan(&n); err != nil {
		return 0, &types.ReadError{Op: "count readings", Err: err}
	}
	return n, nil
}

func (r *repositoryImpl) observe(op string, start time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	if errors.Is(e, types.ErrNoReadings) {
		e = nil
	}
	r.metrics.ObserveStorage(op, time.Since(start), e)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReading(row rowScanner, rec *types.Reading) error {
	var ts dbTime
	if err := row.Scan(&rec.ID, &rec.PH, &rec.NTU, &rec.TDS, &ts); err != nil {
		return err
	}
	rec.CreatedAt = ts.Time
	return nil
}

// dbTime scans created_at from either driver: SQLite stores it as TEXT,
// Postgres returns a time.Time.
type dbTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		return errors.New("created_at is NULL")
	default:
		return fmt.Errorf("unsupported created_at type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	var firstErr error
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed.UTC()
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return fmt.Errorf("parse timestamp %q: %w", s, firstErr)
}
