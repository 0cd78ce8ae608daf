package db

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu    sync.Mutex
	attrs []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := make(map[string]slog.Value)
	m["msg"] = slog.StringValue(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.attrs = append(h.attrs, m)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(name string) slog.Handler { return h }

func (h *captureHandler) recordsFor(t *testing.T, msg string) []map[string]slog.Value {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.attrs {
		if m["msg"].String() == msg {
			out = append(out, m)
		}
	}
	return out
}

func (h *captureHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = nil
}

func openLogged(t *testing.T, handler *captureHandler) *sql.DB {
	t.Helper()
	connector, err := NewLoggingConnector(&sqlite3.SQLiteDriver{}, ":memory:", slog.New(handler))
	if err != nil {
		t.Fatalf("NewLoggingConnector: %v", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNewLoggingConnector_nilLoggerUsesDefault(t *testing.T) {
	conn, err := NewLoggingConnector(&sqlite3.SQLiteDriver{}, ":memory:", nil)
	if err != nil {
		t.Fatalf("NewLoggingConnector: %v", err)
	}
	lc, ok := conn.(*loggingConnector)
	if !ok {
		t.Fatalf("conn type = %T; want *loggingConnector", conn)
	}
	if lc.logger == nil {
		t.Fatal("logger is nil; want slog.Default()")
	}
}

func TestNewLoggingConnector_nilDriver(t *testing.T) {
	if _, err := NewLoggingConnector(nil, ":memory:", nil); err == nil {
		t.Fatal("NewLoggingConnector(nil driver) = nil error; want error")
	}
}

func TestLoggingConnector_ExecAndQueryLogged(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	if _, err := db.Exec(`CREATE TABLE sensor (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	recs := handler.recordsFor(t, "sql")
	if len(recs) == 0 {
		t.Fatal("expected at least one sql log record for Exec")
	}
	got := recs[len(recs)-1]
	if got["op"].String() != "exec" {
		t.Errorf("op: got %q, want exec", got["op"].String())
	}
	if got["sql"].String() != `CREATE TABLE sensor (id INTEGER PRIMARY KEY)` {
		t.Errorf("sql: got %q", got["sql"].String())
	}
	if _, ok := got["duration_ms"]; !ok {
		t.Error("expected duration_ms attribute")
	}

	handler.reset()
	var one int
	if err := db.QueryRow(`SELECT 1`).Scan(&one); err != nil {
		t.Fatalf("query row: %v", err)
	}
	recs = handler.recordsFor(t, "sql")
	if len(recs) == 0 {
		t.Fatal("expected sql log record for QueryRow")
	}
	got = recs[len(recs)-1]
	if got["op"].String() != "query" {
		t.Errorf("op: got %q, want query", got["op"].String())
	}
}

func TestLoggingConnector_ArgsLogged(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	if _, err := db.Exec(`CREATE TABLE sensor (ph REAL, ntu REAL, tds REAL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	handler.reset()

	if _, err := db.Exec(`INSERT INTO sensor (ph, ntu, tds) VALUES (?, ?, ?)`, 7.2, 3.5, 150.0); err != nil {
		t.Fatalf("insert: %v", err)
	}
	recs := handler.recordsFor(t, "sql")
	if len(recs) == 0 {
		t.Fatal("expected sql log for Exec with args")
	}
	got := recs[len(recs)-1]
	if got["sql"].String() != `INSERT INTO sensor (ph, ntu, tds) VALUES (?, ?, ?)` {
		t.Errorf("sql: got %q", got["sql"].String())
	}
	if _, hasArgs := got["args"]; !hasArgs {
		t.Error("expected args attribute in log")
	}
}

func TestLoggingConnector_ErrorLogged(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	if _, err := db.Exec(`CREATE TABLE sensor (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	handler.reset()

	if _, err := db.Exec(`INSERT INTO sensor (id) VALUES (?)`, "not-an-int"); err == nil {
		t.Fatal("insert of text into INTEGER PRIMARY KEY succeeded; want error")
	}
	recs := handler.recordsFor(t, "sql")
	if len(recs) == 0 {
		t.Fatal("expected sql log for failed Exec")
	}
	if _, ok := recs[len(recs)-1]["error"]; !ok {
		t.Error("expected error attribute on failed statement")
	}
}

func TestLoggingConnector_PingSucceeds(t *testing.T) {
	db := openLogged(t, &captureHandler{})
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		in     string
		want   string
	}{
		{name: "sqlite unchanged", driver: DriverSQLite, in: "SELECT ? , ?", want: "SELECT ? , ?"},
		{name: "postgres positional", driver: DriverPostgres, in: "INSERT INTO sensor (ph, ntu, tds) VALUES (?, ?, ?)", want: "INSERT INTO sensor (ph, ntu, tds) VALUES ($1, $2, $3)"},
		{name: "postgres no params", driver: DriverPostgres, in: "SELECT COUNT(*) FROM sensor", want: "SELECT COUNT(*) FROM sensor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rebind(tt.driver, tt.in); got != tt.want {
				t.Errorf("Rebind() = %q; want %q", got, tt.want)
			}
		})
	}
}
