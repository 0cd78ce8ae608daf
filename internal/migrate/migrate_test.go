package migrate

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRun_SQLite(t *testing.T) {
	db := openMemDB(t)

	if err := Run(db, "sqlite3"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("applied migrations = %d; want 1", n)
	}

	if _, err := db.Exec(`INSERT INTO sensor (ph, ntu, tds) VALUES (7.2, 3.5, 150)`); err != nil {
		t.Fatalf("insert into migrated sensor table: %v", err)
	}
	var createdAt string
	if err := db.QueryRow(`SELECT created_at FROM sensor WHERE id = 1`).Scan(&createdAt); err != nil {
		t.Fatalf("select created_at: %v", err)
	}
	if createdAt == "" {
		t.Error("created_at default not applied")
	}
}

func TestRun_Idempotent(t *testing.T) {
	db := openMemDB(t)

	for i := 0; i < 2; i++ {
		if err := Run(db, "sqlite3"); err != nil {
			t.Fatalf("Run #%d: %v", i+1, err)
		}
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("applied migrations after two runs = %d; want 1", n)
	}
}

func TestRun_SchemaRejectsOutOfRange(t *testing.T) {
	db := openMemDB(t)
	if err := Run(db, "sqlite3"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tests := []struct {
		name string
		stmt string
	}{
		{name: "ph above 14", stmt: `INSERT INTO sensor (ph, ntu, tds) VALUES (14.5, 1, 1)`},
		{name: "negative ntu", stmt: `INSERT INTO sensor (ph, ntu, tds) VALUES (7, -1, 1)`},
		{name: "negative tds", stmt: `INSERT INTO sensor (ph, ntu, tds) VALUES (7, 1, -1)`},
		{name: "missing tds", stmt: `INSERT INTO sensor (ph, ntu) VALUES (7, 1)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.Exec(tt.stmt); err == nil {
				t.Errorf("Exec(%q) succeeded; want constraint error", tt.stmt)
			}
		})
	}
}

func TestRun_UnknownDriver(t *testing.T) {
	db := openMemDB(t)
	if err := Run(db, "mysql"); err == nil {
		t.Fatal("Run(mysql) = nil; want error")
	}
}

func TestRun_FailedMigrationRollsBack(t *testing.T) {
	db := openMemDB(t)
	fsys := fstest.MapFS{
		"sql/sqlite/0001_ok.sql":     {Data: []byte(`CREATE TABLE a (id INTEGER);`)},
		"sql/sqlite/0002_broken.sql": {Data: []byte(`CREATE TABLE b (id INTEGER); THIS IS NOT SQL;`)},
		"sql/sqlite/README.md":       {Data: []byte(`ignored`)},
	}

	if err := run(db, "sqlite3", fsys); err == nil {
		t.Fatal("run with broken migration = nil; want error")
	}

	applied, err := appliedVersions(db)
	if err != nil {
		t.Fatalf("appliedVersions: %v", err)
	}
	if !applied["0001"] {
		t.Error("0001 not recorded")
	}
	if applied["0002"] {
		t.Error("0002 recorded despite failure")
	}
	if _, err := db.Exec(`SELECT * FROM b`); err == nil {
		t.Error("table b exists; want rolled back")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in          string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{in: "0001_sensor.sql", wantVersion: "0001", wantName: "sensor", wantOK: true},
		{in: "0042_add_index.sql", wantVersion: "0042", wantName: "add_index", wantOK: true},
		{in: "1_sensor.sql", wantOK: false},
		{in: "0001_sensor.txt", wantOK: false},
		{in: "sensor.sql", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, n, ok := parseMigrationFilename(tt.in)
			if ok != tt.wantOK || v != tt.wantVersion || n != tt.wantName {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v); want (%q, %q, %v)",
					tt.in, v, n, ok, tt.wantVersion, tt.wantName, tt.wantOK)
			}
		})
	}
}
