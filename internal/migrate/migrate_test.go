package migrate

import (
	"context"
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
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return db
}

func TestRun_AppliesEmbeddedOnce(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	n, err := Run(ctx, db)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n < 1 {
		t.Fatalf("Run applied %d migrations, want >= 1", n)
	}

	if _, err := db.Exec(`INSERT INTO location_cache (ip, payload, expires_at) VALUES ('1.1.1.1', '{}', '2030-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("location_cache not created: %v", err)
	}

	n, err = Run(ctx, db)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if n != 0 {
		t.Errorf("second Run applied %d migrations, want 0", n)
	}
}

func TestRun_OrdersByVersionAndSkipsJunk(t *testing.T) {
	db := openMemDB(t)
	fsys := fstest.MapFS{
		"sql/0002_second.sql": {Data: []byte(`INSERT INTO t (v) VALUES ('second');`)},
		"sql/0001_first.sql":  {Data: []byte(`CREATE TABLE t (v TEXT);`)},
		"sql/README.md":       {Data: []byte(`not a migration`)},
	}

	n, err := run(context.Background(), db, fsys)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 2 {
		t.Fatalf("applied %d, want 2", n)
	}

	var v string
	if err := db.QueryRow(`SELECT v FROM t`).Scan(&v); err != nil {
		t.Fatalf("select: %v", err)
	}
	if v != "second" {
		t.Errorf("v = %q, want second", v)
	}
}

func TestRun_FailedMigrationIsNotRecorded(t *testing.T) {
	db := openMemDB(t)
	fsys := fstest.MapFS{
		"sql/0001_broken.sql": {Data: []byte(`CREATE TABLE oops (`)},
	}

	if _, err := run(context.Background(), db, fsys); err == nil {
		t.Fatal("run: expected error for broken migration")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ` + tableName).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("recorded %d migrations, want 0", count)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		in      string
		version string
		name    string
		ok      bool
	}{
		{in: "0001_location_cache.sql", version: "0001", name: "location_cache", ok: true},
		{in: "1_short.sql", ok: false},
		{in: "0003_x.txt", ok: false},
	}
	for _, tt := range tests {
		v, n, ok := parseMigrationFilename(tt.in)
		if ok != tt.ok || v != tt.version || n != tt.name {
			t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.in, v, n, ok, tt.version, tt.name, tt.ok)
		}
	}
}
