package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesAndPings(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO t (name) VALUES ('a')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func TestOpenReadOnly_RejectsWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	rw, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() err=%v", err)
	}
	defer func() { _ = rw.Close() }()
	if _, err := rw.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	ro, err := OpenReadOnly(ctx, path)
	if err != nil {
		t.Fatalf("OpenReadOnly() err=%v", err)
	}
	defer func() { _ = ro.Close() }()

	var count int
	if err := ro.QueryRowContext(ctx, "SELECT COUNT(*) FROM t").Scan(&count); err != nil {
		t.Fatalf("select on read-only conn: %v", err)
	}
	if _, err := ro.ExecContext(ctx, "INSERT INTO t (id) VALUES (1)"); err == nil {
		t.Fatalf("expected write on read-only connection to fail")
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := OpenReadOnly(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
