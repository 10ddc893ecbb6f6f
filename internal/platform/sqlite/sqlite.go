package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Open opens a read-write SQLite database at path with foreign keys on.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_fk=1", url.PathEscape(path)))
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// OpenReadOnly opens the same database file on a connection the engine
// itself holds read-only (mode=ro plus query_only), so writes fail at the
// database even if an application-level check is bypassed.
func OpenReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro&_query_only=1", url.PathEscape(path)))
	if err != nil {
		return nil, fmt.Errorf("open read-only: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping read-only: %w", err)
	}
	return db, nil
}
