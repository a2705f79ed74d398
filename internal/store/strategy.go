package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// strategy is one of the two mutually exclusive persistence backends.
// Exactly one is bound per session, at initialization; no code outside
// the strategy implementations branches on which backend is active.
type strategy interface {
	// open binds the engine. Failure is fatal to this strategy.
	open(ctx context.Context) error

	// ensureSchema bootstraps the table and indexes; for the volatile
	// strategy it also replays the backup snapshot. Idempotent.
	ensureSchema(ctx context.Context) error

	// afterMutation runs the durability step for a committed mutation.
	// A non-nil result is always a *BackupSyncError; the facade absorbs
	// it rather than failing the mutation.
	afterMutation(ctx context.Context) error

	db() *sql.DB
	name() string
	close() error
}

// DetectFileArea reports whether dir can host the durable database file.
// A probe file is created and removed; no persisted data is touched.
// Absence of the capability is a normal outcome, not an error.
func DetectFileArea(dir string) bool {
	if dir == "" {
		return false
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// openEngine opens a sqlite handle with the connection discipline both
// strategies share: a verified connection, and a single pooled conn so
// statements are serialized at the engine boundary.
func openEngine(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect engine: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// tableExists queries the engine catalog for the records table.
func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
	).Scan(&name)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query catalog: %w", err)
	}
	return true, nil
}
