package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/waypoint/internal/sqlgen"
)

// fileStrategy binds the engine to a durably named database file.
// A mutation is durable once the post-mutation checkpoint succeeds.
type fileStrategy struct {
	path string
	conn *sql.DB
}

func newFileStrategy(path string) *fileStrategy {
	return &fileStrategy{path: path}
}

func (f *fileStrategy) name() string { return "file" }

func (f *fileStrategy) open(ctx context.Context) error {
	db, err := openEngine(ctx, f.path)
	if err != nil {
		return err
	}
	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return err
	}
	f.conn = db
	return nil
}

func (f *fileStrategy) ensureSchema(ctx context.Context) error {
	exists, err := tableExists(ctx, f.conn, sqlgen.TableName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := f.conn.ExecContext(ctx, sqlgen.SchemaDDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	// Schema must reach the file before the session is usable, so a
	// bootstrap checkpoint failure is an error, unlike afterMutation.
	if err := f.checkpoint(ctx); err != nil {
		return fmt.Errorf("checkpoint schema: %w", err)
	}
	return nil
}

func (f *fileStrategy) afterMutation(ctx context.Context) error {
	if err := f.checkpoint(ctx); err != nil {
		return &BackupSyncError{Strategy: f.name(), Err: err}
	}
	return nil
}

// checkpoint forces WAL contents into the database file. This is the
// durability boundary for the file strategy.
func (f *fileStrategy) checkpoint(ctx context.Context) error {
	if _, err := f.conn.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	return nil
}

func (f *fileStrategy) db() *sql.DB { return f.conn }

func (f *fileStrategy) close() error {
	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	return err
}

// applyPragmas sets the engine configuration for file-backed sessions:
// WAL for concurrent reads during writes, NORMAL sync as the baseline
// (the explicit checkpoint is the real durability step), a bounded busy
// timeout, and foreign key enforcement.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}
