package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateID is returned by Save when the record id already exists.
// Records are append-only; there is no upsert path.
var ErrDuplicateID = errors.New("record id already exists")

// InitializationError reports a failed engine instantiation or
// durable-file open. Fatal to the initialize attempt that produced it;
// the file strategy gets one fallback to volatile, never a retry loop.
type InitializationError struct {
	Strategy string
	Err      error
}

// Error implements the error interface.
func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize %s strategy: %v", e.Strategy, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// QueryError reports a failed statement execution against a ready engine.
// Surfaced to the caller of the triggering operation.
type QueryError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// BackupSyncError reports a failed secondary durability step (checkpoint
// or backup rewrite). It never fails the triggering mutation: the store
// logs it, counts it, and exposes it through DurabilityGaps. Under the
// volatile strategy it marks a window in which the mutation would be lost
// on restart.
type BackupSyncError struct {
	Strategy string
	Err      error
}

// Error implements the error interface.
func (e *BackupSyncError) Error() string {
	return fmt.Sprintf("%s durability step: %v", e.Strategy, e.Err)
}

func (e *BackupSyncError) Unwrap() error { return e.Err }

// isPrimaryKeyConflict reports whether err is a sqlite primary-key
// constraint violation.
func isPrimaryKeyConflict(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
