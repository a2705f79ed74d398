package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/waypoint/internal/kv"
	"github.com/roach88/waypoint/internal/sqlgen"
)

// Backup entry address in the key-value area. One serialized copy of all
// records lives under this single pair; every mutation rewrites it whole.
const (
	BackupCollection = "waypoint"
	BackupKey        = "location-backup"
)

// volatileStrategy runs the engine purely in memory and mirrors the full
// record set into the key-value area after every mutation.
//
// Weaker guarantee than the file strategy: a backup rewrite failure is
// absorbed, so a mutation committed in memory can be lost if the process
// ends before the next successful rewrite.
type volatileStrategy struct {
	area   kv.Area
	conn   *sql.DB
	logger *slog.Logger
}

func newVolatileStrategy(area kv.Area, logger *slog.Logger) *volatileStrategy {
	return &volatileStrategy{area: area, logger: logger}
}

func (v *volatileStrategy) name() string { return "volatile" }

func (v *volatileStrategy) open(ctx context.Context) error {
	if v.area == nil {
		return fmt.Errorf("no backup area configured")
	}
	// A uniquely named shared-cache memory database: database/sql may
	// open more than one underlying connection over the session, and an
	// anonymous :memory: DSN would give each one its own empty database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := openEngine(ctx, dsn)
	if err != nil {
		return err
	}
	v.conn = db
	return nil
}

func (v *volatileStrategy) ensureSchema(ctx context.Context) error {
	if _, err := v.conn.ExecContext(ctx, sqlgen.SchemaDDL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return v.replaySnapshot(ctx)
}

// replaySnapshot loads the backup entry and reinserts its records. An
// unreadable or corrupt snapshot starts the session empty rather than
// failing it; an individual record that will not insert is skipped so
// the rest of the set still loads.
func (v *volatileStrategy) replaySnapshot(ctx context.Context) error {
	data, found, err := v.area.Get(ctx, BackupCollection, BackupKey)
	if err != nil {
		v.logger.Warn("backup snapshot unavailable, starting empty", "error", err)
		return nil
	}
	if !found {
		return nil
	}
	records, err := decodeSnapshot(data)
	if err != nil {
		v.logger.Warn("backup snapshot corrupt, starting empty", "error", err)
		return nil
	}
	replayed := 0
	for _, rec := range records {
		query, params, err := sqlgen.Insert(rec)
		if err == nil {
			_, err = v.conn.ExecContext(ctx, query, params...)
		}
		if err != nil {
			v.logger.Warn("skipping unreplayable backup record", "id", rec.ID, "error", err)
			continue
		}
		replayed++
	}
	if replayed > 0 {
		v.logger.Info("replayed backup snapshot", "records", replayed)
	}
	return nil
}

// afterMutation rewrites the single backup entry with the current full
// record set.
func (v *volatileStrategy) afterMutation(ctx context.Context) error {
	records, err := readAllRecords(ctx, v.conn)
	if err == nil {
		var data []byte
		if data, err = encodeSnapshot(records); err == nil {
			err = v.area.Put(ctx, BackupCollection, BackupKey, data)
		}
	}
	if err != nil {
		return &BackupSyncError{Strategy: v.name(), Err: err}
	}
	return nil
}

func (v *volatileStrategy) db() *sql.DB { return v.conn }

func (v *volatileStrategy) close() error {
	if v.conn == nil {
		return nil
	}
	err := v.conn.Close()
	v.conn = nil
	return err
}
