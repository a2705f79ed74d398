// Package store persists geolocation detection records across sessions.
//
// Two mutually exclusive strategies sit behind one facade, selected once
// per session at initialization:
//
//   - file: the engine is bound to a durable database file; every
//     mutation is followed by an explicit WAL checkpoint.
//   - volatile: the engine runs in memory; every mutation rewrites a
//     full-record snapshot in the durable key-value area, and the
//     snapshot is replayed on the next initialization.
//
// Initialization is single-flight: concurrent callers share one bootstrap
// attempt and exactly one engine instantiation. A failed durable-file
// open falls back to the volatile strategy once; it never retries.
//
// Durability-step failures (checkpoint or backup rewrite) are soft: the
// triggering mutation still succeeds, the failure is logged and counted,
// and callers that care read the count via DurabilityGaps.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/roach88/waypoint/internal/kv"
	"github.com/roach88/waypoint/internal/location"
	"github.com/roach88/waypoint/internal/sqlgen"
)

// Default listing bounds and file naming.
const (
	DefaultListLimit   = 50
	DefaultSearchLimit = 20
	DefaultFileName    = "locations.db"

	recentWindow = 7 * 24 * time.Hour
)

// Backend selects the persistence strategy. BackendAuto probes the file
// area and falls back to volatile; the explicit values force one
// strategy, chiefly for tests and diagnostics.
type Backend string

const (
	BackendAuto     Backend = "auto"
	BackendFile     Backend = "file"
	BackendVolatile Backend = "volatile"
)

// State is the session lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
	StateClosed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures a Store. Applications construct and inject a Store
// rather than sharing ambient global state; tests build fresh sessions.
type Options struct {
	// Dir is the durable file area. Probed at initialization; the file
	// strategy is only selected when it is usable.
	Dir string

	// FileName is the database file name within Dir.
	// Defaults to DefaultFileName.
	FileName string

	// Backend forces a strategy. Defaults to BackendAuto.
	Backend Backend

	// Area is the key-value backup area for the volatile strategy.
	Area kv.Area

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now is the time source for statistics windows. Defaults to time.Now.
	Now func() time.Time
}

// Store is the record store facade. One logical engine connection; one
// strategy for the session lifetime.
type Store struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	init singleflight.Group

	// opMu serializes each operation together with its durability step
	// against the single engine connection.
	opMu sync.Mutex

	mu      sync.Mutex // guards state, strat, initErr, lastGap
	state   State
	strat   strategy
	initErr error
	lastGap error

	instantiations atomic.Int64
	gapCount       atomic.Int64
}

// New constructs an unopened store. Call Initialize, or let the first
// operation initialize lazily.
func New(opts Options) *Store {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	if opts.Backend == "" {
		opts.Backend = BackendAuto
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{opts: opts, logger: logger, now: now}
}

// Initialize bootstraps the session: capability probe, strategy
// selection, engine open, schema bootstrap (plus snapshot replay for the
// volatile strategy). Safe to call concurrently; callers before
// readiness share one attempt. After a failed bootstrap the same error
// is returned until Close resets the session.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return nil
	case StateFailed:
		err := s.initErr
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	_, err, _ := s.init.Do("initialize", func() (any, error) {
		return nil, s.bootstrap(ctx)
	})
	return err
}

func (s *Store) bootstrap(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateReady {
		s.mu.Unlock()
		return nil
	}
	s.state = StateInitializing
	s.mu.Unlock()

	strat, err := s.selectStrategy(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateFailed
		s.initErr = err
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.strat = strat
	s.state = StateReady
	s.initErr = nil
	s.mu.Unlock()
	s.logger.Info("store ready", "strategy", strat.name())
	return nil
}

// selectStrategy picks and boots exactly one backend. The file strategy
// gets one fallback to volatile on open/schema failure; a forced backend
// never falls back.
func (s *Store) selectStrategy(ctx context.Context) (strategy, error) {
	useFile := false
	switch s.opts.Backend {
	case BackendFile:
		useFile = true
	case BackendVolatile:
		// forced volatile
	default:
		useFile = DetectFileArea(s.opts.Dir)
	}

	if useFile {
		fs := newFileStrategy(filepath.Join(s.opts.Dir, s.opts.FileName))
		err := s.bootStrategy(ctx, fs)
		if err == nil {
			return fs, nil
		}
		if s.opts.Backend == BackendFile {
			return nil, err
		}
		s.logger.Warn("file strategy unavailable, falling back to volatile", "error", err)
	}

	vs := newVolatileStrategy(s.opts.Area, s.logger)
	if err := s.bootStrategy(ctx, vs); err != nil {
		return nil, err
	}
	return vs, nil
}

func (s *Store) bootStrategy(ctx context.Context, st strategy) error {
	s.instantiations.Add(1)
	if err := st.open(ctx); err != nil {
		return &InitializationError{Strategy: st.name(), Err: err}
	}
	if err := st.ensureSchema(ctx); err != nil {
		st.close()
		return &InitializationError{Strategy: st.name(), Err: err}
	}
	return nil
}

// ensureReady initializes lazily and returns the bound strategy.
func (s *Store) ensureReady(ctx context.Context) (strategy, error) {
	s.mu.Lock()
	if s.state == StateReady {
		st := s.strat
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()

	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, fmt.Errorf("store not ready: %s", s.state)
	}
	return s.strat, nil
}

// Save validates and inserts a record, then runs the durability step.
// Records are append-only: a duplicate id fails with ErrDuplicateID,
// never an update.
func (s *Store) Save(ctx context.Context, rec location.Record) error {
	st, err := s.ensureReady(ctx)
	if err != nil {
		return err
	}
	if verrs := location.Validate(rec); len(verrs) > 0 {
		return fmt.Errorf("save %q: %w", rec.ID, verrs)
	}
	query, params, err := sqlgen.Insert(rec)
	if err != nil {
		return fmt.Errorf("save %q: %w", rec.ID, err)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if _, err := st.db().ExecContext(ctx, query, params...); err != nil {
		if isPrimaryKeyConflict(err) {
			return fmt.Errorf("save %q: %w", rec.ID, ErrDuplicateID)
		}
		return &QueryError{Op: "save", Err: err}
	}
	s.finishMutation(ctx, st)
	return nil
}

// List returns record summaries, newest first. A non-positive limit
// means DefaultListLimit. Summaries exclude the large payload fields.
func (s *Store) List(ctx context.Context, limit int) ([]location.Summary, error) {
	st, err := s.ensureReady(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query, params := sqlgen.SelectSummaries(limit)

	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.querySummaries(ctx, st, "list", query, params)
}

// GetByID returns the full record. A missing id is (zero, false, nil),
// not an error.
func (s *Store) GetByID(ctx context.Context, id string) (location.Record, bool, error) {
	st, err := s.ensureReady(ctx)
	if err != nil {
		return location.Record{}, false, err
	}
	query, params, err := sqlgen.SelectByID(id)
	if err != nil {
		return location.Record{}, false, fmt.Errorf("get %q: %w", id, err)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	rows, err := st.db().QueryContext(ctx, query, params...)
	if err != nil {
		return location.Record{}, false, &QueryError{Op: "get", Err: err}
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return location.Record{}, false, &QueryError{Op: "get", Err: err}
		}
		return location.Record{}, false, nil
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return location.Record{}, false, &QueryError{Op: "get", Err: err}
	}
	return rec, true, nil
}

// Search matches term as a case-insensitive substring of description,
// newest first. A non-positive limit means DefaultSearchLimit.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]location.Summary, error) {
	st, err := s.ensureReady(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	query, params, err := sqlgen.SearchByDescription(term, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.querySummaries(ctx, st, "search", query, params)
}

// Delete removes the record if present, then runs the durability step.
// Deleting an unknown id is a no-op success.
func (s *Store) Delete(ctx context.Context, id string) error {
	st, err := s.ensureReady(ctx)
	if err != nil {
		return err
	}
	query, params, err := sqlgen.DeleteByID(id)
	if err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if _, err := st.db().ExecContext(ctx, query, params...); err != nil {
		return &QueryError{Op: "delete", Err: err}
	}
	s.finishMutation(ctx, st)
	return nil
}

// ClearAll removes every record, then runs the durability step.
func (s *Store) ClearAll(ctx context.Context) error {
	st, err := s.ensureReady(ctx)
	if err != nil {
		return err
	}
	query, params := sqlgen.DeleteAll()

	s.opMu.Lock()
	defer s.opMu.Unlock()
	if _, err := st.db().ExecContext(ctx, query, params...); err != nil {
		return &QueryError{Op: "clear", Err: err}
	}
	s.finishMutation(ctx, st)
	return nil
}

// Statistics reports the total count, counts by source, and how many
// records fall inside the trailing seven-day window.
func (s *Store) Statistics(ctx context.Context) (location.Statistics, error) {
	st, err := s.ensureReady(ctx)
	if err != nil {
		return location.Statistics{}, err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	stats := location.Statistics{
		BySource: map[location.Source]int{
			location.SourceCamera: 0,
			location.SourceUpload: 0,
		},
	}

	query, params := sqlgen.CountBySource()
	rows, err := st.db().QueryContext(ctx, query, params...)
	if err != nil {
		return location.Statistics{}, &QueryError{Op: "statistics", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return location.Statistics{}, &QueryError{Op: "statistics", Err: err}
		}
		stats.BySource[location.Source(source)] = count
		stats.TotalLocations += count
	}
	if err := rows.Err(); err != nil {
		return location.Statistics{}, &QueryError{Op: "statistics", Err: err}
	}

	query, params = sqlgen.CountSince(s.now().Add(-recentWindow))
	if err := st.db().QueryRowContext(ctx, query, params...).Scan(&stats.LastSevenDays); err != nil {
		return location.Statistics{}, &QueryError{Op: "statistics", Err: err}
	}
	return stats, nil
}

// DurabilityGaps reports how many durability steps have failed this
// session and the most recent failure. A non-zero count under the
// volatile strategy means recent mutations may not survive a restart.
func (s *Store) DurabilityGaps() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gapCount.Load(), s.lastGap
}

// Strategy names the active backend, or "" before readiness.
func (s *Store) Strategy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ""
	}
	return s.strat.name()
}

// State returns the session lifecycle position.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Instantiations counts engine instantiation attempts. Observability
// hook for the single-flight guarantee.
func (s *Store) Instantiations() int64 {
	return s.instantiations.Load()
}

// Close releases the engine connection. The session may be initialized
// again afterwards; the injected backup area stays open (its owner
// closes it).
func (s *Store) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.strat != nil {
		err = s.strat.close()
		s.strat = nil
	}
	s.state = StateClosed
	s.initErr = nil
	return err
}

// finishMutation runs the strategy's durability step and absorbs a soft
// failure: log, count, keep the already-applied mutation.
func (s *Store) finishMutation(ctx context.Context, st strategy) {
	if err := st.afterMutation(ctx); err != nil {
		s.gapCount.Add(1)
		s.mu.Lock()
		s.lastGap = err
		s.mu.Unlock()
		s.logger.Warn("durability step failed; mutation may not survive restart",
			"strategy", st.name(), "error", err)
	}
}

// querySummaries runs a summary-projection query. Returns an empty
// slice, never nil, when nothing matches.
func (s *Store) querySummaries(ctx context.Context, st strategy, op, query string, params []any) ([]location.Summary, error) {
	rows, err := st.db().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, &QueryError{Op: op, Err: err}
	}
	defer rows.Close()

	summaries := []location.Summary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, &QueryError{Op: op, Err: err}
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, &QueryError{Op: op, Err: err}
	}
	return summaries, nil
}
