package store

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/roach88/waypoint/internal/kv"
	"github.com/roach88/waypoint/internal/location"
)

// testLogger discards output; failure paths under test log warnings.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newVolatileStore builds a store forced onto the volatile strategy,
// backed by the given area.
func newVolatileStore(t *testing.T, area kv.Area) *Store {
	t.Helper()
	s := New(Options{
		Backend: BackendVolatile,
		Area:    area,
		Logger:  testLogger(),
	})
	t.Cleanup(func() { s.Close() })
	return s
}

// newFileStore builds a store forced onto the file strategy in dir.
func newFileStore(t *testing.T, dir string) *Store {
	t.Helper()
	s := New(Options{
		Dir:     dir,
		Backend: BackendFile,
		Logger:  testLogger(),
	})
	t.Cleanup(func() { s.Close() })
	return s
}

// testRecord builds a valid record with the given id and timestamp.
func testRecord(id string, ts time.Time) location.Record {
	conf := 0.87
	return location.Record{
		ID:              id,
		Latitude:        35.681236,
		Longitude:       139.767125,
		Description:     "Tokyo Station, Japan",
		Timestamp:       ts,
		AnalysisMode:    location.ModeBasic,
		ConfidenceScore: &conf,
		Source:          location.SourceCamera,
	}
}
