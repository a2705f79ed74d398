package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waypoint/internal/kv"
	"github.com/roach88/waypoint/internal/location"
)

func TestVolatile_ReplayAcrossSessions(t *testing.T) {
	area := kv.NewMemoryArea()
	ctx := context.Background()

	s1 := newVolatileStore(t, area)
	require.NoError(t, s1.Save(ctx, testRecord("r1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, s1.Save(ctx, testRecord("r2", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, s1.Close())

	// Fresh session over the same backup area: the snapshot replays.
	s2 := newVolatileStore(t, area)
	summaries, err := s2.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "r2", summaries[0].ID)
	assert.Equal(t, "r1", summaries[1].ID)

	got, found, err := s2.GetByID(ctx, "r1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Tokyo Station, Japan", got.Description)
}

func TestVolatile_DeleteReachesBackup(t *testing.T) {
	area := kv.NewMemoryArea()
	ctx := context.Background()

	s1 := newVolatileStore(t, area)
	require.NoError(t, s1.Save(ctx, testRecord("stay", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, s1.Save(ctx, testRecord("go", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))))
	require.NoError(t, s1.Delete(ctx, "go"))
	require.NoError(t, s1.Close())

	s2 := newVolatileStore(t, area)
	summaries, err := s2.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "stay", summaries[0].ID)
}

func TestVolatile_BackupFailureIsSoft(t *testing.T) {
	area := kv.NewMemoryArea()
	s := newVolatileStore(t, area)
	ctx := context.Background()
	require.NoError(t, s.Initialize(ctx))

	area.PutErr = errors.New("simulated backup outage")

	// The mutation itself succeeds; only durability is at risk.
	require.NoError(t, s.Save(ctx, testRecord("risky", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))))

	got, found, err := s.GetByID(ctx, "risky")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "risky", got.ID)

	count, last := s.DurabilityGaps()
	assert.Equal(t, int64(1), count)
	var bse *BackupSyncError
	require.ErrorAs(t, last, &bse)
	assert.Equal(t, "volatile", bse.Strategy)

	// Once the area recovers, the next mutation rewrites the snapshot.
	area.PutErr = nil
	require.NoError(t, s.Save(ctx, testRecord("safe", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))))
	count, _ = s.DurabilityGaps()
	assert.Equal(t, int64(1), count)
}

func TestVolatile_CorruptSnapshotStartsEmpty(t *testing.T) {
	area := kv.NewMemoryArea()
	ctx := context.Background()
	require.NoError(t, area.Put(ctx, BackupCollection, BackupKey, []byte("not json at all")))

	s := newVolatileStore(t, area)
	require.NoError(t, s.Initialize(ctx))

	summaries, err := s.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestVolatile_ReplaySkipsBadRecords(t *testing.T) {
	// A snapshot with a duplicate id: the second copy cannot insert and
	// must be skipped without aborting the rest of the replay.
	good1 := testRecord("dup", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	clash := testRecord("dup", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	good2 := testRecord("ok", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC))

	data, err := encodeSnapshot([]location.Record{good1, clash, good2})
	require.NoError(t, err)

	area := kv.NewMemoryArea()
	ctx := context.Background()
	require.NoError(t, area.Put(ctx, BackupCollection, BackupKey, data))

	s := newVolatileStore(t, area)
	summaries, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "ok", summaries[0].ID)
	assert.Equal(t, "dup", summaries[1].ID)
}

func TestVolatile_UnsupportedSnapshotVersion(t *testing.T) {
	data := []byte(`{"version":99,"records":[]}`)
	_, err := decodeSnapshot(data)
	require.Error(t, err)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	records := []location.Record{
		testRecord("s1", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		testRecord("s2", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)),
	}
	data, err := encodeSnapshot(records)
	require.NoError(t, err)

	got, err := decodeSnapshot(data)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].ID)
	assert.True(t, records[1].Timestamp.Equal(got[1].Timestamp))
}
