package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/waypoint/internal/kv"
)

func TestInitialize_SingleFlight(t *testing.T) {
	s := newVolatileStore(t, kv.NewMemoryArea())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Initialize(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, int64(1), s.Instantiations(), "concurrent callers must share one engine instantiation")
	assert.Equal(t, StateReady, s.State())
}

func TestInitialize_AutoSelectsFileWhenAreaUsable(t *testing.T) {
	s := New(Options{
		Dir:    t.TempDir(),
		Area:   kv.NewMemoryArea(),
		Logger: testLogger(),
	})
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, "file", s.Strategy())
}

func TestInitialize_FallsBackToVolatile(t *testing.T) {
	// A regular file where the directory should be makes the file area
	// unusable; auto selection must land on volatile.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	s := New(Options{
		Dir:    blocker,
		Area:   kv.NewMemoryArea(),
		Logger: testLogger(),
	})
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, "volatile", s.Strategy())
}

func TestInitialize_ForcedFileDoesNotFallBack(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	s := New(Options{
		Dir:     blocker,
		Backend: BackendFile,
		Area:    kv.NewMemoryArea(),
		Logger:  testLogger(),
	})
	t.Cleanup(func() { s.Close() })

	err := s.Initialize(context.Background())
	require.Error(t, err)
	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "file", initErr.Strategy)
	assert.Equal(t, StateFailed, s.State())
}

func TestInitialize_FailureIsSticky(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	s := New(Options{
		Dir:     blocker,
		Backend: BackendFile,
		Logger:  testLogger(),
	})
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	first := s.Initialize(ctx)
	require.Error(t, first)
	before := s.Instantiations()

	second := s.Initialize(ctx)
	require.Error(t, second)
	assert.Equal(t, first.Error(), second.Error())
	assert.Equal(t, before, s.Instantiations(), "a failed session must not retry the engine")
}

func TestInitialize_VolatileWithoutAreaFails(t *testing.T) {
	s := New(Options{
		Backend: BackendVolatile,
		Logger:  testLogger(),
	})
	t.Cleanup(func() { s.Close() })

	err := s.Initialize(context.Background())
	require.Error(t, err)
	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.Equal(t, "volatile", initErr.Strategy)
}

func TestClose_AllowsReinitialize(t *testing.T) {
	s := newVolatileStore(t, kv.NewMemoryArea())
	ctx := context.Background()

	require.NoError(t, s.Initialize(ctx))
	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())

	require.NoError(t, s.Initialize(ctx))
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, int64(2), s.Instantiations())
}

func TestOperationsInitializeLazily(t *testing.T) {
	s := newVolatileStore(t, kv.NewMemoryArea())

	// No explicit Initialize; the first operation bootstraps.
	summaries, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.Equal(t, StateReady, s.State())
}
