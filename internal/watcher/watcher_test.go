package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_SignalsOnSnapshotWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drs_servers.tsv")
	require.NoError(t, os.WriteFile(path, []byte("Name\tLat_Long\tTotalSize_GB\n"), 0o644))

	cfg := DefaultConfig(path)
	cfg.DebounceDur = 50 * time.Millisecond

	w, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ch, err := w.Start()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("Name\tLat_Long\tTotalSize_GB\nA\t1, 2\t3\n"), 0o644))

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drs_servers.tsv")
	require.NoError(t, os.WriteFile(path, []byte("header\n"), 0o644))

	cfg := DefaultConfig(path)
	cfg.DebounceDur = 50 * time.Millisecond

	w, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ch, err := w.Start()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))

	select {
	case <-ch:
		t.Fatal("unrelated file must not trigger a notification")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "drs_servers.tsv")
	require.NoError(t, os.WriteFile(path, []byte("header\n"), 0o644))

	cfg := DefaultConfig(path)
	cfg.DebounceDur = 100 * time.Millisecond

	w, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	ch, err := w.Start()
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("header\nrow\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	// A burst collapses into one notification.
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced notification")
	}

	select {
	case <-ch:
		t.Fatal("burst must collapse into a single notification")
	case <-time.After(300 * time.Millisecond):
	}
}
