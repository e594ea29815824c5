package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fsbench/fsbench/model"
	"github.com/fsbench/fsbench/workload"
)

func writeRun(t *testing.T, root, name string, res model.Result) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	data, err := json.Marshal(res)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, workload.ResultFile), data, 0o644))
}

func TestLoadEntriesNewestFirst(t *testing.T) {
	root := t.TempDir()
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	writeRun(t, root, "run-old", model.Result{ID: "old", Project: "redis", Timestamp: base})
	writeRun(t, root, "run-new", model.Result{ID: "new", Project: "nginx", Timestamp: base.Add(time.Hour)})

	entries, err := LoadEntries(zerolog.Nop(), root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "new", entries[0].Result.ID)
	require.Equal(t, "old", entries[1].Result.ID)
	require.Equal(t, filepath.Join(root, "run-new"), entries[0].FullPath)
}

func TestLoadEntriesSkipsCorrupt(t *testing.T) {
	root := t.TempDir()
	writeRun(t, root, "good", model.Result{ID: "good", Timestamp: time.Now()})

	bad := filepath.Join(root, "bad")
	require.NoError(t, os.MkdirAll(bad, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, workload.ResultFile), []byte("{nope"), 0o644))

	entries, err := LoadEntries(zerolog.Nop(), root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "good", entries[0].Result.ID)
}

func TestRootMissing(t *testing.T) {
	_, err := Root(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
