package statwalk

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestWalkNestedTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), 10)
	writeFile(t, filepath.Join(root, "sub", "b.txt"), 20)
	writeFile(t, filepath.Join(root, "sub", "deep", "c.txt"), 30)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	sum, err := Walk(root)
	require.NoError(t, err)

	require.Len(t, sum.Files, 3)
	require.Equal(t, int64(60), sum.TotalBytes)
	require.Equal(t, 3, sum.Dirs)
	require.Equal(t, 0, sum.Errors)

	var total int64
	paths := make([]string, 0, len(sum.Files))
	for _, f := range sum.Files {
		total += f.Size
		paths = append(paths, f.Path)
		require.NotZero(t, f.Inode)
		require.False(t, f.ModTime.IsZero())
	}
	require.Equal(t, sum.TotalBytes, total)

	sort.Strings(paths)
	require.Equal(t, []string{"a.txt", filepath.Join("sub", "b.txt"), filepath.Join("sub", "deep", "c.txt")}, paths)
}

func TestWalkEmptyDir(t *testing.T) {
	sum, err := Walk(t.TempDir())
	require.NoError(t, err)
	require.Empty(t, sum.Files)
	require.Zero(t, sum.TotalBytes)
	require.Zero(t, sum.Dirs)
}

func TestWalkIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), 1)
	writeFile(t, filepath.Join(root, "d", "b"), 2)

	first, err := Walk(root)
	require.NoError(t, err)
	second, err := Walk(root)
	require.NoError(t, err)

	require.Equal(t, first.Files, second.Files)
	require.Equal(t, first.TotalBytes, second.TotalBytes)
	require.Equal(t, first.Dirs, second.Dirs)
}

func TestWalkDoesNotFollowSymlinks(t *testing.T) {
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret"), 100)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), 1)
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "escape")))
	// Broken symlinks are a normal sight in compile trees.
	require.NoError(t, os.Symlink("/nonexistent", filepath.Join(root, "dangling")))

	sum, err := Walk(root)
	require.NoError(t, err)
	require.Len(t, sum.Files, 1)
	require.Equal(t, int64(1), sum.TotalBytes)
}

func TestWalkHardLinksShareInode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "orig"), 5)
	require.NoError(t, os.Link(filepath.Join(root, "orig"), filepath.Join(root, "link")))

	sum, err := Walk(root)
	require.NoError(t, err)
	require.Len(t, sum.Files, 2)
	require.Equal(t, sum.Files[0].Inode, sum.Files[1].Inode)
	require.Equal(t, uint64(2), sum.Files[0].Nlink)
}

func TestWalkUnreadableEntryCounted(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), 1)
	locked := filepath.Join(root, "locked")
	writeFile(t, filepath.Join(locked, "hidden"), 1)
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	sum, err := Walk(root)
	require.NoError(t, err)
	require.Len(t, sum.Files, 1)
	require.Equal(t, 1, sum.Errors)
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := Walk(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
