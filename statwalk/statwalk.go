// Package statwalk enumerates every file under a directory and captures
// per-file metadata. It is the measured "stat" portion of a compile
// workload: the walk itself is what exercises the filesystem.
package statwalk

import (
	"io/fs"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// FileStat holds the captured metadata for one regular file.
type FileStat struct {
	// Path relative to the walk root
	Path string `json:"path"`
	// Size in bytes
	Size int64 `json:"size"`
	// Last modification time
	ModTime time.Time `json:"mod_time"`
	// Inode number, a stable identity marker used to detect
	// hard-linking and dedup effects
	Inode uint64 `json:"inode"`
	// Hard link count
	Nlink uint64 `json:"nlink"`
}

// Summary aggregates one walk of a directory tree.
type Summary struct {
	// Per-file metadata for every regular file, in walk order
	Files []FileStat
	// Number of directories below the root
	Dirs int
	// Sum of regular file sizes
	TotalBytes int64
	// Number of entries that could not be read or statted. A compile
	// tree commonly contains transient entries (sockets, broken
	// symlinks left by build tools); those must not abort the walk.
	Errors int
}

// Walk stats every file under root and returns the aggregate. Each call
// re-walks the tree from scratch. Symbolic links are recorded but never
// followed, so crafted links cannot pull the walk outside the root.
// Unreadable entries are skipped and counted in Summary.Errors; only a
// failure to read the root itself fails the walk.
func Walk(root string) (Summary, error) {
	var sum Summary

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			sum.Errors++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if path == root {
			return nil
		}

		if d.IsDir() {
			sum.Dirs++
			return nil
		}

		if !d.Type().IsRegular() {
			// Sockets, fifos, device nodes, symlinks: enumerated but
			// not measured.
			return nil
		}

		var st unix.Stat_t
		if err := unix.Lstat(path, &st); err != nil {
			sum.Errors++
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}

		sum.Files = append(sum.Files, FileStat{
			Path:    rel,
			Size:    st.Size,
			ModTime: time.Unix(st.Mtim.Sec, st.Mtim.Nsec),
			Inode:   st.Ino,
			Nlink:   uint64(st.Nlink),
		})
		sum.TotalBytes += st.Size

		return nil
	})

	return sum, err
}
