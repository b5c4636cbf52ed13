package tasks

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sysforge/sysforge/pkg/errors"
)

// MergeStats counts what a merge did.
type MergeStats struct {
	Copied   int
	Kept     int
	BackedUp int
}

func (s *MergeStats) add(other MergeStats) {
	s.Copied += other.Copied
	s.Kept += other.Kept
	s.BackedUp += other.BackedUp
}

// mergeDir merges src into dst recursively with a newer-file-wins policy.
// An existing destination file is backed up (".backup" suffix) before it
// is overwritten. When source and destination have identical mtimes the
// conflict is ambiguous and overwrite decides; false keeps the existing
// file.
func mergeDir(src, dst string, overwrite func(rel string) bool) (MergeStats, error) {
	var stats MergeStats

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			// Symlinks inside a dotfiles bundle are recreated as-is
			if d.Type()&fs.ModeSymlink != 0 {
				linkTarget, err := os.Readlink(path)
				if err != nil {
					return err
				}
				_ = os.Remove(target)
				return os.Symlink(linkTarget, target)
			}
			return nil
		}

		fileStats, err := mergeFile(path, target, rel, overwrite)
		if err != nil {
			return err
		}
		stats.add(fileStats)
		return nil
	})

	if err != nil {
		return stats, errors.Wrap(err, errors.ErrMergeFailed, "failed to merge directory")
	}
	return stats, nil
}

// mergeFile applies the newer-file-wins policy to a single file.
func mergeFile(src, dst, rel string, overwrite func(rel string) bool) (MergeStats, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return MergeStats{}, err
	}

	dstInfo, err := os.Stat(dst)
	if os.IsNotExist(err) {
		return copyNew(src, dst, srcInfo)
	}
	if err != nil {
		return MergeStats{}, err
	}

	switch {
	case srcInfo.ModTime().After(dstInfo.ModTime()):
		// Newer source wins, but keep a backup of what it replaces
		if err := copyFile(dst, dst+".backup", dstInfo); err != nil {
			return MergeStats{}, err
		}
		if err := copyFile(src, dst, srcInfo); err != nil {
			return MergeStats{}, err
		}
		return MergeStats{Copied: 1, BackedUp: 1}, nil

	case srcInfo.ModTime().Equal(dstInfo.ModTime()):
		// Ambiguous: neither side is newer
		if overwrite != nil && overwrite(rel) {
			if err := copyFile(dst, dst+".backup", dstInfo); err != nil {
				return MergeStats{}, err
			}
			if err := copyFile(src, dst, srcInfo); err != nil {
				return MergeStats{}, err
			}
			return MergeStats{Copied: 1, BackedUp: 1}, nil
		}
		return MergeStats{Kept: 1}, nil

	default:
		// Destination is newer; keep it
		return MergeStats{Kept: 1}, nil
	}
}

func copyNew(src, dst string, srcInfo os.FileInfo) (MergeStats, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return MergeStats{}, err
	}
	if err := copyFile(src, dst, srcInfo); err != nil {
		return MergeStats{}, err
	}
	return MergeStats{Copied: 1}, nil
}

// copyFile copies src to dst preserving mode and mtime.
func copyFile(src, dst string, srcInfo os.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
}
