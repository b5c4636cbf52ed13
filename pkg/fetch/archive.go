package fetch

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sysforge/sysforge/pkg/errors"
)

// ExtractTarGz unpacks a gzip-compressed tarball into destDir. Entries
// that would escape destDir are rejected: traversal in entry names,
// absolute or escaping symlink targets, and writes through a symlinked
// ancestor created by an earlier entry.
func ExtractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrap(err, errors.ErrExtractFailed, "failed to open archive")
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, errors.ErrExtractFailed, "archive is not gzip-compressed")
	}
	defer func() { _ = gz.Close() }()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return errors.Wrap(err, errors.ErrExtractFailed, "failed to create extraction directory")
	}
	// destDir itself may sit behind a symlink (/tmp on macOS); resolve it
	// once so ancestor checks compare real paths.
	rootReal, err := filepath.EvalSymlinks(destDir)
	if err != nil {
		return errors.Wrap(err, errors.ErrExtractFailed, "failed to resolve extraction directory")
	}

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrExtractFailed, "failed to read archive entry")
		}

		target, err := securePath(destDir, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode).Perm()|0700); err != nil {
				return errors.Wrap(err, errors.ErrExtractFailed, "failed to create directory")
			}
			if err := verifyRealAncestry(rootReal, target, header.Name); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := prepareParent(rootReal, target, header.Name); err != nil {
				return err
			}
			if err := writeFileFromTar(target, tr, header); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return errors.Newf(errors.ErrExtractFailed,
					"archive symlink has absolute target: %s -> %s", header.Name, header.Linkname)
			}
			// The relative target must also stay inside the extraction root
			if _, err := securePath(destDir, filepath.Join(filepath.Dir(header.Name), header.Linkname)); err != nil {
				return err
			}
			if err := prepareParent(rootReal, target, header.Name); err != nil {
				return err
			}
			_ = os.Remove(target)
			if err := os.Symlink(header.Linkname, target); err != nil {
				return errors.Wrap(err, errors.ErrExtractFailed, "failed to create symlink")
			}
		default:
			// Hard links, devices and the like are not expected in a
			// dotfiles bundle; skip them.
		}
	}
}

// prepareParent creates the target's parent directory and verifies that it
// really lives under the extraction root, so a symlink planted by an
// earlier entry cannot redirect the write elsewhere.
func prepareParent(rootReal, target, name string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrap(err, errors.ErrExtractFailed, "failed to create parent directory")
	}
	return verifyRealAncestry(rootReal, filepath.Dir(target), name)
}

// verifyRealAncestry resolves path's symlinks and rejects it when the real
// location falls outside the extraction root.
func verifyRealAncestry(rootReal, path, name string) error {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrExtractFailed, "failed to resolve path for archive entry %s", name)
	}
	if resolved != rootReal && !strings.HasPrefix(resolved, rootReal+string(os.PathSeparator)) {
		return errors.Newf(errors.ErrExtractFailed, "archive entry escapes extraction root: %s", name)
	}
	return nil
}

func writeFileFromTar(target string, tr *tar.Reader, header *tar.Header) error {
	// An earlier entry may have left a symlink at the target path; opening
	// through it would write wherever it points.
	if info, err := os.Lstat(target); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return errors.Wrap(err, errors.ErrExtractFailed, "failed to replace symlink")
		}
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(header.Mode).Perm())
	if err != nil {
		return errors.Wrap(err, errors.ErrExtractFailed, "failed to create file")
	}
	if _, err := io.Copy(out, tr); err != nil {
		_ = out.Close()
		return errors.Wrap(err, errors.ErrExtractFailed, "failed to write file")
	}
	if err := out.Close(); err != nil {
		return errors.Wrap(err, errors.ErrExtractFailed, "failed to close file")
	}
	_ = os.Chtimes(target, header.ModTime, header.ModTime)
	return nil
}

// securePath joins name onto root and rejects traversal outside it.
func securePath(root, name string) (string, error) {
	target := filepath.Join(root, name)
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", errors.Newf(errors.ErrExtractFailed, "archive entry escapes extraction root: %s", name)
	}
	return target, nil
}
