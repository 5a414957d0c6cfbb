package gradle

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// MarkerPath is the ament index entry that registers an installed package,
// relative to the install space.
func MarkerPath(pkg string) string {
	return path.Join("share", "ament_index", "resource_index", "packages", pkg)
}

// ensureMarker creates the empty marker file if it does not exist yet. An
// existing marker is never rewritten.
func ensureMarker(installSpace, pkg string) error {
	dst := filepath.Join(installSpace, filepath.FromSlash(MarkerPath(pkg)))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("creating marker %s: %w", dst, err)
	}
	return f.Close()
}

// deployFile copies (or symlinks) src to dst, replacing whatever is at the
// destination.
func deployFile(src, dst string, symlink bool) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("deploying %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
	}

	if symlink {
		if target, err := os.Readlink(dst); err == nil && target == src {
			return nil
		}
		if err := os.RemoveAll(dst); err != nil {
			return fmt.Errorf("replacing %s: %w", dst, err)
		}
		if err := os.Symlink(src, dst); err != nil {
			return fmt.Errorf("linking %s: %w", dst, err)
		}
		return nil
	}

	// A previous symlink install must not be written through.
	if fi, err := os.Lstat(dst); err == nil && fi.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(dst); err != nil {
			return fmt.Errorf("replacing %s: %w", dst, err)
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("deploying %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("deploying %s: %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("deploying %s: %w", src, err)
	}
	return out.Close()
}
