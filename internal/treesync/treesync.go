// Package treesync mirrors a package source tree into its build tree.
//
// Entries under build/src that no longer exist under source/src are pruned
// first, then the whole source tree is update-copied onto the build tree:
// a file is copied only when it is missing at the destination or the source
// copy is newer. Everything else in the build tree (compiled output, caches)
// is left alone.
package treesync

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceDir is the subdirectory whose contents are kept in exact sync.
const SourceDir = "src"

// Snapshot is the set of directories and files below a root, as
// slash-separated paths relative to that root.
type Snapshot struct {
	Dirs  map[string]struct{}
	Files map[string]struct{}
}

// Take walks root and records every entry below it. A missing root yields
// an empty snapshot.
func Take(root string) (*Snapshot, error) {
	s := &Snapshot{
		Dirs:  make(map[string]struct{}),
		Files: make(map[string]struct{}),
	}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			s.Dirs[rel] = struct{}{}
		} else {
			s.Files[rel] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return s, nil
}

// Minus returns the files and directories present in s but not in other,
// each sorted.
func (s *Snapshot) Minus(other *Snapshot) (files, dirs []string) {
	for f := range s.Files {
		if _, ok := other.Files[f]; !ok {
			files = append(files, f)
		}
	}
	for d := range s.Dirs {
		if _, ok := other.Dirs[d]; !ok {
			dirs = append(dirs, d)
		}
	}
	sort.Strings(files)
	sort.Strings(dirs)
	return files, dirs
}

// Result lists what a Sync changed, as slash-separated relative paths.
// Pruned paths are relative to build/src, copied paths to build.
type Result struct {
	PrunedFiles []string
	PrunedDirs  []string
	Copied      []string
}

// Changed reports whether the sync touched the build tree at all.
func (r *Result) Changed() bool {
	return len(r.PrunedFiles)+len(r.PrunedDirs)+len(r.Copied) > 0
}

// Sync prunes stale entries from build/src and update-copies source onto
// build. The build tree itself and every path in exclude are never copied,
// nor are directories that only lead to them. Errors are returned as soon
// as they occur; a failed sync leaves the build tree partially updated and
// is safe to run again.
func Sync(source, build string, exclude ...string) (*Result, error) {
	res := &Result{}
	if err := prune(filepath.Join(source, SourceDir), filepath.Join(build, SourceDir), res); err != nil {
		return res, err
	}
	if err := updateCopy(source, build, newExcludeSet(build, exclude), res); err != nil {
		return res, err
	}
	return res, nil
}

func prune(sourceRoot, buildRoot string, res *Result) error {
	have, err := Take(buildRoot)
	if err != nil {
		return err
	}
	want, err := Take(sourceRoot)
	if err != nil {
		return err
	}
	files, dirs := have.Minus(want)

	for _, rel := range files {
		err := os.Remove(filepath.Join(buildRoot, filepath.FromSlash(rel)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("pruning %s: %w", rel, err)
		}
		res.PrunedFiles = append(res.PrunedFiles, rel)
	}

	// Files go first; directories deepest first so parents are empty or
	// already gone by the time they are reached.
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, rel := range dirs {
		path := filepath.Join(buildRoot, filepath.FromSlash(rel))
		if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("pruning %s: %w", rel, err)
		}
		res.PrunedDirs = append(res.PrunedDirs, rel)
	}
	sort.Strings(res.PrunedDirs)
	return nil
}

// excludeSet holds cleaned paths that are skipped during the copy.
type excludeSet map[string]struct{}

func newExcludeSet(build string, paths []string) excludeSet {
	ex := excludeSet{filepath.Clean(build): {}}
	for _, p := range paths {
		if p != "" {
			ex[filepath.Clean(p)] = struct{}{}
		}
	}
	return ex
}

func (ex excludeSet) has(path string) bool {
	_, ok := ex[path]
	return ok
}

// leadsTo reports whether dir is a proper ancestor of an excluded path.
func (ex excludeSet) leadsTo(dir string) bool {
	prefix := dir + string(filepath.Separator)
	for p := range ex {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func updateCopy(source, build string, exclude excludeSet, res *Result) error {
	source = filepath.Clean(source)
	build = filepath.Clean(build)

	return filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if exclude.has(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(build, rel)

		if !d.IsDir() && path != source {
			// parents of excluded paths are created on demand only
			if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(dst), err)
			}
		}

		switch {
		case d.IsDir() && path != source && exclude.leadsTo(path):
			return nil
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dst, info.Mode().Perm()|0700); err != nil {
				return fmt.Errorf("creating %s: %w", dst, err)
			}
			return nil
		case d.Type()&fs.ModeSymlink != 0:
			copied, err := copySymlink(path, dst)
			if err != nil {
				return err
			}
			if copied {
				res.Copied = append(res.Copied, filepath.ToSlash(rel))
			}
			return nil
		case d.Type().IsRegular():
			copied, err := copyIfNewer(path, dst)
			if err != nil {
				return err
			}
			if copied {
				res.Copied = append(res.Copied, filepath.ToSlash(rel))
			}
			return nil
		default:
			// sockets, devices and pipes have no place in a build tree
			return nil
		}
	})
}

func copyIfNewer(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	dstInfo, err := os.Lstat(dst)
	switch {
	case err == nil:
		if dstInfo.Mode().IsRegular() && !srcInfo.ModTime().After(dstInfo.ModTime()) {
			return false, nil
		}
		if !dstInfo.Mode().IsRegular() {
			if err := os.RemoveAll(dst); err != nil {
				return false, fmt.Errorf("replacing %s: %w", dst, err)
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, err
	}

	if err := copyFile(src, dst, srcInfo.Mode().Perm()); err != nil {
		return false, fmt.Errorf("copying %s: %w", src, err)
	}
	if err := os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		return false, fmt.Errorf("copying %s: %w", src, err)
	}
	return true, nil
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// O_CREATE only applies perm to new files
	return os.Chmod(dst, perm)
}

func copySymlink(src, dst string) (bool, error) {
	target, err := os.Readlink(src)
	if err != nil {
		return false, err
	}
	if existing, err := os.Readlink(dst); err == nil && existing == target {
		return false, nil
	}
	if err := os.RemoveAll(dst); err != nil {
		return false, fmt.Errorf("replacing %s: %w", dst, err)
	}
	if err := os.Symlink(target, dst); err != nil {
		return false, fmt.Errorf("linking %s: %w", dst, err)
	}
	return true, nil
}
