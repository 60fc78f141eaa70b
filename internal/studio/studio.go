// Package studio is the file-system layer for the studio directory, the
// directory whose top-level folders are portfolio projects. All paths
// handed to it are relative to that root and are rejected if they resolve
// outside it.
package studio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dir is a handle on the studio directory.
type Dir struct {
	root string // absolute path to the studio directory
}

// NewDir opens the studio directory rooted at the given path.
// The directory must already exist.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("studio: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("studio: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("studio: root is not a directory: %s", abs)
	}
	return &Dir{root: abs}, nil
}

// safePath resolves a relative path against the studio root and rejects
// any result that escapes it (directory traversal).
func (d *Dir) safePath(rel string) (string, error) {
	if rel == "" {
		return d.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("studio: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(d.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("studio: resolve path: %w", err)
	}
	// Ensure the resolved path is still under root.
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) && abs != d.root {
		return "", fmt.Errorf("studio: path escapes studio root: %s", rel)
	}
	return abs, nil
}

// Abs resolves a studio-relative path to an absolute one, applying the
// same traversal guard as every other operation. External tools (archive
// import and export) need real paths.
func (d *Dir) Abs(rel string) (string, error) {
	return d.safePath(rel)
}

// ProjectFolders returns the names of the top-level project folders,
// sorted. Plain files and hidden entries are not projects.
func (d *Dir) ProjectFolders() ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("studio: list projects: %w", err)
	}
	folders := []string{}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		folders = append(folders, e.Name())
	}
	return folders, nil
}

// Read returns the raw bytes of a studio file.
func (d *Dir) Read(path string) ([]byte, error) {
	abs, err := d.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("studio: read %s: %w", path, err)
	}
	return data, nil
}

// Stat returns file info for a studio path.
func (d *Dir) Stat(path string) (os.FileInfo, error) {
	abs, err := d.safePath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("studio: stat %s: %w", path, err)
	}
	return info, nil
}

// Exists reports whether a studio path exists.
func (d *Dir) Exists(path string) (bool, error) {
	abs, err := d.safePath(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("studio: stat %s: %w", path, err)
	}
	return true, nil
}

// Walk walks the tree under rel, invoking fn with studio-relative paths.
// fn may return fs.SkipDir to prune a subtree.
func (d *Dir) Walk(rel string, fn func(rel string, entry fs.DirEntry) error) error {
	base, err := d.safePath(rel)
	if err != nil {
		return err
	}
	err = filepath.WalkDir(base, func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		r, relErr := filepath.Rel(d.root, p)
		if relErr != nil {
			return relErr
		}
		return fn(r, entry)
	})
	if err != nil {
		return fmt.Errorf("studio: walk %s: %w", rel, err)
	}
	return nil
}

// WriteAtomic atomically writes content: tmp file → fsync → rename.
func (d *Dir) WriteAtomic(path string, content []byte) error {
	abs, err := d.safePath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("studio: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".folio-tmp-*")
	if err != nil {
		return fmt.Errorf("studio: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("studio: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("studio: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("studio: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("studio: rename: %w", err)
	}
	success = true
	return nil
}
