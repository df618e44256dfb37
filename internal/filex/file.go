// Package filex contains filesystem helpers for path-addressed storage.
package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned when a relative path escapes its root.
var ErrOutsideRoot = errors.New("path escapes root")

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	return EnsureDir(filepath.Dir(path))
}

// Resolve joins rel onto root and rejects results outside root.
func Resolve(root, rel string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(rel))
	full := filepath.Join(root, clean)

	r, err := filepath.Rel(root, full)
	if err != nil || r == "." || strings.HasPrefix(r, "..") {
		return "", fmt.Errorf("%q: %w", rel, ErrOutsideRoot)
	}
	return full, nil
}

// PruneEmptyDirs removes empty directories from dir upwards, stopping at
// root (which is never removed).
func PruneEmptyDirs(root, dir string) error {
	root = filepath.Clean(root)
	for dir = filepath.Clean(dir); dir != root && strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if len(entries) > 0 {
			return nil
		}
		if err := os.Remove(dir); err != nil {
			return err
		}
	}
	return nil
}
