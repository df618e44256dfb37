// Package blobstore keeps photos on the device filesystem, addressed by the
// same relative paths the remote service uses.
package blobstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/nestwatch/internal/common"
	"github.com/dmitrijs2005/nestwatch/internal/filex"
)

// FS stores blobs below a root directory.
type FS struct {
	root string
}

// NewFS creates the root directory if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := filex.EnsureDir(abs); err != nil {
		return nil, err
	}
	return &FS{root: abs}, nil
}

func (s *FS) Root() string {
	return s.root
}

// Exists reports whether a blob is stored under path. Invalid paths are
// reported as absent.
func (s *FS) Exists(path string) bool {
	full, err := filex.Resolve(s.root, path)
	if err != nil {
		return false
	}
	st, err := os.Stat(full)
	return err == nil && st.Mode().IsRegular()
}

// Read returns the blob bytes or common.ErrorNotFound.
func (s *FS) Read(path string) ([]byte, error) {
	full, err := filex.Resolve(s.root, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", path, common.ErrorNotFound)
	}
	return data, err
}

// Write stores data under path, creating parent directories. The file is
// written to a temporary name first so readers never see a partial blob.
func (s *FS) Write(path string, data []byte) error {
	full, err := filex.Resolve(s.root, path)
	if err != nil {
		return err
	}
	if err := filex.EnsureParentDir(full); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".blob-*")
	if err != nil {
		return fmt.Errorf("blob %s: %w", path, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("blob %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("blob %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), full)
}

// Remove deletes a blob and prunes directories left empty.
func (s *FS) Remove(path string) error {
	full, err := filex.Resolve(s.root, path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return filex.PruneEmptyDirs(s.root, filepath.Dir(full))
}
