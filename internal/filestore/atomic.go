// Package filestore provides the durable-write primitives every on-disk
// store in AiMediaOps builds on: atomic write-to-temp-then-rename, directory
// creation, read-or-empty reads and file copies. Grounded on the teacher's
// internal/infra/filestore package.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates path and all parents if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// EnsureParentDir creates the parent directory of filePath.
func EnsureParentDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}

// AtomicWrite writes data to filePath via a temp file in the same directory
// followed by a rename, so a crash mid-write never leaves a truncated file
// in place. The C2 and C3 stores persist through this; the C4 licence store
// does its own temp-file-and-rename write.
func AtomicWrite(filePath string, data []byte, perm os.FileMode) error {
	if err := EnsureParentDir(filePath); err != nil {
		return fmt.Errorf("filestore: ensure parent dir: %w", err)
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("filestore: write temp file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("filestore: rename temp file: %w", err)
	}
	return nil
}

// ReadFileOrEmpty reads path, returning (nil, nil) if it doesn't exist.
func ReadFileOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	return data, err
}

// CopyFile copies src to dst, preserving the source file's permission bits.
// Used by the cookie courier (C7) to swap cookie files in and out of the
// sidecar's working directory.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("filestore: stat source: %w", err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("filestore: read source: %w", err)
	}
	if err := EnsureParentDir(dst); err != nil {
		return err
	}
	if err := AtomicWrite(dst, data, info.Mode().Perm()); err != nil {
		return err
	}
	return nil
}
