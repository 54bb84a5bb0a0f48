// Package resources implements the per-account task_data resource tree
// (spec §6 on-disk layout: task_data/<account_id>/{images,notes,sources}/),
// grounded on internal/cookie's atomic-write, lazily-created-directory
// pattern for the sibling cookies/ subtree.
package resources

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/psdyuan2/AiMediaOps/internal/filestore"
)

const sourceFileName = "source.json"

// Store roots every account's resource subtree under taskDataRoot.
type Store struct {
	taskDataRoot string
}

// New returns a Store rooted at taskDataRoot.
func New(taskDataRoot string) *Store {
	return &Store{taskDataRoot: taskDataRoot}
}

func (s *Store) sourcesDir(accountID string) string {
	return filepath.Join(s.taskDataRoot, accountID, "sources")
}

func (s *Store) imagesDir(accountID string) string {
	return filepath.Join(s.taskDataRoot, accountID, "images")
}

// ReadSource returns the account's source document bytes, or nil if none
// has been written yet.
func (s *Store) ReadSource(accountID string) ([]byte, error) {
	return filestore.ReadFileOrEmpty(filepath.Join(s.sourcesDir(accountID), sourceFileName))
}

// WriteSource atomically writes data as the account's source document.
func (s *Store) WriteSource(accountID string, data []byte) error {
	return filestore.AtomicWrite(filepath.Join(s.sourcesDir(accountID), sourceFileName), data, 0o644)
}

// ListImages returns the filenames under the account's images directory, in
// lexical order; an account with no images directory yet returns an empty
// slice, not an error.
func (s *Store) ListImages(accountID string) ([]string, error) {
	entries, err := os.ReadDir(s.imagesDir(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("resources: list images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ImagePath returns the filesystem path for a single image, for the
// download/serve handler. It rejects any filename that would escape the
// images directory.
func (s *Store) ImagePath(accountID, filename string) (string, error) {
	if filepath.Base(filename) != filename || filename == "" {
		return "", fmt.Errorf("resources: invalid image filename %q", filename)
	}
	return filepath.Join(s.imagesDir(accountID), filename), nil
}

// SaveUploadedSource persists an uploaded source file's bytes, ensuring the
// destination directory exists first.
func (s *Store) SaveUploadedSource(accountID string, data []byte) error {
	if err := filestore.EnsureDir(s.sourcesDir(accountID)); err != nil {
		return err
	}
	return s.WriteSource(accountID, data)
}

// SourceDownloadPath returns the path a download handler should stream
// back to the caller.
func (s *Store) SourceDownloadPath(accountID string) string {
	return filepath.Join(s.sourcesDir(accountID), sourceFileName)
}
