// Package cookie implements the cookie courier (C7): swapping an account's
// cookie file into and out of the shared sidecar's working directory around
// each task execution (spec §4.7).
package cookie

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/psdyuan2/AiMediaOps/internal/filestore"
	"github.com/psdyuan2/AiMediaOps/internal/logging"
)

const cookieFileName = "cookies.json"

// Courier copies cookie files between an account's private cookies
// directory (under task_data/<account_id>/cookies/, spec §6) and the
// sidecar's shared working directory.
type Courier struct {
	taskDataRoot string
	logger       logging.Logger
}

// New returns a Courier rooted at taskDataRoot (spec §6's task_data/ tree).
func New(taskDataRoot string, logger logging.Logger) *Courier {
	return &Courier{taskDataRoot: taskDataRoot, logger: logging.OrNop(logger)}
}

// UserCookiesDir returns the private cookies directory for accountID,
// lazily creating it on first access (spec §6).
func (c *Courier) UserCookiesDir(accountID string) (string, error) {
	dir := filepath.Join(c.taskDataRoot, accountID, "cookies")
	if err := filestore.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("cookie: ensure user cookies dir: %w", err)
	}
	return dir, nil
}

// Dispatch copies sourceFile into destDir/cookies.json ahead of a run,
// validating that the source exists and is non-empty, that destDir is a
// directory, and that the copy landed non-empty (spec §4.7).
func (c *Courier) Dispatch(sourceFile, destDir string) error {
	info, err := os.Stat(sourceFile)
	if err != nil {
		return fmt.Errorf("cookie: source file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cookie: source %s is a directory", sourceFile)
	}
	if info.Size() == 0 {
		return fmt.Errorf("cookie: source %s is empty", sourceFile)
	}

	destInfo, err := os.Stat(destDir)
	if err != nil {
		return fmt.Errorf("cookie: dest dir: %w", err)
	}
	if !destInfo.IsDir() {
		return fmt.Errorf("cookie: dest %s is not a directory", destDir)
	}

	dest := filepath.Join(destDir, cookieFileName)
	if err := filestore.CopyFile(sourceFile, dest); err != nil {
		return fmt.Errorf("cookie: copy to sidecar: %w", err)
	}

	copied, err := os.Stat(dest)
	if err != nil || copied.Size() == 0 {
		return fmt.Errorf("cookie: copy verification failed for %s", dest)
	}
	return nil
}

// Clear removes destDir/cookies.json if present.
func (c *Courier) Clear(destDir string) error {
	err := os.Remove(filepath.Join(destDir, cookieFileName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cookie: clear: %w", err)
	}
	return nil
}

// CloseTask copies destDir/cookies.json back into accountID's private
// cookies directory (creating it if absent), then deletes the sidecar
// copy. Per spec §4.7, failure here is logged and never propagated: it is
// best-effort cleanup run after a task execution has already completed.
func (c *Courier) CloseTask(accountID, destDir string) {
	sidecarCopy := filepath.Join(destDir, cookieFileName)
	if _, err := os.Stat(sidecarCopy); err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("cookie: close_task stat %s: %v", sidecarCopy, err)
		}
		return
	}

	userDir, err := c.UserCookiesDir(accountID)
	if err != nil {
		c.logger.Warn("cookie: close_task ensure user dir for %s: %v", accountID, err)
		return
	}

	if err := filestore.CopyFile(sidecarCopy, filepath.Join(userDir, cookieFileName)); err != nil {
		c.logger.Warn("cookie: close_task copy back for %s: %v", accountID, err)
		return
	}

	if err := os.Remove(sidecarCopy); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("cookie: close_task remove sidecar copy: %v", err)
	}
}
