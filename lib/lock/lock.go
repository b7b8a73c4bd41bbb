// Package lock provides file-based mutual exclusion for background
// jobs. A single engine instance is the deployment target, so a lock
// file under the system temp directory is enough to keep scheduled
// runs from overlapping.
package lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// pollInterval is how often TryLock rechecks a held lock.
const pollInterval = 100 * time.Millisecond

// FileLock implements job locking through exclusive lock-file creation.
type FileLock struct {
	logger *slog.Logger
}

func NewFileLock(logger *slog.Logger) *FileLock {
	logger.Info("Using local file-based job locking")
	return &FileLock{logger: logger}
}

// TryLock attempts to acquire the named lock, retrying until timeout.
// It returns (false, nil) when the timeout passes with the lock still
// held. Locks older than twice the timeout are treated as leftovers
// from a crashed run and removed.
func (fl *FileLock) TryLock(ctx context.Context, key string, timeout time.Duration) (bool, error) {
	lockFile := fl.lockFilePath(key)

	if err := os.MkdirAll(filepath.Dir(lockFile), 0750); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		// #nosec G304 - lockFile is derived from a fixed directory and key
		file, err := os.OpenFile(lockFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err != nil {
			if !os.IsExist(err) {
				return false, fmt.Errorf("failed to create lock file: %w", err)
			}

			if fl.isStale(lockFile, timeout*2) {
				fl.logger.Warn("Removing stale lock file", slog.String("file", lockFile))
				if err := os.Remove(lockFile); err != nil {
					fl.logger.Error("Failed to remove stale lock file",
						slog.String("file", lockFile), slog.Any("error", err))
				}
				continue
			}

			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(pollInterval):
				continue
			}
		}

		_, writeErr := fmt.Fprintf(file, "%d\n%d\n", time.Now().Unix(), os.Getpid())
		closeErr := file.Close()
		if writeErr != nil {
			return false, fmt.Errorf("failed to write lock file: %w", writeErr)
		}
		if closeErr != nil {
			return false, fmt.Errorf("failed to close lock file: %w", closeErr)
		}

		fl.logger.Debug("Acquired lock", slog.String("key", key))
		return true, nil
	}

	return false, nil
}

// Unlock releases the named lock. Releasing an unheld lock is a no-op.
func (fl *FileLock) Unlock(ctx context.Context, key string) error {
	lockFile := fl.lockFilePath(key)

	if err := os.Remove(lockFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	fl.logger.Debug("Released lock", slog.String("key", key))
	return nil
}

func (fl *FileLock) lockFilePath(key string) string {
	lockDir := filepath.Join(os.TempDir(), "mediaswipe-locks")
	return filepath.Clean(filepath.Join(lockDir, key+".lock"))
}

func (fl *FileLock) isStale(lockFile string, staleAfter time.Duration) bool {
	info, err := os.Stat(lockFile)
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > staleAfter
}
