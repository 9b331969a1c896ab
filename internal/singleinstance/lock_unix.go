//go:build unix

package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/unix"

	"ytm-desktop/internal/userutil"
)

// Lock holds an exclusive flock on a per-user lock file. The kernel drops the
// lock when the owning process exits, so a crash never leaves it stuck.
type Lock struct {
	file *os.File
}

// TryLock takes a non-blocking exclusive lock on the file at path.
func TryLock(path string) (*Lock, error) {
	if path == "" {
		return nil, errors.New("lock name is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file %q: %w", path, err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("flock %q: %w", path, err)
	}
	if err := file.Truncate(0); err == nil {
		file.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	}
	return &Lock{file: file}, nil
}

// Release unlocks and closes the lock file. Safe on a nil receiver and
// idempotent.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	return errors.Join(unlockErr, closeErr)
}

// DefaultLockName returns the per-user lock file path.
func DefaultLockName() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, lockPrefix+userutil.CurrentUsername()+".lock")
}
