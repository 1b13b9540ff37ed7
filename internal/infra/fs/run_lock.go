// Package fs holds file system primitives that need a real operating system
// file, such as advisory locks.
package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var errHeld = errors.New("lock held")

// ErrAlreadyRunning is returned when another process holds the run lock of a feature
var ErrAlreadyRunning = errors.New("feature is already running")

// LockedError describes the process holding a run lock
type LockedError struct {
	Slug   string
	Holder string // "pid=<n> since=<RFC3339>", empty when unreadable
}

func (e *LockedError) Error() string {
	if e.Holder == "" {
		return fmt.Sprintf("%s: %s", e.Slug, ErrAlreadyRunning)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Slug, ErrAlreadyRunning, e.Holder)
}

func (e *LockedError) Unwrap() error {
	return ErrAlreadyRunning
}

// RunLock is an advisory lock that keeps two processes from running the
// same feature. The operating system drops it when the process exits.
type RunLock struct {
	path string
	f    *os.File
}

// AcquireRunLock locks <dir>/<slug>.lock without waiting
func AcquireRunLock(dir, slug string) (*RunLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := filepath.Join(dir, slug+".lock")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := tryLockExclusive(f); err != nil {
		defer f.Close()
		if errors.Is(err, errHeld) {
			holder, _ := os.ReadFile(path)
			return nil, &LockedError{Slug: slug, Holder: strings.TrimSpace(string(holder))}
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	// The holder line is informational; the lock itself is the flock
	holder := fmt.Sprintf("pid=%d since=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(holder), 0)
	}

	return &RunLock{path: path, f: f}, nil
}

// Path returns the lock file path
func (l *RunLock) Path() string {
	return l.path
}

// Release unlocks and closes the lock file. It is safe to call more than once.
func (l *RunLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = l.f.Truncate(0)
	err := unlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
