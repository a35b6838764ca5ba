// Package runlock provides the single-instance execution guard: a PID-checked
// lock file that gives one cron-triggered invocation exclusive ownership of a
// sync run. A lock whose recorded holder process is no longer alive is
// orphaned and reclaimed automatically; it never requires manual cleanup.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrAlreadyRunning is returned by Acquire when another live process holds
// the lock. This is a deliberate soft-stop for the caller, not an error
// condition: the scheduled invocation simply yields.
var ErrAlreadyRunning = errors.New("another sync run is already in progress")

// Lock represents exclusive ownership of one sync run.
type Lock struct {
	path string
}

// Acquire takes the run lock at path for the current process.
//
// If a lock file exists and its recorded PID belongs to a live process,
// Acquire fails with ErrAlreadyRunning. A lock whose holder is dead, or
// whose content cannot be parsed, is treated as orphaned and replaced.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	// Two attempts: the second runs only after an orphaned lock was removed.
	for attempt := 0; attempt < 2; attempt++ {
		lock, err := tryCreate(path)
		if err == nil {
			return lock, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		holder, err := readHolder(path)
		if err != nil {
			return nil, err
		}
		if holder > 0 && processAlive(holder) {
			return nil, ErrAlreadyRunning
		}

		// Orphaned (holder dead) or garbled: reclaim and retry.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing orphaned lock: %w", err)
		}
	}

	return nil, fmt.Errorf("lock at %s could not be reclaimed", path)
}

// tryCreate writes the current PID into a freshly created lock file.
// O_EXCL makes creation the atomic claim; a file left by a crashed run makes
// this fail with os.IsExist and the caller falls through to liveness checks.
func tryCreate(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing lock file: %w", err)
	}

	return &Lock{path: path}, nil
}

// readHolder returns the PID recorded in the lock file, or 0 when the
// content is not a valid PID (a garbled lock counts as orphaned).
func readHolder(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, nil
	}
	return pid, nil
}

// Release removes the lock file. It is idempotent and safe to call on every
// exit path, including when the lock was never acquired.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	os.Remove(l.path)
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }
