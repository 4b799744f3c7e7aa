// Package lockfile provides the single-run lock that keeps concurrent
// primer invocations from overlapping.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// StaleAfter is how old a lock may get before any process may reclaim it.
// A crashed owner can therefore wedge the pipeline for at most this long.
const StaleAfter = 30 * time.Second

// ErrBusy means another live run holds the lock. Callers should treat this
// as a voluntary yield, not a failure.
var ErrBusy = errors.New("another primer run holds the lock")

// lockInfo is the marker file payload.
type lockInfo struct {
	PID       int       `json:"pid"`
	CreatedAt time.Time `json:"created_at"`
}

// Handle represents a held lock. Release must be called on every exit path.
type Handle struct {
	path string
}

// Acquire attempts to take the lock at path. If a live lock exists it
// returns ErrBusy. If a stale lock exists it is removed and acquisition
// is retried exactly once.
func Acquire(path string) (*Handle, error) {
	h, err := tryCreate(path)
	if err == nil {
		return h, nil
	}
	if !os.IsExist(err) {
		return nil, fmt.Errorf("failed to create lock %s: %w", path, err)
	}

	age, statErr := lockAge(path)
	if statErr != nil {
		// Lock vanished between the create attempt and the stat.
		// One more attempt covers the race.
		if os.IsNotExist(statErr) {
			h, err = tryCreate(path)
			if err != nil {
				return nil, ErrBusy
			}
			return h, nil
		}
		return nil, fmt.Errorf("failed to inspect lock %s: %w", path, statErr)
	}

	if age < StaleAfter {
		return nil, ErrBusy
	}

	// Stale lock left by a dead owner: reclaim it.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove stale lock %s: %w", path, err)
	}
	h, err = tryCreate(path)
	if err != nil {
		// Someone else won the reclaim race.
		return nil, ErrBusy
	}
	return h, nil
}

// Release removes the lock marker. Safe to call more than once.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	_ = os.Remove(h.path)
}

// Path returns the lock marker location.
func (h *Handle) Path() string {
	return h.path
}

func tryCreate(path string) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := lockInfo{PID: os.Getpid(), CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(info)
	if err == nil {
		_, _ = f.Write(data)
	}
	return &Handle{path: path}, nil
}

// lockAge determines how old the existing lock is. The recorded creation
// timestamp is authoritative; file mtime is the fallback when the payload
// is unreadable or garbled.
func lockAge(path string) (time.Duration, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}

	data, readErr := os.ReadFile(path)
	if readErr == nil {
		var info lockInfo
		if json.Unmarshal(data, &info) == nil && !info.CreatedAt.IsZero() {
			return time.Since(info.CreatedAt), nil
		}
	}
	return time.Since(st.ModTime()), nil
}
