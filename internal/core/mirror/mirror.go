// Package mirror maintains the local cache of the remote content repository.
package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrAllEndpointsFailed means no endpoint could be cloned and no prior
// mirror exists to fall back to. This is the only fatal sync failure.
var ErrAllEndpointsFailed = errors.New("no endpoint reachable and no cached mirror")

// Ref describes the mirror state after a sync attempt.
type Ref struct {
	Path     string
	Degraded bool   // true when the update failed and a cached mirror is being reused
	Reason   string // short description of why the sync degraded
}

// Manager acquires and refreshes the mirror via the git binary.
type Manager struct {
	path      string
	endpoints []string
}

// NewManager creates a sync manager for the mirror at path, trying the
// given endpoints in order on a cold start.
func NewManager(path string, endpoints []string) *Manager {
	return &Manager{path: path, endpoints: endpoints}
}

// Sync ensures a usable mirror exists at the configured path.
//
// Cold start: shallow single-branch clone from each endpoint in order,
// stopping at the first success; if every endpoint fails the error wraps
// ErrAllEndpointsFailed and names each attempt. Warm start: fast-forward
// only update; any failure (offline, diverged, permissions) degrades to
// the cached mirror rather than aborting.
func (m *Manager) Sync(ctx context.Context) (*Ref, error) {
	valid, err := m.validMirror()
	if err != nil {
		return nil, err
	}

	if !valid {
		if err := m.clone(ctx); err != nil {
			return nil, err
		}
		return &Ref{Path: m.path}, nil
	}

	if err := m.update(ctx); err != nil {
		return &Ref{Path: m.path, Degraded: true, Reason: firstLine(err.Error())}, nil
	}
	return &Ref{Path: m.path}, nil
}

// validMirror reports whether a complete mirror exists. A directory
// without a .git inside is a broken partial clone and is cleared so the
// next clone starts fresh.
func (m *Manager) validMirror() (bool, error) {
	st, err := os.Stat(m.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check mirror: %w", err)
	}
	if !st.IsDir() {
		return false, fmt.Errorf("mirror path %s is not a directory", m.path)
	}

	if _, err := os.Stat(filepath.Join(m.path, ".git")); err == nil {
		return true, nil
	}

	// Leftover from an interrupted clone. Remove and re-clone.
	if err := os.RemoveAll(m.path); err != nil {
		return false, fmt.Errorf("failed to clear partial mirror: %w", err)
	}
	return false, nil
}

func (m *Manager) clone(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create mirror parent directory: %w", err)
	}

	var attempts []string
	for _, endpoint := range m.endpoints {
		err := runGit(ctx, "", "clone", "--depth", "1", "--single-branch", endpoint, m.path)
		if err == nil {
			return nil
		}
		attempts = append(attempts, fmt.Sprintf("%s (%s)", endpoint, firstLine(err.Error())))
		// A half-written clone must not poison the next attempt.
		_ = os.RemoveAll(m.path)
	}

	if len(attempts) == 0 {
		return fmt.Errorf("%w: no endpoints configured", ErrAllEndpointsFailed)
	}
	return fmt.Errorf("%w: tried %s", ErrAllEndpointsFailed, strings.Join(attempts, "; "))
}

func (m *Manager) update(ctx context.Context) error {
	return runGit(ctx, m.path, "pull", "--ff-only", "--quiet")
}

// CommitsBehind reports how far the mirror lags its upstream. Fetch
// failures are ignored so offline machines still get an answer from the
// last known refs.
func (m *Manager) CommitsBehind(ctx context.Context) (int, error) {
	_ = runGit(ctx, m.path, "fetch", "--quiet")

	out, err := gitOutput(ctx, m.path, "rev-list", "--count", "HEAD..@{u}")
	if err != nil {
		return 0, fmt.Errorf("failed to count upstream commits: %w", err)
	}

	var behind int
	if _, err := fmt.Sscanf(strings.TrimSpace(out), "%d", &behind); err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", out, err)
	}
	return behind, nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
