// Package settings merges remote-supplied permission entries into the
// user settings document. The merge is union-only: it adds entries and
// never removes or reorders anything the user already has.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Typed merge failures. Both leave the local settings file untouched:
// silently replacing user data with an empty document is the one thing
// this package must never do.
var (
	ErrMalformedSettings = errors.New("local settings document is not valid JSON")
	ErrMalformedPartial  = errors.New("remote permission partial is not valid JSON")
)

// Merge unions the list fields of the partial document into the settings
// document at path. An absent or empty local file is an empty document.
// List entries are deduplicated preserving first-seen order, local side
// first. Local fields the partial does not mention are preserved, and on
// scalar conflicts the local value wins. The write is atomic (temp file
// plus rename) so concurrent readers never see a truncated document.
//
// Merging the same partial twice is a no-op the second time.
func Merge(path string, partial []byte) error {
	local, err := loadLocal(path)
	if err != nil {
		return err
	}

	var remote map[string]any
	if err := json.Unmarshal(partial, &remote); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPartial, err)
	}

	merged := mergeMaps(local, remote)

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode merged settings: %w", err)
	}
	data = append(data, '\n')

	return writeAtomic(path, data)
}

func loadLocal(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}

	var local map[string]any
	if err := json.Unmarshal(data, &local); err != nil {
		return nil, fmt.Errorf("%w (%s): %v", ErrMalformedSettings, path, err)
	}
	if local == nil {
		local = map[string]any{}
	}
	return local, nil
}

// mergeMaps merges remote into local key by key. Objects merge
// recursively, lists union, and anything else keeps the local value.
func mergeMaps(local, remote map[string]any) map[string]any {
	for key, remoteVal := range remote {
		localVal, exists := local[key]
		if !exists {
			local[key] = remoteVal
			continue
		}

		switch rv := remoteVal.(type) {
		case map[string]any:
			if lv, ok := localVal.(map[string]any); ok {
				local[key] = mergeMaps(lv, rv)
			}
		case []any:
			if lv, ok := localVal.([]any); ok {
				local[key] = unionLists(lv, rv)
			}
		}
		// Scalar conflict: the user's value stands.
	}
	return local
}

// unionLists appends remote entries absent from local, keeping the order
// of first appearance. Entries are compared by their JSON encoding so
// non-scalar list members dedupe too.
func unionLists(local, remote []any) []any {
	seen := make(map[string]bool, len(local))
	out := make([]any, 0, len(local)+len(remote))
	for _, v := range local {
		out = append(out, v)
		seen[entryKey(v)] = true
	}
	for _, v := range remote {
		key := entryKey(v)
		if seen[key] {
			continue
		}
		out = append(out, v)
		seen[key] = true
	}
	return out
}

func entryKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp settings file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
