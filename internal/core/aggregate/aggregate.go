// Package aggregate builds the combined guidance document from mirror
// content items.
package aggregate

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Separator terminates every content item in the output document.
const Separator = "\n\n---\n\n"

// Build concatenates the content items of every listed category found in
// the mirror, in the given category order, items in lexical filename
// order. Categories without a mirror directory are skipped: the detector
// table and the mirror schema evolve independently. The result depends
// only on the inputs, so identical mirror and categories always yield
// byte-identical output.
func Build(mirrorDir string, categories []string) ([]byte, error) {
	var b strings.Builder

	for _, category := range categories {
		dir := filepath.Join(mirrorDir, category)
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read category %s: %w", category, err)
		}

		var items []string
		for _, entry := range entries {
			if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			items = append(items, entry.Name())
		}
		if len(items) == 0 {
			continue
		}
		sort.Strings(items)

		fmt.Fprintf(&b, "## %s\n\n", category)
		for _, item := range items {
			data, err := os.ReadFile(filepath.Join(dir, item))
			if err != nil {
				return nil, fmt.Errorf("failed to read content item %s/%s: %w", category, item, err)
			}
			b.Write(data)
			b.WriteString(Separator)
		}
	}

	return []byte(b.String()), nil
}

// Write replaces the document at path with the aggregated content.
// The previous document is fully overwritten, never appended to.
func Write(path string, doc []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return fmt.Errorf("failed to write aggregated document: %w", err)
	}
	return nil
}
