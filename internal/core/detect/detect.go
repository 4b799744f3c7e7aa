// Package detect classifies a working directory into content categories.
package detect

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Detector scans a directory tree against a category table.
type Detector struct {
	table    []Category
	maxDepth int
}

// NewDetector creates a detector over the given table. maxDepth bounds
// how deep glob predicates look; values below 1 fall back to 1.
func NewDetector(table []Category, maxDepth int) *Detector {
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &Detector{table: table, maxDepth: maxDepth}
}

// Detect evaluates every category predicate against rootDir and returns
// the matching labels in table order, with extras unioned in afterwards.
// Predicates never short-circuit each other. An empty result fails open
// to the full table: over-inclusion beats an empty, useless output.
// The scan is read-only.
func (d *Detector) Detect(rootDir string, extras []string) []string {
	files := d.collectFiles(rootDir)

	var labels []string
	seen := make(map[string]bool)
	for _, cat := range d.table {
		if d.matches(cat, rootDir, files) {
			labels = append(labels, cat.Name)
			seen[cat.Name] = true
		}
	}

	for _, extra := range extras {
		extra = strings.TrimSpace(extra)
		if extra == "" || seen[extra] {
			continue
		}
		labels = append(labels, extra)
		seen[extra] = true
	}

	if len(labels) == 0 {
		return Names(d.table)
	}
	return labels
}

func (d *Detector) matches(cat Category, rootDir string, files []string) bool {
	for _, marker := range cat.Markers {
		if _, err := os.Stat(filepath.Join(rootDir, marker)); err == nil {
			return true
		}
	}
	for _, glob := range cat.Globs {
		for _, name := range files {
			if ok, _ := filepath.Match(glob, name); ok {
				return true
			}
		}
	}
	return false
}

// collectFiles gathers the base names of regular files within maxDepth
// of rootDir. One walk serves every glob predicate.
func (d *Detector) collectFiles(rootDir string) []string {
	var names []string
	_ = filepath.WalkDir(rootDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtrees are just not evidence
		}
		rel, relErr := filepath.Rel(rootDir, path)
		if relErr != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator)) + 1
		if entry.IsDir() {
			if rel == "." {
				return nil
			}
			// Dot directories (.git, .cache) are never project evidence.
			if strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			if depth >= d.maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if depth <= d.maxDepth {
			names = append(names, entry.Name())
		}
		return nil
	})
	return names
}
