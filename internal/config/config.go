// Package config loads primer configuration from the environment.
// Every setting has a default; an empty environment is a valid one.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by primer.
const (
	EnvMirrorDir    = "PRIMER_MIRROR_DIR"    // local mirror of the content repo
	EnvRulesPath    = "PRIMER_RULES_PATH"    // aggregated guidance output
	EnvSettingsPath = "PRIMER_SETTINGS_PATH" // user settings document
	EnvLockPath     = "PRIMER_LOCK_PATH"     // run lock marker
	EnvRemotes      = "PRIMER_REMOTES"       // comma-separated endpoint URLs
	EnvCategories   = "PRIMER_CATEGORIES"    // comma-separated extra category labels
	EnvSkipSettings = "PRIMER_SKIP_SETTINGS" // disable the settings merge step
	EnvVerbose      = "PRIMER_VERBOSE"       // progress output on stderr
	EnvScanDepth    = "PRIMER_SCAN_DEPTH"    // detector scan depth
)

// DefaultRemotes is the ordered endpoint list used when PRIMER_REMOTES is unset.
// SSH first (keyed auth), HTTPS as fallback.
var DefaultRemotes = []string{
	"git@github.com:example/primer-content.git",
	"https://github.com/example/primer-content.git",
}

// DefaultScanDepth bounds the detector's directory walk.
const DefaultScanDepth = 3

// Config holds all resolved settings for one pipeline run.
type Config struct {
	MirrorDir       string
	RulesPath       string
	SettingsPath    string
	LockPath        string
	Remotes         []string
	ExtraCategories []string
	CategoriesFile  string
	SkipSettings    bool
	Verbose         bool
	ScanDepth       int
}

// Load resolves the configuration from the environment, applying defaults
// for anything unset. Only fails if the home directory cannot be determined
// while a home-relative default is needed.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	cfg := &Config{
		MirrorDir:      envOr(EnvMirrorDir, filepath.Join(home, ".primer", "mirror")),
		RulesPath:      envOr(EnvRulesPath, filepath.Join(home, ".claude", "primer.md")),
		SettingsPath:   envOr(EnvSettingsPath, filepath.Join(home, ".claude", "settings.json")),
		LockPath:       envOr(EnvLockPath, filepath.Join(os.TempDir(), "primer.lock")),
		Remotes:        splitList(os.Getenv(EnvRemotes)),
		CategoriesFile: filepath.Join(home, ".primer", "categories.yaml"),
		SkipSettings:   envBool(EnvSkipSettings),
		Verbose:        envBool(EnvVerbose),
		ScanDepth:      envInt(EnvScanDepth, DefaultScanDepth),
	}

	if len(cfg.Remotes) == 0 {
		cfg.Remotes = append([]string{}, DefaultRemotes...)
	}
	cfg.ExtraCategories = splitList(os.Getenv(EnvCategories))

	return cfg, nil
}

// PartialPath returns the location of the remote permission partial
// inside the mirror.
func (c *Config) PartialPath() string {
	return filepath.Join(c.MirrorDir, "settings", "permissions.json")
}

// HooksDir returns the location of hook scripts inside the mirror.
func (c *Config) HooksDir() string {
	return filepath.Join(c.MirrorDir, "hooks")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// UserCategory is a user-defined detection category loaded from
// ~/.primer/categories.yaml. It extends the builtin table.
type UserCategory struct {
	Name    string   `yaml:"name"`
	Markers []string `yaml:"markers"`
	Globs   []string `yaml:"globs"`
}

type userCategoryFile struct {
	Categories []UserCategory `yaml:"categories"`
}

// LoadUserCategories reads the optional category extension file.
// A missing file is not an error; a malformed one is.
func LoadUserCategories(path string) ([]UserCategory, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read categories file: %w", err)
	}

	var f userCategoryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var out []UserCategory
	for _, c := range f.Categories {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
