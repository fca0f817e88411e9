package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// tetherDirName is the state directory under the user's home.
const tetherDirName = ".tether"

// Paths holds all resolved tether state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	TetherHome  string // ~/.tether or TETHER_HOME
	ConfigPath  string // config.toml or TETHER_CONFIG
	LayoutPath  string // session.yaml or TETHER_LAYOUT
	PIDPath     string // tether.pid or TETHER_PID_PATH
	EventDBPath string // events.db or TETHER_EVENT_DB
}

// ResolvePaths returns all tether paths, respecting env var overrides.
// Environment variables:
//   - TETHER_HOME: base directory for all tether state (default: ~/.tether)
//   - TETHER_CONFIG: main config file (default: $TETHER_HOME/config.toml)
//   - TETHER_LAYOUT: tmux layout file (default: $TETHER_HOME/session.yaml)
//   - TETHER_PID_PATH: coordinator PID file (default: $TETHER_HOME/tether.pid)
//   - TETHER_EVENT_DB: event log database (default: $TETHER_HOME/events.db)
//
// If TETHER_HOME is set, it becomes the base for all default paths.
// Specific env vars override both the default and the TETHER_HOME base.
func ResolvePaths() (*Paths, error) {
	home, err := resolveTetherHome()
	if err != nil {
		return nil, err
	}

	return &Paths{
		TetherHome:  home,
		ConfigPath:  resolvePathWithEnv("TETHER_CONFIG", home, "config.toml"),
		LayoutPath:  resolvePathWithEnv("TETHER_LAYOUT", home, "session.yaml"),
		PIDPath:     resolvePathWithEnv("TETHER_PID_PATH", home, "tether.pid"),
		EventDBPath: resolvePathWithEnv("TETHER_EVENT_DB", home, "events.db"),
	}, nil
}

// resolveTetherHome returns the tether home directory from TETHER_HOME or ~/.tether.
func resolveTetherHome() (string, error) {
	if v := os.Getenv("TETHER_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, tetherDirName), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}

// bootstrapTetherHome creates the tether state directory with 0700
// permissions. Idempotent.
func bootstrapTetherHome(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create tether dir %s: %w", dir, err)
	}
	return nil
}
