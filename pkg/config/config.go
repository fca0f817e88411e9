// Package config loads tether's configuration: the main TOML config file
// (~/.tether/config.toml) and the optional YAML session layout (session.yaml)
// that describes the tmux session hosting the interactive agent.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all tether settings. Zero values are filled in by
// WithDefaults; load paths are resolved relative to the tether home dir.
type Config struct {
	// QueueDir is the root of the message queue (inbox/, processing/, outbox/).
	QueueDir string

	// LogDir is the agent-owned directory of JSONL session shards.
	LogDir string

	// PlansDir is the agent-owned directory of plan documents keyed by
	// session slug. Read-only, best-effort.
	PlansDir string

	// PaneTarget is the tmux pane receiving injected input (e.g. "tether:agent").
	PaneTarget string

	// SingletonChannels lists channels whose outbound artifact name is
	// deterministic per channel (a recurring healthcheck overwrites its
	// previous response instead of accumulating files).
	SingletonChannels []string

	// PollInterval is the coordinator/waiter tick interval.
	PollInterval time.Duration

	// QuietThreshold gates low-confidence completion signals: a weak
	// boundary marker or a pending interaction is only honored once the
	// active shard has not grown for at least this long.
	QuietThreshold time.Duration

	// TurnTimeout is the hard wall-clock deadline for one turn.
	TurnTimeout time.Duration
}

// fileConfig is the on-disk TOML schema. Intervals are plain seconds so the
// file stays hand-editable (go-toml does not parse duration strings).
type fileConfig struct {
	QueueDir          string   `toml:"queue_dir"`
	LogDir            string   `toml:"log_dir"`
	PlansDir          string   `toml:"plans_dir"`
	PaneTarget        string   `toml:"pane_target"`
	SingletonChannels []string `toml:"singleton_channels"`
	PollIntervalSecs  int      `toml:"poll_interval_secs"`
	QuietSecs         int      `toml:"quiet_secs"`
	TurnTimeoutSecs   int      `toml:"turn_timeout_secs"`
}

func (f fileConfig) toConfig() Config {
	return Config{
		QueueDir:          f.QueueDir,
		LogDir:            f.LogDir,
		PlansDir:          f.PlansDir,
		PaneTarget:        f.PaneTarget,
		SingletonChannels: f.SingletonChannels,
		PollInterval:      time.Duration(f.PollIntervalSecs) * time.Second,
		QuietThreshold:    time.Duration(f.QuietSecs) * time.Second,
		TurnTimeout:       time.Duration(f.TurnTimeoutSecs) * time.Second,
	}
}

// Default timing values. PollInterval is deliberately coarse: the observed
// artifacts are files, and sub-second polling buys nothing but I/O.
const (
	DefaultPollInterval   = 1 * time.Second
	DefaultQuietThreshold = 5 * time.Second
	DefaultTurnTimeout    = 5 * time.Minute
)

// WithDefaults returns a copy of c with zero fields replaced by defaults.
// home is the tether state directory (usually ~/.tether).
func (c Config) WithDefaults(home string) Config {
	out := c
	if out.QueueDir == "" {
		out.QueueDir = filepath.Join(home, "queue")
	}
	if out.LogDir == "" {
		out.LogDir = filepath.Join(home, "logs")
	}
	if out.PlansDir == "" {
		out.PlansDir = filepath.Join(home, "plans")
	}
	if out.PaneTarget == "" {
		out.PaneTarget = "tether:agent"
	}
	if out.PollInterval == 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.QuietThreshold == 0 {
		out.QuietThreshold = DefaultQuietThreshold
	}
	if out.TurnTimeout == 0 {
		out.TurnTimeout = DefaultTurnTimeout
	}
	return out
}

// IsSingleton reports whether channel is configured as a singleton channel.
func (c Config) IsSingleton(channel string) bool {
	for _, s := range c.SingletonChannels {
		if s == channel {
			return true
		}
	}
	return false
}

// Load reads the TOML config at path and applies defaults rooted at home.
// A missing file is not an error: the defaults are returned unchanged.
func Load(path, home string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path is controlled by the application
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}.WithDefaults(home), nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc.toConfig().WithDefaults(home), nil
}

// Layout describes the tmux session that hosts the interactive agent.
// Loaded from session.yaml; all fields have working defaults.
type Layout struct {
	// Session is the tmux session name.
	Session string `yaml:"session"`

	// Window is the window name running the agent.
	Window string `yaml:"window"`

	// Command launches the agent. It replaces the shell via exec so the
	// agent IS the pane's initial process.
	Command string `yaml:"command"`

	// Env is prepended to Command as KEY=VALUE pairs.
	Env map[string]string `yaml:"env"`
}

// WithDefaults returns a copy of l with zero fields replaced by defaults.
func (l Layout) WithDefaults() Layout {
	out := l
	if out.Session == "" {
		out.Session = "tether"
	}
	if out.Window == "" {
		out.Window = "agent"
	}
	if out.Command == "" {
		out.Command = "claude"
	}
	return out
}

// PaneTarget returns the tmux target ("session:window") for the agent pane.
func (l Layout) PaneTarget() string {
	return l.Session + ":" + l.Window
}

// LoadLayout reads the YAML layout at path. A missing file yields the
// default layout.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path) //nolint:gosec // layout path is controlled by the application
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Layout{}.WithDefaults(), nil
		}
		return Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}

	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}
	return l.WithDefaults(), nil
}
