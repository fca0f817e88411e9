package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tether/pkg/config"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	cfg, err := config.Load(filepath.Join(home, "config.toml"), home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.QueueDir != filepath.Join(home, "queue") {
		t.Errorf("QueueDir = %q, want %q", cfg.QueueDir, filepath.Join(home, "queue"))
	}
	if cfg.PollInterval != config.DefaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", cfg.PollInterval, config.DefaultPollInterval)
	}
	if cfg.QuietThreshold != config.DefaultQuietThreshold {
		t.Errorf("QuietThreshold = %v, want %v", cfg.QuietThreshold, config.DefaultQuietThreshold)
	}
	if cfg.TurnTimeout != config.DefaultTurnTimeout {
		t.Errorf("TurnTimeout = %v, want %v", cfg.TurnTimeout, config.DefaultTurnTimeout)
	}
}

func TestLoad_ParsesValuesAndKeepsUnsetDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	path := filepath.Join(home, "config.toml")
	content := `
queue_dir = "/var/tether/queue"
pane_target = "work:claude"
singleton_channels = ["heartbeat"]
quiet_secs = 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path, home)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.QueueDir != "/var/tether/queue" {
		t.Errorf("QueueDir = %q", cfg.QueueDir)
	}
	if cfg.PaneTarget != "work:claude" {
		t.Errorf("PaneTarget = %q", cfg.PaneTarget)
	}
	if cfg.QuietThreshold != 10*time.Second {
		t.Errorf("QuietThreshold = %v, want 10s", cfg.QuietThreshold)
	}
	// Unset interval falls back to the default.
	if cfg.PollInterval != config.DefaultPollInterval {
		t.Errorf("PollInterval = %v, want default", cfg.PollInterval)
	}
	if !cfg.IsSingleton("heartbeat") {
		t.Error("IsSingleton(heartbeat) = false, want true")
	}
	if cfg.IsSingleton("general") {
		t.Error("IsSingleton(general) = true, want false")
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	path := filepath.Join(home, "config.toml")
	if err := os.WriteFile(path, []byte("queue_dir = [broken"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := config.Load(path, home); err == nil {
		t.Error("Load with malformed TOML: expected error, got nil")
	}
}

func TestLoadLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		content     string // empty means no file
		wantSession string
		wantTarget  string
		wantCommand string
	}{
		{
			name:        "missing file yields defaults",
			wantSession: "tether",
			wantTarget:  "tether:agent",
			wantCommand: "claude",
		},
		{
			name: "explicit layout",
			content: `
session: ops
window: claude
command: claude --continue
env:
  TETHER_ROLE: bridge
`,
			wantSession: "ops",
			wantTarget:  "ops:claude",
			wantCommand: "claude --continue",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "session.yaml")
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatalf("write layout: %v", err)
				}
			}

			l, err := config.LoadLayout(path)
			if err != nil {
				t.Fatalf("LoadLayout: %v", err)
			}
			if l.Session != tt.wantSession {
				t.Errorf("Session = %q, want %q", l.Session, tt.wantSession)
			}
			if l.PaneTarget() != tt.wantTarget {
				t.Errorf("PaneTarget() = %q, want %q", l.PaneTarget(), tt.wantTarget)
			}
			if l.Command != tt.wantCommand {
				t.Errorf("Command = %q, want %q", l.Command, tt.wantCommand)
			}
		})
	}
}
