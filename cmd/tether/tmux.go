package main

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"tether/pkg/config"
	"tether/pkg/inject"
)

// ExecRunner implements inject.Runner using os/exec.
type ExecRunner struct{}

// Run executes a command and returns its combined output.
func (e *ExecRunner) Run(name string, args ...string) (string, error) {
	cmd := exec.CommandContext(context.Background(), name, args...)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// defaultReadyTimeout is the default time to wait for the agent to become
// ready. Agents with session-start hooks can take 30-45s to initialize.
const defaultReadyTimeout = 60 * time.Second

// readyPollInterval is the time between capture-pane readiness checks.
const readyPollInterval = 500 * time.Millisecond

// promptIndicator is the character the agent's TUI renders for its input
// prompt once it is ready for input.
const promptIndicator = "❯"

// TmuxSession manages the tmux session that hosts the interactive agent.
type TmuxSession struct {
	Layout       config.Layout
	Runner       inject.Runner
	Sleeper      func(time.Duration) // optional; overrides time.Sleep for testing
	ReadyTimeout time.Duration       // 0 means defaultReadyTimeout
}

// NewTmuxSession creates a TmuxSession with the default ExecRunner.
func NewTmuxSession(layout config.Layout) *TmuxSession {
	return &TmuxSession{Layout: layout, Runner: &ExecRunner{}}
}

// Exists checks whether the session is running.
func (s *TmuxSession) Exists() bool {
	_, err := s.Runner.Run("tmux", "has-session", "-t", s.Layout.Session)
	return err == nil
}

// isHealthy checks whether the agent is still the foreground process in its
// pane. Returns false if the pane shows a shell (the agent crashed back to
// the login shell).
func (s *TmuxSession) isHealthy() bool {
	out, err := s.Runner.Run("tmux", "display-message", "-p", "-t", s.Layout.PaneTarget(), "#{pane_current_command}")
	if err != nil {
		return false
	}
	return !isShell(strings.TrimSpace(out))
}

// execEnvCmd builds an exec-env command that replaces the shell with the
// agent process. Using exec eliminates the shell phase entirely, so the
// agent IS the pane's initial process and pane_current_command reflects it.
func (s *TmuxSession) execEnvCmd() string {
	parts := []string{"exec", "env"}
	keys := make([]string, 0, len(s.Layout.Env))
	for k := range s.Layout.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+s.Layout.Env[k])
	}
	parts = append(parts, s.Layout.Command)
	return strings.Join(parts, " ")
}

// Create creates the agent tmux session: one detached window running the
// agent via exec-env, then polls until the agent's prompt renders. If a
// healthy session already exists, it is a no-op; a zombie session (agent
// crashed back to shell) is killed and recreated.
func (s *TmuxSession) Create() error {
	if s.Exists() {
		if s.isHealthy() {
			return nil
		}
		_ = s.Kill()
	}

	if _, err := s.Runner.Run("tmux", "new-session", "-d", "-s", s.Layout.Session, "-n", s.Layout.Window, s.execEnvCmd()); err != nil {
		return fmt.Errorf("tmux new-session: %w", err)
	}

	if err := s.WaitForPrompt(s.Layout.PaneTarget()); err != nil {
		return fmt.Errorf("wait for agent prompt: %w", err)
	}
	return nil
}

// isShell returns true if cmd matches a known shell process name
// (the foreground process hasn't changed from the login shell yet).
func isShell(cmd string) bool {
	switch cmd {
	case "zsh", "bash", "sh", "fish":
		return true
	}
	return false
}

// WaitForPrompt polls the pane content until the agent's prompt indicator
// appears, meaning the TUI is rendered and ready for input. Process start
// alone is not enough: the welcome screen and session-start hooks run
// before the input field accepts keys.
func (s *TmuxSession) WaitForPrompt(paneTarget string) error {
	timeout := s.ReadyTimeout
	if timeout == 0 {
		timeout = defaultReadyTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		out, err := s.Runner.Run("tmux", "capture-pane", "-p", "-t", paneTarget)
		if err == nil && strings.Contains(out, promptIndicator) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("agent prompt %q not found in pane %s within %v", promptIndicator, paneTarget, timeout)
		}
		s.sleep(readyPollInterval)
	}
}

// Kill destroys the session.
func (s *TmuxSession) Kill() error {
	_, err := s.Runner.Run("tmux", "kill-session", "-t", s.Layout.Session)
	if err != nil {
		return fmt.Errorf("tmux kill-session: %w", err)
	}
	return nil
}

// sleep pauses for the given duration. It uses the Sleeper if set (for
// testing), otherwise falls back to time.Sleep.
func (s *TmuxSession) sleep(d time.Duration) {
	if s.Sleeper != nil {
		s.Sleeper(d)
		return
	}
	time.Sleep(d)
}
