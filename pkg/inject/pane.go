package inject

import (
	"fmt"
	"strings"
	"time"
)

// Runner abstracts command execution for testability.
type Runner interface {
	Run(name string, args ...string) (string, error)
}

// promptDebounce is the delay between pasting prompt text and pressing
// Enter. The agent's Ink TUI needs time to process pasted text before Enter
// arrives, especially in detached sessions where SIGWINCH timing adds
// latency.
const promptDebounce = 2 * time.Second

// bufferName is the named tmux buffer used for literal text delivery.
const bufferName = "tether-inject"

// Pane is a write-only event sink: a tmux pane hosting the interactive
// agent. There is no acknowledgment channel; delivery is fire-and-forget.
type Pane struct {
	Target  string              // tmux target, e.g. "tether:agent"
	Runner  Runner
	Sleeper func(time.Duration) // optional; overrides time.Sleep for testing
}

func (p *Pane) sleep(d time.Duration) {
	if p.Sleeper != nil {
		p.Sleeper(d)
		return
	}
	time.Sleep(d)
}

// pasteLiteral delivers text through set-buffer + paste-buffer. This treats
// the content as completely literal, so option labels, shell metacharacters
// and multi-line bodies survive intact.
func (p *Pane) pasteLiteral(s string) error {
	s = strings.ReplaceAll(s, "\r", "")
	if _, err := p.Runner.Run("tmux", "set-buffer", "-b", bufferName, s); err != nil {
		return fmt.Errorf("tmux set-buffer: %w", err)
	}
	if _, err := p.Runner.Run("tmux", "paste-buffer", "-b", bufferName, "-t", p.Target, "-d"); err != nil {
		return fmt.Errorf("tmux paste-buffer to %s: %w", p.Target, err)
	}
	return nil
}

// pressKey sends one symbolic key.
func (p *Pane) pressKey(name string) error {
	if _, err := p.Runner.Run("tmux", "send-keys", "-t", p.Target, name); err != nil {
		return fmt.Errorf("tmux send-keys %s to %s: %w", name, p.Target, err)
	}
	return nil
}

// SendPrompt delivers a fresh conversation prompt: paste the text, wait for
// the TUI to process it, then press Enter. An Escape precedes the Enter to
// leave any vim-mode insert state; harmless when vim mode is off.
func (p *Pane) SendPrompt(prompt string) error {
	if _, err := p.Runner.Run("tmux", "has-session", "-t", sessionOf(p.Target)); err != nil {
		return fmt.Errorf("tmux session for %s not found: %w", p.Target, err)
	}
	if err := p.pasteLiteral(prompt); err != nil {
		return err
	}
	// Wake the pane so Ink processes the text in detached sessions.
	// Without SIGWINCH, the render loop may not see the input, and Enter
	// then acts on an empty input field.
	p.wakeIfDetached()
	p.sleep(promptDebounce)
	if err := p.pressKey("Escape"); err != nil {
		return err
	}
	p.sleep(100 * time.Millisecond)
	if err := p.pressKey(KeyEnter); err != nil {
		return err
	}
	p.wakeIfDetached()
	return nil
}

// wakeIfDetached sends SIGWINCH to the pane's process when no clients are
// attached. Direct kill -WINCH via the pane PID is more reliable at
// reaching the agent's render loop than a resize.
func (p *Pane) wakeIfDetached() {
	out, err := p.Runner.Run("tmux", "display-message", "-p", "-t", p.Target, "#{session_attached}")
	if err == nil && strings.TrimSpace(out) != "0" {
		return // attached, no wake needed
	}
	pidStr, err := p.Runner.Run("tmux", "display-message", "-p", "-t", p.Target, "#{pane_pid}")
	if err != nil {
		return
	}
	_, _ = p.Runner.Run("kill", "-WINCH", strings.TrimSpace(pidStr))
}

// Apply delivers an encoded step sequence in order. Steps are discrete and
// ordered; a failed key or paste aborts the remainder.
func (p *Pane) Apply(steps []Step) error {
	for _, s := range steps {
		switch {
		case s.Pause > 0:
			p.sleep(s.Pause)
		case s.Text != "":
			if err := p.pasteLiteral(s.Text); err != nil {
				return err
			}
		case s.Key != "":
			if err := p.pressKey(s.Key); err != nil {
				return err
			}
		}
	}
	return nil
}

// sessionOf returns the session part of a tmux target ("sess:win" -> "sess").
func sessionOf(target string) string {
	if i := strings.IndexByte(target, ':'); i >= 0 {
		return target[:i]
	}
	return target
}
