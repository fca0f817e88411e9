package main

import (
	"strings"
	"testing"
	"time"

	"tether/pkg/eventlog"

	tea "github.com/charmbracelet/bubbletea"
)

func TestEventRows(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 14, 30, 5, 0, time.UTC)
	events := []eventlog.Event{
		{Type: "dispatched", Channel: "general", MessageID: "m1", CreatedAt: ts},
		{Type: "turn_complete", Channel: "general", MessageID: "m1", Payload: `{"tier":"authoritative"}`, CreatedAt: ts.Add(time.Minute)},
	}

	rows := eventRows(events)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][0] != "14:30:05" || rows[0][1] != "dispatched" || rows[0][2] != "general" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1][4] != `{"tier":"authoritative"}` {
		t.Errorf("row 1 payload = %q", rows[1][4])
	}
}

func TestEventRows_Empty(t *testing.T) {
	t.Parallel()

	if rows := eventRows(nil); len(rows) != 0 {
		t.Errorf("got %d rows for nil events, want 0", len(rows))
	}
}

func TestModel_StatusUpdateReflectsInView(t *testing.T) {
	t.Parallel()

	m := newModel()

	next, _ := m.Update(statusMsg{running: true, pid: 4242, inbox: 3})
	view := next.(Model).View()

	if !strings.Contains(view, "PID 4242") {
		t.Errorf("view missing daemon PID:\n%s", view)
	}
	if !strings.Contains(view, "inbox 3") {
		t.Errorf("view missing inbox depth:\n%s", view)
	}
}

func TestModel_DownStateByDefault(t *testing.T) {
	t.Parallel()

	view := newModel().View()
	if !strings.Contains(view, "coordinator down") {
		t.Errorf("default view should report coordinator down:\n%s", view)
	}
}

func TestModel_QuitKeys(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"q", "ctrl+c"} {
		m := newModel()
		var msg tea.KeyMsg
		if key == "ctrl+c" {
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		} else {
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
		}

		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Errorf("key %q did not produce a command", key)
			continue
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("key %q did not quit", key)
		}
	}
}
