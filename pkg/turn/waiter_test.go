package turn_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tether/pkg/session"
	"tether/pkg/turn"
)

// fakeClock drives the waiter deterministically: every Sleep advances the
// clock by the slept duration and runs the scheduled mutations for that tick.
type fakeClock struct {
	now    time.Time
	sleeps int
	onTick func(n int)
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
	c.sleeps++
	if c.onTick != nil {
		c.onTick(c.sleeps)
	}
}

func jsonLine(t *testing.T, e session.Entry) string {
	t.Helper()
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal entry: %v", err)
	}
	return string(data)
}

func appendEntries(t *testing.T, path string, entries ...session.Entry) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open shard: %v", err)
	}
	defer func() { _ = f.Close() }()
	for _, e := range entries {
		if _, err := f.WriteString(jsonLine(t, e) + "\n"); err != nil {
			t.Fatalf("append entry: %v", err)
		}
	}
}

func newTurnDirs(t *testing.T) (logDir, plansDir, shard string) {
	t.Helper()
	logDir = t.TempDir()
	plansDir = t.TempDir()
	shard = filepath.Join(logDir, "a.jsonl")
	// Three lines of prior-turn history that must never be re-read.
	appendEntries(t, shard, assistantText("old answer"), systemEntry("turn_duration"), assistantText("older still"))
	return logDir, plansDir, shard
}

func TestWait_AuthoritativeMarkerEndsTurnImmediately(t *testing.T) {
	t.Parallel()

	logDir, plansDir, shard := newTurnDirs(t)
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	w := turn.NewWaiter(logDir, plansDir, turn.Options{
		Interval: time.Second,
		Quiet:    5 * time.Second,
		Timeout:  time.Minute,
		NowFunc:  clk.Now,
		Sleep:    clk.Sleep,
	})

	// Shard grows from 3 to 5 lines: assistant text then the marker.
	appendEntries(t, shard, assistantText("All systems nominal."), systemEntry("turn_duration"))

	res := w.Wait(context.Background())
	if res.Kind != turn.ResultResponse {
		t.Fatalf("Kind = %q, want response", res.Kind)
	}
	if res.Text != "All systems nominal." {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Tier != turn.TierAuthoritative {
		t.Errorf("Tier = %q", res.Tier)
	}
	// The marker ends the turn on the tick it is observed: no quiet wait.
	if clk.sleeps != 0 {
		t.Errorf("slept %d ticks, want 0", clk.sleeps)
	}
}

func TestWait_WeakMarkerWaitsForQuietThreshold(t *testing.T) {
	t.Parallel()

	logDir, plansDir, shard := newTurnDirs(t)
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	w := turn.NewWaiter(logDir, plansDir, turn.Options{
		Interval: time.Second,
		Quiet:    5 * time.Second,
		Timeout:  time.Minute,
		NowFunc:  clk.Now,
		Sleep:    clk.Sleep,
	})

	appendEntries(t, shard, assistantText("done, I think"), systemEntry("stop"))

	res := w.Wait(context.Background())
	if res.Kind != turn.ResultResponse {
		t.Fatalf("Kind = %q, want response", res.Kind)
	}
	if res.Text != "done, I think" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Tier != turn.TierQuietStop {
		t.Errorf("Tier = %q", res.Tier)
	}
	// Growth observed on the first tick; the same marker is re-checked
	// idempotently every tick and only fires once quiet >= threshold.
	if clk.sleeps != 5 {
		t.Errorf("slept %d ticks, want 5", clk.sleeps)
	}
}

func TestWait_TimeoutWithNoGrowth(t *testing.T) {
	t.Parallel()

	logDir, plansDir, _ := newTurnDirs(t)
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	w := turn.NewWaiter(logDir, plansDir, turn.Options{
		Interval: time.Second,
		Quiet:    5 * time.Second,
		Timeout:  10 * time.Second,
		NowFunc:  clk.Now,
		Sleep:    clk.Sleep,
	})

	res := w.Wait(context.Background())
	if res.Kind != turn.ResultTimeout {
		t.Fatalf("Kind = %q, want timeout", res.Kind)
	}
	if res.Text != turn.TimeoutPlaceholder {
		t.Errorf("Text = %q, want timeout placeholder", res.Text)
	}
}

func TestWait_InteractionWinsOverWeakMarker(t *testing.T) {
	t.Parallel()

	logDir, plansDir, shard := newTurnDirs(t)
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	w := turn.NewWaiter(logDir, plansDir, turn.Options{
		Interval: time.Second,
		Quiet:    5 * time.Second,
		Timeout:  time.Minute,
		NowFunc:  clk.Now,
		Sleep:    clk.Sleep,
	})

	// Both signals become true at once: a blocking question AND a weak
	// stop marker. The pending decision must be surfaced, not swallowed.
	appendEntries(t, shard,
		assistantToolUse("toolu_q", turn.ToolAskQuestion, questionInput("Which approach?")),
		systemEntry("stop"),
	)

	res := w.Wait(context.Background())
	if res.Kind != turn.ResultInteraction {
		t.Fatalf("Kind = %q, want interaction", res.Kind)
	}
	if res.Interaction == nil || res.Interaction.ToolUseID != "toolu_q" {
		t.Fatalf("Interaction = %+v", res.Interaction)
	}
	if res.Text == "" {
		t.Error("rendered prompt is empty")
	}
}

func TestWait_InteractionGatedOnQuiet(t *testing.T) {
	t.Parallel()

	logDir, plansDir, shard := newTurnDirs(t)
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	// The agent keeps writing after the tool invocation: on tick 2 a
	// tool_result answers the question, then the real completion lands.
	clk.onTick = func(n int) {
		if n == 2 {
			appendEntries(t, shard,
				userToolResult("toolu_q"),
				assistantText("resolved it myself"),
				systemEntry("turn_duration"),
			)
		}
	}

	w := turn.NewWaiter(logDir, plansDir, turn.Options{
		Interval: time.Second,
		Quiet:    5 * time.Second,
		Timeout:  time.Minute,
		NowFunc:  clk.Now,
		Sleep:    clk.Sleep,
	})

	appendEntries(t, shard, assistantToolUse("toolu_q", turn.ToolAskQuestion, questionInput("Which approach?")))

	res := w.Wait(context.Background())
	if res.Kind != turn.ResultResponse {
		t.Fatalf("Kind = %q, want response (question was answered in-log)", res.Kind)
	}
	if res.Text != "resolved it myself" {
		t.Errorf("Text = %q", res.Text)
	}
}
