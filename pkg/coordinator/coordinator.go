// Package coordinator implements tether's outer loop: pull one chat message
// at a time from the on-disk inbox, dispatch it into the agent's terminal
// (as a fresh prompt, or as the answer to a pending interactive decision),
// wait for the turn to resolve, and persist the outcome.
//
// At most one turn is ever in flight. The loop is structurally sequential:
// it does not advance to the next queued message until the current turn's
// waiter resolves, so no lock guards the pending-interaction slot beyond
// the claim-by-rename exclusivity on the message itself.
package coordinator

import (
	"context"
	"fmt"
	"os"
	"time"

	"tether/pkg/config"
	"tether/pkg/inject"
	"tether/pkg/queue"
	"tether/pkg/turn"

	"github.com/fsnotify/fsnotify"
)

// Event types written to the event log.
const (
	EventDispatched     = "dispatched"
	EventReplyEncoded   = "reply_encoded"
	EventTurnComplete   = "turn_complete"
	EventTurnTimeout    = "turn_timeout"
	EventInteraction    = "interaction_pending"
	EventDispatchFailed = "dispatch_failed"
	EventResultWritten  = "result_written"
)

// Injector is the write-only input sink for the agent's terminal.
// *inject.Pane is the production implementation.
type Injector interface {
	SendPrompt(prompt string) error
	Apply(steps []inject.Step) error
}

// Coordinator drives the message queue against one agent session.
type Coordinator struct {
	cfg    config.Config
	queue  *queue.Queue
	pane   Injector
	events *EventLog

	// pending is the single-slot pending-interaction state. Only one turn
	// is ever in flight, so a single optional value suffices; it is
	// consumed and cleared exactly once by the next dispatched reply.
	pending *turn.Interaction

	// newWaiter constructs the per-turn waiter. The constructor snapshots
	// the shard directory, so it must run before injection. Tests swap it.
	newWaiter func() waiter

	// nowFunc allows tests to control time.
	nowFunc func() time.Time
}

// waiter is the per-turn wait contract satisfied by *turn.Waiter.
type waiter interface {
	Wait(ctx context.Context) turn.Result
}

// New creates a Coordinator. events may be nil (event logging disabled).
func New(cfg config.Config, q *queue.Queue, pane Injector, events *EventLog) *Coordinator {
	c := &Coordinator{
		cfg:     cfg,
		queue:   q,
		pane:    pane,
		events:  events,
		nowFunc: time.Now,
	}
	c.newWaiter = func() waiter {
		return turn.NewWaiter(cfg.LogDir, cfg.PlansDir, turn.Options{
			Interval: cfg.PollInterval,
			Quiet:    cfg.QuietThreshold,
			Timeout:  cfg.TurnTimeout,
		})
	}
	return c
}

// Pending returns the stored pending interaction, if any.
func (c *Coordinator) Pending() *turn.Interaction {
	return c.pending
}

// Run blocks until ctx is cancelled, processing inbox messages as they
// arrive. An fsnotify watch on the inbox triggers immediate ticks; a
// recurring timer is the safety net when the watch is unavailable or
// events are missed.
func (c *Coordinator) Run(ctx context.Context) error {
	if err := c.queue.EnsureDirs(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.runPoll(ctx)
		return nil
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(c.queue.Inbox()); err != nil {
		c.runPoll(ctx)
		return nil
	}

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-watcher.Events:
			c.Tick(ctx)
		case werr := <-watcher.Errors:
			if werr != nil {
				_ = c.events.Record(ctx, "watcher_error", "", "", werr.Error())
			}
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// runPoll is the fallback loop when fsnotify is unavailable.
func (c *Coordinator) runPoll(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick lists the inbox (oldest first, no priority) and processes each
// message strictly one at a time to completion. Nothing here is allowed to
// abort the outer loop: every failure degrades to a logged retry.
func (c *Coordinator) Tick(ctx context.Context) {
	msgs, err := c.queue.List()
	if err != nil {
		_ = c.events.Record(ctx, "list_failed", "", "", err.Error())
		return
	}
	for _, msg := range msgs {
		if ctx.Err() != nil {
			return
		}
		c.process(ctx, msg)
	}
}

// process runs one message through claim -> dispatch -> wait -> persist.
// The claim rename is the mutual-exclusion mechanism against a second
// coordinator instance; losing the race just skips the message.
func (c *Coordinator) process(ctx context.Context, msg queue.Message) {
	if err := c.queue.Claim(msg.ID); err != nil {
		return
	}

	res, err := c.runTurn(ctx, msg)
	if err != nil {
		// Dispatch fault: restore the artifact so a future cycle retries.
		_ = c.events.Record(ctx, EventDispatchFailed, msg.Channel, msg.ID, err.Error())
		if rerr := c.queue.Restore(msg.ID); rerr != nil {
			_ = c.events.Record(ctx, "restore_failed", msg.Channel, msg.ID, rerr.Error())
		}
		return
	}

	path, err := c.queue.WriteResult(queue.Result{
		ID:          msg.ID,
		Channel:     msg.Channel,
		Sender:      msg.Sender,
		Response:    res.Text,
		Original:    msg.Body,
		CompletedAt: c.nowFunc(),
	}, c.cfg.IsSingleton(msg.Channel))
	if err != nil {
		_ = c.events.Record(ctx, EventDispatchFailed, msg.Channel, msg.ID, err.Error())
		if rerr := c.queue.Restore(msg.ID); rerr != nil {
			_ = c.events.Record(ctx, "restore_failed", msg.Channel, msg.ID, rerr.Error())
		}
		return
	}

	if err := c.queue.Consume(msg.ID); err != nil {
		_ = c.events.Record(ctx, "consume_failed", msg.Channel, msg.ID, err.Error())
	}

	switch res.Kind {
	case turn.ResultInteraction:
		_ = c.events.Record(ctx, EventInteraction, msg.Channel, msg.ID, string(res.Interaction.Kind))
	case turn.ResultTimeout:
		// A clean timeout is a terminal outcome, not a retryable fault:
		// the artifact is consumed, never restored.
		_ = c.events.Record(ctx, EventTurnTimeout, msg.Channel, msg.ID, path)
	default:
		_ = c.events.Record(ctx, EventTurnComplete, msg.Channel, msg.ID,
			fmt.Sprintf(`{"tier":%q,"result":%q}`, res.Tier, path))
	}
}

// runTurn dispatches msg and waits for the turn to resolve. The waiter is
// constructed first: its shard snapshot must predate the agent's first
// write for this turn.
func (c *Coordinator) runTurn(ctx context.Context, msg queue.Message) (turn.Result, error) {
	w := c.newWaiter()

	if c.pending != nil {
		steps := inject.EncodeReply(c.pending, msg.Body)
		if err := c.pane.Apply(steps); err != nil {
			return turn.Result{}, fmt.Errorf("encode reply for message %s: %w", msg.ID, err)
		}
		// Consumed exactly once: even a failed wait below must not replay
		// the decision against a form that already advanced.
		c.pending = nil
		_ = c.events.Record(ctx, EventReplyEncoded, msg.Channel, msg.ID, "")
	} else {
		if err := c.pane.SendPrompt(msg.Body); err != nil {
			return turn.Result{}, fmt.Errorf("dispatch message %s: %w", msg.ID, err)
		}
		_ = c.events.Record(ctx, EventDispatched, msg.Channel, msg.ID, "")
	}

	res := w.Wait(ctx)
	if res.Kind == turn.ResultInteraction {
		c.pending = res.Interaction
	}
	return res, nil
}

// PruneOrphans restores any artifacts stranded in processing/ by a crash.
// Called once at startup, before the first tick.
func (c *Coordinator) PruneOrphans(ctx context.Context) {
	entries, err := os.ReadDir(c.queue.Processing())
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := ".json"; len(name) > len(ext) && name[len(name)-len(ext):] == ext {
			id := name[:len(name)-len(ext)]
			if err := c.queue.Restore(id); err == nil {
				_ = c.events.Record(ctx, "orphan_restored", "", id, "")
			}
		}
	}
}
