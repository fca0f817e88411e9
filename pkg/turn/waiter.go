package turn

import (
	"context"
	"time"

	"tether/pkg/session"
)

// ResultKind discriminates how a turn resolved.
type ResultKind string

// Turn outcomes. Timeout is a defined terminal outcome, not an error.
const (
	ResultResponse    ResultKind = "response"
	ResultInteraction ResultKind = "interaction"
	ResultTimeout     ResultKind = "timeout"
)

// Result is the outcome of waiting for one dispatched turn.
type Result struct {
	Kind ResultKind

	// Text is the extracted response, a placeholder, or the rendered
	// interaction prompt. Never empty.
	Text string

	// Tier names the boundary tier that ended the turn (response/timeout).
	Tier string

	// Interaction is set when Kind is ResultInteraction; the caller stores
	// it in the single pending-interaction slot.
	Interaction *Interaction
}

// Options configures a Waiter. Zero fields get sensible defaults.
type Options struct {
	Interval time.Duration // poll tick (default 1s)
	Quiet    time.Duration // quiet threshold gating weak signals (default 5s)
	Timeout  time.Duration // hard wall-clock deadline per turn (default 5m)

	// NowFunc and Sleep allow tests to control time.
	NowFunc func() time.Time
	Sleep   func(time.Duration)
}

func (o Options) withDefaults() Options {
	out := o
	if out.Interval == 0 {
		out.Interval = time.Second
	}
	if out.Quiet == 0 {
		out.Quiet = 5 * time.Second
	}
	if out.Timeout == 0 {
		out.Timeout = 5 * time.Minute
	}
	if out.NowFunc == nil {
		out.NowFunc = time.Now
	}
	if out.Sleep == nil {
		out.Sleep = time.Sleep
	}
	return out
}

// Waiter is the per-turn polling state machine. It composes the shard
// locator, the boundary cascade, and the interaction extractor to produce,
// for one dispatched message, either a final response string or a pending
// interaction, subject to a hard deadline.
//
// Create one immediately before dispatch (the locator snapshot must predate
// the agent's first write for this turn) and call Wait exactly once.
type Waiter struct {
	locator  *session.Locator
	plansDir string
	opts     Options
}

// NewWaiter snapshots the shard directory and returns a waiter for one turn.
func NewWaiter(logDir, plansDir string, opts Options) *Waiter {
	return &Waiter{
		locator:  session.NewLocator(logDir),
		plansDir: plansDir,
		opts:     opts.withDefaults(),
	}
}

// Wait polls until the turn resolves. Between ticks no shared state is
// mutated; the tick is the sole suspension point. Context cancellation is
// treated like the deadline: best-effort text if a shard was located.
func (w *Waiter) Wait(ctx context.Context) Result {
	deadline := w.opts.NowFunc().Add(w.opts.Timeout)

	for {
		now := w.opts.NowFunc()
		expired := !now.Before(deadline) || ctx.Err() != nil

		if res, done := w.tick(now, expired); done {
			return res
		}
		w.opts.Sleep(w.opts.Interval)
	}
}

// tick runs one evaluation pass. Order within a tick is fixed:
//
//  1. authoritative boundary marker
//  2. pending-interaction detection (quiet-gated)
//  3. weak boundary marker (quiet-gated)
//  4. deadline
//
// The interaction check deliberately precedes the weak marker: a blocked
// agent also goes quiet, and surfacing the decision beats declaring the
// last stop entry a completion.
func (w *Waiter) tick(now time.Time, expired bool) (Result, bool) {
	shard := w.locator.Poll(now)
	if shard == nil {
		if expired {
			// A clean timeout with no attributable output.
			return Result{Kind: ResultTimeout, Tier: TierDeadline, Text: TimeoutPlaceholder}, true
		}
		return Result{}, false
	}

	entries, _ := session.ReadEntries(shard.Path, shard.Offset)
	ev := evalContext{
		entries:  entries,
		quietOK:  shard.Quiet(now) >= w.opts.Quiet,
		deadline: expired,
	}

	if tier, ok := evaluateBoundary(evalContext{entries: entries}); ok && tier == TierAuthoritative {
		return Result{Kind: ResultResponse, Tier: tier, Text: ExtractResponse(entries)}, true
	}

	if ev.quietOK {
		if in := ExtractInteraction(entries, w.plansDir); in != nil {
			return Result{Kind: ResultInteraction, Text: in.Render(), Interaction: in}, true
		}
	}

	if tier, ok := evaluateBoundary(ev); ok {
		kind := ResultResponse
		if tier == TierDeadline {
			kind = ResultTimeout
		}
		return Result{Kind: kind, Tier: tier, Text: ExtractResponse(entries)}, true
	}

	return Result{}, false
}
