// Package turn infers turn completion for an interactive terminal agent
// that exposes no programmatic completion signal. The agent's output is only
// observable as appended JSONL records, so completion is decided from a
// ranked cascade of signals: an authoritative end-of-turn marker, a weak
// boundary marker gated on a quiet period, and a hard deadline as the last
// resort. The same quiet gate also guards detection of pending interactive
// decisions (multiple-choice questions, plan approvals).
package turn

import (
	"strings"

	"tether/pkg/session"
)

// System entry subtypes recognized as boundary markers.
const (
	// SubtypeTurnDuration is the authoritative end-of-turn marker. Its
	// presence anywhere in the new entries ends the turn immediately.
	SubtypeTurnDuration = "turn_duration"
)

// weakSubtypes are lower-confidence boundary markers, honored only after
// the quiet threshold. The authoritative marker is not always written.
var weakSubtypes = map[string]bool{
	"stop":    true,
	"summary": true,
}

// Boundary tier names, in fixed priority order.
const (
	TierAuthoritative = "authoritative"
	TierQuietStop     = "quiet-stop"
	TierDeadline      = "deadline"
)

// Placeholder responses for turns that end without usable text. Distinct
// strings so operators can tell "agent acted but said nothing" from "no
// signal ever arrived".
const (
	NoResponsePlaceholder = "(the agent finished without producing a textual response)"
	TimeoutPlaceholder    = "(timed out waiting for the agent to respond)"
)

// evalContext is the per-tick input to the boundary cascade.
type evalContext struct {
	entries  []session.Entry
	quietOK  bool
	deadline bool
}

// signalTier pairs a tier name with its predicate. Tiers are evaluated in
// slice order every tick so an authoritative marker always wins over a
// heuristic one, even when both become true in the same tick.
type signalTier struct {
	name  string
	fires func(evalContext) bool
}

var boundaryTiers = []signalTier{
	{TierAuthoritative, func(ev evalContext) bool {
		for _, e := range ev.entries {
			if e.Type == session.RoleSystem && e.Subtype == SubtypeTurnDuration {
				return true
			}
		}
		return false
	}},
	{TierQuietStop, func(ev evalContext) bool {
		if !ev.quietOK || len(ev.entries) == 0 {
			return false
		}
		last := ev.entries[len(ev.entries)-1]
		return last.Type == session.RoleSystem && weakSubtypes[last.Subtype]
	}},
	{TierDeadline, func(ev evalContext) bool {
		return ev.deadline
	}},
}

// evaluateBoundary runs the cascade and returns the first tier that fires.
func evaluateBoundary(ev evalContext) (string, bool) {
	for _, tier := range boundaryTiers {
		if tier.fires(ev) {
			return tier.name, true
		}
	}
	return "", false
}

// ExtractResponse scans new entries backward for the most recent assistant
// entry carrying non-empty text blocks and joins them with a blank line.
// Returns NoResponsePlaceholder when the agent never spoke.
func ExtractResponse(entries []session.Entry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Type != session.RoleAssistant {
			continue
		}
		if blocks := entries[i].TextBlocks(); len(blocks) > 0 {
			return strings.Join(blocks, "\n\n")
		}
	}
	return NoResponsePlaceholder
}
