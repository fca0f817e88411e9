// Package inject translates resolved decisions into the discrete input
// events (symbolic keys, literal text, fixed pauses) that drive the agent's
// terminal interface, and delivers them to a tmux pane.
package inject

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"tether/pkg/turn"
)

// Symbolic key names, as understood by tmux send-keys.
const (
	KeyDown  = "Down"
	KeyTab   = "Tab"
	KeyEnter = "Enter"
)

// textEntryDelay separates a selection from subsequent literal text entry.
// The agent's TUI processes input asynchronously; injecting text in the
// same breath as the selection loses keystrokes.
const textEntryDelay = 500 * time.Millisecond

// Step is one discrete injection event. Exactly one field is set.
type Step struct {
	Key   string        // symbolic key
	Text  string        // literal text
	Pause time.Duration // fixed delay
}

func key(name string) Step       { return Step{Key: name} }
func text(s string) Step         { return Step{Text: s} }
func pause(d time.Duration) Step { return Step{Pause: d} }

func repeatKey(name string, n int) []Step {
	steps := make([]Step, 0, n)
	for i := 0; i < n; i++ {
		steps = append(steps, key(name))
	}
	return steps
}

// EncodeQuestionReply maps a free-text reply onto a question form. The reply
// is split on commas into one answer token per question, in order; when
// fewer tokens than questions are supplied the first token is reused — a
// documented degradation, not an error. A token that parses as an in-range
// option number selects that option; anything else takes the free-form
// option and injects the token as the custom answer. One final confirmation
// submits the whole form.
func EncodeQuestionReply(questions []turn.Question, reply string) []Step {
	tokens := splitAnswers(reply, len(questions))

	var steps []Step
	for qi, q := range questions {
		tok := tokens[qi]
		if n, err := strconv.Atoi(tok); err == nil && n >= 1 && n <= len(q.Options) {
			// Option n is n moves below the default cursor position.
			steps = append(steps, repeatKey(KeyDown, n)...)
			steps = append(steps, key(KeyEnter))
		} else {
			// The free-form option sits one move past the listed options.
			steps = append(steps, repeatKey(KeyDown, len(q.Options)+1)...)
			steps = append(steps, key(KeyEnter), pause(textEntryDelay), text(tok))
		}
		if qi < len(questions)-1 {
			steps = append(steps, key(KeyTab))
		}
	}
	return append(steps, key(KeyEnter))
}

// splitAnswers splits reply on commas into exactly n trimmed tokens,
// reusing the first token when too few are supplied.
func splitAnswers(reply string, n int) []string {
	parts := strings.Split(reply, ",")
	tokens := make([]string, 0, n)
	for _, p := range parts {
		tokens = append(tokens, strings.TrimSpace(p))
	}
	for len(tokens) < n {
		tokens = append(tokens, tokens[0])
	}
	return tokens[:n]
}

// affirmativePattern matches replies that approve a plan.
var affirmativePattern = regexp.MustCompile(`(?i)^\s*(yes|y|approve|accept|ok|go|lgtm)\s*[.!]*\s*$`)

// IsAffirmative reports whether reply approves a pending plan.
func IsAffirmative(reply string) bool {
	return affirmativePattern.MatchString(reply)
}

// EncodePlanReply resolves a plan-approval prompt. An affirmative reply
// takes the second choice, never the interface's default: the default
// acceptance also clears the agent's conversational context, which would
// discard the session the operator is talking to. Any other reply takes
// the feedback choice and injects the reply verbatim.
func EncodePlanReply(reply string) []Step {
	if IsAffirmative(reply) {
		return []Step{key(KeyDown), key(KeyEnter)}
	}
	steps := repeatKey(KeyDown, 2)
	steps = append(steps, key(KeyEnter), pause(textEntryDelay), text(reply), key(KeyEnter))
	return steps
}

// EncodeReply dispatches on the interaction kind.
func EncodeReply(in *turn.Interaction, reply string) []Step {
	if in.Kind == turn.KindPlan {
		return EncodePlanReply(reply)
	}
	return EncodeQuestionReply(in.Questions, reply)
}
