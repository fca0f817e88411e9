package turn

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tether/pkg/session"
)

// Tool names the agent uses when it blocks on a structured decision.
const (
	ToolAskQuestion  = "AskUserQuestion"
	ToolPlanApproval = "ExitPlanMode"
)

// Kind discriminates pending-interaction variants.
type Kind string

// Interaction kinds.
const (
	KindQuestion Kind = "question"
	KindPlan     Kind = "plan"
)

// Option is one selectable answer to a question.
type Option struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Question is one multiple-choice question the agent is blocked on.
type Question struct {
	Prompt  string   `json:"question"`
	Header  string   `json:"header,omitempty"`
	Options []Option `json:"options"`
}

// Interaction is a captured, not-yet-answered structured decision. It is
// held as single-slot state owned by the coordinator and consumed exactly
// once by the next dispatched human reply.
type Interaction struct {
	Kind      Kind
	ToolUseID string

	// Question variant.
	Questions []Question
	// Preamble is free text co-located in the same assistant entry.
	Preamble string

	// Plan variant. Plan is the side-channel document text; PlanMissing is
	// set when no readable document exists (tolerated, not fatal).
	Plan        string
	PlanMissing bool
	Slug        string
}

// questionInput is the JSON shape of an AskUserQuestion invocation.
type questionInput struct {
	Questions []Question `json:"questions"`
}

// ExtractInteraction determines whether the agent is blocked on a structured
// decision rather than finished or still working. It scans new entries
// backward for the most recent assistant entry; only an entry invoking a
// blocking capability is a candidate, and a later tool_result answering that
// exact invocation withdraws it (already resolved, never re-surfaced).
//
// Callers gate this on the quiet threshold, same as the weak boundary tier,
// to avoid interpreting an invocation the agent is still elaborating.
func ExtractInteraction(entries []session.Entry, plansDir string) *Interaction {
	idx := -1
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Type == session.RoleAssistant {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	var blocking *session.Block
	for _, b := range entries[idx].ToolUses() {
		if b.Name == ToolAskQuestion || b.Name == ToolPlanApproval {
			use := b
			blocking = &use
			break
		}
	}
	if blocking == nil {
		// A text-only entry or an ordinary tool call means the agent is
		// still working or done, not blocked.
		return nil
	}

	for _, later := range entries[idx+1:] {
		if later.Type == session.RoleUser && later.HasToolResultFor(blocking.ID) {
			return nil
		}
	}

	switch blocking.Name {
	case ToolAskQuestion:
		return extractQuestions(entries[idx], blocking)
	default:
		return extractPlan(entries, blocking, plansDir)
	}
}

func extractQuestions(entry session.Entry, block *session.Block) *Interaction {
	var input questionInput
	if err := json.Unmarshal(block.Input, &input); err != nil || len(input.Questions) == 0 {
		return nil
	}
	return &Interaction{
		Kind:      KindQuestion,
		ToolUseID: block.ID,
		Questions: input.Questions,
		Preamble:  strings.Join(entry.TextBlocks(), "\n\n"),
	}
}

// extractPlan locates the side-channel plan document keyed by the session
// slug found in any new entry. Absence of a readable document is flagged,
// not fatal.
func extractPlan(entries []session.Entry, block *session.Block, plansDir string) *Interaction {
	in := &Interaction{Kind: KindPlan, ToolUseID: block.ID}

	for _, e := range entries {
		if e.Slug != "" {
			in.Slug = e.Slug
			break
		}
	}

	if in.Slug == "" {
		in.PlanMissing = true
		return in
	}
	data, err := os.ReadFile(filepath.Join(plansDir, in.Slug+".md")) //nolint:gosec // plansDir is configured, slug comes from the agent's own log
	if err != nil {
		in.PlanMissing = true
		return in
	}
	in.Plan = strings.TrimSpace(string(data))
	if in.Plan == "" {
		in.PlanMissing = true
	}
	return in
}

// Render produces the human-readable prompt delivered to the chat channel:
// numbered options plus reply instructions. The rendered string is the
// turn's result when a decision is pending.
func (in *Interaction) Render() string {
	var b strings.Builder

	switch in.Kind {
	case KindQuestion:
		if in.Preamble != "" {
			b.WriteString(in.Preamble)
			b.WriteString("\n\n")
		}
		for qi, q := range in.Questions {
			if q.Header != "" {
				fmt.Fprintf(&b, "[%s] ", q.Header)
			}
			b.WriteString(q.Prompt)
			b.WriteString("\n")
			for oi, opt := range q.Options {
				fmt.Fprintf(&b, "  %d. %s", oi+1, opt.Label)
				if opt.Description != "" {
					fmt.Fprintf(&b, " — %s", opt.Description)
				}
				b.WriteString("\n")
			}
			if qi < len(in.Questions)-1 {
				b.WriteString("\n")
			}
		}
		b.WriteString("\nReply with a number to pick an option")
		if len(in.Questions) > 1 {
			b.WriteString(" (comma-separated for multiple questions, in order)")
		}
		b.WriteString(", or any other text as a custom answer.")
	case KindPlan:
		b.WriteString("The agent is asking for plan approval.")
		if in.Plan != "" {
			b.WriteString("\n\n")
			b.WriteString(in.Plan)
		} else if in.PlanMissing {
			b.WriteString("\n(plan document unavailable)")
		}
		b.WriteString("\n\nReply \"yes\" to approve, or anything else as feedback.")
	}
	return b.String()
}
