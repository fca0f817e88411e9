package inject_test

import (
	"testing"

	"tether/pkg/inject"
	"tether/pkg/turn"
)

func twoOptionQuestion(prompt string) turn.Question {
	return turn.Question{
		Prompt: prompt,
		Options: []turn.Option{
			{Label: "Option A"},
			{Label: "Option B"},
		},
	}
}

// keysOf collapses a step sequence to its symbolic keys and literal text,
// dropping pauses, for compact assertions.
func keysOf(steps []inject.Step) []string {
	var out []string
	for _, s := range steps {
		switch {
		case s.Key != "":
			out = append(out, s.Key)
		case s.Text != "":
			out = append(out, "text:"+s.Text)
		}
	}
	return out
}

func assertSteps(t *testing.T, got []inject.Step, want []string) {
	t.Helper()
	keys := keysOf(got)
	if len(keys) != len(want) {
		t.Fatalf("steps = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("steps = %v, want %v", keys, want)
		}
	}
}

func TestEncodeQuestionReply_NumericSelections(t *testing.T) {
	t.Parallel()

	questions := []turn.Question{
		twoOptionQuestion("First?"),
		twoOptionQuestion("Second?"),
	}

	steps := inject.EncodeQuestionReply(questions, "2,1")
	assertSteps(t, steps, []string{
		"Down", "Down", "Enter", // question 1: option 2
		"Tab",
		"Down", "Enter", // question 2: option 1
		"Enter", // exactly one final submit
	})
}

func TestEncodeQuestionReply_OutOfRangeGoesFreeForm(t *testing.T) {
	t.Parallel()

	questions := []turn.Question{twoOptionQuestion("Pick one")}

	// "3" is out of range for two options: the free-form option is taken
	// and the literal token becomes the custom answer.
	steps := inject.EncodeQuestionReply(questions, "3")
	assertSteps(t, steps, []string{
		"Down", "Down", "Down", "Enter", "text:3",
		"Enter",
	})
}

func TestEncodeQuestionReply_CustomTextAnswer(t *testing.T) {
	t.Parallel()

	questions := []turn.Question{twoOptionQuestion("Pick one")}

	steps := inject.EncodeQuestionReply(questions, "use the staging cluster")
	assertSteps(t, steps, []string{
		"Down", "Down", "Down", "Enter", "text:use the staging cluster",
		"Enter",
	})
}

func TestEncodeQuestionReply_ReusesFirstTokenWhenShort(t *testing.T) {
	t.Parallel()

	questions := []turn.Question{
		twoOptionQuestion("First?"),
		twoOptionQuestion("Second?"),
		twoOptionQuestion("Third?"),
	}

	// One token for three questions: the first answer is reused.
	steps := inject.EncodeQuestionReply(questions, "1")
	assertSteps(t, steps, []string{
		"Down", "Enter",
		"Tab",
		"Down", "Enter",
		"Tab",
		"Down", "Enter",
		"Enter",
	})
}

func TestEncodePlanReply_AffirmativeAvoidsDefault(t *testing.T) {
	t.Parallel()

	for _, reply := range []string{"yes", "y", "YES", "approve", "Accept", "ok", "go", "LGTM", "yes!"} {
		steps := inject.EncodePlanReply(reply)
		// One Down then Enter: the default acceptance choice (which
		// discards the session context) is never taken.
		assertSteps(t, steps, []string{"Down", "Enter"})
	}
}

func TestEncodePlanReply_FeedbackPath(t *testing.T) {
	t.Parallel()

	steps := inject.EncodePlanReply("split step 2 into smaller pieces")
	assertSteps(t, steps, []string{
		"Down", "Down", "Enter",
		"text:split step 2 into smaller pieces",
		"Enter",
	})
}

func TestIsAffirmative(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reply string
		want  bool
	}{
		{"yes", true},
		{" y ", true},
		{"lgtm", true},
		{"ok.", true},
		{"yessir", false},
		{"no", false},
		{"looks wrong", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := inject.IsAffirmative(tt.reply); got != tt.want {
			t.Errorf("IsAffirmative(%q) = %v, want %v", tt.reply, got, tt.want)
		}
	}
}

func TestEncodeReply_DispatchesOnKind(t *testing.T) {
	t.Parallel()

	plan := &turn.Interaction{Kind: turn.KindPlan}
	assertSteps(t, inject.EncodeReply(plan, "yes"), []string{"Down", "Enter"})

	question := &turn.Interaction{
		Kind:      turn.KindQuestion,
		Questions: []turn.Question{twoOptionQuestion("Pick")},
	}
	assertSteps(t, inject.EncodeReply(question, "1"), []string{"Down", "Enter", "Enter"})
}
