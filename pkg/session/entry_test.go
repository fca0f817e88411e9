package session_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tether/pkg/session"
)

func writeShard(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write shard %s: %v", name, err)
	}
	return path
}

const (
	assistantTextLine = `{"type":"assistant","sessionId":"s1","message":{"role":"assistant","content":[{"type":"text","text":"All systems nominal."}]}}`
	toolUseLine       = `{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_1","name":"AskUserQuestion","input":{"questions":[]}}]}}`
	toolResultLine    = `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"answered"}]}}`
	systemDoneLine    = `{"type":"system","subtype":"turn_duration"}`
	stringContentLine = `{"type":"user","message":{"role":"user","content":"plain text message"}}`
)

func TestReadEntries_DecodesRolesAndBlocks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeShard(t, dir, "a.jsonl",
		assistantTextLine, toolUseLine, toolResultLine, systemDoneLine, stringContentLine)

	entries, total := session.ReadEntries(path, 0)
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(entries) != 5 {
		t.Fatalf("len(entries) = %d, want 5", len(entries))
	}

	if entries[0].Type != session.RoleAssistant {
		t.Errorf("entries[0].Type = %q", entries[0].Type)
	}
	if got := entries[0].TextBlocks(); len(got) != 1 || got[0] != "All systems nominal." {
		t.Errorf("TextBlocks = %v", got)
	}
	if uses := entries[1].ToolUses(); len(uses) != 1 || uses[0].Name != "AskUserQuestion" {
		t.Errorf("ToolUses = %v", entries[1].ToolUses())
	}
	if !entries[2].HasToolResultFor("toolu_1") {
		t.Error("HasToolResultFor(toolu_1) = false")
	}
	if entries[2].HasToolResultFor("toolu_2") {
		t.Error("HasToolResultFor(toolu_2) = true")
	}
	if entries[3].Subtype != "turn_duration" {
		t.Errorf("entries[3].Subtype = %q", entries[3].Subtype)
	}
	// String content collapses to a single text block.
	if got := entries[4].TextBlocks(); len(got) != 1 || got[0] != "plain text message" {
		t.Errorf("string-content TextBlocks = %v", got)
	}
}

func TestReadEntries_SkipsMalformedAndHonorsOffset(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeShard(t, dir, "a.jsonl",
		assistantTextLine,
		"{broken json",
		systemDoneLine)

	entries, total := session.ReadEntries(path, 1)
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	// Offset 1 skips the assistant line; the broken line is dropped.
	if len(entries) != 1 || entries[0].Type != session.RoleSystem {
		t.Errorf("entries = %+v, want single system entry", entries)
	}
}

func TestReadEntries_MissingFile(t *testing.T) {
	t.Parallel()

	entries, total := session.ReadEntries(filepath.Join(t.TempDir(), "gone.jsonl"), 0)
	if entries != nil || total != 0 {
		t.Errorf("ReadEntries on missing file = (%v, %d), want (nil, 0)", entries, total)
	}
}

func TestSnapshot_CountsOnlyJSONLShards(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeShard(t, dir, "a.jsonl", assistantTextLine, systemDoneLine)
	writeShard(t, dir, "notes.txt", "not a shard")

	snap := session.Snapshot(dir)
	if len(snap) != 1 {
		t.Fatalf("snapshot has %d shards, want 1", len(snap))
	}
	if snap[a] != 2 {
		t.Errorf("snapshot[a] = %d, want 2", snap[a])
	}
}

func TestSnapshot_MissingDir(t *testing.T) {
	t.Parallel()

	snap := session.Snapshot(filepath.Join(t.TempDir(), "nope"))
	if len(snap) != 0 {
		t.Errorf("snapshot of missing dir = %v, want empty", snap)
	}
}
