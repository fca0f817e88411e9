// Package session reads the agent's append-only JSONL session logs. Each
// file ("shard") holds one agent session; the agent appends one structured
// record per line while it works. tether only ever reads these files and
// tolerates shards appearing, growing, or rotating at any time.
package session

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

// Entry roles. The discriminant tags what a log line represents.
const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
	RoleSystem    = "system"
)

// Content block types inside an assistant or user entry.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Entry is one decoded log line.
type Entry struct {
	Type      string        `json:"type"`
	Subtype   string        `json:"subtype,omitempty"`
	SessionID string        `json:"sessionId,omitempty"`
	Slug      string        `json:"slug,omitempty"`
	Message   *EntryMessage `json:"message,omitempty"`
}

// EntryMessage carries the content blocks of an assistant or user entry.
type EntryMessage struct {
	Role    string  `json:"role,omitempty"`
	Content []Block `json:"content"`
}

// Block is one content block: free text, a tool invocation, or a tool result.
type Block struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
}

// rawMessage mirrors EntryMessage but leaves content undecoded, because the
// agent writes plain-string content for simple user messages and a block
// array everywhere else.
type rawMessage struct {
	Role    string          `json:"role,omitempty"`
	Content json.RawMessage `json:"content"`
}

// UnmarshalJSON accepts both content encodings: a block array, or a bare
// string which becomes a single text block.
func (m *EntryMessage) UnmarshalJSON(data []byte) error {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Content = nil

	if len(raw.Content) == 0 {
		return nil
	}
	var blocks []Block
	if err := json.Unmarshal(raw.Content, &blocks); err == nil {
		m.Content = blocks
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Content, &s); err == nil {
		m.Content = []Block{{Type: BlockText, Text: s}}
		return nil
	}
	// Unknown content shape: keep the entry, drop the content.
	return nil
}

// CountLines returns the number of newline-delimited lines in the file at
// path. A missing or unreadable file counts as zero lines ("no signal yet").
func CountLines(path string) int {
	f, err := os.Open(path) //nolint:gosec // shard paths come from the configured log dir
	if err != nil {
		return 0
	}
	defer func() { _ = f.Close() }()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		n++
	}
	return n
}

// ListShards returns the paths of all JSONL shards in dir, sorted by name.
// A missing directory yields an empty list.
func ListShards(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".jsonl" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths
}

// Snapshot records every shard's line count at one instant. Taken
// immediately before dispatch so post-dispatch growth is attributable to
// the dispatched turn.
func Snapshot(dir string) map[string]int {
	counts := make(map[string]int)
	for _, p := range ListShards(dir) {
		counts[p] = CountLines(p)
	}
	return counts
}

// ReadEntries decodes shard lines starting at the zero-based line offset.
// It returns the decoded entries and the total line count of the file.
// Malformed lines are skipped, never fatal; lines before offset belong to
// prior turns and are never re-read.
func ReadEntries(path string, offset int) ([]Entry, int) {
	f, err := os.Open(path) //nolint:gosec // shard paths come from the configured log dir
	if err != nil {
		return nil, 0
	}
	defer func() { _ = f.Close() }()

	var entries []Entry
	total := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		total++
		if total <= offset {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		if e.Type == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, total
}

// TextBlocks returns the non-empty text blocks of an entry, in order.
func (e Entry) TextBlocks() []string {
	if e.Message == nil {
		return nil
	}
	var out []string
	for _, b := range e.Message.Content {
		if b.Type == BlockText && b.Text != "" {
			out = append(out, b.Text)
		}
	}
	return out
}

// ToolUses returns the tool invocation blocks of an entry, in order.
func (e Entry) ToolUses() []Block {
	if e.Message == nil {
		return nil
	}
	var out []Block
	for _, b := range e.Message.Content {
		if b.Type == BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

// HasToolResultFor reports whether the entry carries a tool_result block
// answering the given tool invocation id.
func (e Entry) HasToolResultFor(toolUseID string) bool {
	if e.Message == nil {
		return false
	}
	for _, b := range e.Message.Content {
		if b.Type == BlockToolResult && b.ToolUseID == toolUseID {
			return true
		}
	}
	return false
}
