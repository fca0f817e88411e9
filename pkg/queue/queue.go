// Package queue implements tether's on-disk message queue. Inbound chat
// messages land in inbox/ as JSON artifacts written by the platform adapter;
// the coordinator claims one by renaming it into processing/, and on success
// deletes it and writes a result artifact into outbox/ for the adapter to
// deliver.
//
// The rename is the concurrency-safety primitive: rename(2) is atomic on a
// single filesystem, so two coordinator instances can never both own a
// message, and a crash after claim leaves the artifact in processing/ where
// Restore puts it back for retry.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Message is one inbound chat message. Immutable once enqueued.
type Message struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	Sender     string    `json:"sender"`
	SenderID   string    `json:"sender_id,omitempty"`
	Body       string    `json:"body"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Result is the outbound artifact written when a turn resolves.
type Result struct {
	ID          string    `json:"id"`
	Channel     string    `json:"channel"`
	Sender      string    `json:"sender"`
	Response    string    `json:"response"`
	Original    string    `json:"original"`
	CompletedAt time.Time `json:"completed_at"`
}

// Queue manages the inbox/processing/outbox directories under root.
type Queue struct {
	root string

	// nowFunc allows tests to control time.
	nowFunc func() time.Time
}

// New creates a Queue rooted at dir. Call EnsureDirs before use.
func New(dir string) *Queue {
	return &Queue{root: dir, nowFunc: time.Now}
}

// Inbox returns the holding directory path.
func (q *Queue) Inbox() string { return filepath.Join(q.root, "inbox") }

// Processing returns the in-progress directory path.
func (q *Queue) Processing() string { return filepath.Join(q.root, "processing") }

// Outbox returns the outbound results directory path.
func (q *Queue) Outbox() string { return filepath.Join(q.root, "outbox") }

// EnsureDirs creates the three queue directories if missing.
func (q *Queue) EnsureDirs() error {
	for _, d := range []string{q.Inbox(), q.Processing(), q.Outbox()} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create queue dir %s: %w", d, err)
		}
	}
	return nil
}

// Enqueue writes msg into the inbox. An empty ID gets a fresh UUID and a
// zero EnqueuedAt gets the current time. Returns the stored message.
func (q *Queue) Enqueue(msg Message) (Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.EnqueuedAt.IsZero() {
		msg.EnqueuedAt = q.nowFunc()
	}

	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return Message{}, fmt.Errorf("marshal message %s: %w", msg.ID, err)
	}

	path := filepath.Join(q.Inbox(), msg.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // queue artifacts are not secret
		return Message{}, fmt.Errorf("write inbox artifact %s: %w", path, err)
	}
	return msg, nil
}

// List returns all inbox messages ordered oldest-first (FCFS, no priority).
// Unreadable or malformed artifacts are skipped, never fatal: the platform
// adapter may be mid-write.
func (q *Queue) List() ([]Message, error) {
	entries, err := os.ReadDir(q.Inbox())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list inbox: %w", err)
	}

	var msgs []Message
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(q.Inbox(), e.Name())) //nolint:gosec // inbox is trusted
		if err != nil {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.ID == "" {
			continue
		}
		msgs = append(msgs, msg)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].EnqueuedAt.Before(msgs[j].EnqueuedAt)
	})
	return msgs, nil
}

// Claim relocates the message artifact from inbox to processing, acquiring
// exclusive ownership. Losing the rename race (artifact already gone) is
// reported as an error so the caller skips the message.
func (q *Queue) Claim(id string) error {
	src := filepath.Join(q.Inbox(), id+".json")
	dst := filepath.Join(q.Processing(), id+".json")
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("claim message %s: %w", id, err)
	}
	return nil
}

// Restore relocates a claimed artifact back to the inbox so a future cycle
// retries it. Used when dispatch fails after a successful claim.
func (q *Queue) Restore(id string) error {
	src := filepath.Join(q.Processing(), id+".json")
	dst := filepath.Join(q.Inbox(), id+".json")
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("restore message %s: %w", id, err)
	}
	return nil
}

// Consume deletes the claimed artifact. Idempotent: a missing artifact is
// not an error.
func (q *Queue) Consume(id string) error {
	err := os.Remove(filepath.Join(q.Processing(), id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("consume message %s: %w", id, err)
	}
	return nil
}

// WriteResult persists an outbound artifact. When singleton is true the
// file is named after the channel so a recurring sender (e.g. a liveness
// check) overwrites its previous response; otherwise the name is unique
// per message.
func (q *Queue) WriteResult(res Result, singleton bool) (string, error) {
	if res.CompletedAt.IsZero() {
		res.CompletedAt = q.nowFunc()
	}

	name := "resp-" + res.ID + ".json"
	if singleton {
		name = "resp-" + res.Channel + ".json"
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result %s: %w", res.ID, err)
	}

	path := filepath.Join(q.Outbox(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // queue artifacts are not secret
		return "", fmt.Errorf("write outbox artifact %s: %w", path, err)
	}
	return path, nil
}
