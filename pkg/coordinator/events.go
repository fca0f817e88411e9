package coordinator

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// eventsDDL creates the coordinator event log schema. Idempotent.
const eventsDDL = `
CREATE TABLE IF NOT EXISTS events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	type       TEXT NOT NULL,
	channel    TEXT NOT NULL DEFAULT '',
	message_id TEXT NOT NULL DEFAULT '',
	payload    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
`

// EventLog records coordinator lifecycle events in SQLite. All writes are
// best-effort: an unavailable event log never blocks message processing.
type EventLog struct {
	db *sql.DB
}

// OpenEventLog opens (creating if needed) the event database at path with
// WAL journaling so readers (tether status, tether-dash) never block the
// coordinator.
func OpenEventLog(path string) (*EventLog, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open event log %s: %w", path, err)
	}
	if _, err := db.Exec(eventsDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event log schema: %w", err)
	}
	return &EventLog{db: db}, nil
}

// Record inserts one event. Safe on a nil receiver.
func (l *EventLog) Record(ctx context.Context, evType, channel, messageID, payload string) error {
	if l == nil {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO events (type, channel, message_id, payload) VALUES (?, ?, ?, ?)`,
		evType, channel, messageID, payload)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (l *EventLog) Close() error {
	if l == nil {
		return nil
	}
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	return nil
}
