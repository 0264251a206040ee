package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// JournalSchema is the append-only event table in journal.db. There are no
// UPDATE or DELETE paths; history reconstruction reads this table in ID
// order.
const JournalSchema = `
CREATE TABLE IF NOT EXISTS events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT UNIQUE NOT NULL,
    type TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    payload TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
`

// InitJournalSchema ensures the events table exists in journal.db
func InitJournalSchema(db *sql.DB) error {
	_, err := db.Exec(JournalSchema)
	return err
}

// JournalEntry is an event row read back from the journal.
type JournalEntry struct {
	Seq       int64           `json:"seq"`
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Journal persists events to the ledger-profile database.
type Journal struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewJournal creates a new event journal.
func NewJournal(db *sql.DB, log zerolog.Logger) *Journal {
	return &Journal{
		db:  db,
		log: log.With().Str("repository", "journal").Logger(),
	}
}

// Append writes one event. Implements Sink.
func (j *Journal) Append(ev Event) error {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	_, err = j.db.Exec(`INSERT INTO events (id, type, timestamp, payload) VALUES (?, ?, ?, ?)`,
		ev.ID, string(ev.Type), ev.Timestamp.Format(time.RFC3339Nano), string(payload))
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// Recent returns the latest events, newest first, capped at limit.
func (j *Journal) Recent(limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := j.db.Query(`SELECT seq, id, type, timestamp, payload
		FROM events ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var (
			e       JournalEntry
			typ     string
			ts      string
			payload string
		)
		if err := rows.Scan(&e.Seq, &e.ID, &typ, &ts, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("corrupt event timestamp %q: %w", ts, err)
		}
		e.Type = EventType(typ)
		e.Timestamp = parsed
		e.Payload = json.RawMessage(payload)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return entries, nil
}
