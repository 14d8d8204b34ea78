package storage

import (
	"errors"
	"time"
)

// ErrNotFound signals that a channel id does not exist in the store.
// It is distinct from transport errors so callers can tell a deleted
// channel apart from an unreachable store.
var ErrNotFound = errors.New("channel not found")

// Config configures the store.
//
// Driver values:
//   - "sqlite" (or "sqlite3"): SQLite database file
//   - "file": channels JSON file + post-log jsonl next to it
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Channel is one mirroring target. It is read-only during a posting
// cycle; drivers re-read it from the store between cycles.
//
// Address is the raw destination reference ("@name", "t.me/name" or a
// numeric chat id); it is resolved into a canonical chat target once
// before the first publish.
//
// PostingInterval of 0 means "use the global default".
//
// Query carries source-query parameters passed through to the content
// API verbatim; the posting core never looks inside it.
type Channel struct {
	ID              int64
	Name            string
	Address         string
	Enabled         bool
	PostingInterval time.Duration
	Query           map[string]string
}

// PostLogEntry records one confirmed publish.
// Keep it compact and schema-stable.
type PostLogEntry struct {
	At        time.Time
	ChannelID int64
	ItemID    string
	Title     string
	URL       string
	TookMS    int64
}
