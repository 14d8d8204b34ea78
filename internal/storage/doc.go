// Package storage is the channel configuration store.
//
// It holds the set of channels the bot mirrors into, plus an
// append-only log of confirmed publishes. Two drivers:
//   - "sqlite": SQLite database file (default)
//   - "file":   channels JSON file + post-log JSON Lines (dev/test)
package storage
