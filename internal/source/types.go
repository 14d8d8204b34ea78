// Package source implements the client for the mirrornet content API,
// the upstream the bot mirrors items from.
package source

import (
	"fmt"
	"time"
)

// Item is one content unit as reported by the source.
//
// ID is unique within the source. CreatedAt is source-reported and is
// kept as the history value for the item; it is not used for ordering.
// Removed items must never be published.
type Item struct {
	ID        string
	Title     string
	URL       string
	CreatedAt time.Time
	Removed   bool
}

// SourceError is the normalized shape of a failed fetch.
// Any non-success HTTP status maps to a SourceError; the posting core
// treats it as transient and retryable.
type SourceError struct {
	StatusCode int
	Message    string
}

func (e *SourceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("source: http %d", e.StatusCode)
	}
	return fmt.Sprintf("source: http %d: %s", e.StatusCode, e.Message)
}
