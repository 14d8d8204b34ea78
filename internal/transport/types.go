// Package transport holds the adapter-neutral types shared by message
// publishing backends. The bot only pushes content out; there is no
// inbound update surface.
package transport

import (
	"context"

	"github.com/ceo777/mirrornet-telegram-bot/internal/source"
)

// ChatTarget is a resolved destination chat reference.
// Resolution from a raw channel address happens once per channel.
type ChatTarget struct {
	ChatID   int64
	ThreadID int // forum topic thread id (0 if none)
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

// PublishError is the normalized shape of a failed delivery attempt.
// The posting core treats any PublishError as transient and retryable;
// adapters must not leak backend-specific error types past this boundary.
type PublishError struct {
	Message string
}

func (e *PublishError) Error() string { return "publish: " + e.Message }

// Publisher delivers one content item to a destination chat.
type Publisher interface {
	Publish(ctx context.Context, to ChatTarget, item source.Item) (MessageRef, error)
}

// ChatResolver turns a raw channel address ("@name", "t.me/name",
// "-1001234...") into a canonical ChatTarget.
type ChatResolver interface {
	ResolveChat(ctx context.Context, address string) (ChatTarget, error)
}
