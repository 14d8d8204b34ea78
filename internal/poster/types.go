package poster

import (
	"context"
	"time"

	"github.com/ceo777/mirrornet-telegram-bot/internal/source"
	"github.com/ceo777/mirrornet-telegram-bot/internal/storage"
	"github.com/ceo777/mirrornet-telegram-bot/internal/transport"
)

// Fetcher pulls the current content listing for one channel.
// Implemented by source.Client.
type Fetcher interface {
	Fetch(ctx context.Context, ch storage.Channel) ([]source.Item, error)
}

// Publisher delivers one item to a resolved destination.
// Implemented by the telegram adapter.
type Publisher interface {
	Publish(ctx context.Context, to transport.ChatTarget, item source.Item) (transport.MessageRef, error)
}

// Resolver canonicalizes a channel's raw address once before first use.
type Resolver interface {
	ResolveChat(ctx context.Context, address string) (transport.ChatTarget, error)
}

// ChannelStore is the slice of the storage API the poster needs.
type ChannelStore interface {
	ListChannels(ctx context.Context) ([]storage.Channel, error)
	GetChannel(ctx context.Context, id int64) (storage.Channel, error)
	AppendPostLog(ctx context.Context, e storage.PostLogEntry) error
}

// Deps are the external collaborators. All of them must be safe for
// concurrent use across channels; the poster invokes each at most once
// at a time per channel.
type Deps struct {
	Store     ChannelStore
	Fetcher   Fetcher
	Publisher Publisher
	Resolver  Resolver
}

// Config controls the scheduler.
type Config struct {
	Enabled bool

	// UpdateCycle is how often each channel re-fetches its listing.
	UpdateCycle time.Duration

	// PostingInterval is the default pause between posts within one
	// channel; the store may override it per channel.
	PostingInterval time.Duration

	// StartStagger spaces out the channels' first fetches at startup.
	StartStagger time.Duration

	RetryMax   int
	RetryDelay time.Duration

	// HistoryClearSpec is a cron spec for the periodic history purge.
	HistoryClearSpec string
}

const (
	defaultUpdateCycle      = time.Hour
	defaultPostingInterval  = 5 * time.Minute
	defaultStartStagger     = time.Second
	defaultRetryMax         = 3
	defaultRetryDelay       = 5 * time.Second
	defaultHistoryClearSpec = "0 0 * * *"
)

func (c Config) withDefaults() Config {
	if c.UpdateCycle <= 0 {
		c.UpdateCycle = defaultUpdateCycle
	}
	if c.PostingInterval <= 0 {
		c.PostingInterval = defaultPostingInterval
	}
	if c.StartStagger <= 0 {
		c.StartStagger = defaultStartStagger
	}
	if c.RetryMax <= 0 {
		c.RetryMax = defaultRetryMax
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.HistoryClearSpec == "" {
		c.HistoryClearSpec = defaultHistoryClearSpec
	}
	return c
}

// policy is the per-cycle snapshot of the mutable knobs. Drivers take
// one at the top of each cycle so Apply() never races a cycle in flight.
type policy struct {
	updateCycle     time.Duration
	defaultInterval time.Duration
	retry           RetryPolicy
}

func (p policy) intervalFor(ch storage.Channel) time.Duration {
	if ch.PostingInterval > 0 {
		return ch.PostingInterval
	}
	return p.defaultInterval
}

// maxPerCycle bounds how many items one cycle may send: no more than
// would fit at one post per interval before the next fetch happens
// anyway. This keeps a channel recovering from an outage from
// burst-publishing its whole backlog.
func (p policy) maxPerCycle(ch storage.Channel) int {
	interval := p.intervalFor(ch)
	if interval <= 0 {
		return 0
	}
	return int(p.updateCycle / interval)
}

// CycleReport summarizes one publish cycle for a channel.
type CycleReport struct {
	ChannelID int64
	Total     int // items in the fetched listing
	New       int // left after dropping removed + already-published
	Sent      int
	Failed    int // candidates whose publish retries were exhausted
}
