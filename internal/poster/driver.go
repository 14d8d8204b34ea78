package poster

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ceo777/mirrornet-telegram-bot/internal/source"
	"github.com/ceo777/mirrornet-telegram-bot/internal/storage"
	"github.com/ceo777/mirrornet-telegram-bot/internal/transport"
	logx "github.com/ceo777/mirrornet-telegram-bot/pkg/logx"
)

// ChannelState is the driver's position in its posting cycle.
type ChannelState int32

const (
	StateIdle ChannelState = iota
	StateFetching
	StatePublishing
	StateCooldown
	StateFetchRetrying
	StateStopped
)

func (s ChannelState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StatePublishing:
		return "publishing"
	case StateCooldown:
		return "cooldown"
	case StateFetchRetrying:
		return "fetch-retrying"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// driver owns one channel's posting loop. Nothing outside the driver
// touches its channel record or destination after start; the service
// only reads the state atomic for snapshots.
type driver struct {
	svc *Service
	log logx.Logger

	// id and name are fixed at start; the rest of the record may change
	// on a cooldown refresh and belongs to the loop goroutine only.
	id   int64
	name string

	ch         storage.Channel // last-known-good config
	dest       transport.ChatTarget
	resolved   bool
	startDelay time.Duration

	state atomic.Int32
}

func newDriver(svc *Service, ch storage.Channel, startDelay time.Duration) *driver {
	return &driver{
		svc:        svc,
		log:        svc.log.With(logx.Int64("channel_id", ch.ID), logx.String("channel", ch.Name)),
		id:         ch.ID,
		name:       ch.Name,
		ch:         ch,
		startDelay: startDelay,
	}
}

func (d *driver) State() ChannelState { return ChannelState(d.state.Load()) }

func (d *driver) setState(s ChannelState) { d.state.Store(int32(s)) }

// run is the per-channel control loop: fetch, publish, cooldown,
// refresh, repeat. It only returns when the channel stops (removed or
// disabled) or the context is canceled. Failures inside a cycle never
// escape; they turn into a scheduling decision.
func (d *driver) run(ctx context.Context) error {
	defer d.setState(StateStopped)

	if d.startDelay > 0 {
		if !waitCtx(ctx, d.startDelay) {
			return nil
		}
	}

	for {
		pol := d.svc.policy()

		if !d.resolved {
			if ok, stop := d.resolveDest(ctx, pol); stop {
				return nil
			} else if !ok {
				continue
			}
		}

		d.setState(StateFetching)
		var items []source.Item
		err := pol.retry.Do(ctx, func(ctx context.Context) error {
			var ferr error
			items, ferr = d.svc.deps.Fetcher.Fetch(ctx, d.ch)
			return ferr
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Operation-level retries are spent; degrade to one attempt
			// per posting interval until the source recovers.
			backoff := pol.intervalFor(d.ch)
			d.log.Warn("fetch failed; channel stalled",
				logx.Err(err), logx.Duration("next_attempt_in", backoff))
			d.setState(StateFetchRetrying)
			if !waitCtx(ctx, backoff) {
				return nil
			}
			if !d.refresh(ctx) {
				return nil
			}
			continue
		}

		d.setState(StatePublishing)
		rep, perr := d.svc.publishBatch(ctx, pol, d.ch, d.dest, items)
		switch {
		case perr == nil:
			d.log.Info("cycle complete",
				logx.Int("sent", rep.Sent),
				logx.Int("new", rep.New),
				logx.Int("failed", rep.Failed),
				logx.Int("listed", rep.Total))
		case errors.Is(perr, ErrNoNewContent):
			d.log.Debug("nothing to publish", logx.Int("listed", rep.Total))
		case errors.Is(perr, ErrAllPublishesFailed):
			d.log.Warn("every publish in cycle failed", logx.Int("new", rep.New))
		default:
			if ctx.Err() != nil {
				return nil
			}
			d.log.Warn("cycle aborted", logx.Err(perr))
		}

		d.setState(StateCooldown)
		if !waitCtx(ctx, pol.updateCycle) {
			return nil
		}
		if !d.refresh(ctx) {
			return nil
		}
	}
}

// resolveDest canonicalizes the channel address before first use.
// Returns (ok, stop): ok means the loop may proceed to fetch; stop
// means the channel should terminate.
func (d *driver) resolveDest(ctx context.Context, pol policy) (ok, stop bool) {
	err := pol.retry.Do(ctx, func(ctx context.Context) error {
		dest, rerr := d.svc.deps.Resolver.ResolveChat(ctx, d.ch.Address)
		if rerr == nil {
			d.dest = dest
		}
		return rerr
	})
	if err == nil {
		d.resolved = true
		return true, false
	}
	if ctx.Err() != nil {
		return false, true
	}

	backoff := pol.intervalFor(d.ch)
	d.log.Warn("address resolve failed; channel stalled",
		logx.String("address", d.ch.Address),
		logx.Err(err), logx.Duration("next_attempt_in", backoff))
	d.setState(StateFetchRetrying)
	if !waitCtx(ctx, backoff) {
		return false, true
	}
	if !d.refresh(ctx) {
		return false, true
	}
	return false, false
}

// refresh re-reads the channel record so disables, deletions and
// interval changes take effect without a restart. Returns false when
// the channel should stop. An unreachable store keeps the last-known-
// good config; "channel deleted" and "store down" are different things.
func (d *driver) refresh(ctx context.Context) bool {
	fresh, err := d.svc.deps.Store.GetChannel(ctx, d.ch.ID)
	if errors.Is(err, storage.ErrNotFound) {
		d.log.Info("channel removed from store; stopping")
		return false
	}
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		d.log.Warn("channel refresh failed; keeping last known config", logx.Err(err))
		return true
	}
	if !fresh.Enabled {
		d.log.Info("channel disabled; stopping")
		return false
	}

	if fresh.Address != d.ch.Address {
		// Re-resolve lazily at the top of the next cycle.
		d.resolved = false
	}
	d.ch = fresh
	return true
}

// waitCtx sleeps for d unless the context ends first.
func waitCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	tmr := time.NewTimer(d)
	select {
	case <-ctx.Done():
		if !tmr.Stop() {
			<-tmr.C
		}
		return false
	case <-tmr.C:
		return true
	}
}
