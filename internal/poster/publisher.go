package poster

import (
	"context"
	"time"

	"github.com/ceo777/mirrornet-telegram-bot/internal/source"
	"github.com/ceo777/mirrornet-telegram-bot/internal/storage"
	"github.com/ceo777/mirrornet-telegram-bot/internal/transport"
	logx "github.com/ceo777/mirrornet-telegram-bot/pkg/logx"
)

// publishBatch runs one throttled publish pass for a channel.
//
// Items are considered in listing order. Removed and already-published
// items are dropped; the rest go out one at a time through the retry
// policy, paced by the channel's posting interval, capped at
// maxPerCycle. Unsent candidates roll forward to the next cycle, where
// the history filter picks up whatever did get sent.
func (s *Service) publishBatch(ctx context.Context, pol policy, ch storage.Channel, dest transport.ChatTarget, items []source.Item) (CycleReport, error) {
	rep := CycleReport{ChannelID: ch.ID, Total: len(items)}
	log := s.log.With(logx.Int64("channel_id", ch.ID), logx.String("channel", ch.Name))

	maxPerCycle := pol.maxPerCycle(ch)
	if maxPerCycle < 1 {
		// Interval longer than the whole update cycle: the channel is
		// effectively paused by configuration.
		log.Warn("posting interval exceeds update cycle; skipping cycle",
			logx.Duration("interval", pol.intervalFor(ch)),
			logx.Duration("update_cycle", pol.updateCycle))
		return rep, ErrNoNewContent
	}

	candidates := make([]source.Item, 0, len(items))
	for _, it := range items {
		if it.Removed {
			continue
		}
		if s.history.HasPublished(ch.ID, it.ID) {
			continue
		}
		candidates = append(candidates, it)
	}
	rep.New = len(candidates)
	if rep.New == 0 {
		return rep, ErrNoNewContent
	}

	interval := pol.intervalFor(ch)
	for i, it := range candidates {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		start := time.Now()
		err := pol.retry.Do(ctx, func(ctx context.Context) error {
			_, perr := s.deps.Publisher.Publish(ctx, dest, it)
			return perr
		})
		if err != nil {
			if ctx.Err() != nil {
				return rep, ctx.Err()
			}
			// One item's permanent failure does not abort the batch.
			rep.Failed++
			log.Warn("item publish failed",
				logx.String("item_id", it.ID),
				logx.String("title", it.Title),
				logx.Err(err))
			continue
		}

		s.history.RecordPublished(ch.ID, it.ID, it.CreatedAt)
		rep.Sent++
		s.appendPostLog(ctx, ch, it, time.Since(start))

		if rep.Sent >= maxPerCycle {
			if i < len(candidates)-1 {
				log.Debug("per-cycle cap reached; deferring remainder",
					logx.Int("sent", rep.Sent),
					logx.Int("deferred", len(candidates)-1-i))
			}
			break
		}
		if i == len(candidates)-1 {
			break
		}

		// Pace the stream: one post per interval within a channel.
		tmr := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			if !tmr.Stop() {
				<-tmr.C
			}
			return rep, ctx.Err()
		case <-tmr.C:
		}
	}

	if rep.Sent == 0 {
		return rep, ErrAllPublishesFailed
	}
	return rep, nil
}

func (s *Service) appendPostLog(ctx context.Context, ch storage.Channel, it source.Item, took time.Duration) {
	err := s.deps.Store.AppendPostLog(ctx, storage.PostLogEntry{
		At:        time.Now(),
		ChannelID: ch.ID,
		ItemID:    it.ID,
		Title:     it.Title,
		URL:       it.URL,
		TookMS:    took.Milliseconds(),
	})
	if err != nil {
		// Post-log is best-effort bookkeeping; the publish already happened.
		s.log.Warn("post log append failed", logx.Int64("channel_id", ch.ID), logx.Err(err))
	}
}
