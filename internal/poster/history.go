package poster

import (
	"sync"
	"time"
)

// History tracks which items have already been published per channel.
//
// Each channel owns an independently locked container, so one channel's
// publish path never contends with another's. The periodic clear and
// that channel's inserts serialize on the same per-channel lock; a lost
// insert racing a clear costs at most one duplicate repost, which is
// acceptable, while a torn map is not.
type History struct {
	mu       sync.RWMutex
	channels map[int64]*channelHistory
}

type channelHistory struct {
	mu    sync.Mutex
	items map[string]time.Time // item id -> source creation time
}

func NewHistory() *History {
	return &History{channels: map[int64]*channelHistory{}}
}

func (h *History) forChannel(channelID int64) *channelHistory {
	h.mu.RLock()
	ch := h.channels[channelID]
	h.mu.RUnlock()
	if ch != nil {
		return ch
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if ch = h.channels[channelID]; ch == nil {
		ch = &channelHistory{items: map[string]time.Time{}}
		h.channels[channelID] = ch
	}
	return ch
}

func (h *History) HasPublished(channelID int64, itemID string) bool {
	ch := h.forChannel(channelID)
	ch.mu.Lock()
	_, ok := ch.items[itemID]
	ch.mu.Unlock()
	return ok
}

func (h *History) RecordPublished(channelID int64, itemID string, createdAt time.Time) {
	ch := h.forChannel(channelID)
	ch.mu.Lock()
	ch.items[itemID] = createdAt
	ch.mu.Unlock()
}

// Clear drops all entries for one channel.
func (h *History) Clear(channelID int64) {
	h.mu.RLock()
	ch := h.channels[channelID]
	h.mu.RUnlock()
	if ch == nil {
		return
	}
	ch.mu.Lock()
	ch.items = map[string]time.Time{}
	ch.mu.Unlock()
}

// ClearAll drops every channel's entries and reports how many were removed.
func (h *History) ClearAll() int {
	h.mu.RLock()
	chans := make([]*channelHistory, 0, len(h.channels))
	for _, ch := range h.channels {
		chans = append(chans, ch)
	}
	h.mu.RUnlock()

	removed := 0
	for _, ch := range chans {
		ch.mu.Lock()
		removed += len(ch.items)
		ch.items = map[string]time.Time{}
		ch.mu.Unlock()
	}
	return removed
}

// Len reports the entry count for one channel.
func (h *History) Len(channelID int64) int {
	h.mu.RLock()
	ch := h.channels[channelID]
	h.mu.RUnlock()
	if ch == nil {
		return 0
	}
	ch.mu.Lock()
	n := len(ch.items)
	ch.mu.Unlock()
	return n
}
