package poster

import (
	"context"
	"errors"
	"sync"

	"github.com/ceo777/mirrornet-telegram-bot/internal/source"
	"github.com/ceo777/mirrornet-telegram-bot/internal/storage"
	"github.com/ceo777/mirrornet-telegram-bot/internal/transport"
)

type fakeStore struct {
	mu       sync.Mutex
	channels map[int64]storage.Channel
	getErr   error
	postLog  []storage.PostLogEntry
}

func newFakeStore(chans ...storage.Channel) *fakeStore {
	s := &fakeStore{channels: map[int64]storage.Channel{}}
	for _, ch := range chans {
		s.channels[ch.ID] = ch
	}
	return s
}

func (s *fakeStore) ListChannels(ctx context.Context) ([]storage.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		out = append(out, ch)
	}
	return out, nil
}

func (s *fakeStore) GetChannel(ctx context.Context, id int64) (storage.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return storage.Channel{}, s.getErr
	}
	ch, ok := s.channels[id]
	if !ok {
		return storage.Channel{}, storage.ErrNotFound
	}
	return ch, nil
}

func (s *fakeStore) AppendPostLog(ctx context.Context, e storage.PostLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postLog = append(s.postLog, e)
	return nil
}

func (s *fakeStore) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, id)
}

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, ch storage.Channel) ([]source.Item, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, ch storage.Channel) ([]source.Item, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(call, ch)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	mu       sync.Mutex
	sent     []source.Item
	attempts map[string]int
	failAll  bool
	failIDs  map[string]bool
}

func (p *fakePublisher) Publish(ctx context.Context, to transport.ChatTarget, item source.Item) (transport.MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attempts == nil {
		p.attempts = map[string]int{}
	}
	p.attempts[item.ID]++
	if p.failAll || p.failIDs[item.ID] {
		return transport.MessageRef{}, &transport.PublishError{Message: "flood"}
	}
	p.sent = append(p.sent, item)
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(p.sent)}, nil
}

func (p *fakePublisher) sentIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.sent))
	for _, it := range p.sent {
		out = append(out, it.ID)
	}
	return out
}

func (p *fakePublisher) attemptsFor(id string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[id]
}

type fakeResolver struct {
	err error
}

func (r *fakeResolver) ResolveChat(ctx context.Context, address string) (transport.ChatTarget, error) {
	if r.err != nil {
		return transport.ChatTarget{}, r.err
	}
	return transport.ChatTarget{ChatID: -100_000}, nil
}

var errStoreDown = errors.New("store unreachable")
