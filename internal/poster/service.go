package poster

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ceo777/mirrornet-telegram-bot/internal/runtime/supervisor"
	logx "github.com/ceo777/mirrornet-telegram-bot/pkg/logx"
)

// Service is the orchestrator: it reads the channel set once at start,
// launches one driver per enabled channel with a staggered first fetch,
// and runs the periodic history purge. After start it never touches a
// driver's internals; channels live and die independently.
type Service struct {
	mu  sync.Mutex
	cfg Config

	log  logx.Logger
	deps Deps

	history *History

	parser cron.Parser
	c      *cron.Cron
	sup    *supervisor.Supervisor

	drivers map[int64]*driver
	running bool
}

func New(cfg Config, deps Deps, log logx.Logger) *Service {
	return &Service{
		cfg:     cfg.withDefaults(),
		log:     log,
		deps:    deps,
		history: NewHistory(),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		drivers: map[int64]*driver{},
	}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply swaps the runtime knobs. Drivers pick the new values up at the
// top of their next cycle; the history purge schedule changes require
// a restart and are logged when they differ.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && cfg.HistoryClearSpec != s.cfg.HistoryClearSpec {
		s.log.Warn("history_clear change requires restart",
			logx.String("active", s.cfg.HistoryClearSpec),
			logx.String("requested", cfg.HistoryClearSpec))
		cfg.HistoryClearSpec = s.cfg.HistoryClearSpec
	}
	s.cfg = cfg
}

func (s *Service) policy() policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return policy{
		updateCycle:     s.cfg.UpdateCycle,
		defaultInterval: s.cfg.PostingInterval,
		retry:           RetryPolicy{MaxAttempts: s.cfg.RetryMax, Delay: s.cfg.RetryDelay},
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	cfg := s.cfg
	s.mu.Unlock()

	if !cfg.Enabled {
		s.log.Info("poster disabled")
		return nil
	}

	channels, err := s.deps.Store.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}

	sup := supervisor.New(ctx, supervisor.WithLogger(s.log))
	c := cron.New(cron.WithParser(s.parser))
	if _, err := c.AddFunc(cfg.HistoryClearSpec, s.clearHistories); err != nil {
		sup.Cancel()
		return fmt.Errorf("history_clear spec %q: %w", cfg.HistoryClearSpec, err)
	}

	s.mu.Lock()
	s.sup = sup
	s.c = c
	s.drivers = map[int64]*driver{}

	started := 0
	for _, ch := range channels {
		if !ch.Enabled {
			s.log.Debug("skipping disabled channel",
				logx.Int64("channel_id", ch.ID), logx.String("channel", ch.Name))
			continue
		}
		d := newDriver(s, ch, time.Duration(started)*cfg.StartStagger)
		s.drivers[ch.ID] = d
		sup.Go("channel."+ch.Name, d.run)
		started++
	}
	s.running = true
	s.mu.Unlock()

	c.Start()
	s.log.Info("poster started",
		logx.Int("channels", started),
		logx.Duration("update_cycle", cfg.UpdateCycle),
		logx.String("history_clear", cfg.HistoryClearSpec))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	c := s.c
	sup := s.sup
	s.c = nil
	s.sup = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	var err error
	if sup != nil {
		err = sup.Stop(ctx)
	}
	s.log.Info("poster stopped")
	return err
}

func (s *Service) clearHistories() {
	removed := s.history.ClearAll()
	s.log.Info("published-item history cleared", logx.Int("entries", removed))
}

// ChannelStatus is a point-in-time view of one driver, for status
// output and tests.
type ChannelStatus struct {
	ID      int64        `json:"id"`
	Name    string       `json:"name"`
	State   ChannelState `json:"-"`
	StateS  string       `json:"state"`
	History int          `json:"history"`
}

func (s *Service) Snapshot() []ChannelStatus {
	s.mu.Lock()
	drivers := make([]*driver, 0, len(s.drivers))
	for _, d := range s.drivers {
		drivers = append(drivers, d)
	}
	s.mu.Unlock()

	out := make([]ChannelStatus, 0, len(drivers))
	for _, d := range drivers {
		st := d.State()
		out = append(out, ChannelStatus{
			ID:      d.id,
			Name:    d.name,
			State:   st,
			StateS:  st.String(),
			History: s.history.Len(d.id),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
