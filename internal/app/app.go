// Package app wires the bot's services together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/ceo777/mirrornet-telegram-bot/internal/config"
	"github.com/ceo777/mirrornet-telegram-bot/internal/poster"
	"github.com/ceo777/mirrornet-telegram-bot/internal/runtime/supervisor"
	"github.com/ceo777/mirrornet-telegram-bot/internal/source"
	"github.com/ceo777/mirrornet-telegram-bot/internal/storage"
	"github.com/ceo777/mirrornet-telegram-bot/internal/transport/telegram"
	logx "github.com/ceo777/mirrornet-telegram-bot/pkg/logx"
)

type App struct {
	log    logx.Logger
	logSvc *logx.Service

	cfgMgr *config.Manager
	store  storage.Store
	poster *poster.Service
	sup    *supervisor.Supervisor
}

func New(cfgPath string) (*App, error) {
	mgr := config.NewManager(cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	logSvc, log := logx.New(logxConfigFrom(cfg))
	mgr.SetLogger(log.With(logx.String("svc", "config")))

	store, err := storage.Open(storageConfigFrom(cfg), log.With(logx.String("svc", "storage")))
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	adapter, err := telegram.New(telegram.Config{
		Token:      cfg.Telegram.Token,
		RatePerSec: cfg.Telegram.RatePerSec,
	}, log.With(logx.String("svc", "telegram")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	fetcher, err := source.NewClient(sourceConfigFrom(cfg), log.With(logx.String("svc", "source")))
	if err != nil {
		_ = store.Close()
		_ = logSvc.Close()
		return nil, fmt.Errorf("source: %w", err)
	}

	p := poster.New(posterConfigFrom(cfg), poster.Deps{
		Store:     store,
		Fetcher:   fetcher,
		Publisher: adapter,
		Resolver:  adapter,
	}, log.With(logx.String("svc", "poster")))

	a := &App{
		log:    log,
		logSvc: logSvc,
		cfgMgr: mgr,
		store:  store,
		poster: p,
	}

	mgr.OnChange(func(c *config.Config) {
		logSvc.Apply(logxConfigFrom(c))
		p.Apply(posterConfigFrom(c))
	})

	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	a.sup.GoRestart("config.watch", a.cfgMgr.Watch)

	if err := a.poster.Start(a.sup.Context()); err != nil {
		a.sup.Cancel()
		return err
	}

	a.startWatchdog()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started")
	return nil
}

// startWatchdog feeds the systemd watchdog when one is configured.
func (a *App) startWatchdog() {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	a.sup.Go0("systemd.watchdog", func(ctx context.Context) {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	})
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	var firstErr error
	if err := a.poster.Stop(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := a.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	a.log.Info("stopped")
	_ = a.logSvc.Close()
	return firstErr
}

// ---- config section conversions ----

func logxConfigFrom(c *config.Config) logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

func storageConfigFrom(c *config.Config) storage.Config {
	busy, _ := config.ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	return storage.Config{
		Driver:      c.Storage.Driver,
		Path:        c.Storage.Path,
		BusyTimeout: busy,
	}
}

func sourceConfigFrom(c *config.Config) source.Config {
	timeout, _ := config.ParseDurationField("source.timeout", c.Source.Timeout)
	return source.Config{
		BaseURL:   c.Source.BaseURL,
		UserAgent: c.Source.UserAgent,
		Timeout:   timeout,
		PageLimit: c.Source.PageLimit,
	}
}

// posterConfigFrom converts the file section; duration fields were
// already validated at parse time, so errors here only fall back to
// the poster defaults.
func posterConfigFrom(c *config.Config) poster.Config {
	cycle, _ := config.ParseDurationField("poster.update_cycle", c.Poster.UpdateCycle)
	interval, _ := config.ParseDurationField("poster.posting_interval", c.Poster.PostingInterval)
	stagger, _ := config.ParseDurationField("poster.start_stagger", c.Poster.StartStagger)
	delay, _ := config.ParseDurationField("poster.retry_delay", c.Poster.RetryDelay)
	return poster.Config{
		Enabled:          c.Poster.Enabled,
		UpdateCycle:      cycle,
		PostingInterval:  interval,
		StartStagger:     stagger,
		RetryMax:         c.Poster.RetryMax,
		RetryDelay:       delay,
		HistoryClearSpec: c.Poster.HistoryClear,
	}
}
