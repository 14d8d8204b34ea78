// Package telegram adapts the message publisher contract to the
// Telegram Bot API via telebot.
package telegram

import (
	"context"
	"errors"
	"path"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/ceo777/mirrornet-telegram-bot/internal/source"
	"github.com/ceo777/mirrornet-telegram-bot/internal/transport"
	logx "github.com/ceo777/mirrornet-telegram-bot/pkg/logx"
)

type Config struct {
	Token      string
	RatePerSec int // global outgoing send budget across all channels
}

var (
	_ transport.Publisher    = (*Adapter)(nil)
	_ transport.ChatResolver = (*Adapter)(nil)
)

// Adapter publishes items to Telegram chats.
//
// All sends pass through one process-wide rate limiter: Telegram
// enforces a global flood limit regardless of how many channels the
// bot posts to, so pacing cannot live per channel only.
type Adapter struct {
	cfg Config
	log logx.Logger

	bot     *tele.Bot
	limiter *rate.Limiter

	// resolved usernames; getChat calls are not free.
	resMu    sync.Mutex
	resolved map[string]int64
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 20
	}
	return &Adapter{
		cfg:      cfg,
		log:      log,
		bot:      b,
		limiter:  rate.NewLimiter(rate.Limit(rps), rps),
		resolved: map[string]int64{},
	}, nil
}

// ResolveChat canonicalizes a raw channel address into a chat target.
//
// Accepted forms: a numeric chat id ("-1001234..."), a public username
// ("@channel" or "channel"), or a t.me link ("https://t.me/channel").
func (a *Adapter) ResolveChat(ctx context.Context, address string) (transport.ChatTarget, error) {
	name, id, err := parseAddress(address)
	if err != nil {
		return transport.ChatTarget{}, err
	}
	if id != 0 {
		return transport.ChatTarget{ChatID: id}, nil
	}

	a.resMu.Lock()
	cached, ok := a.resolved[name]
	a.resMu.Unlock()
	if ok {
		return transport.ChatTarget{ChatID: cached}, nil
	}

	chat, err := a.bot.ChatByUsername(name)
	if err != nil {
		return transport.ChatTarget{}, &transport.PublishError{Message: "resolve " + name + ": " + err.Error()}
	}

	a.resMu.Lock()
	a.resolved[name] = chat.ID
	a.resMu.Unlock()
	return transport.ChatTarget{ChatID: chat.ID}, nil
}

// Publish delivers one item. Items whose URL points at an image are
// sent as a photo with the title as caption; everything else goes out
// as a text post with the link.
func (a *Adapter) Publish(ctx context.Context, to transport.ChatTarget, item source.Item) (transport.MessageRef, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return transport.MessageRef{}, err
	}

	chat := &tele.Chat{ID: to.ChatID}
	opt := &tele.SendOptions{ThreadID: to.ThreadID}

	var (
		msg *tele.Message
		err error
	)
	if isImageURL(item.URL) {
		photo := &tele.Photo{File: tele.FromURL(item.URL), Caption: item.Title}
		msg, err = a.bot.Send(chat, photo, opt)
	} else {
		text := item.Title
		if strings.TrimSpace(item.URL) != "" {
			text = item.Title + "\n" + item.URL
		}
		msg, err = a.bot.Send(chat, text, opt)
	}
	if err != nil {
		return transport.MessageRef{}, &transport.PublishError{Message: err.Error()}
	}
	return transport.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}, nil
}

func parseAddress(address string) (username string, chatID int64, err error) {
	s := strings.TrimSpace(address)
	if s == "" {
		return "", 0, errors.New("empty channel address")
	}

	if id, perr := strconv.ParseInt(s, 10, 64); perr == nil {
		return "", id, nil
	}

	for _, prefix := range []string{"https://t.me/", "http://t.me/", "t.me/"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	s = strings.TrimPrefix(s, "@")
	if s == "" || strings.ContainsAny(s, "/ ") {
		return "", 0, errors.New("invalid channel address: " + address)
	}
	return "@" + s, 0, nil
}

func isImageURL(u string) bool {
	s := strings.TrimSpace(u)
	if s == "" {
		return false
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	switch strings.ToLower(path.Ext(s)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}
