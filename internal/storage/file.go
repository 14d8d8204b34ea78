package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	logx "github.com/ceo777/mirrornet-telegram-bot/pkg/logx"
)

// fileStore is a dependency-free backend for dev/test setups.
//
// Files:
//   - <path>                  channels JSON (array of channel records)
//   - <prefix>.postlog.jsonl  append-only JSON Lines of publishes
//
// The channels file is re-read when its mtime changes, so edits take
// effect on the next cooldown refresh without a restart.
type fileStore struct {
	log logx.Logger

	path        string
	postLogPath string

	mu       sync.Mutex
	postLog  *os.File
	cache    []Channel
	cachedAt time.Time
}

type channelRecord struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Address         string            `json:"address"`
	Enabled         bool              `json:"enabled"`
	PostingInterval string            `json:"posting_interval,omitempty"` // Go duration string
	Query           map[string]string `json:"query,omitempty"`
}

type postLogRecord struct {
	At        string `json:"at"`
	ChannelID int64  `json:"channel_id"`
	ItemID    string `json:"item_id"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	TookMS    int64  `json:"took_ms"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	st := &fileStore{
		log:         log,
		path:        path,
		postLogPath: prefix + ".postlog.jsonl",
	}

	// Fail fast on a malformed channels file.
	if _, err := st.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(st.postLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	st.postLog = f
	return st, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.postLog != nil {
		err := s.postLog.Close()
		s.postLog = nil
		return err
	}
	return nil
}

func (s *fileStore) load() ([]Channel, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.cache != nil && fi.ModTime().Equal(s.cachedAt) {
		out := s.cache
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var recs []channelRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("channels file %s: %w", s.path, err)
	}

	chans := make([]Channel, 0, len(recs))
	for _, r := range recs {
		var interval time.Duration
		if strings.TrimSpace(r.PostingInterval) != "" {
			interval, err = time.ParseDuration(r.PostingInterval)
			if err != nil {
				return nil, fmt.Errorf("channel %d: invalid posting_interval: %w", r.ID, err)
			}
		}
		chans = append(chans, Channel{
			ID:              r.ID,
			Name:            r.Name,
			Address:         r.Address,
			Enabled:         r.Enabled,
			PostingInterval: interval,
			Query:           r.Query,
		})
	}
	sort.Slice(chans, func(i, j int) bool { return chans[i].ID < chans[j].ID })

	s.mu.Lock()
	s.cache = chans
	s.cachedAt = fi.ModTime()
	s.mu.Unlock()
	return chans, nil
}

func (s *fileStore) ListChannels(ctx context.Context) ([]Channel, error) {
	return s.load()
}

func (s *fileStore) GetChannel(ctx context.Context, id int64) (Channel, error) {
	chans, err := s.load()
	if err != nil {
		return Channel{}, err
	}
	for _, ch := range chans {
		if ch.ID == id {
			return ch, nil
		}
	}
	return Channel{}, ErrNotFound
}

func (s *fileStore) AppendPostLog(ctx context.Context, e PostLogEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	rec := postLogRecord{
		At:        e.At.Format(time.RFC3339Nano),
		ChannelID: e.ChannelID,
		ItemID:    e.ItemID,
		Title:     e.Title,
		URL:       e.URL,
		TookMS:    e.TookMS,
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.postLog == nil {
		return errors.New("store closed")
	}
	_, err = s.postLog.Write(b)
	return err
}
