package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ceo777/mirrornet-telegram-bot/internal/storage"
	logx "github.com/ceo777/mirrornet-telegram-bot/pkg/logx"
)

type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration // per-request; 0 means default
	PageLimit int           // max items per fetch; 0 means default
}

const (
	defaultTimeout   = 15 * time.Second
	defaultPageLimit = 50
	defaultUserAgent = "mirrornet-telegram-bot/1.0"
)

// Client fetches content listings from the mirrornet API.
// Safe for concurrent use across channels.
type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
}

func NewClient(cfg Config, log logx.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("source base_url is empty")
	}
	cfg.BaseURL = base
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &Client{
		cfg:  cfg,
		log:  log,
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type listResponse struct {
	Items []itemRecord `json:"items"`
}

type itemRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
	Removed   bool      `json:"removed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Fetch returns the current listing for one channel, newest-policy and
// ordering as decided by the source. An empty listing is a valid
// success; any non-2xx status is a *SourceError.
func (c *Client) Fetch(ctx context.Context, ch storage.Channel) ([]Item, error) {
	q := url.Values{}
	q.Set("channel", ch.Name)
	q.Set("limit", strconv.Itoa(c.cfg.PageLimit))
	for k, v := range ch.Query {
		q.Set(k, v)
	}

	u := c.cfg.BaseURL + "/v1/items?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Cap the body read; listings are small and error bodies can be junk.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode/100 != 2 {
		return nil, normalizeHTTPError(resp.StatusCode, body)
	}

	var out listResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("source: decode listing: %w", err)
	}

	items := make([]Item, 0, len(out.Items))
	for _, r := range out.Items {
		if strings.TrimSpace(r.ID) == "" {
			continue
		}
		items = append(items, Item{
			ID:        r.ID,
			Title:     r.Title,
			URL:       r.URL,
			CreatedAt: r.CreatedAt,
			Removed:   r.Removed,
		})
	}
	return items, nil
}

// normalizeHTTPError converts whatever the source returned into the
// single error shape the posting core understands.
func normalizeHTTPError(status int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && strings.TrimSpace(er.Error) != "" {
		return &SourceError{StatusCode: status, Message: er.Error}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	// HTML error pages and the like are useless in logs.
	if strings.HasPrefix(msg, "<") {
		msg = ""
	}
	return &SourceError{StatusCode: status, Message: msg}
}
