package config

// Config is the bot's process configuration (YAML or JSON file).
//
// Channels are NOT configured here; they live in the channel store
// (see internal/storage). This file only carries process-level knobs.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1h").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Source   SourceConfig   `json:"source"`
	Storage  StorageConfig  `json:"storage"`
	Poster   PosterConfig   `json:"poster"`
}

type TelegramConfig struct {
	Token string `json:"token"`

	// RatePerSec caps outgoing sends across all channels (Telegram's
	// global flood limit). Default: 20.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type SourceConfig struct {
	BaseURL   string `json:"base_url"`
	UserAgent string `json:"user_agent,omitempty"`
	Timeout   string `json:"timeout,omitempty"`
	PageLimit int    `json:"page_limit,omitempty"`
}

// StorageConfig controls the channel store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./mirrornet.db" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// PosterConfig controls the channel posting scheduler.
//
// Defaults (when fields are omitted/zero):
//   - update_cycle: "1h"
//   - posting_interval: "5m"
//   - start_stagger: "1s"
//   - retry_max: 3
//   - retry_delay: "5s"
//   - history_clear: "0 0 * * *" (daily at midnight)
type PosterConfig struct {
	Enabled bool `json:"enabled"`

	// UpdateCycle is how often each channel re-fetches its listing.
	UpdateCycle string `json:"update_cycle,omitempty"`

	// PostingInterval is the default pause between posts within one
	// channel; channels may override it in the store.
	PostingInterval string `json:"posting_interval,omitempty"`

	// StartStagger delays channel N's first fetch by N x this value so
	// startup doesn't burst the source.
	StartStagger string `json:"start_stagger,omitempty"`

	RetryMax   int    `json:"retry_max,omitempty"`
	RetryDelay string `json:"retry_delay,omitempty"`

	// HistoryClear is a cron spec for the periodic history purge.
	HistoryClear string `json:"history_clear,omitempty"`
}
