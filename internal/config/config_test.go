package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const yamlConfig = `
telegram:
  token: "123:abc"
  rate_per_sec: 10
logging:
  level: debug
  console: true
source:
  base_url: "https://content.example.com"
  timeout: "20s"
  page_limit: 25
storage:
  driver: sqlite
  path: "./test.db"
poster:
  enabled: true
  update_cycle: "30m"
  posting_interval: "2m"
  retry_max: 4
  retry_delay: "3s"
  history_clear: "0 4 * * *"
`

func TestParseYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", yamlConfig))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.RatePerSec != 10 {
		t.Fatalf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Source.BaseURL != "https://content.example.com" || cfg.Source.PageLimit != 25 {
		t.Fatalf("source = %+v", cfg.Source)
	}
	if !cfg.Poster.Enabled || cfg.Poster.UpdateCycle != "30m" || cfg.Poster.RetryMax != 4 {
		t.Fatalf("poster = %+v", cfg.Poster)
	}
	if d, err := ParseDurationField("poster.update_cycle", cfg.Poster.UpdateCycle); err != nil || d != 30*time.Minute {
		t.Fatalf("update_cycle parsed to %v, %v", d, err)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	body := `{
  "telegram": {"token": "tok"},
  "logging": {"console": true},
  "source": {"base_url": "http://localhost:8080"},
  "storage": {"driver": "file", "path": "./channels.json"},
  "poster": {"enabled": true, "posting_interval": "90s"}
}`
	m := NewManager(writeConfig(t, "config.json", body))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Storage.Driver != "file" || cfg.Poster.PostingInterval != "90s" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", `
poster:
  enabled: true
  updat_cycle: "1h"
`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("misspelled field accepted")
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", `
poster:
  enabled: true
  update_cycle: "an hour"
`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("unparseable duration accepted")
	}
}

func TestParseRejectsNegativeRetryMax(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", `
poster:
  enabled: true
  retry_max: -1
`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("negative retry_max accepted")
	}
}

func TestReloadKeepsLastGoodConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", yamlConfig)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	changed := 0
	m.OnChange(func(*Config) { changed++ })

	// A broken edit must not disturb the committed config.
	if err := os.WriteFile(path, []byte("poster: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	m.reload()
	if changed != 0 {
		t.Fatal("broken config triggered OnChange")
	}
	if got := m.Get(); got == nil || got.Telegram.Token != "123:abc" {
		t.Fatalf("committed config lost after bad reload: %+v", got)
	}
}

func TestReloadDedupesUnchangedContent(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", yamlConfig)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	changed := 0
	m.OnChange(func(*Config) { changed++ })

	m.reload() // same bytes, no change
	if changed != 0 {
		t.Fatalf("OnChange fired %d times for identical content", changed)
	}

	if err := os.WriteFile(path, []byte(yamlConfig+"\n# touched\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.reload() // comment-only change hashes the same parsed config
	if changed != 0 {
		t.Fatalf("OnChange fired %d times for semantically identical config", changed)
	}
}

func TestReloadFiresOnRealChange(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", yamlConfig)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	var got *Config
	m.OnChange(func(cfg *Config) { got = cfg })

	updated := strings.Replace(yamlConfig, `update_cycle: "30m"`, `update_cycle: "45m"`, 1)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}
	m.reload()
	if got == nil || got.Poster.UpdateCycle != "45m" {
		t.Fatalf("OnChange did not deliver updated config: %+v", got)
	}
}
