package telegram

import (
	"testing"

	logx "github.com/ceo777/mirrornet-telegram-bot/pkg/logx"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in       string
		username string
		chatID   int64
		wantErr  bool
	}{
		{in: "-1001234567890", chatID: -1001234567890},
		{in: "42", chatID: 42},
		{in: "@mirror_news", username: "@mirror_news"},
		{in: "mirror_news", username: "@mirror_news"},
		{in: "https://t.me/mirror_news", username: "@mirror_news"},
		{in: "http://t.me/mirror_news", username: "@mirror_news"},
		{in: "t.me/mirror_news", username: "@mirror_news"},
		{in: "  @padded  ", username: "@padded"},
		{in: "", wantErr: true},
		{in: "@", wantErr: true},
		{in: "t.me/", wantErr: true},
		{in: "t.me/a/b", wantErr: true},
		{in: "has space", wantErr: true},
	}
	for _, tt := range tests {
		name, id, err := parseAddress(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseAddress(%q): expected error, got %q/%d", tt.in, name, id)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseAddress(%q): %v", tt.in, err)
			continue
		}
		if name != tt.username || id != tt.chatID {
			t.Errorf("parseAddress(%q) = %q, %d; want %q, %d", tt.in, name, id, tt.username, tt.chatID)
		}
	}
}

func TestIsImageURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want bool
	}{
		{"https://e.com/pic.jpg", true},
		{"https://e.com/pic.JPEG", true},
		{"https://e.com/pic.png?size=large", true},
		{"https://e.com/pic.webp#frag", true},
		{"https://e.com/pic.gif", true},
		{"https://e.com/article", false},
		{"https://e.com/archive.zip", false},
		{"https://e.com/jpg", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		if got := isImageURL(tt.in); got != tt.want {
			t.Errorf("isImageURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{}, logx.Nop()); err == nil {
		t.Fatal("empty token accepted")
	}
}
