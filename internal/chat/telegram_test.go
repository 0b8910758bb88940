package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLen    int
		wantParts int
	}{
		{"short", "Level B1 | Travel", 4096, 1},
		{"exact", "Score", 5, 1},
		{"split at spaces", "You scored 4 out of 5", 10, 3},
		{"split at newlines", "1. correct\n2. correct\n3. wrong\n", 12, 3},
		{"empty", "", 4096, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := SplitMessage(tt.text, tt.maxLen)
			if len(parts) != tt.wantParts {
				t.Errorf("SplitMessage() = %d parts %q, want %d", len(parts), parts, tt.wantParts)
			}
			if got := strings.Join(parts, ""); got != tt.text {
				t.Errorf("joined parts = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestSplitMessage_PartsNotExceedMax(t *testing.T) {
	text := strings.Repeat("She noticed a small sign near the entrance of the garden.\n", 20)
	maxLen := 100

	for i, part := range SplitMessage(text, maxLen) {
		if len(part) > maxLen {
			t.Errorf("part[%d] len=%d exceeds maxLen=%d", i, len(part), maxLen)
		}
	}
}

func TestNewTelegramChannel_NoToken(t *testing.T) {
	_, err := NewTelegramChannel("")
	if err == nil {
		t.Fatal("NewTelegramChannel() should error with empty token")
	}
	if !strings.Contains(err.Error(), "READER_TELEGRAM_BOT_TOKEN") {
		t.Errorf("error = %q, want it to name the env var", err)
	}
}

func TestNewTelegramChannel_BaseURL(t *testing.T) {
	ch, err := NewTelegramChannel("test-token")
	if err != nil {
		t.Fatalf("NewTelegramChannel() error = %v", err)
	}
	if ch.baseURL != telegramAPIBase+"test-token" {
		t.Errorf("baseURL = %q", ch.baseURL)
	}
}

func TestTelegramChannelSendMessage_SplitsLongReading(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if r.URL.Path != "/sendMessage" {
			t.Errorf("path = %q, want /sendMessage", r.URL.Path)
		}
		if got := r.Form.Get("chat_id"); got != "42" {
			t.Errorf("chat_id = %q, want 42", got)
		}
		if got := r.Form.Get("parse_mode"); got != "Markdown" {
			t.Errorf("parse_mode = %q, want Markdown", got)
		}
		mu.Lock()
		texts = append(texts, r.Form.Get("text"))
		mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	ch, err := newTelegramChannel("test-token", server.URL)
	if err != nil {
		t.Fatalf("newTelegramChannel() error = %v", err)
	}
	ch.client = server.Client()

	reading := "*Community Garden Morning*\n" + strings.Repeat("Mia learned the names of new plants.\n", 150)
	err = ch.SendMessage(context.Background(), "42", OutboundMessage{Text: reading, ParseMode: "Markdown"})
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(texts) < 2 {
		t.Fatalf("sent %d messages, want the reading split", len(texts))
	}
	if got := strings.Join(texts, ""); got != reading {
		t.Error("split messages do not reassemble the reading")
	}
}
