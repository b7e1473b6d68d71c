package slackapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"termibot/pkg/logger"
)

type postedForm struct {
	channel  string
	text     string
	threadTS string
}

type fakeSlack struct {
	mu        sync.Mutex
	posts     []postedForm
	authCalls int
	postError string
	appAuth   string
}

func (f *fakeSlack) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth.test", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authCalls++
		f.mu.Unlock()
		writeJSON(t, w, map[string]any{
			"ok":      true,
			"user":    "testbot",
			"user_id": "U123456",
			"team":    "termibot-dev",
		})
	})
	mux.HandleFunc("/apps.connections.open", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.appAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		writeJSON(t, w, map[string]any{"ok": true, "url": "wss://wss.example.test/link/?ticket=abc"})
	})
	mux.HandleFunc("/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		f.mu.Lock()
		f.posts = append(f.posts, postedForm{
			channel:  r.FormValue("channel"),
			text:     r.FormValue("text"),
			threadTS: r.FormValue("thread_ts"),
		})
		postError := f.postError
		f.mu.Unlock()

		if postError != "" {
			writeJSON(t, w, map[string]any{"ok": false, "error": postError})
			return
		}
		writeJSON(t, w, map[string]any{"ok": true, "channel": r.FormValue("channel"), "ts": "1700000000.000100"})
	})
	return mux
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func newTestClient(t *testing.T, fake *fakeSlack, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	log, err := logger.New(&logger.Config{Level: "error"})
	if err != nil {
		t.Fatalf("create logger: %v", err)
	}

	cfg.BotToken = "xoxb-test"
	cfg.AppToken = "xapp-test"
	cfg.APIURL = srv.URL
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 1000
		cfg.Burst = 100
	}

	client, err := New(log, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewRequiresTokens(t *testing.T) {
	log, _ := logger.New(&logger.Config{Level: "error"})

	if _, err := New(log, Config{BotToken: "xoxb-1"}); err == nil {
		t.Error("expected error without app token")
	}
	if _, err := New(log, Config{AppToken: "xapp-1"}); err == nil {
		t.Error("expected error without bot token")
	}
	if _, err := New(log, Config{BotToken: "xoxb-1", AppToken: "xoxb-2"}); err == nil {
		t.Error("expected error for a bot token in the app token slot")
	}
}

func TestIdentity(t *testing.T) {
	client := newTestClient(t, &fakeSlack{}, Config{})

	id, err := client.Identity(context.Background())
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if id.ID != "U123456" || id.Name != "testbot" {
		t.Fatalf("Identity() = %+v", id)
	}
}

func TestConnectURLUsesAppToken(t *testing.T) {
	fake := &fakeSlack{}
	client := newTestClient(t, fake, Config{})

	url, err := client.ConnectURL(context.Background())
	if err != nil {
		t.Fatalf("ConnectURL() error = %v", err)
	}
	if !strings.HasPrefix(url, "wss://wss.example.test/") {
		t.Fatalf("ConnectURL() = %q", url)
	}
	if fake.appAuth != "Bearer xapp-test" {
		t.Fatalf("Authorization = %q, want app-level token", fake.appAuth)
	}
}

func TestPostMessageAndReply(t *testing.T) {
	fake := &fakeSlack{}
	client := newTestClient(t, fake, Config{})
	ctx := context.Background()

	if err := client.PostMessage(ctx, "C42", "hello"); err != nil {
		t.Fatalf("PostMessage() error = %v", err)
	}
	if err := client.PostReply(ctx, "C42", "1355517523.000005", "in thread"); err != nil {
		t.Fatalf("PostReply() error = %v", err)
	}

	want := []postedForm{
		{channel: "C42", text: "hello"},
		{channel: "C42", text: "in thread", threadTS: "1355517523.000005"},
	}
	if len(fake.posts) != len(want) {
		t.Fatalf("posts = %+v", fake.posts)
	}
	for i := range want {
		if fake.posts[i] != want[i] {
			t.Errorf("post[%d] = %+v, want %+v", i, fake.posts[i], want[i])
		}
	}
}

func TestPostMessageSurfacesSlackError(t *testing.T) {
	fake := &fakeSlack{postError: "channel_not_found"}
	client := newTestClient(t, fake, Config{})

	err := client.PostMessage(context.Background(), "C404", "hello")
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("PostMessage() error = %v, want channel_not_found", err)
	}
}

func TestPostValidation(t *testing.T) {
	fake := &fakeSlack{}
	client := newTestClient(t, fake, Config{})
	ctx := context.Background()

	if err := client.PostMessage(ctx, "", "hello"); err == nil {
		t.Error("expected error for empty channel")
	}
	if err := client.PostReply(ctx, "C42", "", "hello"); err == nil {
		t.Error("expected error for empty thread timestamp")
	}
	if len(fake.posts) != 0 {
		t.Fatalf("expected no requests, got %d", len(fake.posts))
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	fake := &fakeSlack{}
	client := newTestClient(t, fake, Config{RequestsPerSecond: 0.01, Burst: 1})

	if _, err := client.Identity(context.Background()); err != nil {
		t.Fatalf("first Identity() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := client.Identity(ctx); err == nil {
		t.Fatal("expected the limiter to refuse a call it cannot admit before the deadline")
	}
	if fake.authCalls != 1 {
		t.Fatalf("auth.test calls = %d, want 1", fake.authCalls)
	}
}
