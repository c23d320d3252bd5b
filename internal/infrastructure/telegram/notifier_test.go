package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"DealScanner/internal/domain"
)

func TestPublishDigest(t *testing.T) {
	t.Parallel()

	var gotText, gotChat, gotPreview string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/botbad/getMe":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		case "/bottoken/getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":7,"is_bot":true,"first_name":"deals","username":"deal_bot"}}`))
		case "/bottoken/sendMessage":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			gotText, gotChat, gotPreview = r.PostForm.Get("text"), r.PostForm.Get("chat_id"), r.PostForm.Get("disable_web_page_preview")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	n := NewNotifier("token", "42", WithAPIBase(srv.URL))
	if err := n.PublishDigest(context.Background(), "deals created: 2"); err != nil {
		t.Fatalf("PublishDigest: %v", err)
	}
	if gotText != "deals created: 2" || gotChat != "42" || gotPreview != "true" {
		t.Fatalf("unexpected form text=%q chat=%q preview=%q", gotText, gotChat, gotPreview)
	}

	long := strings.Repeat("가", maxMessageRunes+10)
	if err := n.PublishDigest(context.Background(), long); err != nil {
		t.Fatalf("PublishDigest long: %v", err)
	}
	if n := len([]rune(gotText)); n != maxMessageRunes {
		t.Fatalf("digest should be truncated to %d runes, got %d", maxMessageRunes, n)
	}

	channel := NewNotifier("token", "@deal_digest", WithAPIBase(srv.URL))
	if err := channel.PublishDigest(context.Background(), "x"); err != nil {
		t.Fatalf("PublishDigest channel: %v", err)
	}
	if gotChat != "@deal_digest" {
		t.Fatalf("channel chat_id = %q", gotChat)
	}

	bad := NewNotifier("bad", "42", WithAPIBase(srv.URL))
	if err := bad.PublishDigest(context.Background(), "x"); !errors.Is(err, domain.ErrSourceAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}

	if err := NewNotifier("", "").PublishDigest(context.Background(), "x"); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
