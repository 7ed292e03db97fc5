package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when webhook url missing")
	}
}

func TestFormatMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#alerts",
		Username:   "bot",
		Timeout:    time.Second,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := client.formatMessage(notify.Alert{
		Severity:  model.SeverityCritical,
		Message:   "google: 2 failed (threshold 2) <see run>",
		Source:    model.EventSourceWorker,
		Operation: "dispatch",
		RunID:     "run-1",
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	})

	if msg["username"] != "bot" {
		t.Fatalf("expected username to be preserved, got %v", msg["username"])
	}
	if msg["channel"] != "#alerts" {
		t.Fatalf("expected channel to be set, got %v", msg["channel"])
	}

	text, ok := msg["text"].(string)
	if !ok {
		t.Fatalf("expected text field")
	}
	for _, want := range []string{":rotating_light:", "critical", "worker", "dispatch", "run-1", "&lt;see run&gt;", "2024-01-01T12:00:00Z"} {
		if !strings.Contains(text, want) {
			t.Fatalf("message text missing %q: %s", want, text)
		}
	}
}

func TestFormatMessageDefaults(t *testing.T) {
	client, err := NewClient(Config{WebhookURL: "https://hooks.slack.com/services/test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := client.formatMessage(notify.Alert{Severity: model.SeverityWarning, Message: "x"})
	if msg["username"] != "adsync" {
		t.Fatalf("expected default username, got %v", msg["username"])
	}
	if _, ok := msg["channel"]; ok {
		t.Fatal("channel should be omitted when unset")
	}
	if text, _ := msg["text"].(string); !strings.HasPrefix(text, ":warning:") {
		t.Fatalf("expected warning emoji, got %q", text)
	}
}

func TestSendAlertPostsToWebhook(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.SendAlert(context.Background(), notify.Alert{Severity: model.SeverityWarning, Message: "m"}); err != nil {
		t.Fatalf("SendAlert: %v", err)
	}
	if _, ok := got["text"]; !ok {
		t.Fatalf("expected text in payload, got %v", got)
	}
}

func TestSendAlertSurfacesErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err = client.SendAlert(context.Background(), notify.Alert{Severity: model.SeverityWarning})
	if err == nil || !strings.Contains(err.Error(), "invalid_payload") {
		t.Fatalf("expected error carrying body, got %v", err)
	}
}
