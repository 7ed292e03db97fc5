package pagerduty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when routing key missing")
	}
}

func TestBuildEventDefaults(t *testing.T) {
	client, err := NewClient(Config{RoutingKey: "key", Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	event := client.buildEvent(notify.Alert{
		Severity:  model.SeverityCritical,
		Message:   "[CRITICAL] Ad sync dispatcher run degraded (source=cron)\nProcessed: 2",
		Source:    model.EventSourceCron,
		Operation: "dispatch",
		RunID:     "run-9",
	})

	if event["dedup_key"] != "adsync:cron:dispatch" {
		t.Fatalf("unexpected dedup key %v", event["dedup_key"])
	}

	payloadSection, ok := event["payload"].(map[string]any)
	if !ok {
		t.Fatalf("expected payload section")
	}
	if payloadSection["severity"] != "critical" {
		t.Fatalf("expected critical severity, got %v", payloadSection["severity"])
	}
	if payloadSection["source"] != "adsync" {
		t.Fatalf("expected default source, got %v", payloadSection["source"])
	}
	if payloadSection["component"] != "sync-dispatcher" {
		t.Fatalf("expected default component, got %v", payloadSection["component"])
	}
	if payloadSection["summary"] != "[CRITICAL] Ad sync dispatcher run degraded (source=cron)" {
		t.Fatalf("summary should be the first message line, got %v", payloadSection["summary"])
	}

	custom, ok := payloadSection["custom_details"].(map[string]any)
	if !ok {
		t.Fatalf("expected custom details")
	}
	for _, key := range []string{"source", "message", "operation", "run_id"} {
		if _, exists := custom[key]; !exists {
			t.Fatalf("expected key %s in custom details", key)
		}
	}
}

func TestSendAlertUsesEndpointOverride(t *testing.T) {
	var calls atomic.Int32
	var routingKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		routingKey, _ = body["routing_key"].(string)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "rk", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.SendAlert(context.Background(), notify.Alert{Severity: model.SeverityWarning, Message: "m"}); err != nil {
		t.Fatalf("SendAlert: %v", err)
	}
	if calls.Load() != 1 || routingKey != "rk" {
		t.Fatalf("calls=%d routing_key=%q", calls.Load(), routingKey)
	}
}
