// Package pagerduty triggers PagerDuty incidents for alerts.
package pagerduty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/target/adsync/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// maxSummaryLen is the PagerDuty limit for payload.summary.
const maxSummaryLen = 1024

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	// Endpoint overrides APIEndpoint.
	Endpoint   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client publishes events via PagerDuty's Events API v2.
type Client struct {
	routingKey string
	source     string
	component  string
	endpoint   string
	retryLimit int
	client     *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient constructs a PagerDuty events client from config. Callers must provide a routing key.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		routingKey: key,
		source:     fallbackString(strings.TrimSpace(cfg.Source), "adsync"),
		component:  fallbackString(strings.TrimSpace(cfg.Component), "sync-dispatcher"),
		endpoint:   fallbackString(strings.TrimSpace(cfg.Endpoint), APIEndpoint),
		retryLimit: max(cfg.RetryLimit, 0),
		client:     hc,
	}, nil
}

// SendAlert submits a trigger event to PagerDuty.
func (c *Client) SendAlert(ctx context.Context, alert notify.Alert) error {
	body, err := json.Marshal(c.buildEvent(alert))
	if err != nil {
		return fmt.Errorf("encode pagerduty payload: %w", err)
	}
	return notify.PostJSON(ctx, notify.PostOptions{
		Client:  c.client,
		URL:     c.endpoint,
		Body:    body,
		Retries: c.retryLimit,
		Name:    "pagerduty api",
	})
}

func (c *Client) buildEvent(alert notify.Alert) map[string]any {
	severity := fallbackString(strings.ToLower(string(alert.Severity)), "error")

	occurredAt := alert.Timestamp.UTC()
	if alert.Timestamp.IsZero() {
		occurredAt = time.Now().UTC()
	}

	summary, _, _ := strings.Cut(alert.Message, "\n")
	summary = fallbackString(summary, "Ad sync dispatcher run degraded")
	if len(summary) > maxSummaryLen {
		summary = summary[:maxSummaryLen]
	}

	custom := map[string]any{
		"source":  string(alert.Source),
		"message": alert.Message,
	}
	if alert.Operation != "" {
		custom["operation"] = alert.Operation
	}
	if alert.RunID != "" {
		custom["run_id"] = alert.RunID
	}

	// Repeated degraded runs of the same trigger collapse into one incident.
	dedupKey := strings.Trim(fmt.Sprintf("adsync:%s:%s", alert.Source, alert.Operation), ":")

	return map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    dedupKey,
		"payload": map[string]any{
			"summary":        summary,
			"severity":       severity,
			"source":         c.source,
			"component":      c.component,
			"timestamp":      occurredAt.Format(time.RFC3339),
			"custom_details": custom,
		},
	}
}

func fallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
