// Package webhook posts alerts as JSON to a generic HTTP endpoint.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/target/adsync/internal/observability/notify"
)

// Config configures the alert webhook sink.
type Config struct {
	URL string
	// BodyExpression optionally reshapes the {severity, message, source, timestamp}
	// document with a JMESPath expression before it is posted.
	BodyExpression string
	Headers        map[string]string
	Timeout        time.Duration
	RetryLimit     int
	Client         *http.Client
}

// Client delivers alerts to a webhook.
type Client struct {
	url        string
	expr       string
	headers    map[string]string
	retryLimit int
	client     *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient validates the URL and body expression.
func NewClient(cfg Config) (*Client, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("alert webhook url is required")
	}
	expr := strings.TrimSpace(cfg.BodyExpression)
	if expr != "" {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("invalid body JMESPath: %w", err)
		}
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
		url:        url,
		expr:       expr,
		headers:    cfg.Headers,
		retryLimit: max(cfg.RetryLimit, 0),
		client:     hc,
	}, nil
}

// SendAlert posts the alert body.
func (c *Client) SendAlert(ctx context.Context, alert notify.Alert) error {
	body, err := c.buildBody(alert)
	if err != nil {
		return err
	}
	return notify.PostJSON(ctx, notify.PostOptions{
		Client:  c.client,
		URL:     c.url,
		Body:    body,
		Headers: c.headers,
		Retries: c.retryLimit,
		Name:    "alert webhook",
	})
}

func (c *Client) buildBody(alert notify.Alert) ([]byte, error) {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	raw, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("encode alert payload: %w", err)
	}
	if c.expr == "" {
		return raw, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode alert payload: %w", err)
	}
	shaped, err := jmespath.Search(c.expr, doc)
	if err != nil {
		return nil, fmt.Errorf("evaluate body JMESPath: %w", err)
	}
	out, err := json.Marshal(shaped)
	if err != nil {
		return nil, fmt.Errorf("encode shaped payload: %w", err)
	}
	return out, nil
}
