// Package provider calls the provider gateway that fetches and normalizes ad platform metrics.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/target/adsync/config"
	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/domain/model"
)

const maxErrorBodyBytes = 512

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	ProviderID string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("provider gateway %s returned %d", e.ProviderID, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// GatewayOptions configures a GatewayClient.
type GatewayOptions struct {
	Config config.ProviderGatewayConfig
	// BaseURLs overrides Config.BaseURL per provider.
	BaseURLs map[string]string
	// Timeouts overrides Config.Timeout per provider.
	Timeouts map[string]time.Duration
	// HTTPClient is the base client for token and metrics calls. Optional.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// GatewayClient implements core.MetricsFetcher over HTTP.
type GatewayClient struct {
	client   *http.Client
	baseURL  string
	baseURLs map[string]string
	timeout  time.Duration
	timeouts map[string]time.Duration
	maxBytes int64
	logger   *slog.Logger
}

var _ core.MetricsFetcher = (*GatewayClient)(nil)

// NewGatewayClient validates the configuration and creates a GatewayClient. When a token
// URL is configured every request carries a client-credentials bearer token.
func NewGatewayClient(opts GatewayOptions) (*GatewayClient, error) {
	cfg := opts.Config
	cfg.Sanitize()
	if cfg.BaseURL == "" && len(opts.BaseURLs) == 0 {
		return nil, errors.New("provider gateway base URL is required")
	}
	if err := validateBaseURL("default", cfg.BaseURL); err != nil {
		return nil, err
	}
	for id, raw := range opts.BaseURLs {
		if err := validateBaseURL(id, raw); err != nil {
			return nil, err
		}
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	client := base
	if cfg.TokenURL != "" {
		if cfg.ClientID == "" {
			return nil, errors.New("provider gateway client ID is required with a token URL")
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = cc.Client(ctx)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseURLs := make(map[string]string, len(opts.BaseURLs))
	for id, u := range opts.BaseURLs {
		baseURLs[id] = strings.TrimRight(u, "/")
	}
	return &GatewayClient{
		client:   client,
		baseURL:  cfg.BaseURL,
		baseURLs: baseURLs,
		timeout:  cfg.Timeout,
		timeouts: opts.Timeouts,
		maxBytes: cfg.MaxResponseBytes,
		logger:   logger.With("component", "provider_gateway"),
	}, nil
}

func validateBaseURL(name, raw string) error {
	if raw == "" {
		return nil
	}
	if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid provider gateway URL for %s: %q", name, raw)
	}
	return nil
}

type fetchBody struct {
	TenantID      string `json:"tenantId"`
	ProviderID    string `json:"providerId"`
	AccountID     string `json:"accountId,omitempty"`
	TimeframeDays int    `json:"timeframeDays"`
}

type wireMetric struct {
	Date       string            `json:"date"`
	EntityID   string            `json:"entityId"`
	EntityType string            `json:"entityType,omitempty"`
	Metric     string            `json:"metric"`
	Value      float64           `json:"value"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
}

type fetchResponse struct {
	Metrics []wireMetric `json:"metrics"`
}

// FetchAndNormalize implements core.MetricsFetcher.
func (c *GatewayClient) FetchAndNormalize(ctx context.Context, req model.FetchRequest) ([]model.NormalizedMetric, error) {
	endpoint, err := c.endpoint(req.ProviderID)
	if err != nil {
		return nil, err
	}
	if timeout := c.timeoutFor(req.ProviderID); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	payload, err := json.Marshal(fetchBody{
		TenantID:      req.Tenant.ID,
		ProviderID:    req.ProviderID,
		AccountID:     req.AccountID,
		TimeframeDays: req.TimeframeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal fetch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider gateway %s: %w", req.ProviderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{
			ProviderID: req.ProviderID,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read provider gateway response: %w", err)
	}
	if int64(len(raw)) > c.maxBytes {
		return nil, fmt.Errorf("provider gateway %s response exceeds %d bytes", req.ProviderID, c.maxBytes)
	}

	var decoded fetchResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode provider gateway response: %w", err)
	}
	out, err := normalize(decoded.Metrics)
	if err != nil {
		return nil, err
	}
	c.logger.DebugContext(ctx, "provider metrics fetched",
		"provider_id", req.ProviderID,
		"tenant_id", req.Tenant.ID,
		"metrics", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *GatewayClient) endpoint(providerID string) (string, error) {
	if strings.TrimSpace(providerID) == "" {
		return "", model.ErrInvalidProvider
	}
	base := c.baseURLs[providerID]
	if base == "" {
		base = c.baseURL
	}
	if base == "" {
		return "", fmt.Errorf("no provider gateway configured for %s", providerID)
	}
	return base + "/providers/" + url.PathEscape(providerID) + "/metrics", nil
}

func (c *GatewayClient) timeoutFor(providerID string) time.Duration {
	if d, ok := c.timeouts[providerID]; ok && d > 0 {
		return d
	}
	return c.timeout
}

func normalize(in []wireMetric) ([]model.NormalizedMetric, error) {
	out := make([]model.NormalizedMetric, 0, len(in))
	for i, m := range in {
		date, err := parseDate(m.Date)
		if err != nil {
			return nil, fmt.Errorf("metric %d: %w", i, err)
		}
		if m.EntityID == "" || m.Metric == "" {
			return nil, fmt.Errorf("metric %d: entityId and metric are required", i)
		}
		out = append(out, model.NormalizedMetric{
			Date:       date,
			EntityID:   m.EntityID,
			EntityType: m.EntityType,
			Name:       m.Metric,
			Value:      m.Value,
			Dimensions: m.Dimensions,
		})
	}
	return out, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), nil
}
