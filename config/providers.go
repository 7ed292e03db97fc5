package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ProviderGatewayConfig points at the service that fetches and normalizes provider metrics.
type ProviderGatewayConfig struct {
	BaseURL string `env:"BASE_URL"`

	// Client-credentials grant used to authenticate to the gateway. An empty TokenURL
	// sends requests without a bearer token.
	TokenURL     string   `env:"TOKEN_URL"`
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	Scopes       []string `env:"SCOPES"        envSeparator:","`

	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`
	// MaxResponseBytes bounds a decoded metrics response.
	MaxResponseBytes int64 `env:"MAX_RESPONSE_BYTES" envDefault:"33554432"`
}

// Sanitize trims values and applies timeouts.
func (p *ProviderGatewayConfig) Sanitize() {
	p.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	p.TokenURL = strings.TrimSpace(p.TokenURL)
	p.ClientID = strings.TrimSpace(p.ClientID)
	p.Scopes = compactStrings(p.Scopes)
	if p.Timeout <= 0 {
		p.Timeout = 60 * time.Second
	}
	if p.MaxResponseBytes < 1024 {
		p.MaxResponseBytes = 1024
	}
}

// Duration wraps time.Duration so TOML values like "45s" decode.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// ProviderEntry is one provider's overrides in the catalog.
type ProviderEntry struct {
	// FailureThreshold overrides the monitor's global threshold for this provider.
	FailureThreshold int `toml:"failure_threshold"`
	// BaseURL routes this provider's fetches to a different gateway.
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

// ProviderCatalog is the optional TOML provider file:
//
//	[providers.google]
//	failure_threshold = 2
//	base_url = "https://gateway-google.internal"
//	timeout = "90s"
type ProviderCatalog struct {
	Providers map[string]ProviderEntry `toml:"providers"`
}

// LoadProviderCatalog decodes path. An empty path yields an empty catalog.
func LoadProviderCatalog(path string) (*ProviderCatalog, error) {
	catalog := &ProviderCatalog{Providers: map[string]ProviderEntry{}}
	if path == "" {
		return catalog, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("provider catalog does not exist: %s", path)
	}
	md, err := toml.DecodeFile(path, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to parse provider catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("provider catalog has unknown keys: %v", undecoded)
	}
	return catalog, catalog.Validate()
}

// Validate rejects negative thresholds and malformed base URLs.
func (c *ProviderCatalog) Validate() error {
	for id, p := range c.Providers {
		if strings.TrimSpace(id) == "" {
			return errors.New("provider catalog: empty provider id")
		}
		if p.FailureThreshold < 0 {
			return fmt.Errorf("provider catalog: %s: failure_threshold must be >= 0", id)
		}
		if p.BaseURL != "" && !strings.HasPrefix(p.BaseURL, "http://") && !strings.HasPrefix(p.BaseURL, "https://") {
			return fmt.Errorf("provider catalog: %s: base_url must be http(s)", id)
		}
	}
	return nil
}

// Thresholds merges catalog thresholds over base; catalog entries win.
func (c *ProviderCatalog) Thresholds(base map[string]int) map[string]int {
	out := make(map[string]int, len(base)+len(c.Providers))
	for k, v := range base {
		out[k] = v
	}
	for id, p := range c.Providers {
		if p.FailureThreshold > 0 {
			out[id] = p.FailureThreshold
		}
	}
	return out
}

// BaseURLs returns the per-provider gateway overrides.
func (c *ProviderCatalog) BaseURLs() map[string]string {
	out := make(map[string]string)
	for id, p := range c.Providers {
		if p.BaseURL != "" {
			out[id] = strings.TrimRight(p.BaseURL, "/")
		}
	}
	return out
}

// Timeouts returns the per-provider fetch timeout overrides.
func (c *ProviderCatalog) Timeouts() map[string]time.Duration {
	out := make(map[string]time.Duration)
	for id, p := range c.Providers {
		if p.Timeout.Duration > 0 {
			out[id] = p.Timeout.Duration
		}
	}
	return out
}
