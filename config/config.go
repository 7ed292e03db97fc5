// Package config loads the adsync process configuration from environment variables.
package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: automation trigger credentials
//   - database.go: Postgres and Redis
//   - http.go: HTTP server
//   - services.go: service modes, cron triggers and the reaper
//   - sync.go: scheduling policy, dispatcher and monitor tuning
//   - providers.go: provider gateway and provider catalog
type AppConfig struct {
	// IsDev controls development mode behavior (text logs, debug level).
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	// Services is a comma-delimited list of enabled services: http, cron, reaper.
	Services string `env:"SERVICES" envDefault:"http"`

	Sync     SyncConfig
	Dispatch DispatchConfig
	Monitor  MonitorConfig
	Cron     CronConfig
	Reaper   ReaperConfig

	Automation      AutomationConfig      `envPrefix:"AUTOMATION_"`
	ProviderGateway ProviderGatewayConfig `envPrefix:"PROVIDER_GATEWAY_"`

	// ProviderCatalogFile optionally points at a TOML file with per-provider overrides.
	ProviderCatalogFile string `env:"PROVIDER_CATALOG_FILE"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Redis.Sanitize()
	c.Sync.Sanitize()
	c.Dispatch.Sanitize()
	c.Monitor.Sanitize()
	c.Cron.Sanitize()
	c.Reaper.Sanitize()
	c.Automation.Sanitize()
	c.ProviderGateway.Sanitize()
	c.Observability.Sanitize()
	c.ProviderCatalogFile = strings.TrimSpace(c.ProviderCatalogFile)

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsServiceEnabled reports whether mode is listed in SERVICES.
func (c *AppConfig) IsServiceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.IsServiceEnabled(ServiceModeHTTP) }

// IsCronEnabled returns true if the in-process cron triggers are enabled.
func (c *AppConfig) IsCronEnabled() bool { return c.IsServiceEnabled(ServiceModeCron) }

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool { return c.IsServiceEnabled(ServiceModeReaper) }
