package config

import (
	"strings"
	"time"
)

// SyncConfig holds the scheduling policy defaults.
type SyncConfig struct {
	DefaultCadence       time.Duration `env:"SYNC_DEFAULT_CADENCE"        envDefault:"6h"`
	DefaultTimeframeDays int           `env:"SYNC_DEFAULT_TIMEFRAME_DAYS" envDefault:"90"`
	MaxTimeframeDays     int           `env:"SYNC_MAX_TIMEFRAME_DAYS"     envDefault:"365"`
	// PageSize is how many integrations an all-tenant sweep reads per page.
	PageSize int `env:"SYNC_PAGE_SIZE" envDefault:"200"`
}

// Sanitize applies guardrails to scheduling values.
func (s *SyncConfig) Sanitize() {
	if s.DefaultCadence < time.Minute {
		s.DefaultCadence = 6 * time.Hour
	}
	if s.MaxTimeframeDays < 1 {
		s.MaxTimeframeDays = 365
	}
	if s.DefaultTimeframeDays < 1 || s.DefaultTimeframeDays > s.MaxTimeframeDays {
		s.DefaultTimeframeDays = min(90, s.MaxTimeframeDays)
	}
	s.PageSize = min(max(s.PageSize, 1), 1000)
}

// DispatchConfig tunes the worker dispatcher.
type DispatchConfig struct {
	MaxJobs    int `env:"DISPATCH_MAX_JOBS"    envDefault:"10"`
	MaxTenants int `env:"DISPATCH_MAX_TENANTS" envDefault:"50"`
	// PerTenantCap bounds jobs processed for one tenant per run.
	PerTenantCap int `env:"DISPATCH_PER_TENANT_CAP" envDefault:"3"`
	// PeekLimit bounds the queued-job count read per tenant.
	PeekLimit     int           `env:"DISPATCH_PEEK_LIMIT"      envDefault:"3"`
	InterJobDelay time.Duration `env:"DISPATCH_INTER_JOB_DELAY" envDefault:"250ms"`
	// TenantConcurrency is how many tenants are drained at once.
	TenantConcurrency int `env:"DISPATCH_TENANT_CONCURRENCY" envDefault:"1"`
	// JobTimeout bounds one fetch-and-write; zero means no per-job deadline.
	JobTimeout time.Duration `env:"DISPATCH_JOB_TIMEOUT" envDefault:"5m"`
}

// Sanitize applies guardrails to dispatcher values.
func (d *DispatchConfig) Sanitize() {
	d.MaxJobs = min(max(d.MaxJobs, 1), 25)
	d.MaxTenants = min(max(d.MaxTenants, 1), 100)
	if d.PerTenantCap < 1 {
		d.PerTenantCap = 3
	}
	if d.PeekLimit < 1 {
		d.PeekLimit = 3
	}
	if d.InterJobDelay < 0 {
		d.InterJobDelay = 0
	}
	d.TenantConcurrency = min(max(d.TenantConcurrency, 1), 16)
	if d.JobTimeout < 0 {
		d.JobTimeout = 0
	}
}

// MonitorConfig sets the severity thresholds.
type MonitorConfig struct {
	GlobalThreshold int `env:"MONITOR_GLOBAL_THRESHOLD" envDefault:"3"`
	// ProviderThresholds is parsed from e.g. MONITOR_PROVIDER_THRESHOLDS=google:2,meta:5.
	ProviderThresholds map[string]int `env:"MONITOR_PROVIDER_THRESHOLDS" envSeparator:"," envKeyValSeparator:":"`
}

// Sanitize drops non-positive overrides.
func (m *MonitorConfig) Sanitize() {
	if m.GlobalThreshold < 1 {
		m.GlobalThreshold = 3
	}
	clean := make(map[string]int, len(m.ProviderThresholds))
	for k, v := range m.ProviderThresholds {
		if k = strings.TrimSpace(k); k != "" && v > 0 {
			clean[k] = v
		}
	}
	m.ProviderThresholds = clean
}
