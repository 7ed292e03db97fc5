package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the automation trigger API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeCron runs the in-process schedule and dispatch triggers.
	ServiceModeCron ServiceMode = "cron"
	// ServiceModeReaper runs the housekeeping loop.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeCron, ServiceModeReaper}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeCron, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, cron, reaper)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// CronConfig contains the in-process trigger schedules.
type CronConfig struct {
	// ScheduleSpec runs the all-tenant scheduling sweep. Empty disables it.
	ScheduleSpec string `env:"CRON_SCHEDULE_SPEC" envDefault:"*/30 * * * *"`

	// DispatchSpec runs one dispatcher batch. Empty disables it.
	DispatchSpec string `env:"CRON_DISPATCH_SPEC" envDefault:"*/2 * * * *"`

	// LeaseTTL bounds how long one replica holds a tick's lease. It is raised to
	// RunTimeout when shorter so a tick cannot outlive its lease.
	LeaseTTL time.Duration `env:"CRON_LEASE_TTL" envDefault:"10m"`

	// RunTimeout bounds a single tick.
	RunTimeout time.Duration `env:"CRON_RUN_TIMEOUT" envDefault:"10m"`
}

// Sanitize applies guardrails to cron configuration values.
func (c *CronConfig) Sanitize() {
	c.ScheduleSpec = strings.TrimSpace(c.ScheduleSpec)
	c.DispatchSpec = strings.TrimSpace(c.DispatchSpec)
	if c.LeaseTTL < 10*time.Second {
		c.LeaseTTL = 10 * time.Second
	}
	if c.RunTimeout < time.Minute {
		c.RunTimeout = time.Minute
	}
	if c.LeaseTTL < c.RunTimeout {
		c.LeaseTTL = c.RunTimeout
	}
}

// Validate checks that both specs parse as standard five-field cron expressions.
func (c *CronConfig) Validate() error {
	for name, spec := range map[string]string{"CRON_SCHEDULE_SPEC": c.ScheduleSpec, "CRON_DISPATCH_SPEC": c.DispatchSpec} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ReaperConfig contains housekeeping configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// RunningMaxAge is how long a job may stay running before it is returned to queued.
	RunningMaxAge time.Duration `env:"REAPER_RUNNING_MAX_AGE" envDefault:"30m"`

	// JobMaxAge is the retention for success and error jobs.
	JobMaxAge time.Duration `env:"REAPER_JOB_MAX_AGE" envDefault:"168h"` // 7 days

	// EventMaxAge is the retention for scheduler events.
	EventMaxAge time.Duration `env:"REAPER_EVENT_MAX_AGE" envDefault:"720h"` // 30 days

	// BatchSize is the maximum number of rows to process per statement.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.RunningMaxAge < 5*time.Minute {
		r.RunningMaxAge = 5 * time.Minute
	}
	if r.JobMaxAge < 1*time.Hour {
		r.JobMaxAge = 1 * time.Hour
	}
	if r.EventMaxAge < 24*time.Hour {
		r.EventMaxAge = 24 * time.Hour
	}
	r.BatchSize = min(max(r.BatchSize, 1), 10000)
}
