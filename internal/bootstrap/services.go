package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/adsync/config"
	"github.com/target/adsync/internal/adapters/oidc"
	"github.com/target/adsync/internal/adapters/provider"
	reaperadapter "github.com/target/adsync/internal/adapters/reaper"
	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/data"
	"github.com/target/adsync/internal/domain/schedule"
	"github.com/target/adsync/internal/domain/telemetry"
	"github.com/target/adsync/internal/observability/notify"
	"github.com/target/adsync/internal/observability/notify/pagerduty"
	"github.com/target/adsync/internal/observability/notify/slack"
	"github.com/target/adsync/internal/observability/notify/webhook"
	"github.com/target/adsync/internal/observability/statsd"
	"github.com/target/adsync/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Orchestrator *service.Orchestrator
	Scheduling   *service.SchedulingService
	Dispatcher   *service.Dispatcher
	Monitor      *service.Monitor
	Reaper       *reaperadapter.Runner

	Jobs   *data.SyncJobRepo
	Leases core.LeaseStore
	// Verifier is nil unless OIDC automation auth is configured.
	Verifier *oidc.Verifier

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	// MetricsSink is nil when metrics are disabled.
	MetricsSink statsd.Sink
	Statsd      *statsd.Client
	// Alerts is nil when no notification sink is enabled.
	Alerts notify.Sink
}

// Close flushes the metrics client.
func (o ObservabilityContainer) Close() error {
	if o.Statsd == nil {
		return nil
	}
	return o.Statsd.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports; no business rules here.
type serviceRepositories struct {
	Integrations *data.IntegrationRepo
	Jobs         *data.SyncJobRepo
	Events       *data.SchedulerEventRepo
	Metrics      *data.MetricRepo
	Leases       core.LeaseStore
}

func buildRepositories(db *sql.DB, rdb redis.UniversalClient, cfg *config.AppConfig, logger *slog.Logger) *serviceRepositories {
	tp := &data.RealTimeProvider{}
	repos := &serviceRepositories{
		Integrations: data.NewIntegrationRepo(db, data.IntegrationRepoOptions{TimeProvider: tp}),
		Jobs:         data.NewSyncJobRepo(db, data.SyncJobRepoOptions{Logger: logger, TimeProvider: tp}),
		Events:       data.NewSchedulerEventRepo(db, data.SchedulerEventRepoOptions{TimeProvider: tp}),
		Metrics:      data.NewMetricRepo(db, tp),
	}
	if rdb != nil {
		repos.Leases = data.NewRedisLeaseRepo(rdb, cfg.Redis.KeyPrefix)
	}
	return repos
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	var out ObservabilityContainer
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			out.Statsd = client
			out.MetricsSink = client
		}
	}

	if alerts := buildAlertSinks(logger, cfg.Notifications); alerts != nil {
		out.Alerts = alerts
	}
	return out
}

// buildAlertSinks returns nil when no sink is enabled, so callers get a nil interface.
func buildAlertSinks(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *notify.Fanout {
	if !cfg.Enabled {
		return nil
	}

	var sinks []notify.SinkRegistration
	if cfg.Webhook.Enabled {
		client, err := webhook.NewClient(webhook.Config{
			URL:            cfg.Webhook.URL,
			BodyExpression: cfg.Webhook.BodyExpression,
			Headers:        cfg.Webhook.Headers,
			Timeout:        cfg.Timeout,
			RetryLimit:     cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise alert webhook", "error", err)
		} else {
			sinks = append(sinks, notify.SinkRegistration{Name: "webhook", Sink: client})
		}
	}
	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, notify.SinkRegistration{Name: "slack", Sink: client})
		}
	}
	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, notify.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	if len(sinks) == 0 {
		return nil
	}
	return notify.NewFanout(logger, sinks...)
}

// NewServices wires repositories, adapters and domain services.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return ServiceContainer{}, errors.New("service deps require config and database")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	catalog, err := config.LoadProviderCatalog(cfg.ProviderCatalogFile)
	if err != nil {
		return ServiceContainer{}, err
	}

	repos := buildRepositories(deps.DB, deps.RedisClient, cfg, logger)
	obs := buildObservability(logger, cfg.Observability)

	gateway, err := provider.NewGatewayClient(provider.GatewayOptions{
		Config:   cfg.ProviderGateway,
		BaseURLs: catalog.BaseURLs(),
		Timeouts: catalog.Timeouts(),
		Logger:   logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("provider gateway: %w", err)
	}

	domain, err := buildDomainServices(domainServicesOptions{
		cfg:     cfg,
		repos:   repos,
		fetcher: gateway,
		catalog: catalog,
		obs:     obs,
		logger:  logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	if cfg.Automation.OIDCEnabled() {
		verifier, verr := oidc.NewVerifier(ctx, oidc.VerifierConfig{
			IssuerURL:       cfg.Automation.OIDCIssuerURL,
			Audience:        cfg.Automation.OIDCAudience,
			AllowedSubjects: cfg.Automation.OIDCAllowedSubjects,
		})
		if verr != nil {
			return ServiceContainer{}, fmt.Errorf("automation oidc: %w", verr)
		}
		domain.Verifier = verifier
	}

	domain.Jobs = repos.Jobs
	domain.Leases = repos.Leases
	domain.Observability = obs
	return domain, nil
}

type domainServicesOptions struct {
	cfg     *config.AppConfig
	repos   *serviceRepositories
	fetcher core.MetricsFetcher
	catalog *config.ProviderCatalog
	obs     ObservabilityContainer
	logger  *slog.Logger
}

func buildDomainServices(opts domainServicesOptions) (ServiceContainer, error) {
	cfg := opts.cfg
	metrics := opts.obs.MetricsSink

	scheduling, err := service.NewSchedulingService(service.SchedulingServiceOptions{
		Integrations: opts.repos.Integrations,
		Jobs:         opts.repos.Jobs,
		Policy: schedule.Policy{
			DefaultCadence:       cfg.Sync.DefaultCadence,
			DefaultTimeframeDays: cfg.Sync.DefaultTimeframeDays,
			MaxTimeframeDays:     cfg.Sync.MaxTimeframeDays,
		},
		PageSize: cfg.Sync.PageSize,
		Logger:   opts.logger,
		Metrics:  metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("scheduling service: %w", err)
	}

	processor, err := service.NewJobProcessor(service.JobProcessorOptions{
		Jobs:         opts.repos.Jobs,
		Integrations: opts.repos.Integrations,
		Fetcher:      opts.fetcher,
		Writer:       opts.repos.Metrics,
		JobTimeout:   cfg.Dispatch.JobTimeout,
		Logger:       opts.logger,
		Metrics:      metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("job processor: %w", err)
	}

	dispatcher, err := service.NewDispatcher(service.DispatcherOptions{
		Jobs:              opts.repos.Jobs,
		Processor:         processor,
		DefaultMaxJobs:    cfg.Dispatch.MaxJobs,
		DefaultMaxTenants: cfg.Dispatch.MaxTenants,
		PerTenantCap:      cfg.Dispatch.PerTenantCap,
		PeekLimit:         cfg.Dispatch.PeekLimit,
		InterJobDelay:     cfg.Dispatch.InterJobDelay,
		TenantConcurrency: cfg.Dispatch.TenantConcurrency,
		Logger:            opts.logger,
		Metrics:           metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("dispatcher: %w", err)
	}

	monitor, err := service.NewMonitor(service.MonitorOptions{
		Events: opts.repos.Events,
		Alerts: opts.obs.Alerts,
		Thresholds: telemetry.Thresholds{
			Global:      cfg.Monitor.GlobalThreshold,
			PerProvider: opts.catalog.Thresholds(cfg.Monitor.ProviderThresholds),
		},
		Logger:  opts.logger,
		Metrics: metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("monitor: %w", err)
	}

	reaper, err := reaperadapter.NewRunner(reaperadapter.RunnerOptions{
		Repo:    opts.repos.Jobs,
		Config:  cfg.Reaper,
		Logger:  opts.logger,
		Metrics: metrics,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("reaper: %w", err)
	}

	orch, err := service.NewOrchestrator(service.OrchestratorOptions{
		Dispatcher: dispatcher,
		Scheduling: scheduling,
		Reaper:     reaper.Service(),
		Monitor:    monitor,
		Logger:     opts.logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("orchestrator: %w", err)
	}

	return ServiceContainer{
		Orchestrator: orch,
		Scheduling:   scheduling,
		Dispatcher:   dispatcher,
		Monitor:      monitor,
		Reaper:       reaper,
	}, nil
}
