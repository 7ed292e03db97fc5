// Package core defines the ports between the adsync services and their adapters.
package core

import (
	"context"
	"time"

	"github.com/target/adsync/internal/domain/model"
)

// Service implementations depend on these interfaces; the data and adapters packages
// provide the concrete implementations.

// IntegrationRepository is the persistence boundary for integration connection state.
type IntegrationRepository interface {
	// Get returns (nil, nil) when no integration exists for key.
	Get(ctx context.Context, key model.IntegrationKey) (*model.Integration, error)
	Upsert(ctx context.Context, req *model.UpsertIntegrationRequest) (*model.Integration, error)
	Delete(ctx context.Context, key model.IntegrationKey) (bool, error)
	// ListByTenant lists a tenant's integrations, optionally restricted to providerIDs.
	ListByTenant(ctx context.Context, tenant model.TenantRef, providerIDs []string) ([]*model.Integration, error)
	// ListAll pages through integrations of every tenant in key order.
	ListAll(ctx context.Context, opts model.ListIntegrationsOptions) ([]*model.Integration, error)
	// MarkSyncRequested records a sync request at the given time unless a newer one is stored.
	MarkSyncRequested(ctx context.Context, key model.IntegrationKey, at time.Time) error
	// MarkSyncOutcome records the result of a finished job unless a newer outcome is stored.
	MarkSyncOutcome(ctx context.Context, key model.IntegrationKey, outcome model.SyncOutcome) error
}

// SyncJobRepository is the job queue. Every method is atomic relative to concurrent callers.
type SyncJobRepository interface {
	Enqueue(ctx context.Context, req *model.EnqueueSyncJobRequest) (*model.SyncJob, error)
	// ClaimNext moves the tenant's oldest queued job to running. It returns (nil, nil)
	// when the tenant has nothing queued.
	ClaimNext(ctx context.Context, tenant model.TenantRef) (*model.SyncJob, error)
	// Complete and Fail return false when the job was not running.
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	GetByID(ctx context.Context, id string) (*model.SyncJob, error)
	// HasOutstanding reports whether a queued or running job exists for key.
	HasOutstanding(ctx context.Context, key model.IntegrationKey) (bool, error)
	// ListTenantsWithQueued returns up to limit tenants that have queued jobs.
	ListTenantsWithQueued(ctx context.Context, limit int) ([]model.TenantRef, error)
	// CountQueued counts the tenant's queued jobs, stopping at limit.
	CountQueued(ctx context.Context, tenant model.TenantRef, limit int) (int, error)
	Stats(ctx context.Context) (*model.SyncJobStats, error)
}

// DeleteOldJobsParams groups parameters for HousekeepingRepository.DeleteOldJobs.
type DeleteOldJobsParams struct {
	Status    model.SyncJobStatus
	MaxAge    time.Duration
	BatchSize int
}

// HousekeepingRepository performs the batched cleanup statements used by the reaper.
type HousekeepingRepository interface {
	// ResetStaleRunningJobs returns running jobs started before maxAge ago to queued.
	ResetStaleRunningJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
	DeleteOldSchedulerEvents(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// SchedulerEventRepository stores the append-only dispatcher telemetry log.
type SchedulerEventRepository interface {
	Create(ctx context.Context, req *model.CreateSchedulerEventRequest) (*model.SchedulerEvent, error)
	List(ctx context.Context, opts model.SchedulerEventListOptions) ([]*model.SchedulerEvent, error)
}

// MetricsFetcher is the external per-provider fetch-and-normalize collaborator.
type MetricsFetcher interface {
	FetchAndNormalize(ctx context.Context, req model.FetchRequest) ([]model.NormalizedMetric, error)
}

// MetricsWriter persists normalized metrics and returns the number of rows written.
type MetricsWriter interface {
	WriteMetrics(ctx context.Context, req model.WriteMetricsRequest) (int, error)
}

// LeaseStore hands out short-lived named leases shared by all replicas.
type LeaseStore interface {
	// TryAcquire returns acquired=false without error when another holder owns name.
	// The returned release func is non-nil only when acquired is true.
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}
