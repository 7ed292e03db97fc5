package testutil

import (
	"time"

	"github.com/target/adsync/internal/domain/model"
)

// IntegrationBuilder builds model.Integration fixtures for policy and service tests.
type IntegrationBuilder struct {
	in model.Integration
}

// NewIntegration starts a connected, never-synced integration for tenant and provider.
func NewIntegration(tenant, provider string) *IntegrationBuilder {
	return &IntegrationBuilder{in: model.Integration{
		Key:             model.IntegrationKey{Tenant: model.TenantRef{ID: tenant}, ProviderID: provider},
		HasAccessToken:  true,
		HasRefreshToken: true,
		LastSyncStatus:  model.SyncStatusNever,
		CreatedAt:       TestTime(),
		UpdatedAt:       TestTime(),
	}}
}

// WithAccount sets the sub-account id.
func (b *IntegrationBuilder) WithAccount(id string) *IntegrationBuilder {
	b.in.Key.AccountID = id
	return b
}

// WithAutoSync sets AutoSyncEnabled.
func (b *IntegrationBuilder) WithAutoSync(enabled bool) *IntegrationBuilder {
	b.in.AutoSyncEnabled = &enabled
	return b
}

// WithFrequency sets SyncFrequencyMinutes.
func (b *IntegrationBuilder) WithFrequency(minutes int) *IntegrationBuilder {
	b.in.SyncFrequencyMinutes = &minutes
	return b
}

// WithTimeframe sets ScheduledTimeframeDays.
func (b *IntegrationBuilder) WithTimeframe(days int) *IntegrationBuilder {
	b.in.ScheduledTimeframeDays = &days
	return b
}

// SyncedAt records a successful sync at t.
func (b *IntegrationBuilder) SyncedAt(t time.Time) *IntegrationBuilder {
	b.in.LastSyncedAt = &t
	b.in.LastSyncStatus = model.SyncStatusSuccess
	return b
}

// RequestedAt records a sync request at t.
func (b *IntegrationBuilder) RequestedAt(t time.Time) *IntegrationBuilder {
	b.in.LastSyncRequestedAt = &t
	return b
}

// Build returns a copy of the integration.
func (b *IntegrationBuilder) Build() *model.Integration {
	in := b.in
	return &in
}

// UpsertRequest converts the fixture into a repository upsert request.
func (b *IntegrationBuilder) UpsertRequest() *model.UpsertIntegrationRequest {
	return &model.UpsertIntegrationRequest{
		Key:                    b.in.Key,
		AccountName:            b.in.AccountName,
		HasAccessToken:         b.in.HasAccessToken,
		HasRefreshToken:        b.in.HasRefreshToken,
		AutoSyncEnabled:        b.in.AutoSyncEnabled,
		SyncFrequencyMinutes:   b.in.SyncFrequencyMinutes,
		ScheduledTimeframeDays: b.in.ScheduledTimeframeDays,
	}
}

// NewEnqueueRequest builds a scheduled-sync enqueue request with a 30 day window.
func NewEnqueueRequest(tenant, provider string) *model.EnqueueSyncJobRequest {
	return &model.EnqueueSyncJobRequest{
		Key:           model.IntegrationKey{Tenant: model.TenantRef{ID: tenant}, ProviderID: provider},
		JobType:       model.SyncJobTypeScheduled,
		TimeframeDays: 30,
	}
}
