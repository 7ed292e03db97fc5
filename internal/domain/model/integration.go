package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SyncStatus is the summary of the most recent sync attempt stored on an integration.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type SyncStatus string

const (
	// SyncStatusNever means the integration has not been synced yet.
	SyncStatusNever SyncStatus = "never"
	// SyncStatusPending means a sync was requested and has not reported back.
	SyncStatusPending SyncStatus = "pending"
	// SyncStatusSuccess means the last sync finished successfully.
	SyncStatusSuccess SyncStatus = "success"
	// SyncStatusError means the last sync failed.
	SyncStatusError SyncStatus = "error"
)

// Valid returns true if the SyncStatus is known.
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusNever, SyncStatusPending, SyncStatusSuccess, SyncStatusError:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SyncStatus) UnmarshalText(text []byte) error {
	v := SyncStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid SyncStatus: %q", v)
	}
	*s = v
	return nil
}

// Integration is the persisted connection state of one provider account for a tenant.
type Integration struct {
	Key                    IntegrationKey `json:"key"`
	AccountName            string         `json:"account_name,omitempty"`
	HasAccessToken         bool           `json:"has_access_token"`
	HasRefreshToken        bool           `json:"has_refresh_token"`
	AutoSyncEnabled        *bool          `json:"auto_sync_enabled,omitempty"`
	SyncFrequencyMinutes   *int           `json:"sync_frequency_minutes,omitempty"`
	ScheduledTimeframeDays *int           `json:"scheduled_timeframe_days,omitempty"`
	LastSyncedAt           *time.Time     `json:"last_synced_at,omitempty"`
	LastSyncRequestedAt    *time.Time     `json:"last_sync_requested_at,omitempty"`
	LastSyncStatus         SyncStatus     `json:"last_sync_status"`
	LastSyncMessage        *string        `json:"last_sync_message,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// NeverSynced reports whether no successful sync has been recorded for the integration.
func (i *Integration) NeverSynced() bool {
	return i.LastSyncedAt == nil && (i.LastSyncStatus == "" || i.LastSyncStatus == SyncStatusNever)
}

// UpsertIntegrationRequest creates or refreshes the stored connection state.
// Sync timestamps are never written through this path.
type UpsertIntegrationRequest struct {
	Key                    IntegrationKey `json:"key"`
	AccountName            string         `json:"account_name,omitempty"`
	HasAccessToken         bool           `json:"has_access_token"`
	HasRefreshToken        bool           `json:"has_refresh_token"`
	AutoSyncEnabled        *bool          `json:"auto_sync_enabled,omitempty"`
	SyncFrequencyMinutes   *int           `json:"sync_frequency_minutes,omitempty"`
	ScheduledTimeframeDays *int           `json:"scheduled_timeframe_days,omitempty"`
}

// Validate validates the UpsertIntegrationRequest fields.
func (r *UpsertIntegrationRequest) Validate() error {
	if err := r.Key.Validate(); err != nil {
		return err
	}
	if r.SyncFrequencyMinutes != nil && *r.SyncFrequencyMinutes < 1 {
		return errors.New("sync frequency must be >= 1 minute")
	}
	if r.ScheduledTimeframeDays != nil && *r.ScheduledTimeframeDays < 1 {
		return errors.New("scheduled timeframe must be >= 1 day")
	}
	return nil
}

// SyncOutcome is written to an integration when a job finishes.
type SyncOutcome struct {
	Status  SyncStatus
	Message string
	At      time.Time
}

// ListIntegrationsOptions drives keyset pagination across all tenants.
type ListIntegrationsOptions struct {
	ProviderIDs []string
	// After resumes listing strictly after this key.
	After *IntegrationKey
	Limit int
}
