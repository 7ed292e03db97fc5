// Package model defines the core data types shared by the adsync scheduling, queueing and telemetry layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxTenantIDLength = 128

var (
	// ErrInvalidTenant is returned when a tenant reference is empty or malformed.
	ErrInvalidTenant = errors.New("invalid tenant reference")
	// ErrInvalidProvider is returned when a provider identifier is empty or malformed.
	ErrInvalidProvider = errors.New("invalid provider id")
)

// TenantRef identifies one isolated customer workspace. Every record in the system is
// partitioned by it; there is no separate user-scoped addressing.
type TenantRef struct {
	ID string `json:"tenant_id"`
}

// NewTenantRef validates id and returns a TenantRef.
func NewTenantRef(id string) (TenantRef, error) {
	t := TenantRef{ID: id}
	if err := t.Validate(); err != nil {
		return TenantRef{}, err
	}
	return t, nil
}

// Validate reports whether the reference is usable as a partition key.
func (t TenantRef) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTenant)
	}
	if strings.TrimSpace(t.ID) != t.ID {
		return fmt.Errorf("%w: id has surrounding whitespace", ErrInvalidTenant)
	}
	if utf8.RuneCountInString(t.ID) > maxTenantIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidTenant, maxTenantIDLength)
	}
	return nil
}

func (t TenantRef) String() string { return t.ID }

// IntegrationKey addresses one (tenant, provider[, sub-account]) connection.
// An empty AccountID means the connection has no sub-account.
type IntegrationKey struct {
	Tenant     TenantRef `json:"tenant"`
	ProviderID string    `json:"provider_id"`
	AccountID  string    `json:"account_id,omitempty"`
}

// Validate checks the key's tenant and provider parts.
func (k IntegrationKey) Validate() error {
	if err := k.Tenant.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(k.ProviderID) == "" {
		return fmt.Errorf("%w: provider id is required", ErrInvalidProvider)
	}
	return nil
}

func (k IntegrationKey) String() string {
	if k.AccountID == "" {
		return k.Tenant.ID + "/" + k.ProviderID
	}
	return k.Tenant.ID + "/" + k.ProviderID + "/" + k.AccountID
}
