package model

import "time"

// NormalizedMetric is one provider-agnostic metric value returned by the fetch collaborator.
type NormalizedMetric struct {
	Date       time.Time         `json:"date"`
	EntityID   string            `json:"entity_id"`
	EntityType string            `json:"entity_type,omitempty"`
	Name       string            `json:"name"`
	Value      float64           `json:"value"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
}

// FetchRequest is the input of the provider fetch-and-normalize collaborator.
type FetchRequest struct {
	Tenant        TenantRef `json:"tenant"`
	ProviderID    string    `json:"provider_id"`
	AccountID     string    `json:"account_id,omitempty"`
	TimeframeDays int       `json:"timeframe_days"`
}

// WriteMetricsRequest persists the normalized output of one job.
type WriteMetricsRequest struct {
	Key     IntegrationKey
	JobID   string
	Metrics []NormalizedMetric
}
