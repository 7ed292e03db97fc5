// Package devseed upserts demo integrations for local development databases.
package devseed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/adsync/internal/domain/model"
)

// IntegrationStore is the slice of the integration repository seeding needs.
type IntegrationStore interface {
	Get(ctx context.Context, key model.IntegrationKey) (*model.Integration, error)
	Upsert(ctx context.Context, req *model.UpsertIntegrationRequest) (*model.Integration, error)
}

// Result counts what a seeding pass wrote.
type Result struct {
	Created int
	Updated int
	Failed  int
}

// Run upserts every default integration. Existing rows keep their sync history; only
// connection attributes are refreshed.
func Run(ctx context.Context, store IntegrationStore, logger *slog.Logger) (Result, error) {
	if store == nil {
		return Result{}, errors.New("integration store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var res Result
	for _, req := range DefaultIntegrations() {
		created, err := upsertIntegration(ctx, store, req)
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed integration", "key", req.Key.String(), "error", err)
			res.Failed++
			continue
		}
		msg := "refreshed integration"
		if created {
			msg = "created integration"
			res.Created++
		} else {
			res.Updated++
		}
		logger.InfoContext(ctx, msg, "key", req.Key.String())
	}

	if res.Failed > 0 {
		return res, fmt.Errorf("%d seed errors; check logs", res.Failed)
	}
	return res, nil
}

func upsertIntegration(ctx context.Context, store IntegrationStore, req *model.UpsertIntegrationRequest) (bool, error) {
	existing, err := store.Get(ctx, req.Key)
	if err != nil {
		return false, err
	}
	if _, err := store.Upsert(ctx, req); err != nil {
		return false, err
	}
	return existing == nil, nil
}

// DefaultIntegrations returns the demo connections: two tenants across three providers,
// with one paused integration and one missing its refresh token.
func DefaultIntegrations() []*model.UpsertIntegrationRequest {
	hourly, daily := 60, 1440
	week, month, quarter := 7, 30, 90
	off := false

	key := func(tenant, provider, account string) model.IntegrationKey {
		return model.IntegrationKey{Tenant: model.TenantRef{ID: tenant}, ProviderID: provider, AccountID: account}
	}

	return []*model.UpsertIntegrationRequest{
		{
			Key:                    key("demo-retail", "google", "123-456-7890"),
			AccountName:            "Retail Search",
			HasAccessToken:         true,
			HasRefreshToken:        true,
			SyncFrequencyMinutes:   &hourly,
			ScheduledTimeframeDays: &week,
		},
		{
			Key:                    key("demo-retail", "meta", "act_1001"),
			AccountName:            "Retail Social",
			HasAccessToken:         true,
			HasRefreshToken:        true,
			SyncFrequencyMinutes:   &daily,
			ScheduledTimeframeDays: &month,
		},
		{
			Key:             key("demo-retail", "tiktok", ""),
			AccountName:     "Retail Video",
			HasAccessToken:  true,
			HasRefreshToken: false,
		},
		{
			Key:                    key("demo-travel", "google", "987-654-3210"),
			AccountName:            "Travel Search",
			HasAccessToken:         true,
			HasRefreshToken:        true,
			ScheduledTimeframeDays: &quarter,
		},
		{
			Key:             key("demo-travel", "meta", "act_2002"),
			AccountName:     "Travel Social (paused)",
			HasAccessToken:  true,
			HasRefreshToken: true,
			AutoSyncEnabled: &off,
		},
	}
}
