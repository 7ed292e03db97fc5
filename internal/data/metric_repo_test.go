package data

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/adsync/internal/domain/model"
	apperrors "github.com/target/adsync/internal/errors"
	"github.com/target/adsync/internal/testutil"
)

func TestMetricRepo_WriteMetricsUpserts(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewMetricRepo(db, nil)
		ctx := context.Background()
		key := model.IntegrationKey{Tenant: model.TenantRef{ID: "t1"}, ProviderID: "google"}
		day := testutil.TestTime()

		n, err := repo.WriteMetrics(ctx, model.WriteMetricsRequest{
			Key: key,
			Metrics: []model.NormalizedMetric{
				{Date: day, EntityID: "cmp-1", EntityType: "campaign", Name: "clicks", Value: 10},
				{Date: day, EntityID: "cmp-1", EntityType: "campaign", Name: "spend", Value: 4.5},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		_, err = repo.WriteMetrics(ctx, model.WriteMetricsRequest{
			Key:     key,
			Metrics: []model.NormalizedMetric{{Date: day, EntityID: "cmp-1", Name: "clicks", Value: 12}},
		})
		require.NoError(t, err)

		var clicks float64
		var rows int
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT value, (SELECT count(*) FROM normalized_metrics) FROM normalized_metrics WHERE metric_name = 'clicks'`,
		).Scan(&clicks, &rows))
		assert.InDelta(t, 12.0, clicks, 0.0001)
		assert.Equal(t, 2, rows)
	})
}

func TestMetricRepo_Validation(t *testing.T) {
	repo := NewMetricRepo(nil, nil)
	key := model.IntegrationKey{Tenant: model.TenantRef{ID: "t1"}, ProviderID: "google"}

	n, err := repo.WriteMetrics(context.Background(), model.WriteMetricsRequest{Key: key})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.WriteMetrics(context.Background(), model.WriteMetricsRequest{
		Key:     key,
		Metrics: []model.NormalizedMetric{{Name: "clicks"}},
	})
	assert.True(t, apperrors.IsValidation(err))
}
