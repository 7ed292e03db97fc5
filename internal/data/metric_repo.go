package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/adsync/internal/data/pgxutil"
	"github.com/target/adsync/internal/domain/model"
	apperrors "github.com/target/adsync/internal/errors"
)

// MetricRepo writes normalized provider metrics.
type MetricRepo struct {
	DB    *sql.DB
	clock TimeProvider
}

// NewMetricRepo creates a new MetricRepo.
func NewMetricRepo(db *sql.DB, tp TimeProvider) *MetricRepo {
	return &MetricRepo{DB: db, clock: nowOr(tp)}
}

const upsertMetricSQL = `
	INSERT INTO normalized_metrics (
		tenant_id, provider_id, account_id, metric_date, entity_id, entity_type,
		metric_name, value, dimensions, job_id, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11)
	ON CONFLICT (tenant_id, provider_id, account_id, metric_date, entity_id, metric_name) DO UPDATE SET
		entity_type = EXCLUDED.entity_type,
		value       = EXCLUDED.value,
		dimensions  = EXCLUDED.dimensions,
		job_id      = EXCLUDED.job_id,
		updated_at  = EXCLUDED.updated_at`

// WriteMetrics upserts every metric of one job in a single transaction. Rewriting the
// same day and entity replaces the previous value, so replays of a job are harmless.
func (r *MetricRepo) WriteMetrics(ctx context.Context, req model.WriteMetricsRequest) (int, error) {
	if err := req.Key.Validate(); err != nil {
		return 0, err
	}
	if len(req.Metrics) == 0 {
		return 0, nil
	}

	now := r.clock.Now()
	batch := &pgx.Batch{}
	for i, m := range req.Metrics {
		if m.EntityID == "" || m.Name == "" {
			return 0, apperrors.Validationf("metric %d: entity id and name are required", i)
		}
		dims := m.Dimensions
		if dims == nil {
			dims = map[string]string{}
		}
		dimsJSON, err := json.Marshal(dims)
		if err != nil {
			return 0, fmt.Errorf("marshal dimensions: %w", err)
		}
		var jobID *string
		if req.JobID != "" {
			jobID = &req.JobID
		}
		batch.Queue(upsertMetricSQL,
			req.Key.Tenant.ID,
			req.Key.ProviderID,
			req.Key.AccountID,
			m.Date.UTC(),
			m.EntityID,
			m.EntityType,
			m.Name,
			m.Value,
			string(dimsJSON),
			jobID,
			now,
		)
	}

	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			return tx.SendBatch(ctx, batch).Close()
		},
	})
	if err != nil {
		return 0, fmt.Errorf("write metrics %s: %w", req.Key, apperrors.MapDBError(err))
	}
	return len(req.Metrics), nil
}
