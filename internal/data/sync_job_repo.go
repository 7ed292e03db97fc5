package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/target/adsync/internal/data/pgxutil"
	"github.com/target/adsync/internal/domain/model"
	apperrors "github.com/target/adsync/internal/errors"
)

// SyncJobRepoOptions configures a SyncJobRepo.
type SyncJobRepoOptions struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// SyncJobRepo is the Postgres-backed sync job queue.
type SyncJobRepo struct {
	DB     *sql.DB
	clock  TimeProvider
	logger *slog.Logger
}

// NewSyncJobRepo creates a new SyncJobRepo.
func NewSyncJobRepo(db *sql.DB, opts SyncJobRepoOptions) *SyncJobRepo {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncJobRepo{
		DB:     db,
		clock:  nowOr(opts.TimeProvider),
		logger: logger.With("component", "sync_job_repo"),
	}
}

const syncJobColumns = `
  id,
  seq,
  tenant_id,
  provider_id,
  account_id,
  job_type,
  timeframe_days,
  status,
  created_at,
  started_at,
  processed_at,
  error_message
`

// claimNextSQL picks the tenant's oldest queued job. SKIP LOCKED lets concurrent
// claimers move on to the next row instead of blocking, so each job has one winner.
const claimNextSQL = `
  WITH next AS (
    SELECT id FROM sync_jobs
    WHERE tenant_id = $1 AND status = 'queued'
    ORDER BY created_at ASC, seq ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE sync_jobs j
  SET status = 'running',
      started_at = $2
  FROM next
  WHERE j.id = next.id
  RETURNING j.id, j.seq, j.tenant_id, j.provider_id, j.account_id, j.job_type, j.timeframe_days,
            j.status, j.created_at, j.started_at, j.processed_at, j.error_message`

func scanSyncJob(s rowScanner) (*model.SyncJob, error) {
	var (
		job       model.SyncJob
		tenantID  string
		started   sql.NullTime
		processed sql.NullTime
		errMsg    sql.NullString
	)
	if err := s.Scan(
		&job.ID,
		&job.Seq,
		&tenantID,
		&job.ProviderID,
		&job.AccountID,
		&job.JobType,
		&job.TimeframeDays,
		&job.Status,
		&job.CreatedAt,
		&started,
		&processed,
		&errMsg,
	); err != nil {
		return nil, err
	}
	job.Tenant = model.TenantRef{ID: tenantID}
	job.CreatedAt = job.CreatedAt.UTC()
	job.StartedAt = nullableTime(started)
	job.ProcessedAt = nullableTime(processed)
	job.ErrorMessage = nullableString(errMsg)
	return &job, nil
}

// Enqueue appends a queued job. Duplicate jobs for the same integration are allowed;
// callers gate on HasOutstanding.
func (r *SyncJobRepo) Enqueue(ctx context.Context, req *model.EnqueueSyncJobRequest) (*model.SyncJob, error) {
	if req == nil {
		return nil, ErrRequestRequired
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO sync_jobs (id, tenant_id, provider_id, account_id, job_type, timeframe_days, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'queued', $7)
		RETURNING `+syncJobColumns,
		uuid.NewString(),
		req.Key.Tenant.ID,
		req.Key.ProviderID,
		req.Key.AccountID,
		string(req.JobType),
		req.TimeframeDays,
		r.clock.Now(),
	)
	job, err := scanSyncJob(row)
	if err != nil {
		return nil, fmt.Errorf("enqueue sync job %s: %w", req.Key, apperrors.MapDBError(err))
	}
	return job, nil
}

// ClaimNext atomically moves the tenant's oldest queued job to running.
// It returns (nil, nil) when nothing is queued or every queued row is being claimed.
func (r *SyncJobRepo) ClaimNext(ctx context.Context, tenant model.TenantRef) (*model.SyncJob, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}

	var job *model.SyncJob
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, claimNextSQL, tenant.ID, r.clock.Now())
			if err != nil {
				return err
			}
			job, err = pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (*model.SyncJob, error) {
				return scanSyncJob(row)
			})
			return err
		},
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim sync job for tenant %s: %w", tenant, apperrors.MapDBError(err))
	}
	return job, nil
}

// Complete marks a running job successful. It reports false when the job was not running.
func (r *SyncJobRepo) Complete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, ErrInvalidJobID
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE sync_jobs
		SET status = 'success',
		    processed_at = $2,
		    error_message = NULL
		WHERE id = $1 AND status = 'running'
	`, id, r.clock.Now())
	if err != nil {
		return false, fmt.Errorf("complete sync job %s: %w", id, apperrors.MapDBError(err))
	}
	return affected(res)
}

// Fail marks a running job failed with errMsg. It reports false when the job was not running.
func (r *SyncJobRepo) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, ErrInvalidJobID
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE sync_jobs
		SET status = 'error',
		    processed_at = $2,
		    error_message = $3
		WHERE id = $1 AND status = 'running'
	`, id, r.clock.Now(), errMsg)
	if err != nil {
		return false, fmt.Errorf("fail sync job %s: %w", id, apperrors.MapDBError(err))
	}
	ok, err := affected(res)
	if err == nil && !ok {
		r.logger.WarnContext(ctx, "fail on non-running sync job ignored", "job_id", id)
	}
	return ok, err
}

// GetByID returns model.ErrJobNotFound when no job has the id.
func (r *SyncJobRepo) GetByID(ctx context.Context, id string) (*model.SyncJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidJobID
	}

	var job *model.SyncJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+syncJobColumns+` FROM sync_jobs WHERE id = $1`, id)
		if err != nil {
			return err
		}
		job, err = pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (*model.SyncJob, error) {
			return scanSyncJob(row)
		})
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get sync job %s: %w", id, apperrors.MapDBError(err))
	}
	return job, nil
}

// HasOutstanding reports whether a queued or running job exists for key.
func (r *SyncJobRepo) HasOutstanding(ctx context.Context, key model.IntegrationKey) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sync_jobs
			WHERE tenant_id = $1 AND provider_id = $2 AND account_id = $3
			  AND status IN ('queued', 'running')
		)
	`, key.Tenant.ID, key.ProviderID, key.AccountID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check outstanding jobs %s: %w", key, apperrors.MapDBError(err))
	}
	return exists, nil
}

// ListTenantsWithQueued returns up to limit tenants with queued work, longest-waiting first.
func (r *SyncJobRepo) ListTenantsWithQueued(ctx context.Context, limit int) ([]model.TenantRef, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT tenant_id
		FROM sync_jobs
		WHERE status = 'queued'
		GROUP BY tenant_id
		ORDER BY MIN(created_at) ASC, tenant_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tenants with queued jobs: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var tenants []model.TenantRef
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, model.TenantRef{ID: id})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", apperrors.MapDBError(err))
	}
	return tenants, nil
}

// CountQueued counts the tenant's queued jobs without scanning past limit rows.
func (r *SyncJobRepo) CountQueued(ctx context.Context, tenant model.TenantRef, limit int) (int, error) {
	if err := tenant.Validate(); err != nil {
		return 0, err
	}
	if limit <= 0 {
		return 0, nil
	}
	var n int
	err := r.DB.QueryRowContext(ctx, `
		SELECT count(*) FROM (
			SELECT 1 FROM sync_jobs
			WHERE tenant_id = $1 AND status = 'queued'
			LIMIT $2
		) peek
	`, tenant.ID, limit).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count queued jobs for tenant %s: %w", tenant, apperrors.MapDBError(err))
	}
	return n, nil
}

// Stats returns job counts per status.
func (r *SyncJobRepo) Stats(ctx context.Context) (*model.SyncJobStats, error) {
	var s model.SyncJobStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT
		  count(*) FILTER (WHERE status = 'queued')  AS queued,
		  count(*) FILTER (WHERE status = 'running') AS running,
		  count(*) FILTER (WHERE status = 'success') AS success,
		  count(*) FILTER (WHERE status = 'error')   AS error
		FROM sync_jobs
	`).Scan(&s.Queued, &s.Running, &s.Success, &s.Error)
	if err != nil {
		return nil, fmt.Errorf("sync job stats: %w", apperrors.MapDBError(err))
	}
	return &s, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
