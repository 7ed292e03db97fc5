package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/target/adsync/internal/core"
	"github.com/target/adsync/internal/data/pgxutil"
)

// Advisory lock namespace for housekeeping. The two-key form of
// pg_try_advisory_xact_lock keeps these apart from other lock users.
const (
	advisoryLockHousekeepingMajor = 2000
	advisoryLockResetStale        = 1
	advisoryLockDeleteJobs        = 2
	advisoryLockDeleteEvents      = 3
)

var errInvalidBatch = errors.New("batch size and max age must be greater than zero")

// lockedExec runs stmt in a transaction holding the given housekeeping lock. When another
// instance holds the lock it does nothing and reports zero rows.
func lockedExec(ctx context.Context, db *sql.DB, minor int, stmt string, args ...any) (int64, error) {
	var n int64
	err := pgxutil.WithSQLTx(ctx, db, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx,
				"SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockHousekeepingMajor, minor,
			).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}
			res, err := tx.ExecContext(ctx, stmt, args...)
			if err != nil {
				return err
			}
			n, err = res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ResetStaleRunningJobs returns up to batchSize jobs that have been running longer than
// maxAge to queued so a later dispatch can claim them again.
func (r *SyncJobRepo) ResetStaleRunningJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if maxAge <= 0 || batchSize <= 0 {
		return 0, errInvalidBatch
	}
	cutoff := r.clock.Now().Add(-maxAge)
	n, err := lockedExec(ctx, r.DB, advisoryLockResetStale, `
		UPDATE sync_jobs
		SET status = 'queued',
		    started_at = NULL
		WHERE id IN (
			SELECT id FROM sync_jobs
			WHERE status = 'running' AND started_at < $1
			ORDER BY started_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
	`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("reset stale running jobs: %w", err)
	}
	return n, nil
}

// DeleteOldJobs deletes up to params.BatchSize terminal jobs processed before params.MaxAge ago.
func (r *SyncJobRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if !params.Status.Terminal() {
		return 0, fmt.Errorf("refusing to delete non-terminal jobs with status %q", params.Status)
	}
	if params.MaxAge <= 0 || params.BatchSize <= 0 {
		return 0, errInvalidBatch
	}
	cutoff := r.clock.Now().Add(-params.MaxAge)
	n, err := lockedExec(ctx, r.DB, advisoryLockDeleteJobs, `
		DELETE FROM sync_jobs
		WHERE id IN (
			SELECT id FROM sync_jobs
			WHERE status = $1
			  AND COALESCE(processed_at, created_at) < $2
			ORDER BY COALESCE(processed_at, created_at)
			LIMIT $3
		)
	`, string(params.Status), cutoff, params.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("delete old %s jobs: %w", params.Status, err)
	}
	return n, nil
}

// DeleteOldSchedulerEvents prunes up to batchSize scheduler events older than maxAge.
func (r *SyncJobRepo) DeleteOldSchedulerEvents(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if maxAge <= 0 || batchSize <= 0 {
		return 0, errInvalidBatch
	}
	cutoff := r.clock.Now().Add(-maxAge)
	n, err := lockedExec(ctx, r.DB, advisoryLockDeleteEvents, `
		DELETE FROM scheduler_events
		WHERE id IN (
			SELECT id FROM scheduler_events
			WHERE created_at < $1
			ORDER BY created_at
			LIMIT $2
		)
	`, cutoff, batchSize)
	if err != nil {
		return 0, fmt.Errorf("delete old scheduler events: %w", err)
	}
	return n, nil
}

var _ core.HousekeepingRepository = (*SyncJobRepo)(nil)
