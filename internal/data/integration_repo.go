package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/target/adsync/internal/domain/model"
	apperrors "github.com/target/adsync/internal/errors"
)

const (
	defaultIntegrationPageSize = 200
	maxIntegrationPageSize     = 1000
)

// IntegrationRepoOptions configures an IntegrationRepo.
type IntegrationRepoOptions struct {
	TimeProvider TimeProvider
}

// IntegrationRepo persists integration connection state in Postgres.
type IntegrationRepo struct {
	DB    *sql.DB
	clock TimeProvider
}

// NewIntegrationRepo creates a new IntegrationRepo.
func NewIntegrationRepo(db *sql.DB, opts IntegrationRepoOptions) *IntegrationRepo {
	return &IntegrationRepo{DB: db, clock: nowOr(opts.TimeProvider)}
}

const integrationColumns = `
  tenant_id,
  provider_id,
  account_id,
  account_name,
  has_access_token,
  has_refresh_token,
  auto_sync_enabled,
  sync_frequency_minutes,
  scheduled_timeframe_days,
  last_synced_at,
  last_sync_requested_at,
  last_sync_status,
  last_sync_message,
  created_at,
  updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntegration(s rowScanner) (*model.Integration, error) {
	var (
		in        model.Integration
		tenantID  string
		autoSync  sql.NullBool
		frequency sql.NullInt32
		timeframe sql.NullInt32
		synced    sql.NullTime
		requested sql.NullTime
		message   sql.NullString
	)
	if err := s.Scan(
		&tenantID,
		&in.Key.ProviderID,
		&in.Key.AccountID,
		&in.AccountName,
		&in.HasAccessToken,
		&in.HasRefreshToken,
		&autoSync,
		&frequency,
		&timeframe,
		&synced,
		&requested,
		&in.LastSyncStatus,
		&message,
		&in.CreatedAt,
		&in.UpdatedAt,
	); err != nil {
		return nil, err
	}
	in.Key.Tenant = model.TenantRef{ID: tenantID}
	if autoSync.Valid {
		v := autoSync.Bool
		in.AutoSyncEnabled = &v
	}
	in.SyncFrequencyMinutes = nullableInt(frequency)
	in.ScheduledTimeframeDays = nullableInt(timeframe)
	in.LastSyncedAt = nullableTime(synced)
	in.LastSyncRequestedAt = nullableTime(requested)
	in.LastSyncMessage = nullableString(message)
	in.CreatedAt = in.CreatedAt.UTC()
	in.UpdatedAt = in.UpdatedAt.UTC()
	return &in, nil
}

// Get returns (nil, nil) when the integration does not exist.
func (r *IntegrationRepo) Get(ctx context.Context, key model.IntegrationKey) (*model.Integration, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+integrationColumns+`
		FROM integrations
		WHERE tenant_id = $1 AND provider_id = $2 AND account_id = $3
	`, key.Tenant.ID, key.ProviderID, key.AccountID)

	in, err := scanIntegration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get integration %s: %w", key, apperrors.MapDBError(err))
	}
	return in, nil
}

// Upsert creates the integration or refreshes its connection attributes.
// Sync timestamps and status are left untouched on update.
func (r *IntegrationRepo) Upsert(ctx context.Context, req *model.UpsertIntegrationRequest) (*model.Integration, error) {
	if req == nil {
		return nil, ErrRequestRequired
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := r.clock.Now()

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO integrations (
			tenant_id, provider_id, account_id, account_name,
			has_access_token, has_refresh_token, auto_sync_enabled,
			sync_frequency_minutes, scheduled_timeframe_days,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (tenant_id, provider_id, account_id) DO UPDATE SET
			account_name             = EXCLUDED.account_name,
			has_access_token         = EXCLUDED.has_access_token,
			has_refresh_token        = EXCLUDED.has_refresh_token,
			auto_sync_enabled        = EXCLUDED.auto_sync_enabled,
			sync_frequency_minutes   = EXCLUDED.sync_frequency_minutes,
			scheduled_timeframe_days = EXCLUDED.scheduled_timeframe_days,
			updated_at               = EXCLUDED.updated_at
		RETURNING `+integrationColumns,
		req.Key.Tenant.ID,
		req.Key.ProviderID,
		req.Key.AccountID,
		req.AccountName,
		req.HasAccessToken,
		req.HasRefreshToken,
		req.AutoSyncEnabled,
		req.SyncFrequencyMinutes,
		req.ScheduledTimeframeDays,
		now,
	)
	in, err := scanIntegration(row)
	if err != nil {
		return nil, fmt.Errorf("upsert integration %s: %w", req.Key, apperrors.MapDBError(err))
	}
	return in, nil
}

// Delete removes the integration. It reports false when nothing matched.
func (r *IntegrationRepo) Delete(ctx context.Context, key model.IntegrationKey) (bool, error) {
	if err := key.Validate(); err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM integrations
		WHERE tenant_id = $1 AND provider_id = $2 AND account_id = $3
	`, key.Tenant.ID, key.ProviderID, key.AccountID)
	if err != nil {
		return false, fmt.Errorf("delete integration %s: %w", key, apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListByTenant lists the tenant's integrations ordered by provider and account.
func (r *IntegrationRepo) ListByTenant(
	ctx context.Context,
	tenant model.TenantRef,
	providerIDs []string,
) ([]*model.Integration, error) {
	if err := tenant.Validate(); err != nil {
		return nil, err
	}
	q := `SELECT ` + integrationColumns + ` FROM integrations WHERE tenant_id = $1`
	args := []any{tenant.ID}
	if ids := compactIDs(providerIDs); len(ids) > 0 {
		q += ` AND provider_id = ANY($2)`
		args = append(args, ids)
	}
	q += ` ORDER BY provider_id, account_id`
	return r.query(ctx, q, args...)
}

// ListAll pages through every tenant's integrations in key order.
func (r *IntegrationRepo) ListAll(ctx context.Context, opts model.ListIntegrationsOptions) ([]*model.Integration, error) {
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = defaultIntegrationPageSize
	case limit > maxIntegrationPageSize:
		limit = maxIntegrationPageSize
	}

	var (
		where []string
		args  []any
	)
	if opts.After != nil {
		args = append(args, opts.After.Tenant.ID, opts.After.ProviderID, opts.After.AccountID)
		where = append(where, `(tenant_id, provider_id, account_id) > ($1, $2, $3)`)
	}
	if ids := compactIDs(opts.ProviderIDs); len(ids) > 0 {
		args = append(args, ids)
		where = append(where, fmt.Sprintf(`provider_id = ANY($%d)`, len(args)))
	}
	args = append(args, limit)

	q := `SELECT ` + integrationColumns + ` FROM integrations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += fmt.Sprintf(` ORDER BY tenant_id, provider_id, account_id LIMIT $%d`, len(args))
	return r.query(ctx, q, args...)
}

func (r *IntegrationRepo) query(ctx context.Context, q string, args ...any) ([]*model.Integration, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []*model.Integration
	for rows.Next() {
		in, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		out = append(out, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate integrations: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// MarkSyncRequested moves last_sync_requested_at forward to at. An older value never
// replaces a newer one.
func (r *IntegrationRepo) MarkSyncRequested(ctx context.Context, key model.IntegrationKey, at time.Time) error {
	if err := key.Validate(); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE integrations
		SET last_sync_requested_at = GREATEST(COALESCE(last_sync_requested_at, $4), $4),
		    updated_at = $5
		WHERE tenant_id = $1 AND provider_id = $2 AND account_id = $3
	`, key.Tenant.ID, key.ProviderID, key.AccountID, at.UTC(), r.clock.Now())
	if err != nil {
		return fmt.Errorf("mark sync requested %s: %w", key, apperrors.MapDBError(err))
	}
	return requireAffected(res, key)
}

// MarkSyncOutcome stores a job's result. Status and message are only replaced when
// outcome.At is not older than the stored outcome; last_synced_at only moves forward
// and only on success.
func (r *IntegrationRepo) MarkSyncOutcome(ctx context.Context, key model.IntegrationKey, outcome model.SyncOutcome) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if !outcome.Status.Valid() {
		return fmt.Errorf("invalid sync status %q", outcome.Status)
	}
	at := outcome.At
	if at.IsZero() {
		at = r.clock.Now()
	}
	var msg *string
	if outcome.Message != "" {
		msg = &outcome.Message
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE integrations
		SET last_sync_status = CASE
		        WHEN last_sync_outcome_at IS NULL OR last_sync_outcome_at <= $5 THEN $4
		        ELSE last_sync_status END,
		    last_sync_message = CASE
		        WHEN last_sync_outcome_at IS NULL OR last_sync_outcome_at <= $5 THEN $6
		        ELSE last_sync_message END,
		    last_sync_outcome_at = GREATEST(COALESCE(last_sync_outcome_at, $5), $5),
		    last_synced_at = CASE
		        WHEN $4 = 'success' THEN GREATEST(COALESCE(last_synced_at, $5), $5)
		        ELSE last_synced_at END,
		    updated_at = $7
		WHERE tenant_id = $1 AND provider_id = $2 AND account_id = $3
	`, key.Tenant.ID, key.ProviderID, key.AccountID, string(outcome.Status), at.UTC(), msg, r.clock.Now())
	if err != nil {
		return fmt.Errorf("mark sync outcome %s: %w", key, apperrors.MapDBError(err))
	}
	return requireAffected(res, key)
}

func requireAffected(res sql.Result, key model.IntegrationKey) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrIntegrationNotFound, key)
	}
	return nil
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullableInt(ni sql.NullInt32) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int32)
	return &v
}
