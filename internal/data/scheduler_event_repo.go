package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/target/adsync/internal/domain/model"
	apperrors "github.com/target/adsync/internal/errors"
)

const (
	defaultEventListLimit = 50
	maxEventListLimit     = 500
)

// SchedulerEventRepoOptions configures a SchedulerEventRepo.
type SchedulerEventRepoOptions struct {
	TimeProvider TimeProvider
}

// SchedulerEventRepo stores dispatcher telemetry. Rows are never updated.
type SchedulerEventRepo struct {
	DB    *sql.DB
	clock TimeProvider
}

// NewSchedulerEventRepo creates a new SchedulerEventRepo.
func NewSchedulerEventRepo(db *sql.DB, opts SchedulerEventRepoOptions) *SchedulerEventRepo {
	return &SchedulerEventRepo{DB: db, clock: nowOr(opts.TimeProvider)}
}

const schedulerEventColumns = `
  id, source, operation, processed_jobs, successful_jobs, failed_jobs,
  had_queued_jobs, inspected_queued_jobs, duration_ms, errors,
  provider_failure_thresholds, severity, created_at
`

// Create appends an event. Errors beyond model.MaxEventErrors are dropped.
func (r *SchedulerEventRepo) Create(
	ctx context.Context,
	req *model.CreateSchedulerEventRequest,
) (*model.SchedulerEvent, error) {
	if req == nil {
		return nil, ErrRequestRequired
	}
	if !req.Source.Valid() {
		return nil, fmt.Errorf("invalid event source %q", req.Source)
	}
	if !req.Severity.Valid() {
		return nil, fmt.Errorf("invalid severity %q", req.Severity)
	}

	errs := req.Errors
	if len(errs) > model.MaxEventErrors {
		errs = errs[:model.MaxEventErrors]
	}
	if errs == nil {
		errs = []string{}
	}
	thresholds := req.ProviderFailureThresholds
	if thresholds == nil {
		thresholds = []model.ProviderThreshold{}
	}
	errsJSON, err := json.Marshal(errs)
	if err != nil {
		return nil, fmt.Errorf("marshal errors: %w", err)
	}
	thresholdsJSON, err := json.Marshal(thresholds)
	if err != nil {
		return nil, fmt.Errorf("marshal thresholds: %w", err)
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.clock.Now()
	}

	row := r.DB.QueryRowContext(ctx, `
		INSERT INTO scheduler_events (
			id, source, operation, processed_jobs, successful_jobs, failed_jobs,
			had_queued_jobs, inspected_queued_jobs, duration_ms, errors,
			provider_failure_thresholds, severity, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11::jsonb, $12, $13)
		RETURNING `+schedulerEventColumns,
		uuid.NewString(),
		string(req.Source),
		req.Operation,
		req.ProcessedJobs,
		req.SuccessfulJobs,
		req.FailedJobs,
		req.HadQueuedJobs,
		req.InspectedQueuedJobs,
		req.DurationMs,
		string(errsJSON),
		string(thresholdsJSON),
		string(req.Severity),
		createdAt.UTC(),
	)
	ev, err := scanSchedulerEvent(row)
	if err != nil {
		return nil, fmt.Errorf("create scheduler event: %w", apperrors.MapDBError(err))
	}
	return ev, nil
}

// List returns events newest first.
func (r *SchedulerEventRepo) List(
	ctx context.Context,
	opts model.SchedulerEventListOptions,
) ([]*model.SchedulerEvent, error) {
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = defaultEventListLimit
	case limit > maxEventListLimit:
		limit = maxEventListLimit
	}
	offset := max(opts.Offset, 0)

	var (
		where []string
		args  []any
	)
	if opts.Source != nil {
		args = append(args, string(*opts.Source))
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	if opts.MinSeverity != nil {
		args = append(args, severitiesAtLeast(*opts.MinSeverity))
		where = append(where, fmt.Sprintf("severity = ANY($%d)", len(args)))
	}

	q := `SELECT ` + schedulerEventColumns + ` FROM scheduler_events`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	q += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list scheduler events: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []*model.SchedulerEvent
	for rows.Next() {
		ev, err := scanSchedulerEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scheduler event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheduler events: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

func severitiesAtLeast(floor model.Severity) []string {
	switch floor {
	case model.SeverityCritical:
		return []string{string(model.SeverityCritical)}
	case model.SeverityWarning:
		return []string{string(model.SeverityWarning), string(model.SeverityCritical)}
	default:
		return []string{string(model.SeverityInfo), string(model.SeverityWarning), string(model.SeverityCritical)}
	}
}

func scanSchedulerEvent(s rowScanner) (*model.SchedulerEvent, error) {
	var (
		ev             model.SchedulerEvent
		operation      sql.NullString
		inspected      sql.NullInt32
		duration       sql.NullInt64
		errsJSON       []byte
		thresholdsJSON []byte
	)
	if err := s.Scan(
		&ev.ID,
		&ev.Source,
		&operation,
		&ev.ProcessedJobs,
		&ev.SuccessfulJobs,
		&ev.FailedJobs,
		&ev.HadQueuedJobs,
		&inspected,
		&duration,
		&errsJSON,
		&thresholdsJSON,
		&ev.Severity,
		&ev.CreatedAt,
	); err != nil {
		return nil, err
	}
	ev.Operation = nullableString(operation)
	ev.InspectedQueuedJobs = nullableInt(inspected)
	if duration.Valid {
		d := duration.Int64
		ev.DurationMs = &d
	}
	ev.CreatedAt = ev.CreatedAt.UTC()

	ev.Errors = []string{}
	if len(errsJSON) > 0 {
		if err := json.Unmarshal(errsJSON, &ev.Errors); err != nil {
			return nil, fmt.Errorf("decode errors: %w", err)
		}
	}
	ev.ProviderFailureThresholds = []model.ProviderThreshold{}
	if len(thresholdsJSON) > 0 {
		if err := json.Unmarshal(thresholdsJSON, &ev.ProviderFailureThresholds); err != nil {
			return nil, fmt.Errorf("decode thresholds: %w", err)
		}
	}
	return &ev, nil
}
