// Package httpx provides the automation trigger API for the sync orchestrator.
package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/http/validation"
	"github.com/target/adsync/internal/service"
)

// OperationExecutor runs orchestrator operations.
type OperationExecutor interface {
	Execute(ctx context.Context, op model.Operation) (model.OperationResult, error)
}

// EventLister lists recorded scheduler events.
type EventLister interface {
	RecentEvents(ctx context.Context, opts model.SchedulerEventListOptions) ([]*model.SchedulerEvent, error)
}

// AutomationHandlers serves the automation trigger endpoints.
type AutomationHandlers struct {
	Ops    OperationExecutor
	Events EventLister
	Logger *slog.Logger
}

type dispatchRequest struct {
	MaxJobs    *int `json:"maxJobs,omitempty"    validate:"omitempty,min=1"`
	MaxTenants *int `json:"maxTenants,omitempty" validate:"omitempty,min=1"`
}

type scheduleRequest struct {
	TenantID      string   `json:"tenantId,omitempty"      validate:"required_without=AllTenants,excluded_with=AllTenants,max=200"`
	ProviderID    string   `json:"providerId,omitempty"    validate:"omitempty,max=100"`
	ProviderIDs   []string `json:"providerIds,omitempty"   validate:"omitempty,max=50,dive,required,max=100"`
	Force         bool     `json:"force,omitempty"`
	TimeframeDays *int     `json:"timeframeDays,omitempty"`
	AllTenants    bool     `json:"allTenants,omitempty"`
	DryRun        bool     `json:"dryRun,omitempty"`
}

func (r scheduleRequest) toModel() model.ScheduleRequest {
	return model.ScheduleRequest{
		TenantID:      r.TenantID,
		ProviderID:    r.ProviderID,
		ProviderIDs:   r.ProviderIDs,
		Force:         r.Force,
		TimeframeDays: r.TimeframeDays,
		AllTenants:    r.AllTenants,
		DryRun:        r.DryRun,
	}
}

// Dispatch runs one dispatcher batch. Partial job failures are still 200; only a
// failure to discover tenants is 503.
func (h *AutomationHandlers) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if !decodeValid(w, r, &req) {
		return
	}

	op := model.DispatchOperation{Source: model.EventSourceWorker}
	if req.MaxJobs != nil {
		op.MaxJobs = *req.MaxJobs
	}
	if req.MaxTenants != nil {
		op.MaxTenants = *req.MaxTenants
	}

	res, err := h.Ops.Execute(r.Context(), op)
	switch {
	case errors.Is(err, service.ErrTenantDiscovery):
		h.logger().ErrorContext(r.Context(), "dispatch tenant discovery failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "tenant_discovery_failed", Err: err})
		return
	case err != nil:
		h.logger().ErrorContext(r.Context(), "dispatch failed", "error", err)
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res.Dispatch)
}

// Schedule evaluates the scheduling policy for the requested integrations.
func (h *AutomationHandlers) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if !decodeValid(w, r, &req) {
		return
	}

	res, err := h.Ops.Execute(r.Context(), model.ScheduleOperation{
		Source:  model.EventSourceWorker,
		Request: req.toModel(),
	})
	if err != nil {
		h.logger().ErrorContext(r.Context(), "schedule failed", "error", err)
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res.Schedule)
}

type housekeepingFailure struct {
	errorBody
	Result *model.HousekeepingResult `json:"housekeeping,omitempty"`
}

// Housekeeping runs one cleanup pass. Step failures return 500 with the partial counts.
func (h *AutomationHandlers) Housekeeping(w http.ResponseWriter, r *http.Request) {
	res, err := h.Ops.Execute(r.Context(), model.HousekeepingOperation{Source: model.EventSourceWorker})
	if err != nil {
		h.logger().ErrorContext(r.Context(), "housekeeping failed", "error", err)
		WriteJSON(w, http.StatusInternalServerError, housekeepingFailure{
			errorBody: errorBody{Error: "housekeeping_failed", Message: err.Error()},
			Result:    res.Housekeeping,
		})
		return
	}
	WriteJSON(w, http.StatusOK, res.Housekeeping)
}

// ListEvents returns the most recent scheduler events, newest first.
func (h *AutomationHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	opts, err := parseEventQuery(r)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	events, err := h.Events.RecentEvents(r.Context(), opts)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "list scheduler events failed", "error", err)
		WriteAppError(w, err)
		return
	}
	if events == nil {
		events = []*model.SchedulerEvent{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"events": events, "limit": opts.Limit, "offset": opts.Offset})
}

func (h *AutomationHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !DecodeJSON(w, r, dst) {
		return false
	}
	if err := validation.Struct(dst); err != nil {
		WriteAppError(w, err)
		return false
	}
	return true
}
