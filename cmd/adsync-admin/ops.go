package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/target/adsync/internal/domain/model"
	"github.com/target/adsync/internal/util"
)

const (
	defaultEventsLimit = 20
	maxEventsLimit     = 200
)

type operationExecutor interface {
	Execute(ctx context.Context, op model.Operation) (model.OperationResult, error)
}

type eventLister interface {
	RecentEvents(ctx context.Context, opts model.SchedulerEventListOptions) ([]*model.SchedulerEvent, error)
}

type scheduleOptions struct {
	Request model.ScheduleRequest
	JSON    bool
}

type dispatchOptions struct {
	MaxJobs    int
	MaxTenants int
	JSON       bool
}

type housekeepingOptions struct {
	JSON bool
}

type eventsOptions struct {
	List model.SchedulerEventListOptions
	JSON bool
}

func runSchedule(cmdCtx *commandContext, args []string) error {
	opts, err := parseScheduleFlags(args)
	if err != nil {
		return err
	}
	op := model.ScheduleOperation{Source: model.EventSourceWorker, Request: opts.Request}
	return runOperation(cmdCtx, op, opts.JSON)
}

func runDispatch(cmdCtx *commandContext, args []string) error {
	opts, err := parseDispatchFlags(args)
	if err != nil {
		return err
	}
	op := model.DispatchOperation{
		Source:     model.EventSourceWorker,
		MaxJobs:    opts.MaxJobs,
		MaxTenants: opts.MaxTenants,
	}
	return runOperation(cmdCtx, op, opts.JSON)
}

func runHousekeeping(cmdCtx *commandContext, args []string) error {
	opts, err := parseHousekeepingFlags(args)
	if err != nil {
		return err
	}
	return runOperation(cmdCtx, model.HousekeepingOperation{Source: model.EventSourceWorker}, opts.JSON)
}

func runEvents(cmdCtx *commandContext, args []string) error {
	opts, err := parseEventsFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, 2*time.Minute)
	defer cancel()

	sessionCtx := *cmdCtx
	sessionCtx.Ctx = ctx
	session, err := openServices(&sessionCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("close connections failed", "error", closeErr)
		}
	}()

	return listEvents(ctx, session.Services.Monitor, opts, os.Stdout)
}

func runOperation(cmdCtx *commandContext, op model.Operation, asJSON bool) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	sessionCtx := *cmdCtx
	sessionCtx.Ctx = ctx
	session, err := openServices(&sessionCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("close connections failed", "error", closeErr)
		}
	}()

	cmdCtx.Logger.InfoContext(ctx, "running operation", "operation", op.Name())
	return executeOperation(ctx, session.Services.Orchestrator, op, asJSON, os.Stdout)
}

// executeOperation runs op and prints whatever result came back, including the partial
// result of a failed run, before returning the run error.
func executeOperation(ctx context.Context, exec operationExecutor, op model.Operation, asJSON bool, w io.Writer) error {
	res, runErr := exec.Execute(ctx, op)
	if res.Operation == "" {
		return runErr
	}

	var renderErr error
	if asJSON {
		renderErr = writeJSON(w, res)
	} else {
		renderErr = renderResult(w, res)
	}
	if renderErr != nil {
		return errors.Join(runErr, fmt.Errorf("render result: %w", renderErr))
	}
	return runErr
}

func listEvents(ctx context.Context, lister eventLister, opts eventsOptions, w io.Writer) error {
	events, err := lister.RecentEvents(ctx, opts.List)
	if err != nil {
		return fmt.Errorf("list scheduler events: %w", err)
	}
	if opts.JSON {
		return writeJSON(w, events)
	}
	return renderEvents(w, events)
}

func parseScheduleFlags(args []string) (scheduleOptions, error) {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts      scheduleOptions
		providers string
		timeframe int
	)
	fs.StringVar(&opts.Request.TenantID, "tenant", "", "Tenant to evaluate")
	fs.BoolVar(&opts.Request.AllTenants, "all-tenants", false, "Evaluate every tenant")
	fs.StringVar(&opts.Request.ProviderID, "provider", "", "Limit evaluation to one provider")
	fs.StringVar(&providers, "providers", "", "Comma-delimited providers to evaluate")
	fs.BoolVar(&opts.Request.Force, "force", false, "Bypass cadence and running-job checks")
	fs.IntVar(&timeframe, "timeframe-days", 0, "Override the sync timeframe in days (clamped to the policy maximum)")
	fs.BoolVar(&opts.Request.DryRun, "dry-run", false, "Report decisions without enqueuing jobs")
	fs.BoolVar(&opts.JSON, "json", false, "Print the result as JSON")

	if err := fs.Parse(args); err != nil {
		return scheduleOptions{}, err
	}

	if opts.Request.TenantID == "" && !opts.Request.AllTenants {
		return scheduleOptions{}, errors.New("--tenant or --all-tenants is required")
	}
	if opts.Request.TenantID != "" && opts.Request.AllTenants {
		return scheduleOptions{}, errors.New("--tenant and --all-tenants are mutually exclusive")
	}
	// The policy clamps the override to its allowed range.
	if timeframe != 0 {
		opts.Request.TimeframeDays = &timeframe
	}
	opts.Request.ProviderIDs = util.SplitList(providers)

	return opts, nil
}

func parseDispatchFlags(args []string) (dispatchOptions, error) {
	fs := flag.NewFlagSet("dispatch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts dispatchOptions
	fs.IntVar(&opts.MaxJobs, "max-jobs", 0, "Cap on jobs processed this run (0 uses the configured default)")
	fs.IntVar(&opts.MaxTenants, "max-tenants", 0, "Cap on tenants served this run (0 uses the configured default)")
	fs.BoolVar(&opts.JSON, "json", false, "Print the result as JSON")

	if err := fs.Parse(args); err != nil {
		return dispatchOptions{}, err
	}
	if opts.MaxJobs < 0 {
		return dispatchOptions{}, errors.New("--max-jobs must not be negative")
	}
	if opts.MaxTenants < 0 {
		return dispatchOptions{}, errors.New("--max-tenants must not be negative")
	}
	return opts, nil
}

func parseHousekeepingFlags(args []string) (housekeepingOptions, error) {
	fs := flag.NewFlagSet("housekeeping", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts housekeepingOptions
	fs.BoolVar(&opts.JSON, "json", false, "Print the result as JSON")

	if err := fs.Parse(args); err != nil {
		return housekeepingOptions{}, err
	}
	return opts, nil
}

func parseEventsFlags(args []string) (eventsOptions, error) {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts        eventsOptions
		source      string
		minSeverity string
	)
	fs.IntVar(&opts.List.Limit, "limit", defaultEventsLimit, "Maximum events to list")
	fs.IntVar(&opts.List.Offset, "offset", 0, "Events to skip")
	fs.StringVar(&source, "source", "", "Only list events from this source (worker, cron)")
	fs.StringVar(&minSeverity, "min-severity", "", "Only list events at or above this severity (info, warning, critical)")
	fs.BoolVar(&opts.JSON, "json", false, "Print events as JSON")

	if err := fs.Parse(args); err != nil {
		return eventsOptions{}, err
	}

	if opts.List.Limit < 1 || opts.List.Limit > maxEventsLimit {
		return eventsOptions{}, fmt.Errorf("--limit must be between 1 and %d", maxEventsLimit)
	}
	if opts.List.Offset < 0 {
		return eventsOptions{}, errors.New("--offset must not be negative")
	}
	if source != "" {
		var s model.EventSource
		if err := s.UnmarshalText([]byte(source)); err != nil {
			return eventsOptions{}, fmt.Errorf("--source: %w", err)
		}
		opts.List.Source = &s
	}
	if minSeverity != "" {
		sev := model.Severity(minSeverity)
		if !sev.Valid() {
			return eventsOptions{}, fmt.Errorf("--min-severity: unknown severity %q", minSeverity)
		}
		opts.List.MinSeverity = &sev
	}
	return opts, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderResult(w io.Writer, res model.OperationResult) error {
	switch {
	case res.Dispatch != nil:
		return renderDispatch(w, res.Dispatch)
	case res.Schedule != nil:
		return renderSchedule(w, res.Schedule)
	case res.Housekeeping != nil:
		return renderHousekeeping(w, res.Housekeeping)
	default:
		return writef(w, "%s: no result\n", res.Operation)
	}
}

func renderDispatch(w io.Writer, res *model.DispatchResult) error {
	s := res.Summary
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Run ID", s.RunID},
		{"Severity", string(res.Severity)},
		{"Processed", strconv.Itoa(s.ProcessedJobs)},
		{"Successful", strconv.Itoa(s.SuccessfulJobs)},
		{"Failed", strconv.Itoa(s.FailedJobs)},
		{"Queued Jobs Seen", strconv.FormatBool(s.HadQueuedJobs)},
		{"Inspected Queued", strconv.Itoa(s.InspectedQueuedJobs)},
		{"Duration", util.FormatDurationMs(&s.DurationMs)},
	}
	if err := writeln(tw, "Metric\tValue"); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for _, row := range rows {
		if err := writef(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return fmt.Errorf("write %s: %w", row[0], err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}

	failures := s.FailuresByProvider()
	if len(failures) > 0 {
		providers := make([]string, 0, len(failures))
		for p := range failures {
			providers = append(providers, p)
		}
		sort.Strings(providers)
		if err := writef(w, "\nFailures by provider:\n"); err != nil {
			return err
		}
		for _, p := range providers {
			if err := writef(w, "  %s: %d\n", p, failures[p]); err != nil {
				return err
			}
		}
	}

	if len(s.Errors) > 0 {
		if err := writef(w, "\nErrors:\n"); err != nil {
			return err
		}
		for _, e := range s.Errors {
			if err := writef(w, "  - %s\n", e.String()); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderSchedule(w io.Writer, res *model.ScheduleResult) error {
	header := "Schedule result"
	if res.DryRun {
		header += " (dry run)"
	}
	if err := writef(w, "%s: evaluated=%d approved=%d enqueued=%d skipped=%d failed=%d\n",
		header, res.Evaluated, res.Approved, res.Enqueued, res.Skipped, res.Failed); err != nil {
		return err
	}
	if len(res.Decisions) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "\nTENANT\tPROVIDER\tACCOUNT\tAPPROVED\tREASON\tJOB TYPE\tDAYS\tJOB ID\tERROR"); err != nil {
		return fmt.Errorf("write decisions header: %w", err)
	}
	for _, d := range res.Decisions {
		if err := writef(tw, "%s\t%s\t%s\t%t\t%s\t%s\t%s\t%s\t%s\n",
			d.TenantID, d.ProviderID, dash(d.AccountID), d.Approved, d.Reason,
			dash(string(d.JobType)), dashInt(d.TimeframeDays), dash(d.JobID), dash(d.Error)); err != nil {
			return fmt.Errorf("write decision: %w", err)
		}
	}
	return tw.Flush()
}

func renderHousekeeping(w io.Writer, res *model.HousekeepingResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "Metric\tValue"); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	if err := writef(tw, "Reset Stale Jobs\t%d\nDeleted Jobs\t%d\nDeleted Events\t%d\nDuration\t%s\n",
		res.ResetStaleJobs, res.DeletedJobs, res.DeletedEvents, util.FormatDurationMs(&res.DurationMs)); err != nil {
		return fmt.Errorf("write housekeeping summary: %w", err)
	}
	return tw.Flush()
}

func renderEvents(w io.Writer, events []*model.SchedulerEvent) error {
	if len(events) == 0 {
		return writeln(w, "No scheduler events found")
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if err := writeln(tw, "CREATED\tSOURCE\tOPERATION\tSEVERITY\tPROCESSED\tFAILED\tDURATION\tID"); err != nil {
		return fmt.Errorf("write events header: %w", err)
	}
	for _, e := range events {
		op := "-"
		if e.Operation != nil {
			op = *e.Operation
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			e.CreatedAt.UTC().Format(time.RFC3339), e.Source, op, e.Severity,
			e.ProcessedJobs, e.FailedJobs, util.FormatDurationMs(e.DurationMs), e.ID); err != nil {
			return fmt.Errorf("write event %s: %w", e.ID, err)
		}
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func dashInt(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}
