// Package metrics emits the standard adsync metric families on a statsd.Sink.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/target/adsync/internal/observability/errors"
	"github.com/target/adsync/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobMetric captures one sync job transition.
type JobMetric struct {
	ProviderID string
	JobType    string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits sync.job.transition and, when a duration is known, sync.job.duration.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"provider":   in.ProviderID,
		"job_type":   in.JobType,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}
	sink.Count("sync.job.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("sync.job.duration", in.Duration, maps.Clone(tags))
	}
}

// RunMetric summarizes one dispatcher run.
type RunMetric struct {
	Source     string
	Processed  int
	Succeeded  int
	Failed     int
	Inspected  int
	Duration   time.Duration
	Discovered bool
}

// EmitDispatchRun emits dispatch.run.* counters, gauges, and timing.
func EmitDispatchRun(sink statsd.Sink, in RunMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"source": in.Source}
	sink.Count("dispatch.run.count", 1, tags)
	sink.Count("dispatch.run.jobs", int64(in.Succeeded), withTag(tags, "result", ResultSuccess))
	sink.Count("dispatch.run.jobs", int64(in.Failed), withTag(tags, "result", ResultError))
	sink.Gauge("dispatch.run.inspected_queued", float64(in.Inspected), maps.Clone(tags))
	if !in.Discovered {
		sink.Count("dispatch.run.discovery_failed", 1, maps.Clone(tags))
	}
	if in.Duration > 0 {
		sink.Timing("dispatch.run.duration", in.Duration, maps.Clone(tags))
	}
}

// EmitScheduleDecision counts one scheduling decision by reason and outcome.
func EmitScheduleDecision(sink statsd.Sink, providerID, reason string, approved bool) {
	if sink == nil {
		return
	}
	result := "rejected"
	if approved {
		result = "approved"
	}
	sink.Count("schedule.decision", 1, map[string]string{
		"provider": providerID,
		"reason":   reason,
		"result":   result,
	})
}

// EmitSeverity counts one classified run outcome.
func EmitSeverity(sink statsd.Sink, source, severity string) {
	if sink == nil {
		return
	}
	sink.Count("monitor.severity", 1, map[string]string{"source": source, "severity": severity})
}

// EmitReaper records how many rows one housekeeping step touched.
func EmitReaper(sink statsd.Sink, step string, rows int64, err error) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	tags := map[string]string{"step": step, "result": result}
	sink.Count("reaper.runs", 1, tags)
	if rows > 0 {
		sink.Count("reaper.rows", rows, maps.Clone(tags))
	}
}

func withTag(base map[string]string, k, v string) map[string]string {
	out := maps.Clone(base)
	if out == nil {
		out = map[string]string{}
	}
	out[k] = v
	return out
}
