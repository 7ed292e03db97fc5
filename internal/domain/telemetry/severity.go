// Package telemetry classifies dispatcher runs and renders operator-facing alert text.
package telemetry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/target/adsync/internal/domain/model"
)

// DefaultFailureThreshold applies when no global or per-provider threshold is configured.
const DefaultFailureThreshold = 3

// maxAlertErrors is how many run errors are quoted in an alert message.
const maxAlertErrors = 5

// Thresholds configures severity classification.
type Thresholds struct {
	// Global is compared against the run's total failures and is the fallback
	// for providers without an override.
	Global int
	// PerProvider overrides Global for the named providers.
	PerProvider map[string]int
}

// ForProvider resolves the threshold for one provider.
func (t Thresholds) ForProvider(providerID string) int {
	if v, ok := t.PerProvider[providerID]; ok && v > 0 {
		return v
	}
	return t.GlobalThreshold()
}

// GlobalThreshold returns Global, or DefaultFailureThreshold when unset.
func (t Thresholds) GlobalThreshold() int {
	if t.Global > 0 {
		return t.Global
	}
	return DefaultFailureThreshold
}

// Classification is the severity of a run and the provider breakdown behind it.
type Classification struct {
	Severity  model.Severity
	Providers []model.ProviderThreshold
}

// Classify assigns a severity to the run. Evaluation order is fixed: any provider at or
// above its threshold is critical, any provider failure is a warning, and otherwise the
// totals are checked against the global threshold and the stuck-queue condition.
func Classify(summary *model.RunSummary, th Thresholds) Classification {
	failures := summary.FailuresByProvider()

	providers := make([]model.ProviderThreshold, 0, len(failures))
	for id, n := range failures {
		if n <= 0 {
			continue
		}
		providers = append(providers, model.ProviderThreshold{
			ProviderID: id,
			FailedJobs: n,
			Threshold:  th.ForProvider(id),
		})
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i].ProviderID < providers[j].ProviderID })

	out := Classification{Severity: model.SeverityInfo, Providers: providers}
	for _, p := range providers {
		if p.FailedJobs >= p.Threshold {
			out.Severity = model.SeverityCritical
			return out
		}
	}
	if len(providers) > 0 {
		out.Severity = model.SeverityWarning
		return out
	}

	switch {
	case summary.FailedJobs >= th.GlobalThreshold():
		out.Severity = model.SeverityCritical
	case summary.FailedJobs > 0 || summary.QueueStuck():
		out.Severity = model.SeverityWarning
	}
	return out
}

// CapErrors flattens run errors into at most model.MaxEventErrors strings.
func CapErrors(errs []model.RunError) []string {
	n := min(len(errs), model.MaxEventErrors)
	out := make([]string, 0, n)
	for _, e := range errs[:n] {
		out = append(out, e.String())
	}
	return out
}

// AlertMessageInput is what BuildAlertMessage renders.
type AlertMessageInput struct {
	Source          model.EventSource
	Operation       string
	Severity        model.Severity
	Summary         *model.RunSummary
	GlobalThreshold int
	Providers       []model.ProviderThreshold
}

// BuildAlertMessage renders a multi-line human readable summary of a degraded run.
func BuildAlertMessage(in AlertMessageInput) string {
	s := in.Summary
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] Ad sync dispatcher run degraded (source=%s", strings.ToUpper(string(in.Severity)), in.Source)
	if in.Operation != "" {
		fmt.Fprintf(&b, ", operation=%s", in.Operation)
	}
	b.WriteString(")\n")

	fmt.Fprintf(&b, "Processed: %d, succeeded: %d, failed: %d\n", s.ProcessedJobs, s.SuccessfulJobs, s.FailedJobs)
	if s.QueueStuck() {
		fmt.Fprintf(&b, "Queue appears stuck: %d queued jobs inspected, none processed\n", s.InspectedQueuedJobs)
	}
	fmt.Fprintf(&b, "Global failure threshold: %d\n", in.GlobalThreshold)

	if len(in.Providers) > 0 {
		b.WriteString("Provider failures:\n")
		for _, p := range in.Providers {
			fmt.Fprintf(&b, "  - %s: %d failed (threshold %d)\n", p.ProviderID, p.FailedJobs, p.Threshold)
		}
	}

	fmt.Fprintf(&b, "Duration: %dms\n", s.DurationMs)

	if len(s.Errors) > 0 {
		b.WriteString("Errors:\n")
		n := min(len(s.Errors), maxAlertErrors)
		for _, e := range s.Errors[:n] {
			fmt.Fprintf(&b, "  - %s\n", e.String())
		}
		if rest := len(s.Errors) - n; rest > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", rest)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
