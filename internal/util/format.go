package util //nolint:revive // package name util hosts shared formatting helpers used by the admin CLI

import (
	"strings"
	"time"
)

// FormatProcessingDuration formats a time.Duration for display, handling edge cases.
// Returns "-" for zero or negative durations, truncates to milliseconds otherwise.
func FormatProcessingDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Millisecond:
		return d.String()
	default:
		return d.Truncate(time.Millisecond).String()
	}
}

// FormatDurationMs formats a millisecond count recorded on a run or event.
func FormatDurationMs(ms *int64) string {
	if ms == nil {
		return "-"
	}
	return FormatProcessingDuration(time.Duration(*ms) * time.Millisecond)
}

// SplitList splits a comma-delimited flag value, dropping blanks.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
