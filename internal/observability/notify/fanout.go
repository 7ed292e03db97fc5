package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink Sink
}

// Fanout delivers each alert to all registered sinks concurrently.
type Fanout struct {
	logger *slog.Logger
	sinks  []SinkRegistration
}

var _ Sink = (*Fanout)(nil)

// NewFanout drops nil sinks and names unnamed ones.
func NewFanout(logger *slog.Logger, sinks ...SinkRegistration) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	out := &Fanout{logger: logger.With("component", "alert_fanout")}
	for _, entry := range sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		out.sinks = append(out.sinks, entry)
	}
	return out
}

// Enabled reports whether any sink is registered.
func (f *Fanout) Enabled() bool {
	return f != nil && len(f.sinks) > 0
}

// Names lists the registered sink names in registration order.
func (f *Fanout) Names() []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, len(f.sinks))
	for _, s := range f.sinks {
		names = append(names, s.Name)
	}
	return names
}

// SendAlert waits for every sink and joins their errors. One failing sink never
// prevents delivery to the others.
func (f *Fanout) SendAlert(ctx context.Context, alert Alert) error {
	if !f.Enabled() {
		return nil
	}

	errs := make([]error, len(f.sinks))
	var wg sync.WaitGroup
	for i, entry := range f.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendAlert(ctx, alert); err != nil {
				f.logger.WarnContext(ctx, "alert delivery failed",
					"sink", entry.Name,
					"severity", alert.Severity,
					"error", err,
				)
				errs[i] = fmt.Errorf("%s: %w", entry.Name, err)
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
