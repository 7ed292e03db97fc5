// Package notify delivers operator alerts for degraded dispatcher runs.
package notify

import (
	"context"
	"time"

	"github.com/target/adsync/internal/domain/model"
)

// Alert is the payload sent to every sink. Its JSON form is the alert webhook contract.
type Alert struct {
	Severity  model.Severity    `json:"severity"`
	Message   string            `json:"message"`
	Source    model.EventSource `json:"source"`
	Timestamp time.Time         `json:"timestamp"`
	// Operation and RunID are carried for chat and paging sinks; the webhook body omits them.
	Operation string `json:"-"`
	RunID     string `json:"-"`
}

// Sink describes a destination capable of consuming alerts.
type Sink interface {
	SendAlert(ctx context.Context, alert Alert) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, alert Alert) error

// SendAlert implements the Sink interface.
func (f SinkFunc) SendAlert(ctx context.Context, alert Alert) error {
	if f == nil {
		return nil
	}
	return f(ctx, alert)
}
