package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"net"
	"testing"

	apperrors "github.com/target/adsync/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "deadline", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "app error", err: apperrors.New(apperrors.ErrCodeUnavailable, "db down"), want: "app_unavailable"},
		{name: "plain", err: goerrors.New("boom"), want: "errors_errorstring"},
		{name: "wrapped net error", err: fmt.Errorf("post: %w", &net.OpError{Op: "dial"}), want: "net_operror"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}
