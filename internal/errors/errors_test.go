package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "job not found"},
			want: "job not found",
		},
		{
			name: "error with cause",
			err:  &AppError{Code: ErrCodeInternal, Message: "claim failed", Cause: errors.New("conn reset")},
			want: "claim failed: conn reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}

	cause := errors.New("boom")
	err := Wrapf(cause, ErrCodeUnavailable, "list tenants (limit %d)", 50)
	if !errors.Is(err, cause) {
		t.Error("Wrapf should preserve the cause")
	}
	if !IsUnavailable(err) {
		t.Errorf("code = %v, want unavailable", GetCode(err))
	}
	if err.Message != "list tenants (limit 50)" {
		t.Errorf("message = %q", err.Message)
	}
}

func TestGetCode_WrappedAppError(t *testing.T) {
	err := fmt.Errorf("handler: %w", ValidationField("maxJobs", "must be <= 25"))
	if !IsValidation(err) {
		t.Errorf("IsValidation() = false for wrapped validation error")
	}
	if got := GetField(err); got != "maxJobs" {
		t.Errorf("GetField() = %q, want maxJobs", got)
	}
	if GetCode(errors.New("plain")) != "" {
		t.Error("GetCode() should be empty for non-AppError")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: New(ErrCodeValidation, "bad"), want: http.StatusBadRequest},
		{err: New(ErrCodeUnauthorized, "no token"), want: http.StatusUnauthorized},
		{err: New(ErrCodeForbidden, "no"), want: http.StatusForbidden},
		{err: NotFoundf("job %s", "x"), want: http.StatusNotFound},
		{err: New(ErrCodeConflict, "dup"), want: http.StatusConflict},
		{err: New(ErrCodeUnavailable, "db down"), want: http.StatusServiceUnavailable},
		{err: New(ErrCodeTimeout, "slow"), want: http.StatusGatewayTimeout},
		{err: errors.New("plain"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
