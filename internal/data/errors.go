package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrRequestRequired     = errors.New("request is required")
	ErrIntegrationNotFound = errors.New("integration not found")
	ErrInvalidJobID        = errors.New("invalid sync job id")
	ErrLeaseNameRequired   = errors.New("lease name is required")
)
