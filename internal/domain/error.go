package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrGatewayFailed marks any failure talking to the payment processor.
	ErrGatewayFailed = errors.New("payment gateway request failed")
	// ErrOperationFailed covers storage write failures surfaced to callers.
	ErrOperationFailed = errors.New("operation failed")
	// ErrInvalidExecContext is returned when a repository receives an
	// unsupported transaction handle.
	ErrInvalidExecContext = errors.New("invalid exec context")
)
