// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import "errors"

var (
	// ErrMissingLogger is returned when logger is not provided
	ErrMissingLogger = errors.New("logger is required")

	// ErrInvalidGrace is returned when the shutdown grace period is not positive
	ErrInvalidGrace = errors.New("shutdown grace must be positive")

	// ErrNilContext is returned when a nil context is passed to the coordinator
	ErrNilContext = errors.New("context is nil")

	// ErrAlreadyShuttingDown is returned by a second Shutdown call
	ErrAlreadyShuttingDown = errors.New("shutdown already in progress")
)
