// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "errors"

var (
	// ErrMissingRuntimeAPI is returned when AWS_LAMBDA_RUNTIME_API is not set.
	// Nothing can be registered without it, so callers treat it as fatal.
	ErrMissingRuntimeAPI = errors.New("AWS_LAMBDA_RUNTIME_API is not set")

	// ErrUnknownConfigField classifies strict YAML parse failures caused by unknown keys.
	// Use errors.Is(err, ErrUnknownConfigField) instead of string matching.
	ErrUnknownConfigField = errors.New("unknown config field")

	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)
