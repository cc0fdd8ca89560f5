// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package result reads the per-invocation result artifacts the function
// leaves behind and logs their payloads.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ManuGH/relay-extension/internal/log"
	"github.com/ManuGH/relay-extension/internal/metrics"
	"github.com/ManuGH/relay-extension/internal/platform/fs"
)

// maxArtifactBytes caps how much of a result artifact is read.
const maxArtifactBytes = 4 << 20

var (
	ErrUnsafeRequestID = errors.New("unsafe request id")
	ErrMissingPayload  = errors.New("result has no payload")
)

// InvocationResult is the JSON document stored per request id.
type InvocationResult struct {
	Payload json.RawMessage `json:"payload"`
}

// Reporter reads invocation results from a directory.
type Reporter struct {
	dir    string
	logger zerolog.Logger
}

// NewReporter returns a Reporter reading from dir.
func NewReporter(dir string) *Reporter {
	return &Reporter{
		dir:    dir,
		logger: log.WithComponent("result"),
	}
}

// WithLogger returns a copy of r logging to logger.
func (r *Reporter) WithLogger(logger zerolog.Logger) *Reporter {
	c := *r
	c.logger = logger
	return &c
}

// Process reads and logs the result for requestID. Failures are logged and
// never returned.
func (r *Reporter) Process(requestID string) {
	logger := r.logger.With().Str(log.FieldRequestID, requestID).Logger()

	res, err := r.Read(requestID)
	if err != nil {
		outcome := "unavailable"
		switch {
		case errors.Is(err, ErrUnsafeRequestID):
			outcome = "rejected"
		case errors.Is(err, os.ErrNotExist):
			outcome = "missing"
		}
		metrics.RecordResult(outcome)
		logger.Error().Err(err).
			Str(log.FieldEvent, "result.unavailable").
			Msg("invocation result unavailable")
		return
	}

	metrics.RecordResult("ok")
	logger.Info().
		Str(log.FieldEvent, "result.payload").
		RawJSON("payload", res.Payload).
		Msg("invocation result")
}

// Read loads and decodes the artifact for requestID.
func (r *Reporter) Read(requestID string) (InvocationResult, error) {
	var res InvocationResult
	path, err := fs.ConfineName(r.dir, requestID)
	if err != nil {
		if errors.Is(err, fs.ErrEscapesRoot) {
			return res, fmt.Errorf("%w: %w", ErrUnsafeRequestID, err)
		}
		return res, err
	}
	if err := fs.IsRegularFile(path); err != nil {
		return res, fmt.Errorf("result %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("open result: %w", err)
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(io.LimitReader(f, maxArtifactBytes))
	if err != nil {
		return res, fmt.Errorf("read result %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return res, fmt.Errorf("decode result %s: %w", path, err)
	}
	if len(res.Payload) == 0 {
		return res, fmt.Errorf("%w: %s", ErrMissingPayload, path)
	}
	return res, nil
}
