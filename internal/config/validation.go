// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks the resolved configuration. A missing runtime API is reported
// as ErrMissingRuntimeAPI so callers can fail before any HTTP call is made.
func Validate(cfg AppConfig) error {
	if strings.TrimSpace(cfg.RuntimeAPI) == "" {
		return ErrMissingRuntimeAPI
	}
	if cfg.ExtensionName == "" {
		return fmt.Errorf("%w: extension name is empty", ErrInvalidConfig)
	}
	if cfg.PollInterval < 0 {
		return fmt.Errorf("%w: poll interval %s is negative", ErrInvalidConfig, cfg.PollInterval)
	}
	if cfg.ShutdownGrace <= 0 {
		return fmt.Errorf("%w: shutdown grace %s must be positive", ErrInvalidConfig, cfg.ShutdownGrace)
	}
	if cfg.ResultDir == "" {
		return fmt.Errorf("%w: result dir is empty", ErrInvalidConfig)
	}
	if _, _, err := net.SplitHostPort(cfg.Relay.ListenAddr); err != nil {
		return fmt.Errorf("%w: relay listen address %q: %v", ErrInvalidConfig, cfg.Relay.ListenAddr, err)
	}
	if cfg.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("%w: metrics address %q: %v", ErrInvalidConfig, cfg.MetricsAddr, err)
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("%w: sampling rate %v out of range [0,1]", ErrInvalidConfig, cfg.Telemetry.SamplingRate)
	}
	if cfg.Telemetry.Enabled {
		switch cfg.Telemetry.Exporter {
		case "grpc", "http":
		default:
			return fmt.Errorf("%w: unsupported exporter %q (supported: grpc, http)", ErrInvalidConfig, cfg.Telemetry.Exporter)
		}
	}
	return nil
}
