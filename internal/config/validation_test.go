// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() AppConfig {
	cfg := defaults()
	cfg.RuntimeAPI = "127.0.0.1:9001"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr error
	}{
		{name: "defaults", mutate: func(*AppConfig) {}},
		{name: "zero poll interval", mutate: func(c *AppConfig) { c.PollInterval = 0 }},
		{name: "missing runtime api", mutate: func(c *AppConfig) { c.RuntimeAPI = "  " }, wantErr: ErrMissingRuntimeAPI},
		{name: "missing runtime api wins", mutate: func(c *AppConfig) { c.RuntimeAPI = ""; c.ExtensionName = "" }, wantErr: ErrMissingRuntimeAPI},
		{name: "empty name", mutate: func(c *AppConfig) { c.ExtensionName = "" }, wantErr: ErrInvalidConfig},
		{name: "negative poll", mutate: func(c *AppConfig) { c.PollInterval = -time.Second }, wantErr: ErrInvalidConfig},
		{name: "zero grace", mutate: func(c *AppConfig) { c.ShutdownGrace = 0 }, wantErr: ErrInvalidConfig},
		{name: "empty result dir", mutate: func(c *AppConfig) { c.ResultDir = "" }, wantErr: ErrInvalidConfig},
		{name: "bad relay addr", mutate: func(c *AppConfig) { c.Relay.ListenAddr = "3000" }, wantErr: ErrInvalidConfig},
		{name: "bad metrics addr", mutate: func(c *AppConfig) { c.MetricsAddr = "metrics" }, wantErr: ErrInvalidConfig},
		{name: "sampling above one", mutate: func(c *AppConfig) { c.Telemetry.SamplingRate = 1.5 }, wantErr: ErrInvalidConfig},
		{name: "unknown exporter when enabled", mutate: func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Exporter = "zipkin"
		}, wantErr: ErrInvalidConfig},
		{name: "unknown exporter when disabled", mutate: func(c *AppConfig) { c.Telemetry.Exporter = "zipkin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
