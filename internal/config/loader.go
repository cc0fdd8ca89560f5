// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a new configuration loader. An empty configPath falls back
// to RELAY_EXTENSION_CONFIG; if that is empty too, no file is read.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath: configPath,
		version:    version,
	}
}

// Load loads configuration with precedence: ENV > File > Defaults, then validates.
func (l *Loader) Load() (AppConfig, error) {
	cfg := defaults()
	cfg.Version = l.version

	path := l.configPath
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigFile))
	}
	if path != "" {
		fileCfg, err := l.loadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	if err := mergeEnvConfig(&cfg); err != nil {
		return cfg, err
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaults() AppConfig {
	return AppConfig{
		ExtensionName: DefaultExtensionName,
		PollInterval:  DefaultPollInterval,
		ShutdownGrace: DefaultShutdownGrace,
		ResultDir:     DefaultResultDir,
		LogLevel:      DefaultLogLevel,
		Relay: RelayConfig{
			ListenAddr: DefaultRelayListenAddr,
			LogLevel:   DefaultLogLevel,
		},
		Telemetry: TelemetryConfig{
			Exporter:     DefaultOTelExporter,
			SamplingRate: 1.0,
		},
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFileConfig(cfg *AppConfig, fc *FileConfig) error {
	if fc == nil {
		return nil
	}
	if fc.ExtensionName != "" {
		cfg.ExtensionName = fc.ExtensionName
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("%w: pollInterval: %w", ErrInvalidConfig, err)
		}
		cfg.PollInterval = d
	}
	if fc.ShutdownGrace != "" {
		d, err := time.ParseDuration(fc.ShutdownGrace)
		if err != nil {
			return fmt.Errorf("%w: shutdownGrace: %w", ErrInvalidConfig, err)
		}
		cfg.ShutdownGrace = d
	}
	if fc.ResultDir != "" {
		cfg.ResultDir = fc.ResultDir
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.MetricsAddr != "" {
		cfg.MetricsAddr = fc.MetricsAddr
	}
	if fc.Relay != nil {
		if fc.Relay.ListenAddr != "" {
			cfg.Relay.ListenAddr = fc.Relay.ListenAddr
		}
		if fc.Relay.LogLevel != "" {
			cfg.Relay.LogLevel = fc.Relay.LogLevel
		}
	}
	if fc.Telemetry != nil {
		if fc.Telemetry.Enabled != nil {
			cfg.Telemetry.Enabled = *fc.Telemetry.Enabled
		}
		if fc.Telemetry.Exporter != "" {
			cfg.Telemetry.Exporter = fc.Telemetry.Exporter
		}
		if fc.Telemetry.Endpoint != "" {
			cfg.Telemetry.Endpoint = fc.Telemetry.Endpoint
		}
		if fc.Telemetry.SamplingRate != nil {
			cfg.Telemetry.SamplingRate = *fc.Telemetry.SamplingRate
		}
	}
	return nil
}

// mergeEnvConfig applies environment overrides. Every malformed value is
// reported, joined, rather than only the first.
func mergeEnvConfig(cfg *AppConfig) error {
	var errs []error
	duration := func(key string, dst *time.Duration) {
		d, err := ParseDuration(key, *dst)
		if err != nil {
			errs = append(errs, err)
		}
		*dst = d
	}

	cfg.RuntimeAPI = ParseString(EnvRuntimeAPI, cfg.RuntimeAPI)
	cfg.SentryDSN = ParseString(EnvSentryDSN, cfg.SentryDSN)
	cfg.ExtensionName = ParseString(EnvExtensionName, cfg.ExtensionName)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)
	duration(EnvPollInterval, &cfg.PollInterval)
	duration(EnvShutdownGrace, &cfg.ShutdownGrace)
	cfg.ResultDir = ParseString(EnvResultDir, cfg.ResultDir)
	cfg.MetricsAddr = ParseString(EnvMetricsAddr, cfg.MetricsAddr)

	cfg.Relay.ListenAddr = ParseString(EnvRelayListenAddr, cfg.Relay.ListenAddr)
	cfg.Relay.LogLevel = ParseString(EnvRelayLogLevel, cfg.Relay.LogLevel)

	enabled, err := ParseBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Telemetry.Enabled = enabled
	cfg.Telemetry.Exporter = ParseString(EnvOTelExporter, cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)
	rate, err := ParseFloat(EnvOTelSampling, cfg.Telemetry.SamplingRate)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Telemetry.SamplingRate = rate

	return errors.Join(errs...)
}
