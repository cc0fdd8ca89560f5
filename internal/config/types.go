// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"
	"time"
)

// Environment keys.
const (
	EnvRuntimeAPI      = "AWS_LAMBDA_RUNTIME_API"
	EnvSentryDSN       = "SENTRY_DSN"
	EnvConfigFile      = "RELAY_EXTENSION_CONFIG"
	EnvExtensionName   = "RELAY_EXTENSION_NAME"
	EnvLogLevel        = "RELAY_EXTENSION_LOG_LEVEL"
	EnvPollInterval    = "RELAY_EXTENSION_POLL_INTERVAL"
	EnvShutdownGrace   = "RELAY_EXTENSION_SHUTDOWN_GRACE"
	EnvResultDir       = "RELAY_EXTENSION_RESULT_DIR"
	EnvMetricsAddr     = "RELAY_EXTENSION_METRICS_ADDR"
	EnvRelayListenAddr = "RELAY_LISTEN_ADDR"
	EnvRelayLogLevel   = "RELAY_LOG_LEVEL"
	EnvOTelEnabled     = "RELAY_EXTENSION_OTEL_ENABLED"
	EnvOTelExporter    = "RELAY_EXTENSION_OTEL_EXPORTER"
	EnvOTelEndpoint    = "RELAY_EXTENSION_OTEL_ENDPOINT"
	EnvOTelSampling    = "RELAY_EXTENSION_OTEL_SAMPLING"
)

// Defaults.
const (
	DefaultExtensionName   = "aws-lambda-extension"
	DefaultPollInterval    = 1 * time.Second
	DefaultShutdownGrace   = 2 * time.Second
	DefaultResultDir       = "/tmp"
	DefaultRelayListenAddr = "127.0.0.1:3000"
	DefaultLogLevel        = "info"
	DefaultOTelExporter    = "grpc"
)

// AppConfig is the resolved runtime configuration of the extension.
type AppConfig struct {
	// RuntimeAPI is the host:port of the platform extension API.
	RuntimeAPI string
	// ExtensionName is sent as Lambda-Extension-Name on registration.
	ExtensionName string
	// SentryDSN is the destination identifier the relay upstream is derived from.
	SentryDSN string

	PollInterval  time.Duration
	ShutdownGrace time.Duration
	ResultDir     string
	LogLevel      string
	MetricsAddr   string

	Relay     RelayConfig
	Telemetry TelemetryConfig

	Version string
}

// RelayConfig holds the settings the supervised relay is started with.
type RelayConfig struct {
	ListenAddr string
	LogLevel   string
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string
	Endpoint     string
	SamplingRate float64
}

// ExtensionBaseURL returns the extension API root for the configured runtime API.
func (c AppConfig) ExtensionBaseURL() string {
	return fmt.Sprintf("http://%s/2020-01-01/extension", c.RuntimeAPI)
}

// FileConfig is the YAML shape of the optional config file. Durations are Go
// duration strings ("1s", "250ms").
type FileConfig struct {
	ExtensionName string         `yaml:"extensionName,omitempty"`
	PollInterval  string         `yaml:"pollInterval,omitempty"`
	ShutdownGrace string         `yaml:"shutdownGrace,omitempty"`
	ResultDir     string         `yaml:"resultDir,omitempty"`
	LogLevel      string         `yaml:"logLevel,omitempty"`
	MetricsAddr   string         `yaml:"metricsAddr,omitempty"`
	Relay         *FileRelay     `yaml:"relay,omitempty"`
	Telemetry     *FileTelemetry `yaml:"telemetry,omitempty"`
}

// FileRelay is the relay section of FileConfig.
type FileRelay struct {
	ListenAddr string `yaml:"listenAddr,omitempty"`
	LogLevel   string `yaml:"logLevel,omitempty"`
}

// FileTelemetry is the telemetry section of FileConfig.
type FileTelemetry struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
