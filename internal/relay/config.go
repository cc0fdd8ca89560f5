// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package relay

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Mode names. Only ModeProxy is served by this relay.
const (
	ModeProxy   = "proxy"
	ModeStatic  = "static"
	ModeManaged = "managed"
)

const (
	// DefaultShutdownTimeout bounds how long a draining relay waits for in-flight forwards.
	DefaultShutdownTimeout = 2 * time.Second
	DefaultListenAddr      = "127.0.0.1:3000"
	DefaultUpstream        = "https://sentry.io"

	// ReadyPath and LivePath are the relay's probe endpoints.
	ReadyPath = "/api/relay/healthcheck/ready/"
	LivePath  = "/api/relay/healthcheck/live/"
)

var (
	// ErrUnsupportedMode is returned for any mode other than proxy.
	ErrUnsupportedMode = errors.New("unsupported relay mode")
	// ErrInvalidUpstream is returned when the upstream is not an http(s) origin.
	ErrInvalidUpstream = errors.New("invalid relay upstream")
)

// Config is the static configuration a relay runs with.
type Config struct {
	Mode            string
	ShutdownTimeout time.Duration
	Upstream        string
	ListenAddr      string
	LogLevel        string
	// RateLimit caps forwarded requests per client IP and second; 0 disables it.
	RateLimit int
	Version   string
}

// Overrides replaces individual Config fields. Empty values keep the current
// setting. ShutdownTimeout accepts whole seconds ("2") or a Go duration ("2s").
type Overrides struct {
	Mode            string
	ShutdownTimeout string
	Upstream        string
	ListenAddr      string
	LogLevel        string
}

// Default returns the relay defaults.
func Default() Config {
	return Config{
		Mode:            ModeProxy,
		ShutdownTimeout: DefaultShutdownTimeout,
		Upstream:        DefaultUpstream,
		ListenAddr:      DefaultListenAddr,
		RateLimit:       1000,
	}
}

// ApplyOverrides returns c with o applied and validated.
func (c Config) ApplyOverrides(o Overrides) (Config, error) {
	if o.Mode != "" {
		c.Mode = o.Mode
	}
	if o.ShutdownTimeout != "" {
		d, err := parseTimeout(o.ShutdownTimeout)
		if err != nil {
			return c, fmt.Errorf("shutdown timeout %q: %w", o.ShutdownTimeout, err)
		}
		c.ShutdownTimeout = d
	}
	if o.Upstream != "" {
		c.Upstream = o.Upstream
	}
	if o.ListenAddr != "" {
		c.ListenAddr = o.ListenAddr
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	return c, c.Validate()
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeProxy:
	case ModeStatic, ModeManaged:
		return fmt.Errorf("%w: %s (only %s is available in the extension)", ErrUnsupportedMode, c.Mode, ModeProxy)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMode, c.Mode)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	u, err := url.Parse(c.Upstream)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidUpstream, c.Upstream)
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.ListenAddr, err)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %d", c.RateLimit)
	}
	return nil
}

// HealthURL is the readiness endpoint a supervisor probes.
func (c Config) HealthURL() string {
	return "http://" + c.ListenAddr + ReadyPath
}

func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// Build assembles the configuration the extension launches the relay with:
// proxy mode, the fixed drain timeout, and an upstream derived from dsn when
// dsn is a valid destination identifier.
func Build(dsn, listenAddr, logLevel, version string) (Config, error) {
	o := Overrides{
		Mode:            ModeProxy,
		ShutdownTimeout: strconv.Itoa(int(DefaultShutdownTimeout / time.Second)),
		ListenAddr:      listenAddr,
		LogLevel:        logLevel,
	}
	if upstream, ok := UpstreamFromDSN(dsn); ok {
		o.Upstream = upstream
	}
	cfg := Default()
	cfg.Version = version
	return cfg.ApplyOverrides(o)
}
