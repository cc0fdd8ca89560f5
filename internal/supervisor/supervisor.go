// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package supervisor keeps the telemetry relay running next to the extension.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ManuGH/relay-extension/internal/log"
	"github.com/ManuGH/relay-extension/internal/metrics"
	"github.com/ManuGH/relay-extension/internal/platform/httpx"
	"github.com/ManuGH/relay-extension/internal/resilience"
)

// DefaultProbeTimeout bounds a single readiness probe.
const DefaultProbeTimeout = 500 * time.Millisecond

// suppressedLogEvery limits the suppressed-launch warning while the breaker is open.
const suppressedLogEvery = 30 * time.Second

// ErrNoFactory is returned by New when no Factory is given.
var ErrNoFactory = errors.New("supervisor: nil forwarder factory")

// Forwarder is a long-running relay. Run blocks until the relay stops.
type Forwarder interface {
	Run(ctx context.Context) error
}

// Factory builds a fresh Forwarder for each launch.
type Factory func() (Forwarder, error)

// Options configures a Supervisor.
type Options struct {
	HealthURL    string
	Factory      Factory
	ProbeTimeout time.Duration
	HTTPClient   *http.Client
	Logger       *zerolog.Logger
	// Breaker, if set, suppresses launches after repeated relay failures.
	Breaker *resilience.CircuitBreaker
}

// Supervisor probes the relay and launches it when it is not reachable.
// At most one relay launched by a Supervisor is alive at any time.
type Supervisor struct {
	healthURL string
	factory   Factory
	probe     *http.Client
	breaker   *resilience.CircuitBreaker
	logger    zerolog.Logger
	warnLim   *rate.Limiter

	sf       singleflight.Group
	launched atomic.Bool
}

// New creates a Supervisor.
func New(opts Options) (*Supervisor, error) {
	if opts.Factory == nil {
		return nil, ErrNoFactory
	}
	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = httpx.NewClient(timeout)
	}
	logger := log.WithComponent("supervisor")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Supervisor{
		healthURL: opts.HealthURL,
		factory:   opts.Factory,
		probe:     client,
		breaker:   opts.Breaker,
		logger:    logger.With().Str("health_url", opts.HealthURL).Logger(),
		warnLim:   rate.NewLimiter(rate.Every(suppressedLogEvery), 1),
	}, nil
}

// EnsureRunning launches the relay when its readiness endpoint does not
// answer. Concurrent callers share one probe.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	_, err, _ := s.sf.Do("ensure", func() (any, error) {
		return nil, s.ensure(ctx)
	})
	return err
}

// Launched reports whether a relay started by s is still running.
func (s *Supervisor) Launched() bool {
	return s.launched.Load()
}

func (s *Supervisor) ensure(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.check(ctx)
	metrics.RecordHealthProbe(err == nil)
	if err == nil {
		return nil
	}

	if s.launched.Load() {
		metrics.RecordRelayLaunch("pending")
		s.logger.Debug().Err(err).
			Str(log.FieldEvent, "relay.launch_pending").
			Msg("relay not reachable yet, launch pending")
		return nil
	}

	if s.breaker != nil && !s.breaker.Allow() {
		metrics.RecordRelayLaunch("suppressed")
		if s.warnLim.Allow() {
			s.logger.Warn().Err(err).
				Str(log.FieldEvent, "relay.launch_suppressed").
				Msg("relay keeps failing, launch suppressed")
		}
		return nil
	}

	s.logger.Info().Err(err).
		Str(log.FieldEvent, "relay.unreachable").
		Msg("relay not reachable, launching")

	fwd, err := s.factory()
	if err != nil {
		s.recordOutcome(err)
		metrics.RecordRelayLaunch("error")
		return fmt.Errorf("build relay: %w", err)
	}

	s.launched.Store(true)
	metrics.RecordRelayLaunch("launched")
	go s.run(context.WithoutCancel(ctx), fwd)
	return nil
}

// check returns nil when the readiness endpoint produced any HTTP response.
func (s *Supervisor) check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.healthURL, nil)
	if err != nil {
		return fmt.Errorf("build probe: %w", err)
	}
	resp, err := s.probe.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
	return nil
}

func (s *Supervisor) run(ctx context.Context, fwd Forwarder) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str(log.FieldEvent, "relay.panic").
				Interface("panic_value", r).
				Msg("relay panicked")
			perr := fmt.Errorf("panic: %v", r)
			s.recordOutcome(perr)
			metrics.RecordRelayExit(perr)
		}
		s.launched.Store(false)
	}()

	err := fwd.Run(ctx)
	s.recordOutcome(err)
	metrics.RecordRelayExit(err)
	if err != nil {
		s.logger.Error().Err(err).Str(log.FieldEvent, "relay.exited").Msg("relay exited with error")
		return
	}
	s.logger.Info().Str(log.FieldEvent, "relay.exited").Msg("relay exited")
}

func (s *Supervisor) recordOutcome(err error) {
	if s.breaker == nil {
		return
	}
	if err != nil {
		s.breaker.RecordFailure()
		return
	}
	s.breaker.RecordSuccess()
}
