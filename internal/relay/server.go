// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/relay-extension/internal/health"
	"github.com/ManuGH/relay-extension/internal/log"
	"github.com/ManuGH/relay-extension/internal/metrics"
	"github.com/ManuGH/relay-extension/internal/telemetry"
)

// Server is an in-process telemetry relay. It accepts envelopes on its
// listen address and forwards them to the configured upstream.
type Server struct {
	cfg      Config
	logger   zerolog.Logger
	health   *health.Manager
	draining atomic.Bool
	handler  http.Handler
	upstream *http.Transport
}

// New validates cfg and builds a relay server.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	target, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUpstream, err)
	}

	s := &Server{
		cfg:    cfg,
		logger: log.WithComponentLevel("relay", cfg.LogLevel),
		health: health.NewManager(cfg.Version),
		// Idle connections are closed when Serve returns.
		upstream: http.DefaultTransport.(*http.Transport).Clone(),
	}
	s.health.RegisterChecker(health.NewCheckFunc("relay", func(context.Context) health.CheckResult {
		if s.draining.Load() {
			return health.CheckResult{Status: health.StatusUnhealthy, Message: "draining"}
		}
		return health.CheckResult{Status: health.StatusHealthy}
	}))
	s.handler = s.routes(target)
	return s, nil
}

func (s *Server) routes(target *url.URL) http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)

	r.Get(ReadyPath, s.health.ServeReady)
	r.Get(LivePath, s.health.ServeHealth)

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: otelhttp.NewTransport(s.upstream),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			metrics.IncRelayUpstreamError()
			logger := log.WithContext(r.Context(), s.logger)
			logger.Warn().Err(err).
				Str(log.FieldEvent, "relay.upstream_error").
				Str(log.FieldPath, r.URL.Path).
				Str(log.FieldUpstream, s.cfg.Upstream).
				Msg("upstream request failed")
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Second))
		}
		r.Use(forwardMetrics)
		r.Handle("/*", otelhttp.NewHandler(proxy, "relay.forward",
			otelhttp.WithSpanOptions(trace.WithAttributes(
				attribute.String(telemetry.RelayUpstreamKey, s.cfg.Upstream)))))
	})
	return r
}

// Handler returns the relay's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address and serves until ctx is done or the
// process receives SIGTERM, then drains for at most ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("relay listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. It takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.logger.Info().
		Str(log.FieldEvent, "relay.start").
		Str(log.FieldAddr, ln.Addr().String()).
		Str(log.FieldUpstream, s.cfg.Upstream).
		Str("mode", s.cfg.Mode).
		Msg("relay listening")

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.draining.Store(true)
		s.logger.Info().
			Str(log.FieldEvent, "relay.drain").
			Dur("timeout", s.cfg.ShutdownTimeout).
			Msg("relay draining")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("relay drain: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.upstream.CloseIdleConnections()
	s.logger.Info().Str(log.FieldEvent, "relay.stop").Msg("relay stopped")
	return err
}
