// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package daemon sequences process shutdown: signal, grace period, cleanup hooks.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/relay-extension/internal/log"
	"github.com/ManuGH/relay-extension/internal/metrics"
)

// ShutdownHook is a function that performs cleanup during graceful shutdown.
// Hooks are executed in reverse registration order (LIFO).
type ShutdownHook func(ctx context.Context) error

// namedHook represents a shutdown hook with a name for logging
type namedHook struct {
	name string
	hook ShutdownHook
}

// Coordinator runs the shutdown sequence once.
type Coordinator struct {
	deps Deps

	mu       sync.Mutex
	hooks    []namedHook
	stopping bool

	logger zerolog.Logger
}

// NewCoordinator creates a shutdown coordinator.
func NewCoordinator(deps Deps) (*Coordinator, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &Coordinator{
		deps:   deps.withDefaults(),
		logger: deps.Logger.With().Str(log.FieldComponent, "shutdown").Logger(),
	}, nil
}

// RegisterShutdownHook registers a cleanup function to be called during shutdown.
func (c *Coordinator) RegisterShutdownHook(name string, hook ShutdownHook) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hooks = append(c.hooks, namedHook{name: name, hook: hook})
	c.logger.Debug().Str("hook", name).Msg("registered shutdown hook")
}

// Shutdown logs reason, signals the process, waits the grace period and then
// runs the shutdown hooks. The wait is not cut short by ctx. Hook failures are
// logged and returned joined; the signal and the grace period always happen.
func (c *Coordinator) Shutdown(ctx context.Context, reason string, deadlineMs uint64) error {
	if ctx == nil {
		return ErrNilContext
	}
	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		return ErrAlreadyShuttingDown
	}
	c.stopping = true
	hooks := append([]namedHook(nil), c.hooks...)
	c.mu.Unlock()

	metrics.RecordShutdown(reason)
	c.logger.Info().
		Str(log.FieldEvent, "shutdown.received").
		Str(log.FieldReason, reason).
		Uint64(log.FieldDeadlineMs, deadlineMs).
		Dur("grace", c.deps.Grace).
		Msg("received shutdown event, signalling relay")

	var errs []error
	if err := c.deps.Raise(); err != nil {
		c.logger.Error().Err(err).Str(log.FieldEvent, "shutdown.signal_failed").Msg("failed to signal process")
		errs = append(errs, fmt.Errorf("raise: %w", err))
	}

	detached := context.WithoutCancel(ctx)
	c.deps.Sleep(detached, c.deps.Grace)

	errs = append(errs, c.runHooks(detached, hooks)...)
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	c.logger.Info().Str(log.FieldEvent, "shutdown.complete").Msg("shutdown complete")
	return nil
}

// Close runs the shutdown hooks without signalling or waiting. It is used
// when the process exits for any reason other than a shutdown event. Close
// after Shutdown (or a second Close) is a no-op.
func (c *Coordinator) Close(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	c.mu.Lock()
	if c.stopping {
		c.mu.Unlock()
		return nil
	}
	c.stopping = true
	hooks := append([]namedHook(nil), c.hooks...)
	c.mu.Unlock()

	if errs := c.runHooks(context.WithoutCancel(ctx), hooks); len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}

// runHooks executes hooks in reverse order under a shared timeout.
func (c *Coordinator) runHooks(ctx context.Context, hooks []namedHook) []error {
	hookCtx, cancel := context.WithTimeout(ctx, c.deps.HookTimeout)
	defer cancel()

	var errs []error
	c.logger.Debug().Int("hooks", len(hooks)).Msg("executing shutdown hooks")
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		start := time.Now()
		if err := h.hook(hookCtx); err != nil {
			c.logger.Error().
				Err(err).
				Str("hook", h.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
			continue
		}
		c.logger.Debug().
			Str("hook", h.name).
			Dur("duration", time.Since(start)).
			Msg("shutdown hook completed")
	}
	return errs
}

// StartMetricsServer serves handler on addr and registers a hook that stops
// it. The listener is bound before returning so address errors surface here.
func (c *Coordinator) StartMetricsServer(ctx context.Context, addr string, handler http.Handler) (net.Addr, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics server listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.logger.Info().Str(log.FieldAddr, ln.Addr().String()).Msg("metrics server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error().
				Err(err).
				Str(log.FieldEvent, "metrics.server.failed").
				Msg("metrics server failed")
		}
	}()

	c.RegisterShutdownHook("metrics-server", func(ctx context.Context) error {
		err := srv.Shutdown(ctx)
		<-done
		if err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	})
	return ln.Addr(), nil
}
