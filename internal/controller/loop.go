// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package controller drives the extension lifecycle: register once, then
// keep the relay up and poll for events until shutdown or cancellation.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ManuGH/relay-extension/internal/extension"
	"github.com/ManuGH/relay-extension/internal/log"
	"github.com/ManuGH/relay-extension/internal/metrics"
	"github.com/ManuGH/relay-extension/internal/telemetry"
)

// exitReportTimeout bounds the best-effort /exit/error call.
const exitReportTimeout = 2 * time.Second

// Exit error types reported to the platform.
const (
	ErrorTypeDecode    = "Extension.DecodeError"
	ErrorTypeTransport = "Extension.TransportError"
)

var (
	ErrMissingDependency = errors.New("controller: missing dependency")
	ErrUnhandledEvent    = errors.New("unhandled lifecycle event")
)

// Registrar performs the one-time registration handshake.
type Registrar interface {
	Register(ctx context.Context) (extension.Handle, error)
}

// Poller blocks until the next lifecycle event.
type Poller interface {
	Next(ctx context.Context, h extension.Handle) (extension.Event, error)
}

// Supervisor keeps the relay running.
type Supervisor interface {
	EnsureRunning(ctx context.Context) error
}

// Reporter consumes the result of a finished invocation.
type Reporter interface {
	Process(requestID string)
}

// Shutdowner runs the shutdown sequence.
type Shutdowner interface {
	Shutdown(ctx context.Context, reason string, deadlineMs uint64) error
}

// ExitReporter tells the platform why the extension is exiting.
type ExitReporter interface {
	ReportExitError(ctx context.Context, h extension.Handle, errorType string, cause error) error
}

// Deps wires a Loop. ExitReporter, Sleep, Tracer and Logger are optional.
type Deps struct {
	Registrar    Registrar
	Poller       Poller
	Supervisor   Supervisor
	Reporter     Reporter
	Shutdowner   Shutdowner
	ExitReporter ExitReporter

	Flag         *Flag
	PollInterval time.Duration
	Sleep        func(ctx context.Context, d time.Duration)
	Tracer       trace.Tracer
	Logger       *zerolog.Logger
}

// Loop is the lifecycle state machine. A Loop runs once.
type Loop struct {
	deps   Deps
	logger zerolog.Logger
	tracer trace.Tracer

	state   State
	pending string
}

// New validates deps and returns a Loop in the Registering state.
func New(deps Deps) (*Loop, error) {
	switch {
	case deps.Registrar == nil:
		return nil, fmt.Errorf("%w: registrar", ErrMissingDependency)
	case deps.Poller == nil:
		return nil, fmt.Errorf("%w: poller", ErrMissingDependency)
	case deps.Supervisor == nil:
		return nil, fmt.Errorf("%w: supervisor", ErrMissingDependency)
	case deps.Reporter == nil:
		return nil, fmt.Errorf("%w: reporter", ErrMissingDependency)
	case deps.Shutdowner == nil:
		return nil, fmt.Errorf("%w: shutdowner", ErrMissingDependency)
	}
	if deps.Flag == nil {
		deps.Flag = NewFlag()
	}
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}
	l := &Loop{deps: deps, state: StateRegistering}
	l.logger = log.WithComponent("controller")
	if deps.Logger != nil {
		l.logger = *deps.Logger
	}
	l.tracer = deps.Tracer
	if l.tracer == nil {
		l.tracer = noop.NewTracerProvider().Tracer("controller")
	}
	metrics.SetLoopState(l.state.String(), stateNames)
	return l, nil
}

// State returns the current state. It is not safe for concurrent use with Run.
func (l *Loop) State() State { return l.state }

// Run registers and then polls until a shutdown event, a stopped flag, a
// cancelled ctx, or a fatal error. It returns nil on clean termination and
// the originating error otherwise.
func (l *Loop) Run(ctx context.Context) error {
	h, err := l.register(ctx)
	if err != nil {
		l.transition(StateTerminated)
		return err
	}
	l.transition(StatePolling)

	for {
		if !l.deps.Flag.Running() {
			l.terminate("cancelled")
			return nil
		}

		if err := l.deps.Supervisor.EnsureRunning(ctx); err != nil && ctx.Err() == nil {
			l.logger.Warn().Err(err).
				Str(log.FieldEvent, "relay.ensure_failed").
				Msg("could not ensure relay is running")
		}

		l.deps.Sleep(ctx, l.deps.PollInterval)

		start := time.Now()
		ev, err := l.deps.Poller.Next(ctx, h)
		metrics.ObservePollWait(time.Since(start))

		// The platform finalizes an invocation's result only after we poll again.
		l.flushPending()

		if err != nil {
			if ctx.Err() != nil {
				l.deps.Flag.Stop()
				l.terminate("cancelled")
				return nil
			}
			return l.fail(ctx, h, err)
		}

		metrics.RecordEvent(string(ev.Type()))
		switch e := ev.(type) {
		case extension.InvokeEvent:
			l.handleInvoke(ctx, e)
		case extension.ShutdownEvent:
			return l.handleShutdown(ctx, e)
		default:
			return l.fail(ctx, h, fmt.Errorf("%w: %T", ErrUnhandledEvent, ev))
		}
	}
}

func (l *Loop) register(ctx context.Context) (extension.Handle, error) {
	ctx, span := l.tracer.Start(ctx, "extension.register")
	defer span.End()

	l.logger.Info().
		Str(log.FieldEvent, "extension.registering").
		Str(log.FieldNewState, l.state.String()).
		Msg("registering extension")

	h, err := l.deps.Registrar.Register(ctx)
	if err != nil {
		metrics.RecordRegistration("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "registration failed")
		span.SetAttributes(telemetry.ErrorAttributes(err, "registration")...)
		l.logger.Error().Err(err).
			Str(log.FieldEvent, "extension.register_failed").
			Msg("extension registration failed")
		return extension.Handle{}, fmt.Errorf("register: %w", err)
	}

	metrics.RecordRegistration("ok")
	l.logger = l.logger.With().Str(log.FieldExtensionID, h.ID).Logger()
	ev := l.logger.Info().Str(log.FieldEvent, "extension.registered")
	if h.FunctionName != "" {
		ev = ev.Str("function_name", h.FunctionName).Str("function_version", h.FunctionVersion)
	}
	ev.Msg("extension registered")
	return h, nil
}

func (l *Loop) handleInvoke(ctx context.Context, e extension.InvokeEvent) {
	l.transition(StateHandlingInvoke)
	ctx, span := l.tracer.Start(ctx, "extension.invoke",
		trace.WithAttributes(telemetry.InvokeAttributes(e.RequestID, e.InvokedFunctionARN, e.Tracing.Type, e.DeadlineMs)...))
	logger := log.WithContext(ctx, l.logger)
	logger.Info().
		Str(log.FieldEvent, "extension.invoke").
		Str(log.FieldRequestID, e.RequestID).
		Str(log.FieldFunctionARN, e.InvokedFunctionARN).
		Uint64(log.FieldDeadlineMs, e.DeadlineMs).
		Msg("invoke event received")
	l.pending = e.RequestID
	span.End()
	l.transition(StatePolling)
}

func (l *Loop) handleShutdown(ctx context.Context, e extension.ShutdownEvent) error {
	l.transition(StateHandlingShutdown)
	l.deps.Flag.Stop()

	ctx, span := l.tracer.Start(ctx, "extension.shutdown",
		trace.WithAttributes(telemetry.ShutdownAttributes(e.Reason, e.DeadlineMs)...))
	defer span.End()

	if err := l.deps.Shutdowner.Shutdown(ctx, e.Reason, e.DeadlineMs); err != nil {
		// Cleanup failures do not change the outcome of a requested shutdown.
		span.RecordError(err)
		logger := log.WithContext(ctx, l.logger)
		logger.Warn().Err(err).
			Str(log.FieldEvent, "shutdown.incomplete").
			Msg("shutdown completed with errors")
	}
	l.terminate("shutdown")
	return nil
}

func (l *Loop) flushPending() {
	if l.pending == "" {
		return
	}
	id := l.pending
	l.pending = ""
	l.deps.Reporter.Process(id)
}

func (l *Loop) fail(ctx context.Context, h extension.Handle, err error) error {
	class, errorType := "transport", ErrorTypeTransport
	if errors.Is(err, extension.ErrDecode) || errors.Is(err, ErrUnhandledEvent) {
		class, errorType = "decode", ErrorTypeDecode
	}
	metrics.RecordPollError(class)
	l.logger.Error().Err(err).
		Str(log.FieldEvent, "extension.poll_failed").
		Str("class", class).
		Msg("polling for next event failed")

	if l.deps.ExitReporter != nil {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exitReportTimeout)
		if rerr := l.deps.ExitReporter.ReportExitError(rctx, h, errorType, err); rerr != nil {
			l.logger.Debug().Err(rerr).Msg("could not report exit error")
		}
		cancel()
	}

	l.transition(StateTerminated)
	return fmt.Errorf("next event: %w", err)
}

func (l *Loop) terminate(why string) {
	if l.pending != "" {
		l.logger.Debug().Str(log.FieldRequestID, l.pending).Msg("dropping unprocessed invocation result")
		l.pending = ""
	}
	l.transition(StateTerminated)
	l.logger.Info().
		Str(log.FieldEvent, "controller.stopped").
		Str(log.FieldReason, why).
		Msg("lifecycle loop stopped")
}

func (l *Loop) transition(next State) {
	if next == l.state {
		return
	}
	l.logger.Debug().
		Str(log.FieldEvent, "controller.transition").
		Str(log.FieldOldState, l.state.String()).
		Str(log.FieldNewState, next.String()).
		Msg("state transition")
	l.state = next
	metrics.SetLoopState(next.String(), stateNames)
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
