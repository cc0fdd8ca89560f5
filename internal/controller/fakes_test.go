// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package controller

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/relay-extension/internal/extension"
)

type fakeRegistrar struct {
	handle extension.Handle
	err    error
	calls  int
}

func (f *fakeRegistrar) Register(context.Context) (extension.Handle, error) {
	f.calls++
	return f.handle, f.err
}

// scriptedPoller returns events (or errors) in order. Once the script is
// exhausted it blocks until ctx is done.
type scriptedPoller struct {
	steps   []pollStep
	polls   int
	handles []extension.Handle
}

type pollStep struct {
	ev  extension.Event
	err error
}

func (p *scriptedPoller) Next(ctx context.Context, h extension.Handle) (extension.Event, error) {
	p.handles = append(p.handles, h)
	if p.polls >= len(p.steps) {
		p.polls++
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s := p.steps[p.polls]
	p.polls++
	return s.ev, s.err
}

type fakeSupervisor struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSupervisor) EnsureRunning(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

// processed records, per request id, how many polls had returned when its
// result was processed.
type fakeReporter struct {
	poller    *scriptedPoller
	processed []string
	atPoll    map[string]int
}

func (f *fakeReporter) Process(id string) {
	f.processed = append(f.processed, id)
	if f.atPoll == nil {
		f.atPoll = map[string]int{}
	}
	f.atPoll[id] = f.poller.polls
}

type fakeShutdowner struct {
	calls      int
	reason     string
	deadlineMs uint64
	err        error
}

func (f *fakeShutdowner) Shutdown(_ context.Context, reason string, deadlineMs uint64) error {
	f.calls++
	f.reason = reason
	f.deadlineMs = deadlineMs
	return f.err
}

type fakeExitReporter struct {
	calls     int
	errorType string
	cause     error
	handle    extension.Handle
}

func (f *fakeExitReporter) ReportExitError(_ context.Context, h extension.Handle, errorType string, cause error) error {
	f.calls++
	f.handle = h
	f.errorType = errorType
	f.cause = cause
	return errors.New("platform gone")
}

type harness struct {
	reg    *fakeRegistrar
	poller *scriptedPoller
	sup    *fakeSupervisor
	rep    *fakeReporter
	shut   *fakeShutdowner
	exit   *fakeExitReporter
	flag   *Flag
	sleeps []time.Duration
}

func newHarness(steps ...pollStep) *harness {
	p := &scriptedPoller{steps: steps}
	return &harness{
		reg:    &fakeRegistrar{handle: extension.Handle{ID: "abc123"}},
		poller: p,
		sup:    &fakeSupervisor{},
		rep:    &fakeReporter{poller: p},
		shut:   &fakeShutdowner{},
		exit:   &fakeExitReporter{},
		flag:   NewFlag(),
	}
}

func (h *harness) loop() (*Loop, error) {
	logger := zerolog.New(io.Discard)
	return New(Deps{
		Registrar:    h.reg,
		Poller:       h.poller,
		Supervisor:   h.sup,
		Reporter:     h.rep,
		Shutdowner:   h.shut,
		ExitReporter: h.exit,
		Flag:         h.flag,
		PollInterval: time.Second,
		Sleep: func(_ context.Context, d time.Duration) {
			h.sleeps = append(h.sleeps, d)
		},
		Logger: &logger,
	})
}

func invoke(id string) pollStep {
	return pollStep{ev: extension.InvokeEvent{RequestID: id, DeadlineMs: 1000, InvokedFunctionARN: "arn:fn"}}
}

func shutdown(reason string) pollStep {
	return pollStep{ev: extension.ShutdownEvent{Reason: reason, DeadlineMs: 1000}}
}
