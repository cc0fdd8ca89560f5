// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package supervisor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/relay-extension/internal/resilience"
)

// blockingForwarder runs until release is closed.
type blockingForwarder struct {
	release chan struct{}
	ctxErr  chan error
}

func (f *blockingForwarder) Run(ctx context.Context) error {
	<-f.release
	f.ctxErr <- ctx.Err()
	return nil
}

type countingFactory struct {
	calls   atomic.Int32
	release chan struct{}
	ctxErr  chan error
	err     error
}

func newCountingFactory() *countingFactory {
	return &countingFactory{release: make(chan struct{}), ctxErr: make(chan error, 8)}
}

func (c *countingFactory) build() (Forwarder, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &blockingForwarder{release: c.release, ctxErr: c.ctxErr}, nil
}

func unreachableURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return "http://" + addr + "/api/relay/healthcheck/ready/"
}

func newSupervisor(t *testing.T, url string, f *countingFactory) *Supervisor {
	t.Helper()
	logger := zerolog.Nop()
	s, err := New(Options{HealthURL: url, Factory: f.build, Logger: &logger})
	require.NoError(t, err)
	return s
}

func TestNew_RequiresFactory(t *testing.T) {
	_, err := New(Options{HealthURL: "http://127.0.0.1:1/"})
	require.ErrorIs(t, err, ErrNoFactory)
}

func TestEnsureRunning_HealthyRelayIsNotLaunched(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusServiceUnavailable, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
			_, _ = w.Write([]byte("whatever"))
		}))
		f := newCountingFactory()
		s := newSupervisor(t, srv.URL, f)

		require.NoError(t, s.EnsureRunning(context.Background()))
		assert.Equal(t, int32(0), f.calls.Load(), "status %d", code)
		assert.False(t, s.Launched())
		srv.Close()
	}
}

func TestEnsureRunning_UnreachableLaunchesOnce(t *testing.T) {
	f := newCountingFactory()
	s := newSupervisor(t, unreachableURL(t), f)
	defer close(f.release)

	require.NoError(t, s.EnsureRunning(context.Background()))
	assert.Equal(t, int32(1), f.calls.Load())
	assert.True(t, s.Launched())

	// still unreachable while the first launch is pending
	for i := 0; i < 3; i++ {
		require.NoError(t, s.EnsureRunning(context.Background()))
	}
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestEnsureRunning_ConcurrentCallersLaunchOnce(t *testing.T) {
	f := newCountingFactory()
	s := newSupervisor(t, unreachableURL(t), f)
	defer close(f.release)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.EnsureRunning(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestEnsureRunning_RelaunchesAfterExit(t *testing.T) {
	f := newCountingFactory()
	s := newSupervisor(t, unreachableURL(t), f)

	require.NoError(t, s.EnsureRunning(context.Background()))
	close(f.release)
	require.Eventually(t, func() bool { return !s.Launched() }, 2*time.Second, 5*time.Millisecond)

	f.release = make(chan struct{})
	defer close(f.release)
	require.NoError(t, s.EnsureRunning(context.Background()))
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestEnsureRunning_DetachedFromCallerCancellation(t *testing.T) {
	f := newCountingFactory()
	s := newSupervisor(t, unreachableURL(t), f)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.EnsureRunning(ctx))
	cancel()
	close(f.release)

	select {
	case err := <-f.ctxErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("forwarder did not return")
	}
}

func TestEnsureRunning_FactoryError(t *testing.T) {
	f := newCountingFactory()
	f.err = errors.New("bad config")
	s := newSupervisor(t, unreachableURL(t), f)

	err := s.EnsureRunning(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, f.err)
	assert.False(t, s.Launched())
}

func TestEnsureRunning_CancelledContext(t *testing.T) {
	f := newCountingFactory()
	s := newSupervisor(t, unreachableURL(t), f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.EnsureRunning(ctx), context.Canceled)
	assert.Equal(t, int32(0), f.calls.Load())
}

// failingForwarder returns immediately with an error.
type failingForwarder struct{}

func (failingForwarder) Run(context.Context) error { return errors.New("address already in use") }

func TestEnsureRunning_BreakerSuppressesCrashLoop(t *testing.T) {
	var calls atomic.Int32
	logger := zerolog.Nop()
	s, err := New(Options{
		HealthURL: unreachableURL(t),
		Factory: func() (Forwarder, error) {
			calls.Add(1)
			return failingForwarder{}, nil
		},
		Logger:  &logger,
		Breaker: resilience.NewCircuitBreaker("relay-test", 2, time.Hour),
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.EnsureRunning(context.Background()))
		require.Eventually(t, func() bool { return !s.Launched() }, 2*time.Second, 5*time.Millisecond)
	}
	assert.Equal(t, int32(2), calls.Load())

	// the breaker is open now
	require.NoError(t, s.EnsureRunning(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, s.Launched())
}
