// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package controller

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ManuGH/relay-extension/internal/log"
)

// WatchSignals stops flag and calls cancel on SIGINT or SIGTERM. It keeps
// consuming signals until the returned stop function is called, so the
// SIGTERM raised during shutdown does not terminate the process.
func WatchSignals(ctx context.Context, flag *Flag, cancel context.CancelFunc) (stop func()) {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		watch(ctx, ch, done, flag, cancel)
	}()

	return func() {
		signal.Stop(ch)
		close(done)
		<-finished
	}
}

func watch(ctx context.Context, ch <-chan os.Signal, done <-chan struct{}, flag *Flag, cancel context.CancelFunc) {
	logger := log.WithComponentFromContext(ctx, "signals")
	for {
		select {
		case <-done:
			return
		case sig := <-ch:
			// The first signal wins; later ones (our own SIGTERM) are just logged.
			if flag.Running() {
				logger.Info().
					Str(log.FieldEvent, "signal.received").
					Str("signal", sig.String()).
					Msg("received signal, stopping")
			} else {
				logger.Debug().
					Str(log.FieldEvent, "signal.received").
					Str("signal", sig.String()).
					Msg("received signal while stopping")
			}
			flag.Stop()
			cancel()
		}
	}
}
