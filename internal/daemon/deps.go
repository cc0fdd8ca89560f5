// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

// DefaultHookTimeout bounds the shutdown hooks as a whole.
const DefaultHookTimeout = 5 * time.Second

// Deps contains dependencies required by the Coordinator.
type Deps struct {
	// Logger is the structured logger for the coordinator
	Logger zerolog.Logger

	// Grace is how long the coordinator waits after signalling before it returns.
	Grace time.Duration

	// HookTimeout bounds the registered shutdown hooks. Zero uses DefaultHookTimeout.
	HookTimeout time.Duration

	// Raise delivers the termination signal. Nil signals the own process with SIGTERM.
	Raise func() error

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration)
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.Grace <= 0 {
		return ErrInvalidGrace
	}
	return nil
}

func (d *Deps) withDefaults() Deps {
	out := *d
	if out.HookTimeout <= 0 {
		out.HookTimeout = DefaultHookTimeout
	}
	if out.Raise == nil {
		out.Raise = RaiseSIGTERM
	}
	if out.Sleep == nil {
		out.Sleep = sleep
	}
	return out
}

// RaiseSIGTERM sends SIGTERM to the current process.
func RaiseSIGTERM() error {
	return syscall.Kill(os.Getpid(), syscall.SIGTERM)
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
