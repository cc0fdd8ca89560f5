// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package controller

import "sync/atomic"

// Flag is the process-wide keep-running flag shared between the loop and the
// signal watcher. It starts out running and can only be stopped.
type Flag struct {
	running atomic.Bool
}

// NewFlag returns a running flag.
func NewFlag() *Flag {
	f := &Flag{}
	f.running.Store(true)
	return f
}

// Running reports whether the loop should keep polling.
func (f *Flag) Running() bool { return f.running.Load() }

// Stop clears the flag. It is safe to call from any goroutine, repeatedly.
func (f *Flag) Stop() { f.running.Store(false) }
