// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package controller

// State is a phase of the lifecycle loop.
type State int

const (
	StateRegistering State = iota
	StatePolling
	StateHandlingInvoke
	StateHandlingShutdown
	StateTerminated
)

var stateNames = []string{
	StateRegistering:      "registering",
	StatePolling:          "polling",
	StateHandlingInvoke:   "handling_invoke",
	StateHandlingShutdown: "handling_shutdown",
	StateTerminated:       "terminated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
